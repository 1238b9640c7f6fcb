package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"device-tracking-backend/config"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(ctx context.Context, msg Message) error
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(ctx context.Context, msg Message) error {
	return m.SendFunc(ctx, msg)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &mockSender{}, zap.NewNop())

	require.NoError(t, wp.Dispatch(context.Background(), Message{To: "+911234567890", Body: "hi"}))

	select {
	case msg := <-wp.jobs:
		assert.Equal(t, "+911234567890", msg.To)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for message to be dispatched")
	}
}

func TestWorkerPool_DispatchFullQueueRespectsContext(t *testing.T) {
	wp := NewWorkerPool(1, &mockSender{}, zap.NewNop())
	require.NoError(t, wp.Dispatch(context.Background(), Message{To: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, wp.Dispatch(ctx, Message{To: "b"}), context.DeadlineExceeded)
}

func TestWorkerPool_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var sent []string
	var wg sync.WaitGroup
	wg.Add(3)

	wp := NewWorkerPool(2, &mockSender{
		SendFunc: func(ctx context.Context, msg Message) error {
			defer wg.Done()
			mu.Lock()
			sent = append(sent, msg.To)
			mu.Unlock()
			if msg.To == "fail" {
				return errors.New("gateway down")
			}
			return nil
		},
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		assert.NoError(t, wp.Run(ctx))
		close(stopped)
	}()

	for _, to := range []string{"a", "fail", "b"} {
		require.NoError(t, wp.Dispatch(ctx, Message{To: to}))
	}
	wg.Wait()

	cancel()
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "fail", "b"}, sent)
}

func TestGatewaySender(t *testing.T) {
	var got Message
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "+100" {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream unavailable"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewGatewaySender(config.GatewayConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
	}, zap.NewNop())

	require.NoError(t, s.Send(context.Background(), Message{To: "+911234567890", Body: "123456 is your code"}))
	assert.Equal(t, "secret", apiKey)
	assert.Equal(t, "123456 is your code", got.Body)

	err := s.Send(context.Background(), Message{To: "+100"})
	assert.ErrorContains(t, err, "gateway returned status 502: upstream unavailable")
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(config.NotificationConfig{Sender: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	_, err = NewSender(config.NotificationConfig{Sender: "gateway"}, zap.NewNop())
	assert.Error(t, err)

	s, err = NewSender(config.NotificationConfig{Sender: "gateway", Gateway: config.GatewayConfig{URL: "http://sms.local", HTTPProxy: "://bad"}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &GatewaySender{}, s)

	_, err = NewSender(config.NotificationConfig{Sender: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}
