package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"device-tracking-backend/config"
	"device-tracking-backend/internal/configs"
	"device-tracking-backend/internal/db"
	"device-tracking-backend/internal/identity"
	"device-tracking-backend/internal/jobs"
	"device-tracking-backend/internal/notification"
	"device-tracking-backend/internal/session"
	"device-tracking-backend/internal/store"
)

const (
	registeredPhone = "+919876543210"
	testDebounce    = 10 * time.Millisecond
)

func init() {
	gin.SetMode(gin.TestMode)
}

var ist = time.FixedZone("IST", 5*3600+1800)

// captureDispatcher keeps outgoing codes instead of sending them.
type captureDispatcher struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (c *captureDispatcher) Dispatch(_ context.Context, msg notification.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *captureDispatcher) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.msgs)
	return strings.Fields(c.msgs[len(c.msgs)-1].Body)[0]
}

type testServer struct {
	router     *gin.Engine
	store      store.Store
	provider   *identity.Provider
	dispatcher *captureDispatcher
	hub        *session.Hub
	drafts     *jobs.Drafts
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(testDB))

	clock := time.Date(2026, 10, 19, 9, 34, 5, 0, time.UTC)
	s := store.NewGormStore(testDB, store.WithClock(func() time.Time { return clock }))

	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", OTPSendPerMinute: 100}}
	cfg.ApplyDefaults()

	dir := identity.NewDirectory(s)
	_, err = dir.Create(context.Background(), registeredPhone, "Asha", false)
	require.NoError(t, err)

	dispatcher := &captureDispatcher{}
	provider, err := identity.NewProvider(cfg.Auth, dir, identity.NewMemoryChallengeStore(), dispatcher, zap.NewNop(),
		identity.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	jobManager := jobs.NewManager(s, ist, zap.NewNop())
	drafts := jobs.NewDrafts(jobManager, testDebounce, time.Minute, zap.NewNop())
	t.Cleanup(drafts.Flush)
	hub := session.NewHub()

	h := NewHandler(Deps{
		Auth:    provider,
		Phones:  dir,
		Configs: configs.NewManager(s, ist, zap.NewNop()),
		Jobs:    jobManager,
		Drafts:  drafts,
		Hub:     hub,
		Log:     zap.NewNop(),
	})
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	return &testServer{
		router:     NewRouter(h, cfg.Server, zap.NewNop()),
		store:      s,
		provider:   provider,
		dispatcher: dispatcher,
		hub:        hub,
		drafts:     drafts,
	}
}

// do sends a request. body is marshalled to JSON unless nil; token, when
// set, is sent as the session cookie.
func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// signIn runs the whole code flow and returns the session token.
func (ts *testServer) signIn(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/otp", gin.H{"phoneNumber": registeredPhone}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent struct {
		VerificationID string `json:"verificationId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))

	w = ts.do(t, http.MethodPost, "/api/auth/verify", gin.H{
		"verificationId": sent.VerificationID,
		"code":           ts.dispatcher.lastCode(t),
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookie := responseCookie(w, session.CookieName)
	require.NotNil(t, cookie)
	return cookie.Value
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
