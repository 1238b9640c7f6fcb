package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"device-tracking-backend/config"
)

// Message is one text message to a phone number.
type Message struct {
	To   string `json:"to"`
	Body string `json:"message"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// meant for development, where the code is read from the server output.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("sms", zap.String("to", msg.To), zap.String("body", msg.Body))
	return nil
}

// GatewaySender posts messages as JSON to an HTTP SMS gateway.
type GatewaySender struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewGatewaySender builds the gateway client. An invalid proxy URL is
// logged and ignored.
func NewGatewaySender(cfg config.GatewayConfig, log *zap.Logger) *GatewaySender {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid gateway proxy URL, sending without a proxy", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &GatewaySender{
		url:     cfg.URL,
		headers: cfg.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Send posts msg to the gateway and fails on any non-2xx answer.
func (s *GatewaySender) Send(ctx context.Context, msg Message) error {
	jsonBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// NewSender picks the sender named in the notification config.
func NewSender(cfg config.NotificationConfig, log *zap.Logger) (Sender, error) {
	switch cfg.Sender {
	case "log":
		return NewLogSender(log), nil
	case "gateway":
		if cfg.Gateway.URL == "" {
			return nil, fmt.Errorf("notification.gateway.url is required for the gateway sender")
		}
		return NewGatewaySender(cfg.Gateway, log), nil
	default:
		return nil, fmt.Errorf("unknown notification sender %q", cfg.Sender)
	}
}
