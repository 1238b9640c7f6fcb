package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"device-tracking-backend/config"
	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/notification"
	"device-tracking-backend/internal/ratelimit"
)

const issuer = "device-tracking-backend"

// Dispatcher queues an outgoing message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notification.Message) error
}

// Claims is the payload of a session token.
type Claims struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	Name        string `json:"name,omitempty"`
	Admin       bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Session is a verified session token.
type Session struct {
	UserID      string
	PhoneNumber string
	DisplayName string
	Admin       bool
	TokenID     string
	ExpiresAt   time.Time
}

// Provider runs the one-time-code sign-in flow and issues sessions.
type Provider struct {
	dir        *Directory
	challenges ChallengeStore
	dispatcher Dispatcher
	sendLimit  *ratelimit.KeyedLimiter
	revoked    *cache.Cache
	log        *zap.Logger

	secret      []byte
	sessionTTL  time.Duration
	otpTTL      time.Duration
	otpLength   int
	maxAttempts int
	bcryptCost  int
	now         func() time.Time
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock replaces the clock used for token and challenge times.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithBcryptCost sets the cost used to hash codes.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) { p.bcryptCost = cost }
}

// NewProvider creates a Provider from the auth config.
func NewProvider(cfg config.AuthConfig, dir *Directory, challenges ChallengeStore, dispatcher Dispatcher, log *zap.Logger, opts ...Option) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	p := &Provider{
		dir:         dir,
		challenges:  challenges,
		dispatcher:  dispatcher,
		sendLimit:   ratelimit.PerMinute(cfg.OTPSendPerMinute),
		revoked:     cache.New(cfg.SessionTTL, time.Hour),
		log:         log,
		secret:      []byte(cfg.JWTSecret),
		sessionTTL:  cfg.SessionTTL,
		otpTTL:      cfg.OTPTTL,
		otpLength:   cfg.OTPLength,
		maxAttempts: cfg.OTPMaxAttempts,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Directory returns the user directory the provider signs users in from.
func (p *Provider) Directory() *Directory {
	return p.dir
}

// SendCode starts a sign-in for phone and returns the verification id the
// code must be confirmed against. The code itself is delivered
// asynchronously.
func (p *Provider) SendCode(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !ValidPhone(phone) {
		return "", fmt.Errorf("%q: %w", phone, ErrInvalidPhone)
	}
	if !p.sendLimit.Allow(phone) {
		return "", fmt.Errorf("code requests for %s: %w", phone, ErrTooManyRequests)
	}

	exists, err := p.dir.Exists(ctx, phone)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%s: %w", phone, ErrUserNotFound)
	}

	code, err := generateCode(p.otpLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), p.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	c := &Challenge{
		ID:        uuid.NewString(),
		Phone:     phone,
		CodeHash:  hash,
		ExpiresAt: p.now().Add(p.otpTTL),
	}
	if err := p.challenges.Put(ctx, c, p.otpTTL); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}

	msg := notification.Message{
		To:   phone,
		Body: fmt.Sprintf("%s is your verification code.", code),
	}
	if err := p.dispatcher.Dispatch(ctx, msg); err != nil {
		_ = p.challenges.Delete(ctx, c.ID)
		return "", fmt.Errorf("failed to queue code: %w", err)
	}

	p.log.Info("verification code sent", zap.String("verificationId", c.ID))
	return c.ID, nil
}

// Confirm checks code against the challenge and, on success, signs the user
// in. A challenge can be confirmed once.
func (p *Provider) Confirm(ctx context.Context, verificationID, code string) (string, *Session, error) {
	c, err := p.challenges.Get(ctx, verificationID)
	if err != nil {
		return "", nil, err
	}
	if !p.now().Before(c.ExpiresAt) {
		_ = p.challenges.Delete(ctx, c.ID)
		return "", nil, fmt.Errorf("challenge %s: %w", c.ID, ErrChallengeExpired)
	}
	if c.Attempts >= p.maxAttempts {
		_ = p.challenges.Delete(ctx, c.ID)
		return "", nil, fmt.Errorf("challenge %s: %w", c.ID, ErrTooManyRequests)
	}

	if err := bcrypt.CompareHashAndPassword(c.CodeHash, []byte(strings.TrimSpace(code))); err != nil {
		c.Attempts++
		if err := p.challenges.Put(ctx, c, c.ExpiresAt.Sub(p.now())); err != nil {
			p.log.Error("failed to record attempt", zap.String("verificationId", c.ID), zap.Error(err))
		}
		return "", nil, fmt.Errorf("challenge %s: %w", c.ID, ErrInvalidCode)
	}
	_ = p.challenges.Delete(ctx, c.ID)

	user, err := p.dir.Lookup(ctx, c.Phone)
	if err != nil {
		return "", nil, err
	}
	return p.Issue(user)
}

// Issue signs a session token for user.
func (p *Provider) Issue(user *model.User) (string, *Session, error) {
	now := p.now()
	claims := &Claims{
		PhoneNumber: user.PhoneNumber,
		Name:        user.DisplayName,
		Admin:       user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.sessionTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, sessionFromClaims(claims), nil
}

// Verify validates a session token and rejects signed-out ones.
func (p *Provider) Verify(tokenString string) (*Session, error) {
	claims, err := p.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if _, revoked := p.revoked.Get(claims.ID); revoked {
		return nil, fmt.Errorf("session %s signed out: %w", claims.ID, ErrInvalidSession)
	}
	return sessionFromClaims(claims), nil
}

// SignOut revokes the token until it would have expired anyway. Signing out
// an invalid or expired token is a no-op.
func (p *Provider) SignOut(tokenString string) (*Session, error) {
	claims, err := p.parse(tokenString)
	if err != nil {
		return nil, nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil, nil
	}
	p.revoked.Set(claims.ID, struct{}{}, ttl)
	return sessionFromClaims(claims), nil
}

func (p *Provider) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidSession)
	}
	if !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func sessionFromClaims(c *Claims) *Session {
	s := &Session{
		UserID:      c.Subject,
		PhoneNumber: c.PhoneNumber,
		DisplayName: c.Name,
		Admin:       c.Admin,
		TokenID:     c.ID,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
