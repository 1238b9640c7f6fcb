package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"device-tracking-backend/internal/configs"
	"device-tracking-backend/internal/identity"
	"device-tracking-backend/internal/jobs"
	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/session"
)

// Auth is the part of the identity provider the handlers use.
type Auth interface {
	SendCode(ctx context.Context, phone string) (string, error)
	Confirm(ctx context.Context, verificationID, code string) (string, *identity.Session, error)
	Verify(token string) (*identity.Session, error)
	SignOut(token string) (*identity.Session, error)
}

// PhoneChecker reports whether a phone number has an account.
type PhoneChecker interface {
	Exists(ctx context.Context, phone string) (bool, error)
}

// JobService is the part of the job manager the handlers use.
type JobService interface {
	jobs.Backend
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context) ([]model.Job, error)
	Dashboard(ctx context.Context) ([]jobs.DashboardRow, error)
	Info(ctx context.Context, id string) (*jobs.JobInfo, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	auth    Auth
	phones  PhoneChecker
	configs *configs.Manager
	jobs    JobService
	drafts  *jobs.Drafts
	hub     *session.Hub
	log     *zap.Logger

	cookieSecure bool
	now          func() time.Time
}

// Deps bundles what NewHandler needs.
type Deps struct {
	Auth         Auth
	Phones       PhoneChecker
	Configs      *configs.Manager
	Jobs         JobService
	Drafts       *jobs.Drafts
	Hub          *session.Hub
	Log          *zap.Logger
	CookieSecure bool
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	hub := d.Hub
	if hub == nil {
		hub = session.NewHub()
	}
	return &Handler{
		auth:         d.Auth,
		phones:       d.Phones,
		configs:      d.Configs,
		jobs:         d.Jobs,
		drafts:       d.Drafts,
		hub:          hub,
		log:          log,
		cookieSecure: d.CookieSecure,
		now:          time.Now,
	}
}
