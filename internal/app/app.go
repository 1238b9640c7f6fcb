// Package app assembles the device tracking service from its configuration.
package app

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"device-tracking-backend/config"
	"device-tracking-backend/internal/api"
	"device-tracking-backend/internal/configs"
	"device-tracking-backend/internal/identity"
	"device-tracking-backend/internal/jobs"
	"device-tracking-backend/internal/notification"
	"device-tracking-backend/internal/session"
	"device-tracking-backend/internal/store"
)

// App is the wired service. Workers must be run for codes to be delivered.
type App struct {
	Router   *gin.Engine
	Workers  *notification.WorkerPool
	Store    store.Store
	Provider *identity.Provider
	Drafts   *jobs.Drafts

	closers []io.Closer
}

// Option customises New.
type Option func(*options)

type options struct {
	storeOpts    []store.Option
	providerOpts []identity.Option
}

// WithStoreOptions passes options to the gorm store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// WithProviderOptions passes options to the identity provider.
func WithProviderOptions(opts ...identity.Option) Option {
	return func(o *options) { o.providerOpts = append(o.providerOpts, opts...) }
}

// New wires every component on top of an open database.
func New(cfg *config.Config, gormDB *gorm.DB, log *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	appStore := store.NewGormStore(gormDB, o.storeOpts...)
	loc := cfg.Display.Location()

	sender, err := notification.NewSender(cfg.Notification, log.Named("sms"))
	if err != nil {
		return nil, err
	}
	workers := notification.NewWorkerPool(cfg.Notification.WorkerPool.Size, sender, log.Named("sms"))

	challenges, err := identity.NewChallengeStore(cfg.Auth)
	if err != nil {
		return nil, err
	}
	a := &App{Workers: workers, Store: appStore}
	if c, ok := challenges.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	dir := identity.NewDirectory(appStore)
	provider, err := identity.NewProvider(cfg.Auth, dir, challenges, workers, log.Named("auth"), o.providerOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Provider = provider

	jobLimits := jobs.WithMaxDevices(cfg.Jobs.MaxDevices)
	jobManager := jobs.NewManager(appStore, loc, log.Named("jobs"), jobLimits)
	a.Drafts = jobs.NewDrafts(jobManager, cfg.Jobs.NameLookupDebounce, cfg.Jobs.DraftTTL, log.Named("drafts"), jobLimits)

	handler := api.NewHandler(api.Deps{
		Auth:         provider,
		Phones:       dir,
		Configs:      configs.NewManager(appStore, loc, log.Named("configs")),
		Jobs:         jobManager,
		Drafts:       a.Drafts,
		Hub:          session.NewHub(),
		Log:          log,
		CookieSecure: cfg.Server.CookieSecure,
	})
	a.Router = api.NewRouter(handler, cfg.Server, log.Named("http"))
	return a, nil
}

// Close discards open drafts and releases external connections.
func (a *App) Close() error {
	if a.Drafts != nil {
		a.Drafts.Flush()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
