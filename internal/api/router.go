package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"device-tracking-backend/config"
	"device-tracking-backend/internal/mw"
	"device-tracking-backend/internal/session"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(log), mw.Recovery(log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	responses := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	caching := responses.Handler()

	r.Use(session.Authenticate(h.auth))

	// Public
	checkPhone := CheckPhone(h.phones, log)
	r.GET("/check-phone", rateLimiter, checkPhone)
	r.GET("/login", h.LoginView)

	// Gated pages
	pages := r.Group("/")
	pages.Use(session.RequirePage(h.cookieSecure))
	{
		pages.GET("/dashboard", h.DashboardView)
		pages.GET("/configurations", h.ConfigurationsView)
		pages.GET("/configurations/:id/info", h.ConfigurationInfoView)
		pages.GET("/configurations/:id/edit", h.ConfigurationEditView)
		pages.GET("/create-configuration", h.CreateConfigurationView)
		pages.GET("/create-job", h.CreateJobView)
		pages.GET("/jobs/:id/info", h.JobInfoView)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/check-phone", checkPhone)
		api.POST("/auth/otp", h.SendOTP)
		api.POST("/auth/verify", h.VerifyOTP)
		api.GET("/session/events", h.SessionEvents)
	}

	gated := api.Group("")
	gated.Use(session.RequireAPI(), responses.InvalidateOnWrite())
	{
		gated.POST("/auth/logout", h.Logout)

		gated.GET("/catalog", caching, h.GetCatalog)

		gated.GET("/configurations", caching, h.ListConfigurations)
		gated.POST("/configurations", h.CreateConfiguration)
		gated.GET("/configurations/:id", h.GetConfiguration)
		gated.PUT("/configurations/:id", h.UpdateConfiguration)

		gated.GET("/jobs", h.ListJobs)
		gated.POST("/jobs", h.CreateJob)
		gated.GET("/jobs/continuation", h.GetContinuation)
		gated.GET("/jobs/:id", h.GetJob)

		gated.POST("/job-drafts", h.CreateDraft)
		gated.GET("/job-drafts/:id", h.GetDraft)
		gated.PATCH("/job-drafts/:id", h.UpdateDraft)
		gated.POST("/job-drafts/:id/submit", h.SubmitDraft)
		gated.DELETE("/job-drafts/:id", h.DeleteDraft)
	}

	return r
}
