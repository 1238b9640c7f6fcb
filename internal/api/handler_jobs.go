package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-tracking-backend/internal/jobs"
	"device-tracking-backend/internal/session"
	"device-tracking-backend/internal/store"
	"device-tracking-backend/internal/validate"
)

const (
	msgJobCreated      = "Job created successfully!"
	msgJobCreateFailed = "Failed to create job."
	msgJobNotFound     = "Job not found."
	msgJobFetchFailed  = "Error fetching job data."
	msgDraftNotFound   = "Job draft not found."
)

type createJobRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	list, err := h.jobs.List(c.Request.Context())
	if err != nil {
		h.log.Error("error listing jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgJobFetchFailed})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetJob handles GET /api/jobs/:id.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.jobFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CreateJob handles POST /api/jobs with the whole form in one request.
func (h *Handler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	form, err := jobs.FormFromValues(req.Values)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), form)
	if err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			validationFailed(c, verrs, nil)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgJobCreateFailed})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msgJobCreated, "job": job})
}

// GetContinuation handles GET /api/jobs/continuation?name=.
func (h *Handler) GetContinuation(c *gin.Context) {
	cont, err := h.jobs.Continuation(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.log.Error("error checking job name", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgJobFetchFailed})
		return
	}
	c.JSON(http.StatusOK, cont)
}

// DashboardView handles GET /dashboard.
func (h *Handler) DashboardView(c *gin.Context) {
	rows, err := h.jobs.Dashboard(c.Request.Context())
	if err != nil {
		h.log.Error("error fetching jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgJobFetchFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userView(session.Current(c)), "jobs": rows})
}

// JobInfoView handles GET /jobs/:id/info.
func (h *Handler) JobInfoView(c *gin.Context) {
	info, err := h.jobs.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.jobFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userView(session.Current(c)), "info": info})
}

// CreateJobView handles GET /create-job. Each visit opens a fresh draft.
func (h *Handler) CreateJobView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":     userView(session.Current(c)),
		"fields":   jobs.FieldOrder,
		"modes":    []jobs.Mode{jobs.Automatic, jobs.Manual},
		"jobTypes": deviceTypes,
		"draft":    h.drafts.Create(),
	})
}

func (h *Handler) jobFetchError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgJobNotFound})
		return
	}
	h.log.Error("error fetching job", zap.String("id", c.Param("id")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgJobFetchFailed})
}
