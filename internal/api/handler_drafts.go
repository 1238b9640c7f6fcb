package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"device-tracking-backend/internal/jobs"
	"device-tracking-backend/internal/validate"
)

// CreateDraft handles POST /api/job-drafts.
func (h *Handler) CreateDraft(c *gin.Context) {
	c.JSON(http.StatusCreated, h.drafts.Create())
}

// GetDraft handles GET /api/job-drafts/:id.
func (h *Handler) GetDraft(c *gin.Context) {
	view, err := h.drafts.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgDraftNotFound})
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateDraft handles PATCH /api/job-drafts/:id. The body maps form keys to
// their new values.
func (h *Handler) UpdateDraft(c *gin.Context) {
	var changes map[string]string
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	view, err := h.drafts.Update(c.Param("id"), changes)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, jobs.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgDraftNotFound})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "draft": view})
	}
}

// SubmitDraft handles POST /api/job-drafts/:id/submit.
func (h *Handler) SubmitDraft(c *gin.Context) {
	id := c.Param("id")
	job, err := h.drafts.Submit(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusCreated, gin.H{"message": msgJobCreated, "job": job})
		return
	}

	var verrs validate.Errors
	switch {
	case errors.Is(err, jobs.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgDraftNotFound})
	case errors.As(err, &verrs):
		view, _ := h.drafts.Get(id)
		validationFailed(c, verrs, gin.H{"draft": view})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgJobCreateFailed})
	}
}

// DeleteDraft handles DELETE /api/job-drafts/:id.
func (h *Handler) DeleteDraft(c *gin.Context) {
	if err := h.drafts.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgDraftNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}
