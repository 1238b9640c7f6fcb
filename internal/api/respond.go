package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-tracking-backend/internal/identity"
	"device-tracking-backend/internal/validate"
)

// validationFailed answers 400 with every failed field and the one to focus.
func validationFailed(c *gin.Context, errs validate.Errors, extra gin.H) {
	body := gin.H{
		"error":  "validation failed",
		"fields": errs,
		"first":  errs.First(),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusBadRequest, body)
}

// userView is the signed-in user as the pages show it.
func userView(s *identity.Session) gin.H {
	if s == nil {
		return nil
	}
	return gin.H{
		"uid":         s.UserID,
		"phoneNumber": s.PhoneNumber,
		"displayName": s.DisplayName,
		"admin":       s.Admin,
	}
}
