package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckPhone handles GET /check-phone. It only reports whether the number
// has an account; it never sends anything.
func CheckPhone(phones PhoneChecker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.Query("phoneNumber")
		if phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber query parameter required"})
			return
		}

		exists, err := phones.Exists(c.Request.Context(), phone)
		if err != nil {
			log.Error("error checking phone number", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": exists})
	}
}
