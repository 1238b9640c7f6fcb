package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-tracking-backend/internal/identity"
	"device-tracking-backend/internal/session"
)

const (
	msgInvalidPhone  = "Enter a valid phone number."
	msgNotRegistered = "Phone number not registered. Please contact admin."
	msgOTPSent       = "OTP sent successfully! Check your messages."
	msgTooMany       = "Too many OTP attempts. Please wait or use a test number."
	msgOTPFailed     = "Failed to send OTP."
	msgLoginOK       = "Login successful!"
	msgInvalidOTP    = "Invalid OTP. Please try again."
	msgLoggedOut     = "Logged out successfully!"
	msgLogoutFailed  = "Logout failed."
)

type sendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type verifyOTPRequest struct {
	VerificationID string `json:"verificationId" binding:"required"`
	Code           string `json:"code" binding:"required"`
	From           string `json:"from"`
}

// SendOTP handles POST /api/auth/otp.
func (h *Handler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPhone})
		return
	}

	id, err := h.auth.SendCode(c.Request.Context(), strings.TrimSpace(req.PhoneNumber))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"verificationId": id, "message": msgOTPSent})
	case errors.Is(err, identity.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPhone, "code": identity.Code(err)})
	case errors.Is(err, identity.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotRegistered, "code": identity.Code(err)})
	case errors.Is(err, identity.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgTooMany, "code": identity.Code(err)})
	default:
		h.log.Error("error sending OTP", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgOTPFailed, "code": identity.Code(err)})
	}
}

// VerifyOTP handles POST /api/auth/verify. On success the session cookie is
// set and the page is told where to go next.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidOTP})
		return
	}

	token, sess, err := h.auth.Confirm(c.Request.Context(), req.VerificationID, strings.TrimSpace(req.Code))
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgTooMany, "code": identity.Code(err)})
		return
	case errors.Is(err, identity.ErrInvalidCode), errors.Is(err, identity.ErrChallengeExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidOTP, "code": identity.Code(err)})
		return
	case errors.Is(err, identity.ErrUserNotFound):
		c.JSON(http.StatusForbidden, gin.H{"error": msgNotRegistered, "code": identity.Code(err)})
		return
	default:
		h.log.Error("error verifying OTP", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInvalidOTP, "code": identity.Code(err)})
		return
	}

	session.SetSessionCookie(c, sess, token, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{
		"message":  msgLoginOK,
		"token":    token,
		"user":     userView(sess),
		"redirect": session.SafeReturnPath(req.From),
	})
}

// LoginView handles GET /login. Signed-in visitors are sent on to from;
// everyone else gets the pending notice, which is cleared as it is read.
func (h *Handler) LoginView(c *gin.Context) {
	from := c.Query("from")
	d := session.Decide(session.StateOf(session.Current(c)), session.LoginPath, from)
	if d.Action == session.ActionRedirect {
		c.Redirect(http.StatusFound, d.Location)
		return
	}

	body := gin.H{"from": session.SafeReturnPath(from)}
	if f, ok := session.ConsumeFlash(c, h.cookieSecure); ok {
		body["flash"] = f
	}
	c.JSON(http.StatusOK, body)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	sess, err := h.auth.SignOut(session.Token(c))
	if err != nil {
		h.log.Error("error signing out", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgLogoutFailed})
		return
	}
	if sess != nil {
		h.hub.Publish(sess.TokenID, session.StateUnauthenticated)
	}

	session.ClearSessionCookie(c, h.cookieSecure)
	session.SetFlash(c, session.LogoutSlot, session.Flash{Type: "success", Message: msgLoggedOut}, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": msgLoggedOut, "redirect": session.LoginPath})
}

// SessionEvents handles GET /api/session/events. It streams the gate
// decision for the page at ?path=, starting with the current one, and ends
// once the session is gone.
func (h *Handler) SessionEvents(c *gin.Context) {
	gate := session.NewGate(c.DefaultQuery("path", session.DefaultPath), c.Query("from"))
	sess := session.Current(c)
	d, _ := gate.Transition(session.StateOf(sess))

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", d)
	c.Writer.Flush()
	if gate.State() != session.StateAuthenticated {
		return
	}

	events, unsubscribe := h.hub.Subscribe(sess.TokenID)
	defer unsubscribe()

	expiry := time.NewTimer(sess.ExpiresAt.Sub(h.now()))
	defer expiry.Stop()

	for {
		var next session.State
		select {
		case <-c.Request.Context().Done():
			return
		case <-expiry.C:
			next = session.StateUnauthenticated
		case st, ok := <-events:
			if !ok {
				return
			}
			next = st
		}

		if d, changed := gate.Transition(next); changed {
			c.SSEvent("state", d)
			c.Writer.Flush()
		}
		if gate.State() != session.StateAuthenticated {
			return
		}
	}
}
