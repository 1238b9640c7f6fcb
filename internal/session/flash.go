package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Flash slots. Each holds at most one message and is cleared when read.
const (
	LogoutSlot   = "logoutMessage"
	RedirectSlot = "redirectMessage"
)

// Flash is a one-shot notice shown on the next page.
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SetFlash stores f in slot, replacing whatever was there.
func SetFlash(c *gin.Context, slot string, f Flash, secure bool) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     slot,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearFlash empties slot.
func ClearFlash(c *gin.Context, slot string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     slot,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PeekFlash reads slot without clearing it.
func PeekFlash(c *gin.Context, slot string) (Flash, bool) {
	v, err := c.Cookie(slot)
	if err != nil || v == "" {
		return Flash{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return Flash{}, false
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return Flash{}, false
	}
	return f, true
}

// ConsumeFlash returns the login page notice. The logout slot wins over
// the redirect slot; both are cleared either way.
func ConsumeFlash(c *gin.Context, secure bool) (Flash, bool) {
	f, ok := PeekFlash(c, LogoutSlot)
	if !ok {
		f, ok = PeekFlash(c, RedirectSlot)
	}
	ClearFlash(c, LogoutSlot, secure)
	ClearFlash(c, RedirectSlot, secure)
	return f, ok
}
