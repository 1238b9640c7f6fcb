package session

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"device-tracking-backend/internal/identity"
)

// CookieName holds the session token for browser clients.
const CookieName = "session"

const contextKey = "session"

var nowFunc = time.Now

// Verifier checks a session token.
type Verifier interface {
	Verify(token string) (*identity.Session, error)
}

// Token extracts the session token from the bearer header or the session
// cookie, in that order.
func Token(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// Authenticate resolves the caller's session, if any, and stores it on the
// context. It never rejects a request.
func Authenticate(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := Token(c); token != "" {
			if s, err := v.Verify(token); err == nil {
				c.Set(contextKey, s)
			}
		}
		c.Next()
	}
}

// Current returns the session resolved by Authenticate.
func Current(c *gin.Context) *identity.Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*identity.Session)
	return s
}

// RequirePage bounces signed-out visitors to the login page, leaving the
// redirect notice and the page they asked for.
func RequirePage(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := Decide(StateOf(Current(c)), c.Request.URL.Path, "")
		if d.Action == ActionRender {
			c.Next()
			return
		}
		SetFlash(c, RedirectSlot, *d.Flash, secure)
		c.Redirect(http.StatusFound, LoginPath+"?from="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// RequireAPI rejects signed-out callers with 401.
func RequireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if StateOf(Current(c)) != StateAuthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// SetSessionCookie stores a freshly issued token.
func SetSessionCookie(c *gin.Context, s *identity.Session, token string, secure bool) {
	maxAge := int(s.ExpiresAt.Sub(nowFunc()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie drops the session token.
func ClearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
