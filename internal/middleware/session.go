package middleware

import (
	"context"
	"net/http"

	"flota_console/internal/logger"
	"flota_console/internal/session"
	"flota_console/pkg/apperrors"
	"flota_console/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "flota_session"
	SessionHeader = "X-Session-ID"
)

// SessionResolver maps a session id to a live session.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*session.Live, error)
}

// SessionID reads the session id from the cookie, falling back to the header.
func SessionID(c *gin.Context) string {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		return id
	}
	return c.GetHeader(SessionHeader)
}

// SessionMiddleware resolves the caller's session. Unknown or expired
// sessions are rejected with a redirect to the login page and the cookie
// is cleared.
func SessionMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := SessionID(c)
		live, err := resolver.Get(c.Request.Context(), id)
		if err != nil {
			if id != "" {
				ClearSessionCookie(c)
			}
			apperrors.HandleError(c, err)
			return
		}

		ctx := logger.WithSessionID(c.Request.Context(), live.ID)
		ctx = logger.WithUserID(ctx, live.User.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(contextkeys.SessionContextKey), live)
		c.Next()
	}
}

// GetSession returns the session set by SessionMiddleware.
func GetSession(c *gin.Context) (*session.Live, bool) {
	v, ok := c.Get(string(contextkeys.SessionContextKey))
	if !ok {
		return nil, false
	}
	live, ok := v.(*session.Live)
	return live, ok && live != nil
}

func SetSessionCookie(c *gin.Context, id string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, maxAge, "/", "", false, true)
}

func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}
