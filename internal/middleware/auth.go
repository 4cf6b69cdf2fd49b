package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/siswa-admin/internal/session"
)

// RequireSession gates routes behind a signed-in session. Anonymous requests
// get a flash message and a redirect to the login page; the original request
// is aborted before any store side effects.
func RequireSession(sessions *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sess, err := sessions.Current(c)
		if err != nil {
			logger.Error("failed to load session", zap.Error(err))
		}
		if sess.Authenticated() {
			c.Next()
			return
		}

		if err := sessions.Flash(c, "Silakan login terlebih dahulu!"); err != nil {
			logger.Error("failed to set login flash", zap.Error(err))
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}
