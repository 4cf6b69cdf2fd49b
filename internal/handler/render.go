package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/siswa-admin/internal/session"
)

// render draws an HTML page, attaching the pending flash messages and the
// signed-in username to the template data.
func render(c *gin.Context, sessions *session.Manager, logger *zap.Logger, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	if _, ok := data["msg"]; !ok {
		flashes, err := sessions.PopFlashes(c)
		if err != nil {
			logger.Error("failed to pop flash messages", zap.Error(err))
		}
		data["msg"] = flashes
	}

	if sess, err := sessions.Current(c); err == nil && sess.Authenticated() {
		data["username"] = sess.Username
	}

	c.HTML(status, page, data)
}
