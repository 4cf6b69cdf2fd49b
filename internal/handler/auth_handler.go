package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/siswa-admin/internal/service"
	"github.com/noah-isme/siswa-admin/internal/session"
	"github.com/noah-isme/siswa-admin/internal/validation"
)

// AuthHandler wires the login and logout pages to the auth service.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	logger   *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, sessions *session.Manager, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, sessions: sessions, logger: logger}
}

// ShowLogin renders the login form; signed-in users are sent home instead.
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	sess, err := h.sessions.Current(c)
	if err != nil {
		h.logger.Error("failed to load session", zap.Error(err))
	}
	if sess.Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}

	render(c, h.sessions, h.logger, http.StatusOK, "login.html", gin.H{
		"title": "Login Page",
	})
}

// Login authenticates the submitted credentials and starts a session. All
// user-correctable failures re-render the form with HTTP 200; only the
// redirect signals success.
func (h *AuthHandler) Login(c *gin.Context) {
	var form service.LoginForm
	_ = c.ShouldBind(&form)

	user, fieldErrs, err := h.auth.Login(c.Request.Context(), form)
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		render(c, h.sessions, h.logger, http.StatusOK, "login.html", gin.H{
			"title":  "Login Page",
			"errors": []validation.FieldError{{Message: "Terjadi kesalahan server!"}},
		})
		return
	}
	if len(fieldErrs) > 0 {
		render(c, h.sessions, h.logger, http.StatusOK, "login.html", gin.H{
			"title":  "Login Page",
			"errors": fieldErrs,
		})
		return
	}

	if err := h.sessions.SignIn(c, user.ID, user.Username); err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		render(c, h.sessions, h.logger, http.StatusOK, "login.html", gin.H{
			"title":  "Login Page",
			"errors": []validation.FieldError{{Message: "Terjadi kesalahan server!"}},
		})
		return
	}

	if err := h.sessions.Flash(c, "Login berhasil!"); err != nil {
		h.logger.Error("failed to set login flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session unconditionally and returns to the login page.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c); err != nil {
		h.logger.Error("failed to destroy session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/login")
}
