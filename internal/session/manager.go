package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siswa-admin/internal/models"
	"github.com/noah-isme/siswa-admin/pkg/config"
)

const (
	contextKey      = "session"
	contextTokenKey = "session_token"
)

// Manager maps cookie-transported opaque tokens to server-side session state.
type Manager struct {
	store Store
	cfg   config.SessionConfig
}

// NewManager constructs a Manager on top of the given store.
func NewManager(store Store, cfg config.SessionConfig) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "siswa_session"
	}
	return &Manager{store: store, cfg: cfg}
}

// token returns the active session token for the request. A token minted
// earlier in the same request wins over the request cookie, so that SignIn
// followed by Flash touches one session, not two.
func (m *Manager) token(c *gin.Context) string {
	if cached, ok := c.Get(contextTokenKey); ok {
		if token, ok := cached.(string); ok {
			return token
		}
	}
	token, err := c.Cookie(m.cfg.CookieName)
	if err != nil {
		return ""
	}
	return token
}

// Current returns the session for the request, or nil when the request
// carries no valid token. The result is cached on the gin context.
func (m *Manager) Current(c *gin.Context) (*models.Session, error) {
	if cached, ok := c.Get(contextKey); ok {
		if sess, ok := cached.(*models.Session); ok {
			return sess, nil
		}
	}

	token := m.token(c)
	if token == "" {
		return nil, nil
	}

	sess, err := m.store.Get(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	c.Set(contextKey, sess)
	c.Set(contextTokenKey, token)
	return sess, nil
}

// SignIn binds the user identity to the request's session, creating one when
// absent, and refreshes the cookie.
func (m *Manager) SignIn(c *gin.Context, userID, username string) error {
	token, sess, err := m.loadOrCreate(c)
	if err != nil {
		return err
	}
	sess.UserID = userID
	sess.Username = username
	return m.save(c, token, sess)
}

// Destroy removes the session state and expires the cookie.
func (m *Manager) Destroy(c *gin.Context) error {
	token := m.token(c)
	c.Set(contextKey, (*models.Session)(nil))
	c.Set(contextTokenKey, "")
	if token == "" {
		return nil
	}
	c.SetCookie(m.cfg.CookieName, "", -1, "/", "", m.cfg.Secure, true)
	return m.store.Delete(c.Request.Context(), token)
}

// Flash appends a one-shot message to the session, creating an anonymous
// session when none exists so that messages survive redirects to /login.
func (m *Manager) Flash(c *gin.Context, message string) error {
	token, sess, err := m.loadOrCreate(c)
	if err != nil {
		return err
	}
	sess.Flashes = append(sess.Flashes, message)
	return m.save(c, token, sess)
}

// PopFlashes drains pending flash messages, guaranteeing at-most-one display.
func (m *Manager) PopFlashes(c *gin.Context) ([]string, error) {
	sess, err := m.Current(c)
	if err != nil {
		return nil, err
	}
	if sess == nil || len(sess.Flashes) == 0 {
		return nil, nil
	}

	flashes := sess.Flashes
	sess.Flashes = nil

	token := m.token(c)
	if token == "" {
		return flashes, nil
	}
	if err := m.store.Save(c.Request.Context(), token, sess, m.cfg.TTL); err != nil {
		return flashes, err
	}
	return flashes, nil
}

func (m *Manager) loadOrCreate(c *gin.Context) (string, *models.Session, error) {
	if token := m.token(c); token != "" {
		if cached, ok := c.Get(contextKey); ok {
			if sess, ok := cached.(*models.Session); ok && sess != nil {
				return token, sess, nil
			}
		}
		sess, err := m.store.Get(c.Request.Context(), token)
		if err == nil {
			return token, sess, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", nil, err
		}
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}
	return token, &models.Session{}, nil
}

func (m *Manager) save(c *gin.Context, token string, sess *models.Session) error {
	if err := m.store.Save(c.Request.Context(), token, sess, m.cfg.TTL); err != nil {
		return err
	}
	c.SetCookie(m.cfg.CookieName, token, int(m.cfg.TTL.Seconds()), "/", "", m.cfg.Secure, true)
	c.Set(contextKey, sess)
	c.Set(contextTokenKey, token)
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
