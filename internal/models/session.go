package models

// Session is the server-side state addressed by the opaque cookie token. A
// session may exist before sign-in so that flash messages survive the
// redirect to the login page; it is authenticated only once UserID is set.
type Session struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Flashes  []string `json:"flashes,omitempty"`
}

// Authenticated reports whether the session carries a signed-in identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}
