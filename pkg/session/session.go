// Package session persists signed-in portal sessions for the CLI.
//
// A session records the portal a token was issued by, the user it belongs
// to and when it expires. Sessions are stored as JSON files, one per
// profile, so several portals can be signed in side by side:
//
//	store, err := session.NewCLIStore("", "default") // ~/.config/infographics/sessions/
//	sess, err := session.New(portalURL, username, token.Value, token.Expires)
//	err = store.SaveSession(ctx, sess)
//
//	sess, err = store.GetSession(ctx)
//	if sess == nil {
//	    // not signed in, or the token expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/matzehuels/infographics/pkg/errors"
)

// DefaultTTL is the token lifetime requested at sign-in.
const DefaultTTL = 24 * time.Hour

// Session stores a portal token and who it was issued to.
type Session struct {
	ID        string    `json:"id"`
	PortalURL string    `json:"portal_url"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	Referer   string    `json:"referer,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Remaining returns how long the token stays valid, or zero once expired.
func (s *Session) Remaining() time.Duration {
	return max(time.Until(s.ExpiresAt), 0)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Prune removes expired sessions and reports how many it removed.
	Prune(ctx context.Context) (int, error)
}

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a session for a token issued by portalURL.
func New(portalURL, username, token string, expiresAt time.Time) (*Session, error) {
	if portalURL == "" || token == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "session needs a portal URL and a token")
	}
	id, err := GenerateID()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "generate session id")
	}
	return &Session{
		ID:        id,
		PortalURL: portalURL,
		Username:  username,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}
