// Package session implements the server-side session store.  A session is
// keyed by an opaque token; the browser only ever holds the token.
//
// Policy: a user has at most one active session.  Creating a session
// destroys any earlier one belonging to the same user.  Sessions expire
// after an idle timeout (refreshed on every successful Get) and after an
// absolute maximum age regardless of activity.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/src-portal/internal/model"
	"github.com/iliyamo/src-portal/internal/utils"
)

// ErrNotFound is returned by Get for absent or expired tokens.  Callers
// treat it as "not logged in".
var ErrNotFound = errors.New("session not found")

// Store is the session store contract shared by the Redis and memory
// implementations.
type Store interface {
	// Create starts a session for userID and returns its token.
	Create(ctx context.Context, userID uint64, flags model.SessionFlags) (string, error)
	// Get returns the session for token, refreshing its idle timeout.
	Get(ctx context.Context, token string) (*model.Session, error)
	// Update persists changed flags of an existing session.
	Update(ctx context.Context, s *model.Session) error
	// Destroy removes the session.  Destroying an unknown token is not an
	// error.
	Destroy(ctx context.Context, token string) error
	// DestroyAllForUser removes every session of userID.
	DestroyAllForUser(ctx context.Context, userID uint64) error
}

// Options configures expiry for both store implementations.
type Options struct {
	IdleTimeout time.Duration
	MaxAge      time.Duration
}

func (o Options) withDefaults() Options {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Minute
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 12 * time.Hour
	}
	return o
}

// expired reports whether s is past its absolute lifetime at now.
func (o Options) expired(s *model.Session, now time.Time) bool {
	return now.Sub(s.CreatedAt) >= o.MaxAge
}

// newToken returns a 64 hex character opaque token.
func newToken() (string, error) {
	return utils.RandomHex(32)
}
