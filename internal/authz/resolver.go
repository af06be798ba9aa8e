package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
	"github.com/iliyamo/src-portal/internal/repository"
)

// ErrNoUser is returned when a session does not resolve to an active user.
// Callers treat it exactly like a missing session.
var ErrNoUser = errors.New("no active user for session")

// UserLoader is the slice of the user repository the resolver needs.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Resolver maps a session to the acting user.
type Resolver struct {
	Users UserLoader
}

func NewResolver(users UserLoader) *Resolver { return &Resolver{Users: users} }

// Resolve loads the session's user.  Missing and disabled accounts yield
// ErrNoUser; any other failure is returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, s *model.Session) (*model.User, error) {
	if s == nil || s.UserID == 0 {
		return nil, ErrNoUser
	}
	u, err := r.Users.GetByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoUser
		}
		return nil, fmt.Errorf("resolve user %d: %w", s.UserID, err)
	}
	if !u.Active() {
		return nil, ErrNoUser
	}
	return &u, nil
}
