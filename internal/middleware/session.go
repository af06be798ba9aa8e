package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/logger"
	"github.com/iliyamo/src-portal/internal/model"
	"github.com/iliyamo/src-portal/internal/session"
)

// UserResolver maps a session to its user; *authz.Resolver satisfies it.
type UserResolver interface {
	Resolve(ctx context.Context, s *model.Session) (*model.User, error)
}

// LoadSession reads the session token from the cookie, loads the session,
// resolves its user and stores the resulting Identity on the context.  It
// never rejects a request: anything that fails to resolve leaves the
// request anonymous and the guards decide what that means.
func LoadSession(ck *Cookies, store session.Store, users UserResolver, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := ck.Token(c)
			if tok == "" {
				return next(c)
			}
			ctx := c.Request().Context()

			s, err := store.Get(ctx, tok)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					log.Error().Err(err).Msg("session lookup failed")
				}
				ck.ClearToken(c)
				return next(c)
			}

			u, err := users.Resolve(ctx, s)
			if err != nil {
				if errors.Is(err, authz.ErrNoUser) {
					// account gone or disabled: the session is dead
					_ = store.Destroy(ctx, tok)
					ck.ClearToken(c)
				} else {
					log.Error().Err(err).Uint64("user_id", s.UserID).Msg("resolve session user failed")
				}
				return next(c)
			}

			SetIdentity(c, Identity{Session: s, User: u, Caps: authz.Compute(*u)})
			return next(c)
		}
	}
}
