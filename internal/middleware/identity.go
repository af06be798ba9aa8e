package middleware

// identity.go holds the per-request identity that LoadSession resolves and
// every later guard and handler reads.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/guard"
	"github.com/iliyamo/src-portal/internal/logger"
	"github.com/iliyamo/src-portal/internal/model"
)

const identityKey = "identity"

// Identity is the resolved caller.  Session and User are nil for anonymous
// requests and Caps is then the zero set.
type Identity struct {
	Session *model.Session
	User    *model.User
	Caps    authz.Capabilities
}

// LoggedIn reports whether both the session and the user resolved.
func (id Identity) LoggedIn() bool { return id.Session != nil && id.User != nil }

// Current returns the identity stored by LoadSession.
func Current(c echo.Context) Identity {
	if v, ok := c.Get(identityKey).(Identity); ok {
		return v
	}
	return Identity{}
}

// SetIdentity stores id on the context.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
	if id.User != nil {
		c.Set(logger.UserIDKey, id.User.ID)
	}
}

// GuardRequest builds the explicit guard input for the current request.
func GuardRequest(c echo.Context) guard.Request {
	id := Current(c)
	r := c.Request()
	return guard.Request{
		Session: id.Session,
		User:    id.User,
		Caps:    id.Caps,
		Path:    r.URL.Path,
		Method:  r.Method,
		URI:     r.URL.RequestURI(),
	}
}
