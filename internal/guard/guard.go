// Package guard holds the access decisions every page consults.  The
// functions here are pure: they look at an explicit Request and return a
// Decision.  Translating a Decision into an HTTP redirect is the job of
// the Echo adapters in internal/middleware.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/model"
)

const (
	LoginPath          = "/login"
	PasswordChangePath = "/password/change"
	DefaultFallback    = "/dashboard"
)

// Flash messages shown after a denied request.
const (
	MsgLoginRequired      = "Please log in to continue."
	MsgPasswordChange     = "You must change your password before continuing."
	MsgPasswordExpired    = "Your password has expired. Please choose a new one."
	MsgDefaultPassword    = "You are still using the default password. Please choose a new one."
	MsgPermissionDenied   = "You don't have permission to access that page."
	MsgFeatureDisabled    = "This feature is currently disabled."
	MsgFeatureUnavailable = "This feature is temporarily unavailable."
)

// Request is everything a guard may look at.  Session and User are nil
// for anonymous requests.
type Request struct {
	Session *model.Session
	User    *model.User
	Caps    authz.Capabilities
	Path    string
	Method  string
	URI     string
}

// Decision is the outcome of a guard.  When Allow is false the caller
// redirects to Redirect and shows Flash.  RememberPath, if set, is where
// the user should land after logging in.
type Decision struct {
	Allow        bool
	Redirect     string
	Flash        string
	Reason       string
	RememberPath string
}

func allow() Decision { return Decision{Allow: true} }

func deny(to, flash, reason string) Decision {
	return Decision{Redirect: to, Flash: flash, Reason: reason}
}

// RequireLogin denies requests that carry no session or no resolved user.
func RequireLogin(req Request) Decision {
	if req.Session != nil && req.User != nil {
		return allow()
	}
	d := deny(LoginPath, MsgLoginRequired, "login_required")
	d.RememberPath = DefaultFallback
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		uri := req.URI
		if uri == "" {
			uri = req.Path
		}
		if safe, ok := SafeRedirect(uri); ok {
			d.RememberPath = safe
		}
	}
	return d
}

// passwordExempt lists paths reachable while a password change is pending.
var passwordExempt = []string{PasswordChangePath, "/logout", "/healthz"}

// IsPasswordExempt reports whether path stays reachable during a forced
// password change.
func IsPasswordExempt(path string) bool {
	for _, p := range passwordExempt {
		if path == p {
			return true
		}
	}
	return strings.HasPrefix(path, "/static/")
}

// RequirePasswordCurrent sends users with a forced, expired or default
// password to the change form.  A force flag on the reloaded user counts
// even when the session predates it.  It must run before capability checks.
func RequirePasswordCurrent(req Request) Decision {
	if req.Session == nil || IsPasswordExempt(req.Path) {
		return allow()
	}
	switch {
	case req.Session.ForcePasswordChange, req.User != nil && req.User.ForcePasswordChange:
		return deny(PasswordChangePath, MsgPasswordChange, "force_password_change")
	case req.Session.PasswordExpired:
		return deny(PasswordChangePath, MsgPasswordExpired, "password_expired")
	case req.User != nil && req.User.IsDefaultPassword:
		return deny(PasswordChangePath, MsgDefaultPassword, "default_password")
	}
	return allow()
}

// RequireCapability denies users whose capabilities lack want.  An empty
// fallback means the dashboard.
func RequireCapability(req Request, want authz.Capability, fallback string) Decision {
	if req.Caps.Has(want) {
		return allow()
	}
	return deny(fallbackOr(fallback), MsgPermissionDenied, "missing_capability:"+string(want))
}

// RequireFeature gates a page on a feature flag.  A read error counts as
// disabled.  Roles play no part here.
func RequireFeature(enabled bool, err error, fallback string) Decision {
	if err != nil {
		return deny(fallbackOr(fallback), MsgFeatureUnavailable, "feature_unavailable")
	}
	if !enabled {
		return deny(fallbackOr(fallback), MsgFeatureDisabled, "feature_disabled")
	}
	return allow()
}

func fallbackOr(p string) string {
	if safe, ok := SafeRedirect(p); ok {
		return safe
	}
	return DefaultFallback
}

// SafeRedirect returns target if it is a local absolute path on this site.
// Scheme-relative ("//host"), absolute URLs and backslash tricks are
// rejected.
func SafeRedirect(target string) (string, bool) {
	if target == "" || target[0] != '/' {
		return "", false
	}
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return "", false
	}
	if strings.ContainsAny(target, "\r\n\t") {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return target, true
}
