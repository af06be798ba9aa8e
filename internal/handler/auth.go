package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/guard"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
    "github.com/iliyamo/src-portal/internal/session"
    "github.com/iliyamo/src-portal/internal/utils"
)

// AuthUsers is the part of the user repository the auth pages need.
type AuthUsers interface {
    GetByLogin(ctx context.Context, login string) (model.User, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// ResetTokens records issued password reset links.
type ResetTokens interface {
    Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    Consume(ctx context.Context, tokenHash string) (uint64, error)
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Mailer sends a single email.
type Mailer interface {
    SendEmail(ctx context.Context, u model.User, subject, body string) error
}

// AuthOptions carries the password policy and reset link settings.
type AuthOptions struct {
    BcryptCost     int
    PasswordMaxAge time.Duration // 0 disables expiry
    ResetSecret    string
    ResetTTL       time.Duration
    BaseURL        string
}

// AuthHandler serves login, logout and the password pages.
type AuthHandler struct {
    Base
    Users    AuthUsers
    Sessions session.Store
    Resets   ResetTokens
    Mail     Mailer
    Opts     AuthOptions
    Now      func() time.Time
}

const (
    msgBadLogin     = "Invalid username or password."
    msgDisabled     = "Your account has been disabled. Contact the SRC secretariat."
    msgResetSent    = "If that email is registered, a reset link has been sent."
    msgResetInvalid = "That reset link is invalid or has expired."
)

func (h *AuthHandler) now() time.Time {
    if h.Now != nil {
        return h.Now()
    }
    return time.Now().UTC()
}

// LoginForm shows the login page.  Logged-in users go to the dashboard.
func (h *AuthHandler) LoginForm(c echo.Context) error {
    if middleware.Current(c).LoggedIn() {
        return c.Redirect(http.StatusFound, guard.DefaultFallback)
    }
    return h.render(c, http.StatusOK, "login", "Log in", nil)
}

// Login verifies credentials and starts a session.  The session carries
// the password-state flags so the guards can force a change.
func (h *AuthHandler) Login(c echo.Context) error {
    login, password := form(c, "login"), c.FormValue("password")
    if login == "" || password == "" {
        return h.failure(c, "Enter your username and password.", guard.LoginPath)
    }

    ctx, cancel := dbctx(c)
    defer cancel()

    u, err := h.Users.GetByLogin(ctx, login)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return h.failure(c, msgBadLogin, guard.LoginPath)
        }
        return h.internal(c, err, guard.LoginPath)
    }
    if !utils.VerifyPassword(u.PasswordHash, password) {
        return h.failure(c, msgBadLogin, guard.LoginPath)
    }
    if !u.Active() {
        return h.failure(c, msgDisabled, guard.LoginPath)
    }

    flags := model.SessionFlags{
        ForcePasswordChange: u.ForcePasswordChange,
        PasswordExpired:     h.Opts.PasswordMaxAge > 0 && h.now().Sub(u.PasswordUpdatedAt) > h.Opts.PasswordMaxAge,
    }
    // Create replaces any earlier session of this user.
    token, err := h.Sessions.Create(ctx, u.ID, flags)
    if err != nil {
        return h.internal(c, err, guard.LoginPath)
    }
    h.Cookies.SetToken(c, token)
    h.Log.Info().Uint64("user_id", u.ID).Str("ip", c.RealIP()).Msg("login")

    // A pending password change keeps the remembered page for afterwards.
    if flags.ForcePasswordChange || flags.PasswordExpired || u.IsDefaultPassword {
        return c.Redirect(http.StatusFound, guard.PasswordChangePath)
    }
    next := h.Cookies.TakeRemembered(c)
    if next == "" {
        next = guard.DefaultFallback
    }
    return c.Redirect(http.StatusFound, next)
}

// Logout destroys the session.
func (h *AuthHandler) Logout(c echo.Context) error {
    if tok := h.Cookies.Token(c); tok != "" {
        ctx, cancel := dbctx(c)
        defer cancel()
        if err := h.Sessions.Destroy(ctx, tok); err != nil {
            h.Log.Warn().Err(err).Msg("destroy session on logout")
        }
    }
    h.Cookies.ClearToken(c)
    return h.success(c, "You have been logged out.", guard.LoginPath)
}
