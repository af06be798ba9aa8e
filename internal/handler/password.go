package handler

import (
    "errors"
    "fmt"
    "net/http"
    "net/url"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/guard"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/repository"
    "github.com/iliyamo/src-portal/internal/utils"
)

// checkNewPassword validates a proposed password and its confirmation.
func checkNewPassword(pw, confirm string) string {
    switch {
    case len(pw) < utils.MinPasswordLength:
        return fmt.Sprintf("The new password must be at least %d characters.", utils.MinPasswordLength)
    case pw != confirm:
        return "The new passwords do not match."
    }
    return ""
}

// ChangeForm shows the password change page.
func (h *AuthHandler) ChangeForm(c echo.Context) error {
    return h.render(c, http.StatusOK, "password_change", "Change password", nil)
}

// Change replaces the caller's password.  It clears every pending
// password state on the account and on the live session.
func (h *AuthHandler) Change(c echo.Context) error {
    id := middleware.Current(c)
    current := c.FormValue("current_password")
    pw, confirm := c.FormValue("new_password"), c.FormValue("confirm_password")

    if !utils.VerifyPassword(id.User.PasswordHash, current) {
        return h.failure(c, "Your current password is incorrect.", guard.PasswordChangePath)
    }
    if msg := checkNewPassword(pw, confirm); msg != "" {
        return h.failure(c, msg, guard.PasswordChangePath)
    }
    if utils.VerifyPassword(id.User.PasswordHash, pw) {
        return h.failure(c, "The new password must differ from the current one.", guard.PasswordChangePath)
    }

    hash, err := utils.HashPassword(pw, h.Opts.BcryptCost)
    if err != nil {
        return h.internal(c, err, guard.PasswordChangePath)
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Users.UpdatePassword(ctx, id.User.ID, hash); err != nil {
        return h.internal(c, err, guard.PasswordChangePath)
    }

    s := *id.Session
    s.ForcePasswordChange = false
    s.PasswordExpired = false
    if err := h.Sessions.Update(ctx, &s); err != nil {
        h.Log.Warn().Err(err).Uint64("user_id", id.User.ID).Msg("clear session password flags")
    }

    next := h.Cookies.TakeRemembered(c)
    if next == "" || guard.IsPasswordExempt(next) {
        next = guard.DefaultFallback
    }
    return h.success(c, "Your password has been changed.", next)
}

// ForgotForm shows the reset request page.
func (h *AuthHandler) ForgotForm(c echo.Context) error {
    return h.render(c, http.StatusOK, "password_forgot", "Forgot password", nil)
}

// Forgot issues a reset link.  The reply is identical whether or not the
// address exists.
func (h *AuthHandler) Forgot(c echo.Context) error {
    email := form(c, "email")
    if email == "" {
        return h.failure(c, "Enter your email address.", "/password/forgot")
    }
    ctx, cancel := dbctx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, email)
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return h.success(c, msgResetSent, guard.LoginPath)
    case err != nil:
        return h.internal(c, err, "/password/forgot")
    case !u.Active():
        return h.success(c, msgResetSent, guard.LoginPath)
    }

    rt, err := utils.NewResetToken(h.Opts.ResetSecret, u.ID, h.Opts.ResetTTL)
    if err != nil {
        return h.internal(c, err, "/password/forgot")
    }
    if err := h.Resets.Store(ctx, u.ID, utils.HashTokenID(rt.ID), rt.Exp); err != nil {
        return h.internal(c, err, "/password/forgot")
    }
    link := h.Opts.BaseURL + "/password/reset?token=" + url.QueryEscape(rt.Token)
    body := fmt.Sprintf("Hello %s,\n\nUse this link to choose a new password. It expires in %s.\n\n%s\n",
        u.Username, h.Opts.ResetTTL, link)
    if err := h.Mail.SendEmail(ctx, u, "SRC Portal password reset", body); err != nil {
        h.Log.Warn().Err(err).Uint64("user_id", u.ID).Msg("reset email not sent")
    }
    return h.success(c, msgResetSent, guard.LoginPath)
}

// ResetForm shows the new-password form for a reset link.
func (h *AuthHandler) ResetForm(c echo.Context) error {
    raw := c.QueryParam("token")
    if _, _, err := utils.ParseResetToken(h.Opts.ResetSecret, raw); err != nil {
        return h.failure(c, msgResetInvalid, "/password/forgot")
    }
    return h.render(c, http.StatusOK, "password_reset", "Choose a new password", raw)
}

// Reset consumes a reset link and sets the new password.  All sessions of
// the user are ended.
func (h *AuthHandler) Reset(c echo.Context) error {
    raw := c.FormValue("token")
    userID, jti, err := utils.ParseResetToken(h.Opts.ResetSecret, raw)
    if err != nil {
        return h.failure(c, msgResetInvalid, "/password/forgot")
    }
    back := "/password/reset?token=" + url.QueryEscape(raw)
    pw, confirm := c.FormValue("new_password"), c.FormValue("confirm_password")
    if msg := checkNewPassword(pw, confirm); msg != "" {
        return h.failure(c, msg, back)
    }
    hash, err := utils.HashPassword(pw, h.Opts.BcryptCost)
    if err != nil {
        return h.internal(c, err, back)
    }

    ctx, cancel := dbctx(c)
    defer cancel()
    owner, err := h.Resets.Consume(ctx, utils.HashTokenID(jti))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return h.failure(c, msgResetInvalid, "/password/forgot")
        }
        return h.internal(c, err, back)
    }
    if owner != userID {
        return h.failure(c, msgResetInvalid, "/password/forgot")
    }
    if err := h.Users.UpdatePassword(ctx, userID, hash); err != nil {
        return h.internal(c, err, back)
    }
    if err := h.Resets.RevokeAllForUser(ctx, userID); err != nil {
        h.Log.Warn().Err(err).Uint64("user_id", userID).Msg("revoke reset links")
    }
    if err := h.Sessions.DestroyAllForUser(ctx, userID); err != nil {
        h.Log.Warn().Err(err).Uint64("user_id", userID).Msg("end sessions after reset")
    }
    return h.success(c, "Your password has been reset. Please log in.", guard.LoginPath)
}
