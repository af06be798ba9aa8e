package handler

import (
    "context"
    "fmt"
    "net/http"
    "net/mail"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/src-portal/internal/authz"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/session"
    "github.com/iliyamo/src-portal/internal/settings"
    "github.com/iliyamo/src-portal/internal/utils"
)

// generatedPasswordLen is the length of passwords issued at provisioning.
const generatedPasswordLen = 12

type FlagStore interface {
    FlagStates(ctx context.Context) (map[string]bool, error)
    SetFlag(ctx context.Context, name string, on bool) error
}

type AdminUsers interface {
    List(ctx context.Context) ([]model.User, error)
    Create(ctx context.Context, u model.User, password string, cost int, defaultPassword bool) (uint64, error)
    SetStatus(ctx context.Context, id uint64, status model.UserStatus) error
    SetForcePasswordChange(ctx context.Context, id uint64, force bool) error
}

type AdminHandler struct {
    Base
    Flags      FlagStore
    Users      AdminUsers
    Sessions   session.Store
    BcryptCost int
}

type flagRow struct {
    Name string
    On   bool
}

func (h *AdminHandler) Settings(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    states, err := h.Flags.FlagStates(ctx)
    if err != nil {
        return h.internal(c, err, "/dashboard")
    }
    rows := make([]flagRow, 0, len(states))
    for _, name := range settings.Flags() {
        rows = append(rows, flagRow{Name: name, On: states[name]})
    }
    return h.render(c, http.StatusOK, "admin_settings", "Settings", rows)
}

// SaveSettings writes every known flag.  Unchecked boxes are absent from
// the form and therefore turn the flag off.
func (h *AdminHandler) SaveSettings(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    for _, name := range settings.Flags() {
        on, _ := settings.ParseBool(c.FormValue(name))
        if err := h.Flags.SetFlag(ctx, name, on); err != nil {
            return h.internal(c, err, "/admin/settings")
        }
    }
    h.Log.Info().Uint64("admin_id", currentUserID(c)).Msg("feature flags updated")
    return h.success(c, "Settings saved.", "/admin/settings")
}

func (h *AdminHandler) UserList(c echo.Context) error {
    ctx, cancel := dbctx(c)
    defer cancel()
    list, err := h.Users.List(ctx)
    if err != nil {
        return h.internal(c, err, "/dashboard")
    }
    return h.render(c, http.StatusOK, "admin_users", "Users", list)
}

// CreateUser provisions an account with a generated default password.  The
// password is shown once in the success flash; the new user must change it
// at first login.
func (h *AdminHandler) CreateUser(c echo.Context) error {
    u := model.User{Username: form(c, "username"), Email: form(c, "email"), Phone: form(c, "phone")}
    if u.Username == "" {
        return h.failure(c, "Username is required.", "/admin/users")
    }
    // usernames and emails share the login field
    if strings.Contains(u.Username, "@") {
        return h.failure(c, "Usernames cannot contain @.", "/admin/users")
    }
    if _, err := mail.ParseAddress(u.Email); err != nil {
        return h.failure(c, "A valid email address is required.", "/admin/users")
    }
    role, ok := authz.ParseRole(form(c, "role"))
    if !ok {
        return h.failure(c, "Unknown role.", "/admin/users")
    }
    u.Role = role

    pw, err := utils.GeneratePassword(generatedPasswordLen)
    if err != nil {
        return h.internal(c, err, "/admin/users")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    id, err := h.Users.Create(ctx, u, pw, h.BcryptCost, true)
    if err != nil {
        return h.storeError(c, err, "/admin/users")
    }
    h.Log.Info().Uint64("admin_id", currentUserID(c)).Uint64("new_user_id", id).Str("role", string(role)).Msg("user provisioned")
    return h.success(c, fmt.Sprintf("Created %s with temporary password %s", u.Username, pw), "/admin/users")
}

// SetUserStatus enables or disables an account.  Disabling ends the
// user's session immediately.
func (h *AdminHandler) SetUserStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown user.", "/admin/users")
    }
    status := model.UserStatus(form(c, "status"))
    if status != model.StatusActive && status != model.StatusDisabled {
        return h.failure(c, "Unknown status.", "/admin/users")
    }
    if status == model.StatusDisabled && id == currentUserID(c) {
        return h.failure(c, "You cannot disable your own account.", "/admin/users")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Users.SetStatus(ctx, id, status); err != nil {
        return h.storeError(c, err, "/admin/users")
    }
    if status == model.StatusDisabled {
        if err := h.Sessions.DestroyAllForUser(ctx, id); err != nil {
            h.Log.Warn().Err(err).Uint64("user_id", id).Msg("end sessions of disabled user")
        }
    }
    return h.success(c, "Account status updated.", "/admin/users")
}

// ForcePassword flags the account so its next login must change the
// password.  Any current session is ended so the flag applies at once.
func (h *AdminHandler) ForcePassword(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return h.failure(c, "Unknown user.", "/admin/users")
    }
    ctx, cancel := dbctx(c)
    defer cancel()
    if err := h.Users.SetForcePasswordChange(ctx, id, true); err != nil {
        return h.storeError(c, err, "/admin/users")
    }
    if err := h.Sessions.DestroyAllForUser(ctx, id); err != nil {
        h.Log.Warn().Err(err).Uint64("user_id", id).Msg("end sessions after force password")
    }
    return h.success(c, "The user must change their password at next login.", "/admin/users")
}
