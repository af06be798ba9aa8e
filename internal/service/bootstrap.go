package service

import (
    "context"
    "errors"
    "fmt"

    "github.com/iliyamo/src-portal/internal/config"
    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
)

// AccountStore is the part of the user repository bootstrap needs.
type AccountStore interface {
    GetByLogin(ctx context.Context, login string) (model.User, error)
    Create(ctx context.Context, u model.User, password string, cost int, defaultPassword bool) (uint64, error)
}

// ErrBootstrapIncomplete is returned when a username is configured without
// an email or password.
var ErrBootstrapIncomplete = errors.New("bootstrap super admin needs username, email and password")

// BootstrapSuperAdmin creates the configured super administrator unless a
// user with that login already exists.  It returns true when it created one.
// The account is flagged as carrying a default password.
func BootstrapSuperAdmin(ctx context.Context, users AccountStore, cfg config.BootstrapConfig, cost int, log *logger.Logger) (bool, error) {
    if cfg.Username == "" {
        return false, nil
    }
    if cfg.Email == "" || cfg.Password == "" {
        return false, ErrBootstrapIncomplete
    }
    _, err := users.GetByLogin(ctx, cfg.Username)
    if err == nil {
        return false, nil
    }
    if !errors.Is(err, repository.ErrNotFound) {
        return false, fmt.Errorf("bootstrap lookup: %w", err)
    }
    id, err := users.Create(ctx, model.User{
        Username: cfg.Username,
        Email:    cfg.Email,
        Role:     model.RoleSuperAdmin,
    }, cfg.Password, cost, true)
    if err != nil {
        return false, fmt.Errorf("bootstrap create: %w", err)
    }
    log.Info().Uint64("user_id", id).Str("username", cfg.Username).Msg("super admin created")
    return true, nil
}
