package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ResetRepo tracks password-reset tokens (single 'token_hash' column) so a
// signed reset link can be used only once.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Store inserts a reset token hash row.
func (r *ResetRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	if err != nil {
		return fmt.Errorf("store reset: %w", err)
	}
	return nil
}

// Consume marks a token used and returns its user.  Unknown, expired and
// already-used tokens yield ErrNotFound.
func (r *ResetRepo) Consume(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, used_at FROM password_resets WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select reset: %w", err)
	}
	if usedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_resets SET used_at=UTC_TIMESTAMP() WHERE token_hash=? AND used_at IS NULL",
		tokenHash)
	if err != nil {
		return 0, fmt.Errorf("consume reset: %w", err)
	}
	if err := affectedOne(res); err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeAllForUser invalidates all of a user's outstanding reset tokens.
func (r *ResetRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE password_resets SET used_at=UTC_TIMESTAMP() WHERE user_id=? AND used_at IS NULL",
		userID)
	return err
}
