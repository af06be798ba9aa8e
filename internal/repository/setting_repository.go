package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
)

// SettingRepo persists named key/value settings (feature flags and the
// like) in the `settings` table.
type SettingRepo struct{ DB *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{DB: db} }

// Get returns the raw value of a setting or ErrNotFound.
func (r *SettingRepo) Get(ctx context.Context, name string) (string, error) {
	var v string
	err := r.DB.QueryRowContext(ctx, "SELECT value FROM settings WHERE name=? LIMIT 1", name).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select setting %s: %w", name, err)
	}
	return v, nil
}

// Set upserts a setting.
func (r *SettingRepo) Set(ctx context.Context, name, value string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO settings (name, value) VALUES (?,?) ON DUPLICATE KEY UPDATE value=VALUES(value)",
		name, value)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", name, err)
	}
	return nil
}

// All returns every stored setting ordered by name.
func (r *SettingRepo) All(ctx context.Context) ([]model.Setting, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT name, value FROM settings ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	var out []model.Setting
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Name, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
