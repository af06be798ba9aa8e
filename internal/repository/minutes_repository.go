package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
)

// MinutesRepo stores meeting minutes.
type MinutesRepo struct {
	db *sql.DB
}

func NewMinutesRepo(db *sql.DB) *MinutesRepo { return &MinutesRepo{db: db} }

const minutesColumns = "id, title, meeting_date, body, created_by, created_at, updated_at"

func scanMinutes(row rowScanner) (model.Minutes, error) {
	var m model.Minutes
	err := row.Scan(&m.ID, &m.Title, &m.MeetingDate, &m.Body, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// List returns minutes, latest meeting first.
func (r *MinutesRepo) List(ctx context.Context) ([]model.Minutes, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+minutesColumns+" FROM minutes ORDER BY meeting_date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list minutes: %w", err)
	}
	defer rows.Close()
	var out []model.Minutes
	for rows.Next() {
		m, err := scanMinutes(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get fetches one set of minutes.
func (r *MinutesRepo) Get(ctx context.Context, id uint64) (model.Minutes, error) {
	m, err := scanMinutes(r.db.QueryRowContext(ctx, "SELECT "+minutesColumns+" FROM minutes WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Minutes{}, ErrNotFound
		}
		return model.Minutes{}, fmt.Errorf("select minutes: %w", err)
	}
	return m, nil
}

// Create inserts minutes and returns the new ID.
func (r *MinutesRepo) Create(ctx context.Context, m model.Minutes) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO minutes (title, meeting_date, body, created_by) VALUES (?, ?, ?, ?)",
		m.Title, m.MeetingDate, m.Body, m.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert minutes: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Delete removes minutes by ID.
func (r *MinutesRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM minutes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete minutes: %w", err)
	}
	return affectedOne(res)
}
