package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
)

// SenateRepo stores the senate roster.
type SenateRepo struct {
	db *sql.DB
}

func NewSenateRepo(db *sql.DB) *SenateRepo { return &SenateRepo{db: db} }

// List returns the roster ordered by faculty then name.
func (r *SenateRepo) List(ctx context.Context) ([]model.SenateMember, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, COALESCE(user_id, 0), name, faculty, position, term_start, term_end FROM senate_members ORDER BY faculty, name")
	if err != nil {
		return nil, fmt.Errorf("list senate: %w", err)
	}
	defer rows.Close()
	var out []model.SenateMember
	for rows.Next() {
		var m model.SenateMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Faculty, &m.Position, &m.TermStart, &m.TermEnd); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Add inserts a senate member.  A zero UserID is stored as NULL.
func (r *SenateRepo) Add(ctx context.Context, m model.SenateMember) (uint64, error) {
	var userID sql.NullInt64
	if m.UserID != 0 {
		userID = sql.NullInt64{Int64: int64(m.UserID), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO senate_members (user_id, name, faculty, position, term_start, term_end) VALUES (?, ?, ?, ?, ?, ?)",
		userID, m.Name, m.Faculty, m.Position, m.TermStart, m.TermEnd)
	if err != nil {
		return 0, fmt.Errorf("insert senate member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Remove deletes a senate member.
func (r *SenateRepo) Remove(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM senate_members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete senate member: %w", err)
	}
	return affectedOne(res)
}

// Stats returns row counts of the main tables for the diagnostics page.
func (r *SenateRepo) Stats(ctx context.Context) (map[string]int64, error) {
	tables := []string{"users", "budgets", "elections", "candidates", "minutes", "notifications", "chat_messages", "senate_members"}
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		// table names come from the fixed list above
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		out[t] = n
	}
	return out, nil
}
