package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
)

// ElectionRepo stores elections and candidate registrations.
type ElectionRepo struct {
	db *sql.DB
}

func NewElectionRepo(db *sql.DB) *ElectionRepo { return &ElectionRepo{db: db} }

const electionColumns = "id, title, opens_at, closes_at, status, created_at"

func scanElection(row rowScanner) (model.Election, error) {
	var e model.Election
	var status string
	err := row.Scan(&e.ID, &e.Title, &e.OpensAt, &e.ClosesAt, &status, &e.CreatedAt)
	e.Status = model.ElectionStatus(status)
	return e, err
}

// List returns elections, most recent first.
func (r *ElectionRepo) List(ctx context.Context) ([]model.Election, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+electionColumns+" FROM elections ORDER BY opens_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()
	var out []model.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get fetches one election.
func (r *ElectionRepo) Get(ctx context.Context, id uint64) (model.Election, error) {
	e, err := scanElection(r.db.QueryRowContext(ctx, "SELECT "+electionColumns+" FROM elections WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Election{}, ErrNotFound
		}
		return model.Election{}, fmt.Errorf("select election: %w", err)
	}
	return e, nil
}

// Create inserts a draft election.
func (r *ElectionRepo) Create(ctx context.Context, e model.Election) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO elections (title, opens_at, closes_at, status) VALUES (?, ?, ?, ?)",
		e.Title, e.OpensAt, e.ClosesAt, string(model.ElectionDraft))
	if err != nil {
		return 0, fmt.Errorf("insert election: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetStatus changes an election's status.
func (r *ElectionRepo) SetStatus(ctx context.Context, id uint64, status model.ElectionStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE elections SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update election status: %w", err)
	}
	return affectedOne(res)
}

// Candidates lists registrations for an election with the candidate's
// username.
func (r *ElectionRepo) Candidates(ctx context.Context, electionID uint64) ([]model.Candidate, error) {
	const q = `SELECT c.id, c.election_id, c.user_id, u.username, c.position, c.manifesto, c.status, c.created_at
	           FROM candidates c JOIN users u ON u.id = c.user_id
	           WHERE c.election_id = ? ORDER BY c.position, c.id`
	rows, err := r.db.QueryContext(ctx, q, electionID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		var status string
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.UserID, &c.Username, &c.Position, &c.Manifesto, &status, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Status = model.CandidateStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Register adds a pending candidate.  A second registration of the same
// user for the same position yields ErrDuplicate.
func (r *ElectionRepo) Register(ctx context.Context, c model.Candidate) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO candidates (election_id, user_id, position, manifesto, status) VALUES (?, ?, ?, ?, ?)",
		c.ElectionID, c.UserID, c.Position, c.Manifesto, string(model.CandidatePending))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert candidate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetCandidateStatus approves or rejects a registration.
func (r *ElectionRepo) SetCandidateStatus(ctx context.Context, id uint64, status model.CandidateStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE candidates SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}
	return affectedOne(res)
}
