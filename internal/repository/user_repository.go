package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/src-portal/internal/model"
	"github.com/iliyamo/src-portal/internal/utils"
)

const userColumns = "id,username,email,phone,password_hash,role,status,is_default_password,force_password_change,password_updated_at,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var role, status string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &role, &status,
		&u.IsDefaultPassword, &u.ForcePasswordChange, &u.PasswordUpdatedAt, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	u.Status = model.UserStatus(status)
	return u, err
}

// Create provisions a user with the given password and returns its ID.
// Provisioned accounts are flagged as carrying a default password when
// defaultPassword is true.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int, defaultPassword bool) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, phone, password_hash, role, status, is_default_password, password_updated_at) VALUES (?,?,?,?,?,?,?,UTC_TIMESTAMP())",
		strings.TrimSpace(u.Username), strings.ToLower(strings.TrimSpace(u.Email)), strings.TrimSpace(u.Phone),
		hash, string(u.Role), string(model.StatusActive), defaultPassword)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByLogin fetches a user by username or email.  A username match wins
// over another account's email.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? ORDER BY username=? DESC LIMIT 1",
		login, strings.ToLower(login), login)
	return r.one(row)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
	return r.one(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return r.one(row)
}

func (r *UserRepo) one(row *sql.Row) (model.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// List returns all users ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectUsers(rows)
}

// ListActive returns active users, optionally restricted to one role.
func (r *UserRepo) ListActive(ctx context.Context, role model.Role) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE status=?"
	args := []any{string(model.StatusActive)}
	if role != "" {
		q += " AND role=?"
		args = append(args, string(role))
	}
	rows, err := r.DB.QueryContext(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdatePassword stores a new password hash and clears the default and
// forced password flags.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, is_default_password=0, force_password_change=0, password_updated_at=UTC_TIMESTAMP() WHERE id=?",
		hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affectedOne(res)
}

// SetStatus activates or disables an account.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return affectedOne(res)
}

// SetForcePasswordChange raises or clears the administrator-requested
// password change flag.
func (r *UserRepo) SetForcePasswordChange(ctx context.Context, id uint64, force bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET force_password_change=? WHERE id=?", force, id)
	if err != nil {
		return fmt.Errorf("update force flag: %w", err)
	}
	return affectedOne(res)
}

// affectedOne maps "zero rows affected" to ErrNotFound.
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
