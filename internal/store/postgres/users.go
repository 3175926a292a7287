package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/internal/platform/db"
)

const userColumns = `id, username, password_hash, full_name, role, unit, active, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.Unit, &u.Active, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	return u, err
}

// FindUserByUsername implements auth.Repository.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (auth.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, wrap("find user", err)
}

// FindUserByID implements auth.Repository.
func (s *Store) FindUserByID(ctx context.Context, id string) (auth.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, wrap("find user", err)
}

// InsertUser implements auth.Repository.
func (s *Store) InsertUser(ctx context.Context, u auth.User) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Username, u.PasswordHash, u.FullName, string(u.Role), u.Unit, u.Active, u.CreatedAt, u.UpdatedAt, u.DeletedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", auth.ErrUserExists, u.Username)
	}
	return wrap("insert user", err)
}

// UpdateUser implements auth.Repository.
func (s *Store) UpdateUser(ctx context.Context, u auth.User) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2, full_name = $3, role = $4, unit = $5, active = $6, updated_at = $7, deleted_at = $8 WHERE id = $1`,
		u.ID, u.PasswordHash, u.FullName, string(u.Role), u.Unit, u.Active, u.UpdatedAt, u.DeletedAt)
	if err != nil {
		return wrap("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// ListUsers implements auth.Repository.
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, wrap("list users", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.User, error) {
		return scanUser(row)
	})
	return list, wrap("list users", err)
}
