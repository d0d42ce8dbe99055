package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const userColumns = `id, name, email, avatar_path, join_date, is_premium, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var joinDate, createdAt, updatedAt string
	var premium int
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarPath, &joinDate, &premium, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.IsPremium = premium == 1
	u.JoinDate = parseTime(joinDate)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

// GetUser returns the local profile, or nil when nobody has signed up yet.
func (s *Store) GetUser(ctx context.Context) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT 1`)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *Store) GetUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("create user: name is required")
	}
	id := s.newID()
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, join_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Email, now, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) UpdateUser(ctx context.Context, id string, p UserPatch) (*User, error) {
	var sets []string
	var args []any
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *p.Email)
	}
	if p.AvatarPath != nil {
		sets = append(sets, "avatar_path = ?")
		args = append(args, *p.AvatarPath)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id)

	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser removes the user and, through foreign keys, every row they own.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete user %s: %w", id, ErrNotFound)
	}
	return nil
}
