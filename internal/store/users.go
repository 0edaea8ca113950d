package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = "id, username, password, email, name, avatar"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Email, &u.Name, &u.Avatar); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE username = ?"), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// CreateUser inserts u. u.Password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u *User) (*User, error) {
	err := s.db.QueryRowContext(ctx,
		s.rebind("INSERT INTO users (username, password, email, name, avatar) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		u.Username, u.Password, u.Email, u.Name, u.Avatar,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q already taken: %w", u.Username, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}
