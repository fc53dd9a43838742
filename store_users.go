package vyakta

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

const userSelect = `SELECT id, name, email, password_hash, role, bio, avatar, created_at FROM users`

func scanUser(row rowScanner) (User, error) {
	var u User
	var role string
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Bio, &u.Avatar, &createdAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// InsertUser stores a new user. Emails are unique case-insensitively.
func (s *Store) InsertUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name, email, password_hash, role, bio, avatar, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, string(u.Role), u.Bio, u.Avatar, toMillis(u.CreatedAt))
	return conflictFromErr(err, "user")
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, &NotFoundError{Entity: "user", Key: id}
	}
	return u, err
}

// GetUserByEmail returns a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE email = ?", strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, &NotFoundError{Entity: "user", Key: email}
	}
	return u, err
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
