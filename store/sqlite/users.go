package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// USERS
// =============================================================================

// User is a login account.
type User struct {
	ID           generic.UserID
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CreateUser inserts an account. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Role == "" {
		u.Role = RoleUser
	}
	u.CreatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.Username, u.Email, u.PasswordHash, u.Role, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return User{}, &generic.DuplicateError{Field: "username", Message: "Username or email already exists"}
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	u.ID = generic.UserID(id)
	return u, nil
}

// FindUserByLogin looks an account up by username or email. Returns nil
// when neither matches.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, password, role, created_at
		FROM users
		WHERE username = ? OR email = ?
		ORDER BY id
		LIMIT 1
	`, login, login)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		u         User
		createdAt string
	)
	if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}
