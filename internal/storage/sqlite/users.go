package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zineproject/zine/internal/storage"
)

const userColumns = "id, username, email, real_name, is_admin, created_at"

// CreateUser persists a new account with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, u storage.NewUser) (storage.User, error) {
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return storage.User{}, fmt.Errorf("username is required")
	}
	if u.Password == "" {
		return storage.User{}, fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}

	createdAt := time.Now().UTC()
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (username, email, real_name, password_hash, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username,
		strings.TrimSpace(u.Email),
		strings.TrimSpace(u.RealName),
		string(hash),
		boolToInt(u.IsAdmin),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.User{}, storage.ErrExists
		}
		return storage.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.User{}, fmt.Errorf("create user id: %w", err)
	}

	return storage.User{
		ID:        id,
		Username:  u.Username,
		Email:     strings.TrimSpace(u.Email),
		RealName:  strings.TrimSpace(u.RealName),
		IsAdmin:   u.IsAdmin,
		CreatedAt: createdAt.Truncate(time.Millisecond),
	}, nil
}

// UserByID loads an account by id.
func (s *Store) UserByID(ctx context.Context, id int64) (storage.User, error) {
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// UserByUsername loads an account by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (storage.User, error) {
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", strings.TrimSpace(username))
	return scanUser(row)
}

// CheckCredentials verifies a username/password pair. A missing user and
// a wrong password both report ErrBadCredentials.
func (s *Store) CheckCredentials(ctx context.Context, username, password string) (storage.User, error) {
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT "+userColumns+", password_hash FROM users WHERE username = ?",
		strings.TrimSpace(username),
	)
	var (
		user      storage.User
		isAdmin   int64
		createdAt int64
		hash      string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.RealName, &isAdmin, &createdAt, &hash); err != nil {
		if err == sql.ErrNoRows {
			return storage.User{}, storage.ErrBadCredentials
		}
		return storage.User{}, fmt.Errorf("check credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return storage.User{}, storage.ErrBadCredentials
	}
	user.IsAdmin = isAdmin != 0
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// CountUsers reports how many accounts exist.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUser(row *sql.Row) (storage.User, error) {
	var (
		user      storage.User
		isAdmin   int64
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.RealName, &isAdmin, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.IsAdmin = isAdmin != 0
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
