package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/auth"
)

// User is an admin profile. Credentials live with the auth backend; the
// profile only carries display data and the role.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        auth.Role `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListUsers returns profiles filtered by role (all when empty), by email.
func (s *Store) ListUsers(ctx context.Context, role auth.Role, page Page) ([]User, error) {
	w := NewWhereBuilder().Add("role", string(role))
	where, args := w.Build()
	limit, limitArgs := page.clause(w)

	rows, err := s.pool.Query(ctx,
		`SELECT id, email, display_name, role, created_at FROM profiles`+where+` ORDER BY email`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var (
			u    User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = auth.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns one profile or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var (
		u    User
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, role, created_at FROM profiles WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &role, &u.CreatedAt)
	if err != nil {
		return u, notFound(err)
	}
	u.Role = auth.Role(role)
	return u, nil
}

// SetUserRole changes a profile's role and returns the previous one.
func (s *Store) SetUserRole(ctx context.Context, id string, role auth.Role) (auth.Role, error) {
	var prev string
	err := s.pool.QueryRow(ctx, `
		UPDATE profiles p SET role = $2
		FROM (SELECT role FROM profiles WHERE id = $1 FOR UPDATE) old
		WHERE p.id = $1
		RETURNING old.role`, id, string(role)).Scan(&prev)
	if err != nil {
		return "", notFound(err)
	}
	return auth.Role(prev), nil
}
