package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projecthub/pkg/notification"
)

// PgStore is a PostgreSQL-backed user store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the users table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin','manager','member')),
			department TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users(lower(email))`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS users_role_dept_idx ON users(role, department)`)
	return err
}

// Register creates or returns an existing user. Idempotent.
func (s *PgStore) Register(ctx context.Context, email, name string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("register user: email required")
	}
	if u, err := s.ByEmail(ctx, email); err == nil {
		return u, nil
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, created_at)
		VALUES ($1, $2, $3, 'member', $4)
		ON CONFLICT DO NOTHING`,
		id, email, name, now)
	if err != nil {
		return nil, fmt.Errorf("register user %s: %w", email, err)
	}

	// Re-fetch to handle race conditions (ON CONFLICT DO NOTHING)
	u, err := s.ByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("register user %s: re-fetch failed: %w", email, err)
	}
	return u, nil
}

// Get returns a user by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.scanOne(ctx, `SELECT id, email, name, role, department, created_at FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// ByEmail returns a user by e-mail address, case-insensitively.
func (s *PgStore) ByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.scanOne(ctx, `SELECT id, email, name, role, department, created_at FROM users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("user by email %s: %w", email, err)
	}
	return u, nil
}

// List returns all users ordered by name.
func (s *PgStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, email, name, role, department, created_at FROM users ORDER BY name ASC, email ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var dept *string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &dept, &u.CreatedAt); err != nil {
			return nil, err
		}
		if dept != nil {
			u.Department = *dept
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetRole updates role and department. An empty department clears it.
func (s *PgStore) SetRole(ctx context.Context, id, role, department string) (*User, error) {
	u, err := s.scanOne(ctx, `
		UPDATE users SET role = $2, department = $3 WHERE id = $1
		RETURNING id, email, name, role, department, created_at`,
		id, role, nilIfEmpty(department))
	if err != nil {
		return nil, fmt.Errorf("set role of user %s: %w", id, err)
	}
	return u, nil
}

// recipientsQuery selects admins plus same-department managers, never the requester.
// A NULL department parameter never matches, so managers are only included for
// requesters that belong to a department.
const recipientsQuery = `
	FROM users
	WHERE id <> $1
	  AND (role = 'admin' OR (role = 'manager' AND $2::text IS NOT NULL AND department = $2::text))
	ORDER BY created_at ASC`

// FindAbsenceRequestRecipients returns recipient ids.
func (s *PgStore) FindAbsenceRequestRecipients(ctx context.Context, requesterID, department string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id `+recipientsQuery, requesterID, nilIfEmpty(department))
	if err != nil {
		return nil, fmt.Errorf("absence recipients for %s: %w", requesterID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindAbsenceRequestRecipientsWithEmails returns recipients with e-mail and name.
func (s *PgStore) FindAbsenceRequestRecipientsWithEmails(ctx context.Context, requesterID, department string) ([]notification.Recipient, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, email, name `+recipientsQuery, requesterID, nilIfEmpty(department))
	if err != nil {
		return nil, fmt.Errorf("absence recipients for %s: %w", requesterID, err)
	}
	defer rows.Close()

	var out []notification.Recipient
	for rows.Next() {
		var r notification.Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	var dept *string
	err := s.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &dept, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if dept != nil {
		u.Department = *dept
	}
	return &u, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
