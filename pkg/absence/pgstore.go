package absence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed absence store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const columns = `id, requester_id, kind, start_date, end_date, note, status, resolved_by, created_at, resolved_at`

// EnsureTable creates the absences table. Requires users.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS absences (
			id           TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind         TEXT NOT NULL,
			start_date   DATE NOT NULL,
			end_date     DATE NOT NULL,
			note         TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'pending',
			resolved_by  TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolved_at  TIMESTAMPTZ,
			CHECK (end_date >= start_date)
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_absences_status ON absences(status, created_at)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_absences_range ON absences(start_date, end_date)`)
	return err
}

// Create inserts a new pending absence request.
func (s *PgStore) Create(ctx context.Context, a *Absence) (*Absence, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("create absence: %w", err)
	}
	out := *a
	out.ID = uuid.Must(uuid.NewV7()).String()
	out.Status = StatusPending
	out.ResolvedBy = ""
	out.ResolvedAt = nil
	out.CreatedAt = time.Now().Truncate(time.Microsecond)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO absences (id, requester_id, kind, start_date, end_date, note, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)`,
		out.ID, out.RequesterID, string(out.Kind), out.StartDate, out.EndDate, out.Note, out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create absence for %s: %w", out.RequesterID, err)
	}
	return &out, nil
}

// Resolve approves or rejects a pending absence.
func (s *PgStore) Resolve(ctx context.Context, id, resolverID string, approved bool) (*Absence, error) {
	status := StatusRejected
	if approved {
		status = StatusApproved
	}
	now := time.Now().Truncate(time.Microsecond)

	a, err := scanOne(s.pool.QueryRow(ctx, `
		UPDATE absences SET status = $1, resolved_by = $2, resolved_at = $3
		WHERE id = $4 AND status = 'pending'
		RETURNING `+columns,
		status, resolverID, now, id))
	if errors.Is(err, ErrNotFound) {
		// distinguish "gone" from "already resolved"
		if _, getErr := s.Get(ctx, id); getErr == nil {
			err = ErrNotPending
		}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve absence %s: %w", id, err)
	}
	return a, nil
}

// Get retrieves a single absence by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Absence, error) {
	a, err := scanOne(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM absences WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get absence %s: %w", id, err)
	}
	return a, nil
}

// ListForUser returns the newest absences of a user.
func (s *PgStore) ListForUser(ctx context.Context, userID string, limit int) ([]Absence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+columns+` FROM absences WHERE requester_id = $1
		ORDER BY start_date DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list absences of %s: %w", userID, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Pending returns all pending absence requests, oldest first.
func (s *PgStore) Pending(ctx context.Context) ([]Absence, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM absences WHERE status = 'pending' ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("pending absences: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Overlapping returns pending and approved absences touching [from, to].
func (s *PgStore) Overlapping(ctx context.Context, from, to time.Time) ([]Absence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+columns+` FROM absences
		WHERE status <> 'rejected' AND start_date <= $2 AND end_date >= $1
		ORDER BY start_date ASC, id ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("absences between %s and %s: %w", from.Format(time.DateOnly), to.Format(time.DateOnly), err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// PendingCount returns the number of pending requests.
func (s *PgStore) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM absences WHERE status = 'pending'`).Scan(&n)
	return n, err
}

func scanOne(row pgx.Row) (*Absence, error) {
	var a Absence
	var kind string
	err := row.Scan(&a.ID, &a.RequesterID, &kind, &a.StartDate, &a.EndDate, &a.Note, &a.Status, &a.ResolvedBy, &a.CreatedAt, &a.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	return &a, nil
}

func scanRows(rows pgx.Rows) ([]Absence, error) {
	var out []Absence
	for rows.Next() {
		a, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}
