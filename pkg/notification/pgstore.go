package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed notification store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the notifications table. Requires users.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			link       TEXT NOT NULL DEFAULT '',
			read       BOOLEAN NOT NULL DEFAULT false,
			emailed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		ALTER TABLE notifications
			ADD COLUMN IF NOT EXISTS email_attempts INT NOT NULL DEFAULT 0,
			ADD COLUMN IF NOT EXISTS email_retry_at TIMESTAMPTZ`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(created_at) WHERE emailed_at IS NULL`)
	return err
}

// CreateMany inserts all inputs in one batch.
func (s *PgStore) CreateMany(ctx context.Context, inputs []Input) ([]Notification, error) {
	if len(inputs) == 0 {
		return []Notification{}, nil
	}
	now := time.Now().Truncate(time.Microsecond)

	batch := &pgx.Batch{}
	out := make([]Notification, 0, len(inputs))
	for _, in := range inputs {
		n := Notification{
			ID:        uuid.Must(uuid.NewV7()).String(),
			UserID:    in.UserID,
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			Link:      in.Link,
			CreatedAt: now,
		}
		batch.Queue(`
			INSERT INTO notifications (id, user_id, type, title, message, link, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link, n.CreatedAt)
		out = append(out, n)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("create notifications: %w", err)
	}
	return out, nil
}

// ListForUser returns the newest notifications of a user.
func (s *PgStore) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, type, title, message, link, read, created_at, emailed_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id DESC LIMIT $3`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.Read, &n.CreatedAt, &n.EmailedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one notification of userID as read.
func (s *PgStore) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification %s read: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllRead marks every unread notification of userID as read.
func (s *PgStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications of %s read: %w", userID, err)
	}
	return int(tag.RowsAffected()), nil
}

// UnreadCount returns the number of unread notifications of userID.
func (s *PgStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications of %s: %w", userID, err)
	}
	return n, nil
}

// PendingEmails returns notifications without emailed_at, joined with the recipient's address.
func (s *PgStore) PendingEmails(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT n.id, n.user_id, n.type, n.title, n.message, n.link, n.read, n.created_at, u.email, u.name, n.email_attempts
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE n.emailed_at IS NULL
		  AND n.email_attempts < $2
		  AND (n.email_retry_at IS NULL OR n.email_retry_at <= now())
		ORDER BY n.created_at ASC, n.id ASC LIMIT $1`, limit, MaxEmailAttempts)
	if err != nil {
		return nil, fmt.Errorf("pending notification emails: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.UserID, &d.Type, &d.Title, &d.Message, &d.Link, &d.Read, &d.CreatedAt, &d.Email, &d.Name, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkEmailed stamps emailed_at.
func (s *PgStore) MarkEmailed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE notifications SET emailed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification %s emailed: %w", id, err)
	}
	return nil
}

// MarkEmailFailed increments email_attempts and sets email_retry_at.
func (s *PgStore) MarkEmailFailed(ctx context.Context, id string, retryAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET email_attempts = email_attempts + 1, email_retry_at = $2
		WHERE id = $1`, id, retryAt)
	if err != nil {
		return fmt.Errorf("mark notification %s email failed: %w", id, err)
	}
	return nil
}
