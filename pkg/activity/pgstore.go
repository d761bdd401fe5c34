package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed activity store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the activity table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activity (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			task_id    TEXT NOT NULL DEFAULT '',
			actor_id   TEXT NOT NULL DEFAULT '',
			type       TEXT NOT NULL,
			meta       JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_project ON activity(project_id, created_at DESC) WHERE project_id != ''`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_task ON activity(task_id, created_at DESC) WHERE task_id != ''`)
	return err
}

// Record appends an event.
func (s *PgStore) Record(ctx context.Context, e Event) (*Event, error) {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	e.ID = uuid.Must(uuid.NewV7()).String()
	e.CreatedAt = time.Now().Truncate(time.Microsecond)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO activity (id, project_id, task_id, actor_id, type, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		e.ID, e.ProjectID, e.TaskID, e.ActorID, e.Type, string(metaJSON), e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert activity %s: %w", e.Type, err)
	}
	return &e, nil
}

// ByProject returns the newest events of a project.
func (s *PgStore) ByProject(ctx context.Context, projectID string, limit int) ([]Event, error) {
	return s.scanMany(ctx, `
		SELECT id, project_id, task_id, actor_id, type, meta, created_at
		FROM activity WHERE project_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, projectID, limit)
}

// ByTask returns the newest events of a task.
func (s *PgStore) ByTask(ctx context.Context, taskID string, limit int) ([]Event, error) {
	return s.scanMany(ctx, `
		SELECT id, project_id, task_id, actor_id, type, meta, created_at
		FROM activity WHERE task_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, taskID, limit)
}

func (s *PgStore) scanMany(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.TaskID, &e.ActorID, &e.Type, &metaJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &e.Meta); err != nil {
			// keep the row readable; the formatter falls back on missing keys
			e.Meta = map[string]any{"_raw": string(metaJSON)}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}
