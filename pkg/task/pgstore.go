package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const columns = `id, project_id, title, description, status, priority, assignee_ids, due_date, created_by, created_at, updated_at, completed_at`

// EnsureTable creates the tasks table. Requires projects.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'todo',
			priority     INTEGER NOT NULL DEFAULT 0,
			assignee_ids TEXT[] NOT NULL DEFAULT '{}',
			due_date     DATE,
			created_by   TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ DEFAULT NOW(),
			updated_at   TIMESTAMPTZ DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, status)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_assignees ON tasks USING GIN(assignee_ids)`)
	return err
}

// Create inserts a new task.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, project_id, title, description, status, priority, assignee_ids, due_date, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority, t.AssigneeIDs, t.DueDate, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// Update modifies task fields. Unknown keys are ignored. Setting status to done
// stamps completed_at, any other status clears it.
func (s *PgStore) Update(ctx context.Context, id string, updates map[string]any) (*Task, error) {
	now := time.Now().Truncate(time.Microsecond)

	// Build SET clause dynamically
	setClauses := "updated_at = $1"
	args := []any{now}
	argIdx := 2

	set := func(column string, v any) {
		setClauses += fmt.Sprintf(", %s = $%d", column, argIdx)
		args = append(args, v)
		argIdx++
	}

	for k, v := range updates {
		switch k {
		case "title", "description", "priority", "assignee_ids", "due_date":
			set(k, v)
		case "status":
			set("status", v)
			setClauses += fmt.Sprintf(", completed_at = CASE WHEN $%d = 'done' THEN COALESCE(completed_at, $1) ELSE NULL END", argIdx-1)
		}
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s", setClauses, argIdx, columns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return t, nil
}

// ByProject returns tasks of a project, ordered by priority desc then created_at asc.
func (s *PgStore) ByProject(ctx context.Context, projectID, status string, limit int) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+columns+` FROM tasks
		WHERE project_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY priority DESC, created_at ASC LIMIT $3`, projectID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("tasks of project %s: %w", projectID, err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// AssignedTo returns open tasks where userID is among the assignees.
func (s *PgStore) AssignedTo(ctx context.Context, userID string, limit int) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+columns+` FROM tasks
		WHERE $1 = ANY(assignee_ids) AND status <> 'done'
		ORDER BY due_date ASC NULLS LAST, priority DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("tasks assigned to %s: %w", userID, err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Count returns the number of tasks in a project.
func (s *PgStore) Count(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AssigneeIDs, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}
	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
