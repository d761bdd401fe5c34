package subtask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed subtask store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the subtask tables. The tasks table must already exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS subtasks (
			id         TEXT PRIMARY KEY,
			task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			done       BOOLEAN NOT NULL DEFAULT false,
			position   INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id, position)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS subtask_dependencies (
			subtask_id    TEXT NOT NULL REFERENCES subtasks(id) ON DELETE CASCADE,
			depends_on_id TEXT NOT NULL REFERENCES subtasks(id) ON DELETE CASCADE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (subtask_id, depends_on_id)
		)`)
	return err
}

// Create inserts a new subtask at the end of its task's list unless a position is given.
func (s *PgStore) Create(ctx context.Context, st *Subtask) (*Subtask, error) {
	st.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	st.CreatedAt = now
	st.UpdatedAt = now

	err := s.pool.QueryRow(ctx, `
		INSERT INTO subtasks (id, task_id, title, done, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4,
			CASE WHEN $5 > 0 THEN $5 ELSE (SELECT COALESCE(MAX(position), 0) + 1 FROM subtasks WHERE task_id = $2) END,
			$6, $6)
		RETURNING position`,
		st.ID, st.TaskID, st.Title, st.Done, st.Position, now).Scan(&st.Position)
	if err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	return st, nil
}

// Get retrieves a single subtask by ID, without dependency information.
func (s *PgStore) Get(ctx context.Context, id string) (*Subtask, error) {
	var st Subtask
	err := s.pool.QueryRow(ctx, `
		SELECT id, task_id, title, done, position, created_at, updated_at
		FROM subtasks WHERE id = $1`, id).
		Scan(&st.ID, &st.TaskID, &st.Title, &st.Done, &st.Position, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get subtask %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subtask %s: %w", id, err)
	}
	return &st, nil
}

// ByTask returns the subtasks of a task with their dependency edges and blockers.
func (s *PgStore) ByTask(ctx context.Context, taskID string) ([]Subtask, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, title, done, position, created_at, updated_at
		FROM subtasks WHERE task_id = $1 ORDER BY position ASC, created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("subtasks by task %s: %w", taskID, err)
	}
	defer rows.Close()

	var subtasks []Subtask
	for rows.Next() {
		var st Subtask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Done, &st.Position, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}

	edges, err := s.EdgesForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	Annotate(subtasks, edges)
	return subtasks, nil
}

// Update applies the non-nil fields of u.
func (s *PgStore) Update(ctx context.Context, id string, u Update) (*Subtask, error) {
	now := time.Now().Truncate(time.Microsecond)
	var st Subtask
	err := s.pool.QueryRow(ctx, `
		UPDATE subtasks SET
			title      = COALESCE($2, title),
			done       = COALESCE($3, done),
			position   = COALESCE($4, position),
			updated_at = $5
		WHERE id = $1
		RETURNING id, task_id, title, done, position, created_at, updated_at`,
		id, u.Title, u.Done, u.Position, now).
		Scan(&st.ID, &st.TaskID, &st.Title, &st.Done, &st.Position, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update subtask %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update subtask %s: %w", id, err)
	}
	return &st, nil
}

// Delete removes a subtask and, through the foreign keys, its edges.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subtask %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete subtask %s: %w", id, ErrNotFound)
	}
	return nil
}

// EdgesForTask returns all dependency edges whose source belongs to taskID.
func (s *PgStore) EdgesForTask(ctx context.Context, taskID string) ([]DependencyEdge, error) {
	return edgesForTask(ctx, s.pool, taskID)
}

// AddDependency locks the parent task, reloads its edges and validates the new
// edge before inserting it, so concurrent writers cannot assemble a cycle.
func (s *PgStore) AddDependency(ctx context.Context, subtaskID, dependsOnID string) (Validation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Validation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	taskIDs := make(map[string]string, 2)
	rows, err := tx.Query(ctx, `SELECT id, task_id FROM subtasks WHERE id = ANY($1)`, []string{subtaskID, dependsOnID})
	if err != nil {
		return Validation{}, fmt.Errorf("load subtasks: %w", err)
	}
	for rows.Next() {
		var id, taskID string
		if err := rows.Scan(&id, &taskID); err != nil {
			rows.Close()
			return Validation{}, err
		}
		taskIDs[id] = taskID
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Validation{}, fmt.Errorf("row iteration: %w", err)
	}
	for _, id := range []string{subtaskID, dependsOnID} {
		if _, found := taskIDs[id]; !found {
			return Validation{}, fmt.Errorf("add dependency %s -> %s: %s: %w", subtaskID, dependsOnID, id, ErrNotFound)
		}
	}

	taskID := taskIDs[subtaskID]
	if _, err := tx.Exec(ctx, `SELECT 1 FROM tasks WHERE id = $1 FOR UPDATE`, taskID); err != nil {
		return Validation{}, fmt.Errorf("lock task %s: %w", taskID, err)
	}
	edges, err := edgesForTask(ctx, tx, taskID)
	if err != nil {
		return Validation{}, err
	}

	v := ValidateDependency(subtaskID, dependsOnID, taskID, taskIDs[dependsOnID], edges)
	if !v.OK {
		return v, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO subtask_dependencies (subtask_id, depends_on_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, subtaskID, dependsOnID)
	if err != nil {
		return Validation{}, fmt.Errorf("insert dependency: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Validation{}, fmt.Errorf("commit dependency: %w", err)
	}
	return v, nil
}

// RemoveDependency deletes one edge.
func (s *PgStore) RemoveDependency(ctx context.Context, subtaskID, dependsOnID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM subtask_dependencies WHERE subtask_id = $1 AND depends_on_id = $2`,
		subtaskID, dependsOnID)
	if err != nil {
		return fmt.Errorf("remove dependency %s -> %s: %w", subtaskID, dependsOnID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("remove dependency %s -> %s: %w", subtaskID, dependsOnID, ErrNotFound)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func edgesForTask(ctx context.Context, q querier, taskID string) ([]DependencyEdge, error) {
	rows, err := q.Query(ctx, `
		SELECT d.subtask_id, d.depends_on_id
		FROM subtask_dependencies d
		JOIN subtasks s ON s.id = d.subtask_id
		WHERE s.task_id = $1
		ORDER BY d.created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("edges for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var edges []DependencyEdge
	for rows.Next() {
		var e DependencyEdge
		if err := rows.Scan(&e.SubtaskID, &e.DependsOnID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Annotate fills DependsOn and BlockedBy of each subtask from the edge list.
func Annotate(subtasks []Subtask, edges []DependencyEdge) {
	done := make(map[string]bool, len(subtasks))
	for _, st := range subtasks {
		done[st.ID] = st.Done
	}
	deps := make(map[string][]string)
	for _, e := range edges {
		deps[e.SubtaskID] = append(deps[e.SubtaskID], e.DependsOnID)
	}
	blocked := BlockedBy(edges, done)
	for i := range subtasks {
		subtasks[i].DependsOn = nonNil(deps[subtasks[i].ID])
		subtasks[i].BlockedBy = nonNil(blocked[subtasks[i].ID])
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
