package subtask

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a subtask does not exist.
var ErrNotFound = errors.New("subtask not found")

// Subtask is a checklist item of exactly one parent task.
type Subtask struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	Position  int       `json:"position"`
	DependsOn []string  `json:"depends_on"` // outgoing edges, filled by ByTask
	BlockedBy []string  `json:"blocked_by"` // unfinished prerequisites, filled by ByTask
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DependencyEdge means SubtaskID cannot complete before DependsOnID.
type DependencyEdge struct {
	SubtaskID   string `json:"subtask_id"`
	DependsOnID string `json:"depends_on_id"`
}

// Update carries optional field changes; nil fields are left untouched.
type Update struct {
	Title    *string `json:"title"`
	Done     *bool   `json:"done"`
	Position *int    `json:"position"`
}

// Store is the contract for subtask persistence.
type Store interface {
	Create(ctx context.Context, s *Subtask) (*Subtask, error)
	Get(ctx context.Context, id string) (*Subtask, error)
	ByTask(ctx context.Context, taskID string) ([]Subtask, error)
	Update(ctx context.Context, id string, u Update) (*Subtask, error)
	Delete(ctx context.Context, id string) error

	// EdgesForTask returns every dependency edge between subtasks of taskID.
	EdgesForTask(ctx context.Context, taskID string) ([]DependencyEdge, error)

	// AddDependency validates the edge against the current graph and stores it
	// when valid. A rejected edge is reported through the Validation, not the error.
	AddDependency(ctx context.Context, subtaskID, dependsOnID string) (Validation, error)
	RemoveDependency(ctx context.Context, subtaskID, dependsOnID string) error

	EnsureTable(ctx context.Context) error
}
