package task

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("task not found")

// Statuses a task moves through.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Task represents a unit of work inside a project.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`   // todo, in_progress, review, done
	Priority    int        `json:"priority"` // 0 = normal, higher = more urgent
	AssigneeIDs []string   `json:"assignee_ids"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store is the contract for task persistence.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	// Update modifies fields. Keys: title, description, status, priority, assignee_ids, due_date.
	Update(ctx context.Context, id string, updates map[string]any) (*Task, error)
	// ByProject lists tasks of a project, filtered by status when non-empty.
	ByProject(ctx context.Context, projectID, status string, limit int) ([]Task, error)
	AssignedTo(ctx context.Context, userID string, limit int) ([]Task, error)
	Count(ctx context.Context, projectID string) (int, error)
	EnsureTable(ctx context.Context) error
}
