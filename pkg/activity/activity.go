package activity

import (
	"context"
	"time"
)

// Event types recorded by the API.
const (
	TaskCreated        = "task_created"
	StatusChanged      = "status_changed"
	AssigneeAdded      = "assignee_added"
	CommentAdded       = "comment_added"
	AttachmentUploaded = "attachment_uploaded"
	SubtaskCompleted   = "subtask_completed"
	DependencyAdded    = "dependency_added"
	WikiUpdated        = "wiki_updated"
	AbsenceRequested   = "absence_requested"
)

// Event is one entry of a project's activity feed.
type Event struct {
	ID        string         `json:"id"`         // UUID v7 (time-ordered)
	ProjectID string         `json:"project_id"` // "" for events outside a project
	TaskID    string         `json:"task_id"`
	ActorID   string         `json:"actor_id"`
	Type      string         `json:"type"`
	Meta      map[string]any `json:"meta"` // type-specific payload
	CreatedAt time.Time      `json:"created_at"`
}

// Store is the contract for activity persistence. Events are append-only.
type Store interface {
	Record(ctx context.Context, e Event) (*Event, error)
	ByProject(ctx context.Context, projectID string, limit int) ([]Event, error)
	ByTask(ctx context.Context, taskID string, limit int) ([]Event, error)
	EnsureTable(ctx context.Context) error
}
