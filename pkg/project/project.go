// Package project stores projects and their role-scoped membership.
package project

import (
	"context"
	"errors"
	"time"

	"projecthub/pkg/permission"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrNotMember     = errors.New("not a project member")
	ErrLastOwner     = errors.New("project needs at least one owner")
	ErrSlugExhausted = errors.New("no free slug")
)

// Project groups tasks, a wiki and members.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	BudgetCents *int64    `json:"budget_cents,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is a user's membership in a project.
type Member struct {
	ProjectID string                 `json:"project_id"`
	UserID    string                 `json:"user_id"`
	Role      permission.ProjectRole `json:"role"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	AddedAt   time.Time              `json:"added_at"`
}

// Update carries optional field changes; nil fields are left untouched.
// ClearBudget removes the budget.
type Update struct {
	Name        *string
	Description *string
	BudgetCents *int64
	ClearBudget bool
}

// Store is the contract for project persistence.
type Store interface {
	// Create stores the project under a unique slug and makes ownerID its owner.
	Create(ctx context.Context, p *Project, ownerID string) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	BySlug(ctx context.Context, slug string) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	ForUser(ctx context.Context, userID string) ([]Project, error)
	Update(ctx context.Context, id string, u Update) (*Project, error)
	Delete(ctx context.Context, id string) error

	Members(ctx context.Context, projectID string) ([]Member, error)
	// MemberRole returns the raw role, or ErrNotMember.
	MemberRole(ctx context.Context, projectID, userID string) (string, error)
	// AddMember inserts or updates a membership; the role is normalized.
	AddMember(ctx context.Context, projectID, userID, role string) (*Member, error)
	// RemoveMember refuses to remove the last owner.
	RemoveMember(ctx context.Context, projectID, userID string) error

	EnsureTable(ctx context.Context) error
}
