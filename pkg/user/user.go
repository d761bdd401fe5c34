package user

import (
	"context"
	"errors"
	"time"

	"projecthub/pkg/notification"
)

// ErrNotFound is returned when no user matches.
var ErrNotFound = errors.New("user not found")

// User is an account known to the system.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`       // admin, manager, member
	Department string    `json:"department"` // "" when unassigned
	CreatedAt  time.Time `json:"created_at"`
}

// Label is how the user is named in notification texts.
func (u *User) Label() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Store is the contract for user persistence.
type Store interface {
	// Register creates or returns an existing user. Idempotent on email.
	Register(ctx context.Context, email, name string) (*User, error)

	Get(ctx context.Context, id string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)

	// SetRole changes the global role and department of a user.
	SetRole(ctx context.Context, id, role, department string) (*User, error)

	// FindAbsenceRequestRecipients returns the ids of admins plus managers of
	// the requester's department, excluding the requester.
	FindAbsenceRequestRecipients(ctx context.Context, requesterID, department string) ([]string, error)
	// FindAbsenceRequestRecipientsWithEmails is the same selection with contact details.
	FindAbsenceRequestRecipientsWithEmails(ctx context.Context, requesterID, department string) ([]notification.Recipient, error)

	EnsureTable(ctx context.Context) error
}
