// Package notification decides who hears about task assignments and absence
// requests, stores the resulting notifications and delivers them by e-mail.
package notification

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a notification does not exist for the user.
var ErrNotFound = errors.New("notification not found")

// Type tags.
const (
	TypeTaskAssigned     = "task_assigned"
	TypeAbsenceRequested = "absence_requested"
	TypeAbsenceResolved  = "absence_resolved"
)

// Input is a notification as built by the rules, before it is stored.
type Input struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// Notification is a stored Input.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	EmailedAt *time.Time `json:"emailed_at,omitempty"`
}

// Recipient is the id+email+name projection of a user.
type Recipient struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Delivery is a stored notification waiting for its e-mail.
type Delivery struct {
	Notification
	Email    string
	Name     string
	Attempts int // failed sends so far
}

// MaxEmailAttempts is how often a notification e-mail is tried before it is given up.
const MaxEmailAttempts = 5

// Store is the contract for notification persistence.
type Store interface {
	// CreateMany stores inputs verbatim, in order.
	CreateMany(ctx context.Context, inputs []Input) ([]Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)

	// PendingEmails returns notifications not yet e-mailed, oldest first. Rows
	// waiting for a retry or past MaxEmailAttempts are left out.
	PendingEmails(ctx context.Context, limit int) ([]Delivery, error)
	MarkEmailed(ctx context.Context, id string) error
	// MarkEmailFailed counts a failed send and holds the row back until retryAt.
	MarkEmailFailed(ctx context.Context, id string, retryAt time.Time) error

	EnsureTable(ctx context.Context) error
}
