// Package absence stores absence requests and their approval state.
package absence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("absence not found")
	ErrNotPending = errors.New("absence already resolved")
)

// Kind of absence.
type Kind string

const (
	Vacation Kind = "vacation"
	Sick     Kind = "sick"
	WFH      Kind = "wfh" // working from home
	Other    Kind = "other"
)

// Status of an absence request.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case Vacation, Sick, WFH, Other:
		return true
	}
	return false
}

// Absence is a request to be away (or at home) for a range of days.
type Absence struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requester_id"`
	Kind        Kind       `json:"kind"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"` // inclusive
	Note        string     `json:"note"`
	Status      string     `json:"status"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Validate checks kind and date range.
func (a *Absence) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("invalid absence kind %q", a.Kind)
	}
	if a.StartDate.IsZero() || a.EndDate.IsZero() {
		return errors.New("start and end date required")
	}
	if a.EndDate.Before(a.StartDate) {
		return errors.New("end date before start date")
	}
	return nil
}

// Days is the number of calendar days covered, both ends included.
func (a *Absence) Days() int {
	return int(a.EndDate.Sub(a.StartDate).Hours()/24) + 1
}

// Store is the contract for absence persistence.
type Store interface {
	Create(ctx context.Context, a *Absence) (*Absence, error)
	// Resolve approves or rejects a pending request. ErrNotPending otherwise.
	Resolve(ctx context.Context, id, resolverID string, approved bool) (*Absence, error)
	Get(ctx context.Context, id string) (*Absence, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]Absence, error)
	Pending(ctx context.Context) ([]Absence, error)
	// Overlapping returns non-rejected absences touching [from, to].
	Overlapping(ctx context.Context, from, to time.Time) ([]Absence, error)
	PendingCount(ctx context.Context) (int, error)
	EnsureTable(ctx context.Context) error
}
