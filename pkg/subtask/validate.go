package subtask

import (
	"errors"
	"fmt"
)

// Rejection names why a dependency edge was refused.
type Rejection string

const (
	SelfDependency Rejection = "self_dependency"
	CrossTask      Rejection = "cross_task"
	Cycle          Rejection = "cycle"
)

var (
	ErrSelfDependency = errors.New("subtask cannot depend on itself")
	ErrCrossTask      = errors.New("dependencies must stay within one task")
	ErrCycle          = errors.New("dependency would create a cycle")
)

// Validation is the outcome of ValidateDependency. It serializes as
// {"ok":true} or {"ok":false,"error":"cycle"}.
type Validation struct {
	OK    bool      `json:"ok"`
	Error Rejection `json:"error,omitempty"`
}

// DependencyError is the error form of a rejected edge.
type DependencyError struct {
	Kind        error
	SubtaskID   string
	DependsOnID string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s -> %s: %s", e.SubtaskID, e.DependsOnID, e.Kind.Error())
}

func (e *DependencyError) Unwrap() error { return e.Kind }

// Err returns nil for an accepted edge, otherwise a *DependencyError.
func (v Validation) Err(subtaskID, dependsOnID string) error {
	if v.OK {
		return nil
	}
	var kind error
	switch v.Error {
	case SelfDependency:
		kind = ErrSelfDependency
	case CrossTask:
		kind = ErrCrossTask
	default:
		kind = ErrCycle
	}
	return &DependencyError{Kind: kind, SubtaskID: subtaskID, DependsOnID: dependsOnID}
}

func ok() Validation                { return Validation{OK: true} }
func reject(r Rejection) Validation { return Validation{Error: r} }

// ValidateDependency checks whether subtaskID may depend on dependsOnID.
// Rules apply in order: self dependency, cross task, cycle. existing is only read.
func ValidateDependency(subtaskID, dependsOnID, subtaskTaskID, dependsOnTaskID string, existing []DependencyEdge) Validation {
	if subtaskID == dependsOnID {
		return reject(SelfDependency)
	}
	if subtaskTaskID != dependsOnTaskID {
		return reject(CrossTask)
	}
	if reachable(existing, dependsOnID, subtaskID) {
		return reject(Cycle)
	}
	return ok()
}

// reachable runs a breadth-first search from "from" along depends-on edges.
func reachable(edges []DependencyEdge, from, to string) bool {
	adj := make(map[string][]string, len(edges))
	for _, e := range edges {
		adj[e.SubtaskID] = append(adj[e.SubtaskID], e.DependsOnID)
	}

	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if next == to {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// BlockedBy returns, for every subtask with at least one unfinished
// prerequisite, the ids of those prerequisites in edge order.
func BlockedBy(edges []DependencyEdge, done map[string]bool) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[DependencyEdge]bool, len(edges))
	for _, e := range edges {
		if seen[e] || done[e.DependsOnID] {
			continue
		}
		seen[e] = true
		out[e.SubtaskID] = append(out[e.SubtaskID], e.DependsOnID)
	}
	return out
}
