package subtask

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func edge(from, to string) DependencyEdge {
	return DependencyEdge{SubtaskID: from, DependsOnID: to}
}

func TestValidateSelfDependency(t *testing.T) {
	// Self dependency wins even when the task ids differ.
	v := ValidateDependency("A", "A", "t1", "t2", nil)
	if v.OK || v.Error != SelfDependency {
		t.Fatalf("expected self_dependency, got %+v", v)
	}
}

func TestValidateCrossTask(t *testing.T) {
	v := ValidateDependency("A", "B", "t1", "t2", nil)
	if v.OK || v.Error != CrossTask {
		t.Fatalf("expected cross_task, got %+v", v)
	}
}

func TestValidateDirectCycle(t *testing.T) {
	v := ValidateDependency("A", "B", "t", "t", []DependencyEdge{edge("B", "A")})
	if v.OK || v.Error != Cycle {
		t.Fatalf("expected cycle, got %+v", v)
	}
}

func TestValidateTransitiveCycle(t *testing.T) {
	edges := []DependencyEdge{edge("C", "B"), edge("B", "A"), edge("D", "C")}
	v := ValidateDependency("A", "D", "t", "t", edges)
	if v.Error != Cycle {
		t.Fatalf("expected cycle through D->C->B->A, got %+v", v)
	}
}

func TestValidateSharedPrerequisiteIsFine(t *testing.T) {
	v := ValidateDependency("A", "B", "t", "t", []DependencyEdge{edge("C", "B")})
	if !v.OK {
		t.Fatalf("expected ok, got %+v", v)
	}
}

func TestValidateAcyclicAdditions(t *testing.T) {
	// Chain D -> C -> B -> A. Any edge pointing "down" the chain keeps it acyclic.
	edges := []DependencyEdge{edge("D", "C"), edge("C", "B"), edge("B", "A")}
	for _, e := range []DependencyEdge{edge("D", "A"), edge("D", "B"), edge("C", "A"), edge("E", "D")} {
		if v := ValidateDependency(e.SubtaskID, e.DependsOnID, "t", "t", edges); !v.OK {
			t.Errorf("%s -> %s: expected ok, got %+v", e.SubtaskID, e.DependsOnID, v)
		}
	}
}

func TestValidateToleratesDuplicatesAndExistingCycles(t *testing.T) {
	// Duplicate edges and a pre-existing loop elsewhere must not hang the search.
	edges := []DependencyEdge{edge("X", "Y"), edge("Y", "X"), edge("B", "C"), edge("B", "C")}
	if v := ValidateDependency("A", "B", "t", "t", edges); !v.OK {
		t.Fatalf("expected ok, got %+v", v)
	}
	if v := ValidateDependency("C", "A", "t", "t", append(edges, edge("A", "B"))); v.Error != Cycle {
		t.Fatalf("expected cycle, got %+v", v)
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	edges := []DependencyEdge{edge("B", "A"), edge("C", "B")}
	snapshot := append([]DependencyEdge(nil), edges...)
	ValidateDependency("A", "C", "t", "t", edges)
	ValidateDependency("D", "C", "t", "t", edges)
	if !reflect.DeepEqual(edges, snapshot) {
		t.Fatalf("edges mutated: %v", edges)
	}
}

func TestValidationJSON(t *testing.T) {
	b, _ := json.Marshal(ValidateDependency("A", "A", "t", "t", nil))
	if string(b) != `{"ok":false,"error":"self_dependency"}` {
		t.Errorf("unexpected json: %s", b)
	}
	b, _ = json.Marshal(ValidateDependency("A", "B", "t", "t", nil))
	if string(b) != `{"ok":true}` {
		t.Errorf("unexpected json: %s", b)
	}
}

func TestValidationErr(t *testing.T) {
	if err := (Validation{OK: true}).Err("A", "B"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := ValidateDependency("A", "B", "t", "t", []DependencyEdge{edge("B", "A")}).Err("A", "B")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	var de *DependencyError
	if !errors.As(err, &de) || de.SubtaskID != "A" || de.DependsOnID != "B" {
		t.Fatalf("expected DependencyError A -> B, got %v", err)
	}
}

func TestBlockedBy(t *testing.T) {
	edges := []DependencyEdge{edge("C", "A"), edge("C", "B"), edge("B", "A"), edge("C", "A")}
	got := BlockedBy(edges, map[string]bool{"A": true})
	want := map[string][]string{"C": {"B"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BlockedBy = %v, want %v", got, want)
	}
}

func TestAnnotate(t *testing.T) {
	subs := []Subtask{{ID: "A", Done: false}, {ID: "B"}}
	Annotate(subs, []DependencyEdge{edge("B", "A")})
	if len(subs[0].DependsOn) != 0 || subs[0].BlockedBy == nil {
		t.Errorf("A should have empty, non-nil lists: %+v", subs[0])
	}
	if !reflect.DeepEqual(subs[1].DependsOn, []string{"A"}) || !reflect.DeepEqual(subs[1].BlockedBy, []string{"A"}) {
		t.Errorf("B should depend on and be blocked by A: %+v", subs[1])
	}
}
