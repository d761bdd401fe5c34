package notification

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestAddedAssigneeIDs(t *testing.T) {
	got := AddedAssigneeIDs([]string{"u1", "u2"}, []string{"u2", "u3", "u1", "u4"}, "u3")
	if !reflect.DeepEqual(got, []string{"u4"}) {
		t.Fatalf("got %v, want [u4]", got)
	}
}

func TestAddedAssigneeIDsKeepsOrderAndEmpty(t *testing.T) {
	got := AddedAssigneeIDs(nil, []string{"c", "a", "b"}, "")
	if !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("got %v", got)
	}
	got = AddedAssigneeIDs([]string{"a"}, []string{"a"}, "x")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestBuildTaskAssignedNotifications(t *testing.T) {
	out := BuildTaskAssignedNotifications(TaskAssignment{
		AssigneeIDs: []string{"u1", "u2"},
		ActorLabel:  "Anna",
		TaskID:      "t 1/x",
		TaskTitle:   "Login bauen",
		ProjectName: "Website",
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(out))
	}
	n := out[1]
	if n.UserID != "u2" || n.Type != TypeTaskAssigned {
		t.Errorf("unexpected notification: %+v", n)
	}
	if n.Link != "/tasks?taskId=t%201%2Fx" {
		t.Errorf("link = %q", n.Link)
	}
	if !strings.Contains(n.Message, "Anna") || !strings.Contains(n.Message, "Login bauen") || !strings.Contains(n.Message, "(Website)") {
		t.Errorf("message = %q", n.Message)
	}
	if out[0].Title != out[1].Title || out[0].Message != out[1].Message {
		t.Errorf("notifications differ beyond user id: %+v", out)
	}
}

func TestBuildTaskAssignedWithoutProject(t *testing.T) {
	out := BuildTaskAssignedNotifications(TaskAssignment{AssigneeIDs: []string{"u1"}, ActorLabel: "Anna", TaskID: "t1", TaskTitle: "X"})
	if strings.Contains(out[0].Message, "(") {
		t.Errorf("message should omit project: %q", out[0].Message)
	}
	if out := BuildTaskAssignedNotifications(TaskAssignment{}); out == nil || len(out) != 0 {
		t.Errorf("expected empty slice, got %#v", out)
	}
}

func TestIsAbsenceRecipient(t *testing.T) {
	tests := []struct {
		name               string
		id, role, dept     string
		requester, reqDept string
		want               bool
	}{
		{"admin", "a", "admin", "", "r", "dev", true},
		{"admin other dept", "a", "admin", "ops", "r", "", true},
		{"manager same dept", "m", "manager", "dev", "r", "dev", true},
		{"manager other dept", "m", "manager", "ops", "r", "dev", false},
		{"manager requester without dept", "m", "manager", "", "r", "", false},
		{"member", "x", "member", "dev", "r", "dev", false},
		{"requester is admin", "r", "admin", "dev", "r", "dev", false},
	}
	for _, tt := range tests {
		if got := IsAbsenceRecipient(tt.id, tt.role, tt.dept, tt.requester, tt.reqDept); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAbsenceNotifications(t *testing.T) {
	a := AbsenceRequest{
		AbsenceID:      "abs1",
		RequesterLabel: "Ben",
		KindLabel:      "Urlaub",
		Start:          time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
	}
	reqs := BuildAbsenceRequestNotifications([]string{"a1", "m1"}, a)
	if len(reqs) != 2 || reqs[0].Type != TypeAbsenceRequested || reqs[1].UserID != "m1" {
		t.Fatalf("unexpected request notifications: %+v", reqs)
	}
	if !strings.Contains(reqs[0].Message, "01.07.2026") || reqs[0].Link != "/absences?absenceId=abs1" {
		t.Errorf("unexpected request notification: %+v", reqs[0])
	}

	res := BuildAbsenceResolvedNotification("r1", "Chef", true, a)
	if res.UserID != "r1" || res.Type != TypeAbsenceResolved || !strings.Contains(res.Message, "genehmigt") {
		t.Errorf("unexpected resolved notification: %+v", res)
	}
	res = BuildAbsenceResolvedNotification("r1", "Chef", false, a)
	if !strings.Contains(res.Title, "abgelehnt") {
		t.Errorf("unexpected title: %q", res.Title)
	}
}

func TestNormalizeUserIDList(t *testing.T) {
	got, ok := NormalizeUserIDList([]any{"a", " ", "a", 0})
	if !ok || !reflect.DeepEqual(got, []string{"a", "0"}) {
		t.Fatalf("got %v %v, want [a 0] true", got, ok)
	}

	if got, ok := NormalizeUserIDList("x"); ok || got != nil {
		t.Fatalf("string input: got %v %v, want nil false", got, ok)
	}
	if _, ok := NormalizeUserIDList(map[string]any{"a": 1}); ok {
		t.Fatal("map input should be invalid")
	}

	got, ok = NormalizeUserIDList(nil)
	if !ok || got == nil || len(got) != 0 {
		t.Fatalf("nil input: got %#v %v", got, ok)
	}
}

func TestNormalizeUserIDListTypedSlices(t *testing.T) {
	got, ok := NormalizeUserIDList([]string{" b ", "a", "b"})
	if !ok || !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("[]string: got %v %v", got, ok)
	}
	got, ok = NormalizeUserIDList([]int{3, 1, 3})
	if !ok || !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Errorf("[]int: got %v %v", got, ok)
	}
	got, ok = NormalizeUserIDList([]any{nil, 1.5, true})
	if !ok || !reflect.DeepEqual(got, []string{"1.5", "true"}) {
		t.Errorf("mixed: got %v %v", got, ok)
	}
}
