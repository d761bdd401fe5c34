package task

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusTodo, StatusInProgress, StatusReview, StatusDone} {
		if !ValidStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []string{"", "pending", "completed", "DONE"} {
		if ValidStatus(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
