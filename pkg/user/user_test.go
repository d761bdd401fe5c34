package user

import "testing"

func TestLabel(t *testing.T) {
	if got := (&User{Name: "Jana Vogel", Email: "jana@example.com"}).Label(); got != "Jana Vogel" {
		t.Errorf("Label() = %q", got)
	}
	if got := (&User{Email: "jana@example.com"}).Label(); got != "jana@example.com" {
		t.Errorf("Label() without name = %q", got)
	}
}

func TestNilIfEmpty(t *testing.T) {
	if nilIfEmpty("") != nil {
		t.Error("empty department should be NULL")
	}
	if p := nilIfEmpty("dev"); p == nil || *p != "dev" {
		t.Errorf("nilIfEmpty(dev) = %v", p)
	}
}
