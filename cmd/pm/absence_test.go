package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"projecthub/pkg/absence"
	"projecthub/pkg/notification"
	"projecthub/pkg/user"
)

type fakeAbsences struct {
	items map[string]*absence.Absence
}

func (f *fakeAbsences) Get(_ context.Context, id string) (*absence.Absence, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, absence.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAbsences) Resolve(_ context.Context, id, resolverID string, approved bool) (*absence.Absence, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, absence.ErrNotFound
	}
	if a.Status != absence.StatusPending {
		return nil, absence.ErrNotPending
	}
	a.Status = absence.StatusRejected
	if approved {
		a.Status = absence.StatusApproved
	}
	a.ResolvedBy = resolverID
	cp := *a
	return &cp, nil
}

type fakeUsers map[string]*user.User

func (f fakeUsers) Get(_ context.Context, id string) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type fakeNotifications struct {
	created []notification.Input
}

func (f *fakeNotifications) CreateMany(_ context.Context, inputs []notification.Input) ([]notification.Notification, error) {
	f.created = append(f.created, inputs...)
	return nil, nil
}

func newAbsenceFixture() (*fakeAbsences, fakeUsers, *fakeNotifications) {
	start := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	absences := &fakeAbsences{items: map[string]*absence.Absence{
		"a1": {ID: "a1", RequesterID: "dev1", Kind: absence.Vacation, StartDate: start, EndDate: start.AddDate(0, 0, 4), Status: absence.StatusPending},
	}}
	users := fakeUsers{
		"dev1": {ID: "dev1", Name: "Jana Vogel", Role: "member", Department: "dev"},
		"mgr":  {ID: "mgr", Name: "Tom Berg", Role: "manager", Department: "dev"},
		"ops":  {ID: "ops", Name: "Ina Kurz", Role: "manager", Department: "ops"},
	}
	return absences, users, &fakeNotifications{}
}

func TestResolveAbsenceNotifiesRequester(t *testing.T) {
	absences, users, notes := newAbsenceFixture()

	a, err := resolveAbsence(context.Background(), absences, users, notes, "a1", "mgr", true)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != absence.StatusApproved || a.ResolvedBy != "mgr" {
		t.Errorf("absence = %+v", a)
	}
	if len(notes.created) != 1 {
		t.Fatalf("notifications = %+v", notes.created)
	}
	n := notes.created[0]
	if n.UserID != "dev1" || n.Type != notification.TypeAbsenceResolved || !strings.Contains(n.Message, "Tom Berg") {
		t.Errorf("notification = %+v", n)
	}
}

func TestResolveAbsenceChecksPermission(t *testing.T) {
	absences, users, notes := newAbsenceFixture()

	for _, resolver := range []string{"ops", "dev1"} {
		_, err := resolveAbsence(context.Background(), absences, users, notes, "a1", resolver, false)
		if !errors.Is(err, errNotAllowed) {
			t.Errorf("%s: err = %v, want errNotAllowed", resolver, err)
		}
	}
	if absences.items["a1"].Status != absence.StatusPending || len(notes.created) != 0 {
		t.Errorf("denied resolve changed state: %+v %+v", absences.items["a1"], notes.created)
	}

	if _, err := resolveAbsence(context.Background(), absences, users, notes, "a1", "nobody", true); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("unknown resolver: err = %v", err)
	}
}
