package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/absence"
	"projecthub/pkg/activity"
	"projecthub/pkg/format"
	"projecthub/pkg/notification"
	"projecthub/pkg/permission"
	"projecthub/pkg/user"
)

// handleAbsenceList returns the caller's own requests, or with
// ?status=pending the pending requests the caller may resolve.
func (s *Server) handleAbsenceList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := currentUser(r)

	if r.URL.Query().Get("status") != absence.StatusPending {
		list, err := s.absences.ListForUser(ctx, u.ID, queryInt(r, "limit", 100))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if list == nil {
			list = []absence.Absence{}
		}
		writeJSON(w, 200, list)
		return
	}

	pending, err := s.absences.Pending(ctx)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	departments, err := s.departments(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := []absence.Absence{}
	for _, a := range pending {
		if permission.CanResolveAbsence(u.ID, u.Role, u.Department, a.RequesterID, departments[a.RequesterID]) {
			out = append(out, a)
		}
	}
	writeJSON(w, 200, out)
}

func (s *Server) departments(r *http.Request) (map[string]string, error) {
	users, err := s.users.List(r.Context())
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.ID] = u.Department
	}
	return out, nil
}

func (s *Server) handleAbsenceCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind      string `json:"kind"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Note      string `json:"note"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err1 := time.Parse(time.DateOnly, req.StartDate)
	end, err2 := time.Parse(time.DateOnly, req.EndDate)
	if err1 != nil || err2 != nil {
		writeError(w, 400, "start_date and end_date must be YYYY-MM-DD")
		return
	}

	u := currentUser(r)
	a := &absence.Absence{
		RequesterID: u.ID,
		Kind:        absence.Kind(req.Kind),
		StartDate:   start,
		EndDate:     end,
		Note:        strings.TrimSpace(req.Note),
	}
	if err := a.Validate(); err != nil {
		writeError(w, 400, err.Error())
		return
	}

	ctx := r.Context()
	created, err := s.absences.Create(ctx, a)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	recipients, err := s.users.FindAbsenceRequestRecipients(ctx, u.ID, u.Department)
	if err != nil {
		log.Printf("api: absence %s recipients: %v", created.ID, err)
	}
	if len(recipients) > 0 {
		inputs := notification.BuildAbsenceRequestNotifications(recipients, absenceRequest(created, u))
		if _, err := s.notifications.CreateMany(ctx, inputs); err != nil {
			log.Printf("api: absence %s notifications: %v", created.ID, err)
		}
	}
	s.record(ctx, activity.Event{ActorID: u.ID, Type: activity.AbsenceRequested,
		Meta: map[string]any{"kind": string(created.Kind), "absence_id": created.ID}})
	writeJSON(w, 201, created)
}

func (s *Server) handleAbsenceResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved bool `json:"approved"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	a, err := s.absences.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	requester, err := s.users.Get(ctx, a.RequesterID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	u := currentUser(r)
	if !permission.CanResolveAbsence(u.ID, u.Role, u.Department, requester.ID, requester.Department) {
		writeError(w, 403, "not allowed to resolve this absence")
		return
	}

	resolved, err := s.absences.Resolve(ctx, a.ID, u.ID, req.Approved)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	n := notification.BuildAbsenceResolvedNotification(requester.ID, u.Label(), req.Approved, absenceRequest(resolved, requester))
	if _, err := s.notifications.CreateMany(ctx, []notification.Input{n}); err != nil {
		log.Printf("api: absence %s resolved notification: %v", resolved.ID, err)
	}
	writeJSON(w, 200, resolved)
}

func absenceRequest(a *absence.Absence, requester *user.User) notification.AbsenceRequest {
	return notification.AbsenceRequest{
		AbsenceID:      a.ID,
		RequesterLabel: requester.Label(),
		KindLabel:      format.AbsenceKindLabel(string(a.Kind)),
		Start:          a.StartDate,
		End:            a.EndDate,
	}
}

// handleCalendar lists absences between ?from and ?to (YYYY-MM-DD) as
// all-day events. The default window is the current month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, 400, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, 400, "to must be YYYY-MM-DD")
			return
		}
		to = d
	}
	if to.Before(from) {
		writeError(w, 400, "to before from")
		return
	}

	ctx := r.Context()
	list, err := s.absences.Overlapping(ctx, from, to)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, format.CalendarEventsFromAbsences(list, s.labels(ctx)))
}
