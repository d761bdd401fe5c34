package format

import (
	"strings"
	"time"

	"projecthub/pkg/absence"
)

// CalendarStatus classifies a calendar entry.
type CalendarStatus string

const (
	Present       CalendarStatus = "present"
	WFH           CalendarStatus = "wfh"
	LeaveApproved CalendarStatus = "leave_approved"
	LeavePending  CalendarStatus = "leave_pending"
	OtherStatus   CalendarStatus = "other"
)

// Checked in order; the first group with a matching keyword wins.
var statusKeywords = []struct {
	status   CalendarStatus
	keywords []string
}{
	{WFH, []string{"wfh", "work from home", "home office", "homeoffice", "remote"}},
	{LeavePending, []string{"leave request", "leave_request", "pending", "beantragt", "urlaubsantrag"}},
	{LeaveApproved, []string{"leave", "vacation", "holiday", "urlaub", "sick", "krank", "abwesen"}},
	{Present, []string{"present", "general shift", "general_shift", "anwesend", "büro", "office"}},
}

// CalendarStatusFromTitle derives a status from a free-text event title.
func CalendarStatusFromTitle(title string) CalendarStatus {
	t := strings.ToLower(title)
	for _, group := range statusKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(t, kw) {
				return group.status
			}
		}
	}
	return OtherStatus
}

// CalendarEvent is an all-day entry. End is exclusive.
type CalendarEvent struct {
	ID     string         `json:"id"`
	UserID string         `json:"user_id"`
	Title  string         `json:"title"`
	Start  string         `json:"start"`
	End    string         `json:"end"`
	AllDay bool           `json:"all_day"`
	Status CalendarStatus `json:"status"`
}

// CalendarEventsFromAbsences maps absences to calendar events, skipping rejected
// ones. labels maps user ids to display names; missing names fall back to the id.
func CalendarEventsFromAbsences(absences []absence.Absence, labels map[string]string) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(absences))
	for _, a := range absences {
		if a.Status == absence.StatusRejected {
			continue
		}
		name := labels[a.RequesterID]
		if name == "" {
			name = a.RequesterID
		}
		title := name + ": " + AbsenceKindLabel(string(a.Kind))

		status := LeaveApproved
		switch {
		case a.Kind == absence.WFH:
			status = WFH
		case a.Status == absence.StatusPending:
			status = LeavePending
			title += " (beantragt)"
		}

		out = append(out, CalendarEvent{
			ID:     a.ID,
			UserID: a.RequesterID,
			Title:  title,
			Start:  a.StartDate.Format(time.DateOnly),
			End:    a.EndDate.AddDate(0, 0, 1).Format(time.DateOnly),
			AllDay: true,
			Status: status,
		})
	}
	return out
}
