package notification

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// AddedAssigneeIDs returns next minus prev minus the acting user, in the order of next.
func AddedAssigneeIDs(prev, next []string, actorUserID string) []string {
	before := make(map[string]bool, len(prev))
	for _, id := range prev {
		before[id] = true
	}
	added := []string{}
	for _, id := range next {
		if before[id] || id == actorUserID {
			continue
		}
		added = append(added, id)
	}
	return added
}

// TaskAssignment describes who assigned which task.
type TaskAssignment struct {
	AssigneeIDs []string
	ActorLabel  string
	TaskID      string
	TaskTitle   string
	ProjectName string // optional
}

// BuildTaskAssignedNotifications returns one notification per assignee.
func BuildTaskAssignedNotifications(a TaskAssignment) []Input {
	msg := fmt.Sprintf("%s hat dir die Aufgabe „%s“ zugewiesen", a.ActorLabel, a.TaskTitle)
	if a.ProjectName != "" {
		msg += fmt.Sprintf(" (%s)", a.ProjectName)
	}
	msg += "."
	link := "/tasks?taskId=" + encodeComponent(a.TaskID)

	out := make([]Input, 0, len(a.AssigneeIDs))
	for _, id := range a.AssigneeIDs {
		out = append(out, Input{
			UserID:  id,
			Type:    TypeTaskAssigned,
			Title:   "Neue Aufgabe zugewiesen",
			Message: msg,
			Link:    link,
		})
	}
	return out
}

// IsAbsenceRecipient is the selection rule behind user.Store's absence
// recipient queries: every admin, plus managers of the requester's department
// when the requester has one, but never the requester.
func IsAbsenceRecipient(candidateID, candidateRole, candidateDept, requesterID, requesterDept string) bool {
	if candidateID == requesterID {
		return false
	}
	if candidateRole == "admin" {
		return true
	}
	return candidateRole == "manager" && requesterDept != "" && candidateDept == requesterDept
}

// AbsenceRequest describes an absence for notification texts.
type AbsenceRequest struct {
	AbsenceID      string
	RequesterLabel string
	KindLabel      string
	Start          time.Time
	End            time.Time
}

func (a AbsenceRequest) period() string {
	return a.Start.Format("02.01.2006") + " – " + a.End.Format("02.01.2006")
}

func (a AbsenceRequest) link() string {
	return "/absences?absenceId=" + encodeComponent(a.AbsenceID)
}

// BuildAbsenceRequestNotifications returns one notification per recipient id.
func BuildAbsenceRequestNotifications(recipientIDs []string, a AbsenceRequest) []Input {
	msg := fmt.Sprintf("%s hat %s beantragt (%s).", a.RequesterLabel, a.KindLabel, a.period())
	out := make([]Input, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		out = append(out, Input{
			UserID:  id,
			Type:    TypeAbsenceRequested,
			Title:   "Neuer Abwesenheitsantrag",
			Message: msg,
			Link:    a.link(),
		})
	}
	return out
}

// BuildAbsenceResolvedNotification informs the requester about the decision.
func BuildAbsenceResolvedNotification(requesterID, resolverLabel string, approved bool, a AbsenceRequest) Input {
	title, verb := "Abwesenheitsantrag abgelehnt", "abgelehnt"
	if approved {
		title, verb = "Abwesenheitsantrag genehmigt", "genehmigt"
	}
	return Input{
		UserID:  requesterID,
		Type:    TypeAbsenceResolved,
		Title:   title,
		Message: fmt.Sprintf("%s hat deinen Antrag (%s, %s) %s.", resolverLabel, a.KindLabel, a.period(), verb),
		Link:    a.link(),
	}
}

// NormalizeUserIDList cleans a decoded JSON value meant to be a list of user ids.
// nil yields an empty list. Anything that is not a list yields (nil, false).
// Otherwise values are stringified and trimmed; empties and repeats are dropped,
// first occurrence wins.
func NormalizeUserIDList(input any) ([]string, bool) {
	if input == nil {
		return []string{}, true
	}

	var items []any
	switch v := input.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		rv := reflect.ValueOf(input)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, false
		}
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	}

	out := []string{}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s, err := cast.ToStringE(item)
		if err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, true
}

// encodeComponent escapes like encodeURIComponent: spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
