// Package format turns domain records into display-ready strings and rows.
// Nothing here returns an error: malformed input degrades to fallback output.
package format

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"
)

// Activity is the input of FormatActivity.
type Activity struct {
	Type  string
	Actor string // display label of the acting user
	Meta  map[string]any
}

var statusLabels = map[string]string{
	"todo":        "Offen",
	"in_progress": "In Arbeit",
	"review":      "Review",
	"done":        "Erledigt",
}

// StatusLabel returns the German label of a task status, or the raw value.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	if status == "" {
		return "unbekannt"
	}
	return status
}

var absenceKindLabels = map[string]string{
	"vacation": "Urlaub",
	"sick":     "Krankheit",
	"wfh":      "Homeoffice",
	"other":    "Abwesenheit",
}

// AbsenceKindLabel returns the German label of an absence kind.
func AbsenceKindLabel(kind string) string {
	if l, ok := absenceKindLabels[kind]; ok {
		return l
	}
	return "Abwesenheit"
}

// FormatActivity renders one feed entry as a German sentence.
func FormatActivity(a Activity) string {
	actor := a.Actor
	if actor == "" {
		actor = "Jemand"
	}
	str := func(key string) string { return cast.ToString(a.Meta[key]) }
	title := func() string {
		if t := str("title"); t != "" {
			return "„" + t + "“"
		}
		return "eine Aufgabe"
	}

	switch a.Type {
	case "task_created":
		return fmt.Sprintf("%s hat %s erstellt.", actor, title())
	case "status_changed":
		return fmt.Sprintf("%s hat den Status von %s von %s auf %s gesetzt.",
			actor, title(), StatusLabel(str("from")), StatusLabel(str("to")))
	case "assignee_added":
		who := str("assignee")
		if who == "" {
			who = "jemanden"
		}
		return fmt.Sprintf("%s hat %s zu %s hinzugefügt.", actor, who, title())
	case "comment_added":
		return fmt.Sprintf("%s hat %s kommentiert.", actor, title())
	case "attachment_uploaded":
		name := str("filename")
		if name == "" {
			name = "eine Datei"
		} else {
			name = "„" + name + "“"
		}
		if size, err := cast.ToInt64E(a.Meta["size"]); err == nil && size > 0 {
			return fmt.Sprintf("%s hat %s (%s) hochgeladen.", actor, name, humanize.Bytes(uint64(size)))
		}
		return fmt.Sprintf("%s hat %s hochgeladen.", actor, name)
	case "subtask_completed":
		return fmt.Sprintf("%s hat die Teilaufgabe %s abgeschlossen.", actor, title())
	case "dependency_added":
		return fmt.Sprintf("%s hat eine Abhängigkeit zu %s hinzugefügt.", actor, title())
	case "wiki_updated":
		return fmt.Sprintf("%s hat die Wiki-Seite %s bearbeitet.", actor, title())
	case "absence_requested":
		return fmt.Sprintf("%s hat %s beantragt.", actor, AbsenceKindLabel(str("kind")))
	}
	return fmt.Sprintf("%s hat eine Änderung vorgenommen.", actor)
}
