package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"projecthub/pkg/activity"
	"projecthub/pkg/format"
	"projecthub/pkg/notification"
	"projecthub/pkg/permission"
	"projecthub/pkg/project"
	"projecthub/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 200)
	tasks, err := s.tasks.ByProject(r.Context(), p.ID, status, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleTaskMine(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.AssignedTo(r.Context(), currentUser(r).ID, queryInt(r, "limit", 100))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	t, _, ok := s.loadTask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to create tasks")
		return
	}
	var req map[string]any
	if !decodeJSON(w, r, &req) {
		return
	}
	fields, msg := s.taskFields(r.Context(), p.ID, req)
	if msg != "" {
		writeError(w, 400, msg)
		return
	}
	t := &task.Task{ProjectID: p.ID, CreatedBy: currentUser(r).ID}
	applyTaskFields(t, fields)
	if t.Title == "" {
		writeError(w, 400, "title is required")
		return
	}

	ctx := r.Context()
	created, err := s.tasks.Create(ctx, t)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	actor := currentUser(r)
	s.record(ctx, activity.Event{ProjectID: p.ID, TaskID: created.ID, ActorID: actor.ID, Type: activity.TaskCreated,
		Meta: map[string]any{"title": created.Title}})
	s.notifyAssigned(ctx, p, created, nil)
	writeJSON(w, 201, created)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	t, sub, ok := s.loadTask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to change tasks")
		return
	}
	var req map[string]any
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	updates, msg := s.taskFields(ctx, t.ProjectID, req)
	if msg != "" {
		writeError(w, 400, msg)
		return
	}
	if title, set := updates["title"]; set && title == "" {
		writeError(w, 400, "title must not be empty")
		return
	}

	updated, err := s.tasks.Update(ctx, t.ID, updates)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	actor := currentUser(r)
	if updated.Status != t.Status {
		s.record(ctx, activity.Event{ProjectID: t.ProjectID, TaskID: t.ID, ActorID: actor.ID, Type: activity.StatusChanged,
			Meta: map[string]any{"title": updated.Title, "from": t.Status, "to": updated.Status}})
	}
	if _, set := updates["assignee_ids"]; set {
		p, err := s.projects.Get(ctx, t.ProjectID)
		if err != nil {
			log.Printf("api: load project for notifications: %v", err)
			p = &project.Project{ID: t.ProjectID}
		}
		s.notifyAssigned(ctx, p, updated, t.AssigneeIDs)
	}
	writeJSON(w, 200, updated)
}

// taskFields validates a create/patch body into store update keys.
// It returns a client-facing message when the body is invalid.
func (s *Server) taskFields(ctx context.Context, projectID string, req map[string]any) (map[string]any, string) {
	out := map[string]any{}
	for k, v := range req {
		switch k {
		case "title":
			out["title"] = strings.TrimSpace(cast.ToString(v))
		case "description":
			out["description"] = cast.ToString(v)
		case "status":
			st := cast.ToString(v)
			if !task.ValidStatus(st) {
				return nil, "invalid status " + strconv.Quote(st)
			}
			out["status"] = st
		case "priority":
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, "priority must be a number"
			}
			out["priority"] = n
		case "assigneeIds", "assignee_ids":
			// null is not "clear"; an empty list is
			ids, ok := notification.NormalizeUserIDList(v)
			if v == nil || !ok {
				return nil, k + " must be a list of user ids"
			}
			for _, id := range ids {
				if _, err := s.projects.MemberRole(ctx, projectID, id); err != nil {
					return nil, "assignee " + id + " is not a project member"
				}
			}
			out["assignee_ids"] = ids
		case "due_date", "dueDate":
			if v == nil || cast.ToString(v) == "" {
				out["due_date"] = (*time.Time)(nil)
				continue
			}
			d, err := time.Parse(time.DateOnly, cast.ToString(v))
			if err != nil {
				return nil, "due_date must be YYYY-MM-DD"
			}
			out["due_date"] = &d
		}
	}
	return out, ""
}

func applyTaskFields(t *task.Task, f map[string]any) {
	if v, ok := f["title"].(string); ok {
		t.Title = v
	}
	if v, ok := f["description"].(string); ok {
		t.Description = v
	}
	if v, ok := f["status"].(string); ok {
		t.Status = v
	}
	if v, ok := f["priority"].(int); ok {
		t.Priority = v
	}
	if v, ok := f["assignee_ids"].([]string); ok {
		t.AssigneeIDs = v
	}
	if v, ok := f["due_date"].(*time.Time); ok {
		t.DueDate = v
	}
}

// notifyAssigned tells newly added assignees (never the actor) about the task.
func (s *Server) notifyAssigned(ctx context.Context, p *project.Project, t *task.Task, prev []string) {
	actor := userFromContext(ctx)
	added := notification.AddedAssigneeIDs(prev, t.AssigneeIDs, actor.ID)
	if len(added) == 0 {
		return
	}
	inputs := notification.BuildTaskAssignedNotifications(notification.TaskAssignment{
		AssigneeIDs: added,
		ActorLabel:  actor.Label(),
		TaskID:      t.ID,
		TaskTitle:   t.Title,
		ProjectName: p.Name,
	})
	if _, err := s.notifications.CreateMany(ctx, inputs); err != nil {
		log.Printf("api: task %s assignment notifications: %v", t.ID, err)
	}
	labels := s.labels(ctx)
	for _, id := range added {
		s.record(ctx, activity.Event{ProjectID: t.ProjectID, TaskID: t.ID, ActorID: actor.ID, Type: activity.AssigneeAdded,
			Meta: map[string]any{"title": t.Title, "assignee": labels[id]}})
	}
}

// record stores an activity event; failures are logged, not returned.
func (s *Server) record(ctx context.Context, e activity.Event) {
	if _, err := s.activity.Record(ctx, e); err != nil {
		log.Printf("api: record %s: %v", e.Type, err)
	}
}

func (s *Server) handleTaskExport(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	ctx := r.Context()
	tasks, err := s.tasks.ByProject(ctx, p.ID, r.URL.Query().Get("status"), 10000)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	labels := s.labels(ctx)
	header := []string{"Titel", "Status", "Priorität", "Zuständig", "Fällig am", "Erstellt am"}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		names := make([]string, 0, len(t.AssigneeIDs))
		for _, id := range t.AssigneeIDs {
			if l, ok := labels[id]; ok {
				names = append(names, l)
			} else {
				names = append(names, id)
			}
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("02.01.2006")
		}
		rows = append(rows, []string{
			t.Title,
			format.StatusLabel(t.Status),
			strconv.Itoa(t.Priority),
			strings.Join(names, ", "),
			due,
			t.CreatedAt.Format("02.01.2006"),
		})
	}

	name := format.SanitizeFilename(p.Name + " Aufgaben")
	switch r.URL.Query().Get("format") {
	case "xls":
		w.Header().Set("Content-Type", "application/vnd.ms-excel; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xls"`)
		w.WriteHeader(200)
		w.Write([]byte(format.BuildXLS(header, rows)))
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		w.WriteHeader(200)
		w.Write([]byte(format.BuildCSV(header, rows)))
	default:
		writeError(w, 400, "format must be csv or xls")
	}
}
