package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/activity"
	"projecthub/pkg/permission"
	"projecthub/pkg/subtask"
)

func (s *Server) handleSubtaskList(w http.ResponseWriter, r *http.Request) {
	t, _, ok := s.loadTask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	subtasks, err := s.subtasks.ByTask(r.Context(), t.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if subtasks == nil {
		subtasks = []subtask.Subtask{}
	}
	writeJSON(w, 200, subtasks)
}

func (s *Server) handleSubtaskCreate(w http.ResponseWriter, r *http.Request) {
	t, sub, ok := s.loadTask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to change tasks")
		return
	}
	var req struct {
		Title    string `json:"title"`
		Position int    `json:"position"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, 400, "title is required")
		return
	}
	st, err := s.subtasks.Create(r.Context(), &subtask.Subtask{TaskID: t.ID, Title: req.Title, Position: req.Position})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	// a new subtask has no edges yet
	st.DependsOn, st.BlockedBy = []string{}, []string{}
	writeJSON(w, 201, st)
}

func (s *Server) handleSubtaskUpdate(w http.ResponseWriter, r *http.Request) {
	st, t, sub, ok := s.loadSubtask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to change tasks")
		return
	}
	var req subtask.Update
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, 400, "title must not be empty")
			return
		}
		req.Title = &title
	}

	ctx := r.Context()
	if req.Done != nil && *req.Done && !st.Done {
		current, err := s.annotatedSubtask(ctx, t.ID, st.ID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if len(current.BlockedBy) > 0 {
			writeJSON(w, 409, map[string]any{"error": "subtask is blocked by unfinished dependencies", "blocked_by": current.BlockedBy})
			return
		}
	}
	updated, err := s.subtasks.Update(ctx, st.ID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if updated.Done && !st.Done {
		s.record(ctx, activity.Event{ProjectID: t.ProjectID, TaskID: t.ID, ActorID: currentUser(r).ID, Type: activity.SubtaskCompleted,
			Meta: map[string]any{"title": updated.Title}})
	}
	annotated, err := s.annotatedSubtask(ctx, t.ID, updated.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, annotated)
}

// annotatedSubtask loads one subtask with DependsOn and BlockedBy filled in.
func (s *Server) annotatedSubtask(ctx context.Context, taskID, id string) (*subtask.Subtask, error) {
	list, err := s.subtasks.ByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, subtask.ErrNotFound
}

func (s *Server) handleSubtaskDelete(w http.ResponseWriter, r *http.Request) {
	st, _, sub, ok := s.loadSubtask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to change tasks")
		return
	}
	if err := s.subtasks.Delete(r.Context(), st.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDependencyAdd answers 201 {"ok":true} or 422 {"ok":false,"error":"cycle"}.
func (s *Server) handleDependencyAdd(w http.ResponseWriter, r *http.Request) {
	st, t, sub, ok := s.loadSubtask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to change tasks")
		return
	}
	var req struct {
		DependsOnID string `json:"depends_on_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DependsOnID == "" {
		writeError(w, 400, "depends_on_id is required")
		return
	}

	ctx := r.Context()
	v, err := s.subtasks.AddDependency(ctx, st.ID, req.DependsOnID)
	if errors.Is(err, subtask.ErrNotFound) {
		writeError(w, 404, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !v.OK {
		writeJSON(w, 422, v)
		return
	}
	s.record(ctx, activity.Event{ProjectID: t.ProjectID, TaskID: t.ID, ActorID: currentUser(r).ID, Type: activity.DependencyAdded,
		Meta: map[string]any{"title": st.Title, "depends_on": req.DependsOnID}})
	writeJSON(w, 201, v)
}

func (s *Server) handleDependencyRemove(w http.ResponseWriter, r *http.Request) {
	st, _, sub, ok := s.loadSubtask(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanEditTasks(sub) {
		writeError(w, 403, "not allowed to change tasks")
		return
	}
	if err := s.subtasks.RemoveDependency(r.Context(), st.ID, chi.URLParam(r, "dependsOnID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
