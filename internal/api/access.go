package api

import (
	"context"
	"errors"
	"net/http"

	"projecthub/pkg/permission"
	"projecthub/pkg/project"
	"projecthub/pkg/subtask"
	"projecthub/pkg/task"
	"projecthub/pkg/user"
)

// subject builds the role context of u inside projectID.
func (s *Server) subject(ctx context.Context, u *user.User, projectID string) (permission.Subject, error) {
	sub := permission.Subject{GlobalRole: u.Role}
	role, err := s.projects.MemberRole(ctx, projectID, u.ID)
	if errors.Is(err, project.ErrNotMember) {
		return sub, nil
	}
	if err != nil {
		return sub, err
	}
	sub.ProjectRole = role
	sub.IsProjectMember = true
	return sub, nil
}

// loadProject resolves the project and the caller's role in it. Non-members
// that are not admins get a 404 so project ids do not leak.
func (s *Server) loadProject(w http.ResponseWriter, r *http.Request, projectID string) (*project.Project, permission.Subject, bool) {
	ctx := r.Context()
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		writeStoreError(w, err)
		return nil, permission.Subject{}, false
	}
	sub, err := s.subject(ctx, currentUser(r), projectID)
	if err != nil {
		writeStoreError(w, err)
		return nil, sub, false
	}
	if !sub.IsProjectMember && !permission.IsAdmin(sub.GlobalRole) {
		writeError(w, 404, "project not found")
		return nil, sub, false
	}
	return p, sub, true
}

// loadTask resolves a task and the caller's role in its project.
func (s *Server) loadTask(w http.ResponseWriter, r *http.Request, taskID string) (*task.Task, permission.Subject, bool) {
	t, err := s.tasks.Get(r.Context(), taskID)
	if err != nil {
		writeStoreError(w, err)
		return nil, permission.Subject{}, false
	}
	if _, sub, ok := s.loadProject(w, r, t.ProjectID); ok {
		return t, sub, true
	}
	return nil, permission.Subject{}, false
}

// loadSubtask resolves a subtask, its task and the caller's role.
func (s *Server) loadSubtask(w http.ResponseWriter, r *http.Request, id string) (*subtask.Subtask, *task.Task, permission.Subject, bool) {
	st, err := s.subtasks.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return nil, nil, permission.Subject{}, false
	}
	t, sub, ok := s.loadTask(w, r, st.TaskID)
	if !ok {
		return nil, nil, sub, false
	}
	return st, t, sub, true
}

// labels maps user ids to display names. Unknown ids are left out.
func (s *Server) labels(ctx context.Context) map[string]string {
	users, err := s.users.List(ctx)
	if err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(users))
	for i := range users {
		out[users[i].ID] = users[i].Label()
	}
	return out
}
