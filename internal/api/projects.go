package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/format"
	"projecthub/pkg/permission"
	"projecthub/pkg/project"
)

type projectView struct {
	*project.Project
	Budget string                 `json:"budget,omitempty"` // formatted, e.g. "1.234,56 €"
	Role   permission.ProjectRole `json:"role,omitempty"`   // caller's role
	Tasks  *int                   `json:"task_count,omitempty"`
}

func viewProject(p *project.Project, sub permission.Subject) projectView {
	v := projectView{Project: p}
	if p.BudgetCents != nil {
		v.Budget = format.FormatEURCents(*p.BudgetCents)
	}
	if sub.IsProjectMember {
		v.Role = permission.NormalizeRole(sub.ProjectRole)
	}
	return v
}

// parseBudget reads an optional EUR amount. ok is false for malformed input.
func parseBudget(text *string) (cents *int64, clearBudget bool, ok bool) {
	if text == nil {
		return nil, false, true
	}
	if strings.TrimSpace(*text) == "" {
		return nil, true, true
	}
	c, valid := format.ParseEURToCents(*text)
	if !valid {
		return nil, false, false
	}
	return &c, false, true
}

func (s *Server) handleProjectList(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var (
		projects []project.Project
		err      error
	)
	if permission.IsAdmin(u.Role) && r.URL.Query().Get("all") == "true" {
		projects, err = s.projects.List(r.Context())
	} else {
		projects, err = s.projects.ForUser(r.Context(), u.ID)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]projectView, 0, len(projects))
	for i := range projects {
		out = append(out, viewProject(&projects[i], permission.Subject{}))
	}
	writeJSON(w, 200, out)
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Budget      *string `json:"budget"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, 400, "name is required")
		return
	}
	cents, _, ok := parseBudget(req.Budget)
	if !ok {
		writeError(w, 400, "budget is not a valid amount")
		return
	}

	u := currentUser(r)
	p, err := s.projects.Create(r.Context(), &project.Project{
		Name:        req.Name,
		Description: req.Description,
		BudgetCents: cents,
	}, u.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 201, viewProject(p, permission.Subject{GlobalRole: u.Role, ProjectRole: string(permission.Owner), IsProjectMember: true}))
}

func (s *Server) handleProjectGet(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	s.writeProjectDetail(w, r, p, sub)
}

// handleProjectBySlug resolves a project by its slug, with the same visibility as by id.
func (s *Server) handleProjectBySlug(w http.ResponseWriter, r *http.Request) {
	found, err := s.projects.BySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	p, sub, ok := s.loadProject(w, r, found.ID)
	if !ok {
		return
	}
	s.writeProjectDetail(w, r, p, sub)
}

func (s *Server) writeProjectDetail(w http.ResponseWriter, r *http.Request, p *project.Project, sub permission.Subject) {
	n, err := s.tasks.Count(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	v := viewProject(p, sub)
	v.Tasks = &n
	writeJSON(w, 200, v)
}

func (s *Server) handleProjectUpdate(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanManageProject(sub) {
		writeError(w, 403, "only owners can change the project")
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Budget      *string `json:"budget"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, 400, "name must not be empty")
		return
	}
	cents, clearBudget, ok := parseBudget(req.Budget)
	if !ok {
		writeError(w, 400, "budget is not a valid amount")
		return
	}
	updated, err := s.projects.Update(r.Context(), p.ID, project.Update{
		Name:        req.Name,
		Description: req.Description,
		BudgetCents: cents,
		ClearBudget: clearBudget,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, viewProject(updated, sub))
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanManageProject(sub) {
		writeError(w, 403, "only owners can delete the project")
		return
	}
	if err := s.projects.Delete(r.Context(), p.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemberList(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	members, err := s.projects.Members(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, members)
}

func (s *Server) handleMemberAdd(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanManageMembers(sub) {
		writeError(w, 403, "not allowed to manage members")
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.UserID == "" && req.Email != "" {
		u, err := s.users.ByEmail(ctx, req.Email)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		req.UserID = u.ID
	}
	if req.UserID == "" {
		writeError(w, 400, "user_id or email is required")
		return
	}
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	// Only owners hand out ownership.
	if permission.NormalizeRole(req.Role) == permission.Owner && !permission.CanManageProject(sub) {
		writeError(w, 403, "only owners can add owners")
		return
	}
	m, err := s.projects.AddMember(ctx, p.ID, req.UserID, req.Role)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 201, m)
}

func (s *Server) handleMemberRemove(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userID")
	// Members may always leave on their own.
	if userID != currentUser(r).ID && !permission.CanManageMembers(sub) {
		writeError(w, 403, "not allowed to manage members")
		return
	}
	err := s.projects.RemoveMember(r.Context(), p.ID, userID)
	if errors.Is(err, project.ErrNotMember) {
		writeError(w, 404, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
