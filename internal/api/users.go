package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/permission"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, currentUser(r))
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, users)
}

func (s *Server) handleUserSetRole(w http.ResponseWriter, r *http.Request) {
	if !permission.IsAdmin(currentUser(r).Role) {
		writeError(w, 403, "admin only")
		return
	}
	var req struct {
		Role       string `json:"role"`
		Department string `json:"department"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Role {
	case permission.GlobalAdmin, permission.GlobalManager, permission.GlobalMember:
	default:
		writeError(w, 400, "role must be admin, manager or member")
		return
	}
	u, err := s.users.SetRole(r.Context(), chi.URLParam(r, "id"), req.Role, strings.TrimSpace(req.Department))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, u)
}
