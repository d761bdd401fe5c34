package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/activity"
	"projecthub/pkg/permission"
	"projecthub/pkg/wiki"
)

func (s *Server) handleWikiList(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanReadWiki(sub) {
		writeError(w, 403, "not allowed to read the wiki")
		return
	}
	pages, err := s.wiki.List(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if pages == nil {
		pages = []wiki.Page{}
	}
	writeJSON(w, 200, pages)
}

func (s *Server) handleWikiGet(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanReadWiki(sub) {
		writeError(w, 403, "not allowed to read the wiki")
		return
	}
	page, err := s.wiki.Get(r.Context(), p.ID, chi.URLParam(r, "slug"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rendered(page)
	writeJSON(w, 200, page)
}

func (s *Server) handleWikiSave(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanWriteWiki(sub) {
		writeError(w, 403, "not allowed to edit the wiki")
		return
	}
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
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

	ctx := r.Context()
	actor := currentUser(r)
	page, err := s.wiki.Save(ctx, &wiki.Page{
		ProjectID: p.ID,
		Slug:      chi.URLParam(r, "slug"),
		Title:     req.Title,
		Content:   req.Content,
		Position:  req.Position,
		UpdatedBy: actor.ID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.record(ctx, activity.Event{ProjectID: p.ID, ActorID: actor.ID, Type: activity.WikiUpdated,
		Meta: map[string]any{"title": page.Title, "slug": page.Slug}})
	rendered(page)
	writeJSON(w, 200, page)
}

func (s *Server) handleWikiDelete(w http.ResponseWriter, r *http.Request) {
	p, sub, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !permission.CanWriteWiki(sub) {
		writeError(w, 403, "not allowed to edit the wiki")
		return
	}
	if err := s.wiki.Delete(r.Context(), p.ID, chi.URLParam(r, "slug")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func rendered(p *wiki.Page) {
	html, err := wiki.Render(p.Content)
	if err != nil {
		log.Printf("api: render wiki page %s: %v", p.Slug, err)
		return
	}
	p.HTML = html
}
