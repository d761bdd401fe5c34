package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/format"
)

type activityView struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleActivityList(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.loadProject(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	ctx := r.Context()
	events, err := s.activity.ByProject(ctx, p.ID, queryInt(r, "limit", 50))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	labels := s.labels(ctx)
	out := make([]activityView, 0, len(events))
	for _, e := range events {
		msg := format.FormatActivity(format.Activity{Type: e.Type, Actor: labels[e.ActorID], Meta: e.Meta})
		out = append(out, activityView{
			ID:        e.ID,
			TaskID:    e.TaskID,
			Type:      e.Type,
			Message:   msg,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, 200, out)
}
