package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"projecthub/pkg/notification"
)

func (s *Server) handleNotificationList(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := s.notifications.ListForUser(r.Context(), currentUser(r).ID, unreadOnly, queryInt(r, "limit", 50))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []notification.Notification{}
	}
	writeJSON(w, 200, list)
}

func (s *Server) handleNotificationUnread(w http.ResponseWriter, r *http.Request) {
	n, err := s.notifications.UnreadCount(r.Context(), currentUser(r).ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]int{"unread": n})
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notifications.MarkRead(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotificationReadAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.notifications.MarkAllRead(r.Context(), currentUser(r).ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]int{"marked": n})
}

// handleNotificationStream pushes the caller's new notifications as
// server-sent events. It needs the store to be a *notification.Bus.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	bus, ok := s.notifications.(*notification.Bus)
	if !ok {
		writeError(w, 501, "streaming not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch := bus.Subscribe(currentUser(r).ID)
	defer bus.Unsubscribe(ch)

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case n := <-ch:
			data, err := json.Marshal(n)
			if err != nil {
				log.Printf("api: encode notification %s: %v", n.ID, err)
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
