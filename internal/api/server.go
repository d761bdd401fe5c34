package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"projecthub/pkg/absence"
	"projecthub/pkg/activity"
	"projecthub/pkg/notification"
	"projecthub/pkg/project"
	"projecthub/pkg/subtask"
	"projecthub/pkg/task"
	"projecthub/pkg/user"
	"projecthub/pkg/wiki"
)

// Stores bundles the persistence the API works on.
type Stores struct {
	Users         user.Store
	Projects      project.Store
	Tasks         task.Store
	Subtasks      subtask.Store
	Wiki          wiki.Store
	Absences      absence.Store
	Activity      activity.Store
	Notifications notification.Store // a *notification.Bus enables the stream endpoint
}

// Server is the HTTP API server.
type Server struct {
	users         user.Store
	projects      project.Store
	tasks         task.Store
	subtasks      subtask.Store
	wiki          wiki.Store
	absences      absence.Store
	activity      activity.Store
	notifications notification.Store
	router        chi.Router
}

// New creates a new Server.
func New(st Stores) *Server {
	s := &Server{
		users:         st.Users,
		projects:      st.Projects,
		tasks:         st.Tasks,
		subtasks:      st.Subtasks,
		wiki:          st.Wiki,
		absences:      st.Absences,
		activity:      st.Activity,
		notifications: st.Notifications,
		router:        chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/me", s.handleMe)
		r.Get("/status", s.handleStatus)
		r.Get("/users", s.handleUserList)
		r.Put("/users/{id}/role", s.handleUserSetRole)

		// Projects
		r.Get("/projects", s.handleProjectList)
		r.Post("/projects", s.handleProjectCreate)
		r.Get("/projects/by-slug/{slug}", s.handleProjectBySlug)
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/", s.handleProjectGet)
			r.Patch("/", s.handleProjectUpdate)
			r.Delete("/", s.handleProjectDelete)

			r.Get("/members", s.handleMemberList)
			r.Post("/members", s.handleMemberAdd)
			r.Delete("/members/{userID}", s.handleMemberRemove)

			r.Get("/tasks", s.handleTaskList)
			r.Post("/tasks", s.handleTaskCreate)
			r.Get("/tasks/export", s.handleTaskExport)

			r.Get("/wiki", s.handleWikiList)
			r.Get("/wiki/{slug}", s.handleWikiGet)
			r.Put("/wiki/{slug}", s.handleWikiSave)
			r.Delete("/wiki/{slug}", s.handleWikiDelete)

			r.Get("/activity", s.handleActivityList)
		})

		// Tasks
		r.Get("/tasks/mine", s.handleTaskMine)
		r.Get("/tasks/{id}", s.handleTaskGet)
		r.Patch("/tasks/{id}", s.handleTaskUpdate)
		r.Get("/tasks/{id}/subtasks", s.handleSubtaskList)
		r.Post("/tasks/{id}/subtasks", s.handleSubtaskCreate)

		// Subtasks
		r.Patch("/subtasks/{id}", s.handleSubtaskUpdate)
		r.Delete("/subtasks/{id}", s.handleSubtaskDelete)
		r.Post("/subtasks/{id}/dependencies", s.handleDependencyAdd)
		r.Delete("/subtasks/{id}/dependencies/{dependsOnID}", s.handleDependencyRemove)

		// Absences
		r.Get("/absences", s.handleAbsenceList)
		r.Post("/absences", s.handleAbsenceCreate)
		r.Post("/absences/{id}/resolve", s.handleAbsenceResolve)
		r.Get("/calendar", s.handleCalendar)

		// Notifications
		r.Get("/notifications", s.handleNotificationList)
		r.Get("/notifications/unread", s.handleNotificationUnread)
		r.Post("/notifications/read-all", s.handleNotificationReadAll)
		r.Post("/notifications/{id}/read", s.handleNotificationRead)
		r.Get("/notifications/stream", s.handleNotificationStream)
	})
}

type ctxKey struct{}

// requireUser resolves the X-User-ID header set by the authenticating proxy.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			writeError(w, 401, "authentication required")
			return
		}
		u, err := s.users.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				writeError(w, 401, "unknown user")
				return
			}
			writeStoreError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

// currentUser is set for every /api route.
func currentUser(r *http.Request) *user.User {
	return userFromContext(r.Context())
}

func userFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(ctxKey{}).(*user.User)
	return u
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := currentUser(r)
	unread, _ := s.notifications.UnreadCount(ctx, u.ID)
	pendingAbsences, _ := s.absences.PendingCount(ctx)
	open, _ := s.tasks.AssignedTo(ctx, u.ID, 500)

	writeJSON(w, 200, map[string]any{
		"unread_notifications": unread,
		"pending_absences":     pendingAbsences,
		"open_tasks":           len(open),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels to 404/409 and logs anything else as a 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, task.ErrNotFound),
		errors.Is(err, subtask.ErrNotFound),
		errors.Is(err, wiki.ErrNotFound),
		errors.Is(err, absence.ErrNotFound),
		errors.Is(err, notification.ErrNotFound):
		writeError(w, 404, err.Error())
	case errors.Is(err, absence.ErrNotPending),
		errors.Is(err, project.ErrLastOwner):
		writeError(w, 409, err.Error())
	default:
		log.Printf("api: %v", err)
		writeError(w, 500, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
