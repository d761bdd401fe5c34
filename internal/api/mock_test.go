package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"projecthub/pkg/absence"
	"projecthub/pkg/activity"
	"projecthub/pkg/notification"
	"projecthub/pkg/permission"
	"projecthub/pkg/project"
	"projecthub/pkg/subtask"
	"projecthub/pkg/task"
	"projecthub/pkg/user"
	"projecthub/pkg/wiki"
)

// --- Users ---

type mockUsers struct {
	users map[string]*user.User
}

func (s *mockUsers) add(id, role, dept string) *user.User {
	u := &user.User{ID: id, Email: id + "@example.com", Name: "User " + id, Role: role, Department: dept}
	s.users[id] = u
	return u
}

func (s *mockUsers) Register(_ context.Context, email, name string) (*user.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	u := &user.User{ID: fmt.Sprintf("u%d", len(s.users)+1), Email: email, Name: name, Role: permission.GlobalMember}
	s.users[u.ID] = u
	return u, nil
}

func (s *mockUsers) Get(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *mockUsers) ByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *mockUsers) List(_ context.Context) ([]user.User, error) {
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *mockUsers) SetRole(_ context.Context, id, role, dept string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Role, u.Department = role, dept
	cp := *u
	return &cp, nil
}

func (s *mockUsers) FindAbsenceRequestRecipients(ctx context.Context, requesterID, dept string) ([]string, error) {
	recipients, _ := s.FindAbsenceRequestRecipientsWithEmails(ctx, requesterID, dept)
	ids := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *mockUsers) FindAbsenceRequestRecipientsWithEmails(ctx context.Context, requesterID, dept string) ([]notification.Recipient, error) {
	all, _ := s.List(ctx)
	var out []notification.Recipient
	for _, u := range all {
		if notification.IsAbsenceRecipient(u.ID, u.Role, u.Department, requesterID, dept) {
			out = append(out, notification.Recipient{ID: u.ID, Email: u.Email, Name: u.Name})
		}
	}
	return out, nil
}

func (s *mockUsers) EnsureTable(context.Context) error { return nil }

// --- Projects ---

type mockProjects struct {
	projects map[string]*project.Project
	members  map[string]map[string]string // project -> user -> raw role
}

func (s *mockProjects) add(id, name string) {
	s.projects[id] = &project.Project{ID: id, Name: name, Slug: id}
	s.members[id] = map[string]string{}
}

func (s *mockProjects) Create(_ context.Context, p *project.Project, ownerID string) (*project.Project, error) {
	p.ID = fmt.Sprintf("p%d", len(s.projects)+1)
	p.Slug = p.ID
	cp := *p
	s.projects[p.ID] = &cp
	s.members[p.ID] = map[string]string{ownerID: string(permission.Owner)}
	return p, nil
}

func (s *mockProjects) Get(_ context.Context, id string) (*project.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *mockProjects) BySlug(ctx context.Context, slug string) (*project.Project, error) {
	for _, p := range s.projects {
		if p.Slug == slug {
			return s.Get(ctx, p.ID)
		}
	}
	return nil, project.ErrNotFound
}

func (s *mockProjects) List(_ context.Context) ([]project.Project, error) {
	var out []project.Project
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (s *mockProjects) ForUser(_ context.Context, userID string) ([]project.Project, error) {
	var out []project.Project
	for id, m := range s.members {
		if _, ok := m[userID]; ok {
			out = append(out, *s.projects[id])
		}
	}
	return out, nil
}

func (s *mockProjects) Update(_ context.Context, id string, u project.Update) (*project.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.BudgetCents != nil {
		p.BudgetCents = u.BudgetCents
	}
	if u.ClearBudget {
		p.BudgetCents = nil
	}
	cp := *p
	return &cp, nil
}

func (s *mockProjects) Delete(_ context.Context, id string) error {
	if _, ok := s.projects[id]; !ok {
		return project.ErrNotFound
	}
	delete(s.projects, id)
	delete(s.members, id)
	return nil
}

func (s *mockProjects) Members(_ context.Context, projectID string) ([]project.Member, error) {
	var out []project.Member
	for uid, role := range s.members[projectID] {
		out = append(out, project.Member{ProjectID: projectID, UserID: uid, Role: permission.ProjectRole(role)})
	}
	return out, nil
}

func (s *mockProjects) MemberRole(_ context.Context, projectID, userID string) (string, error) {
	role, ok := s.members[projectID][userID]
	if !ok {
		return "", project.ErrNotMember
	}
	return role, nil
}

func (s *mockProjects) AddMember(_ context.Context, projectID, userID, role string) (*project.Member, error) {
	if _, ok := s.projects[projectID]; !ok {
		return nil, project.ErrNotFound
	}
	r := permission.NormalizeRole(role)
	s.members[projectID][userID] = string(r)
	return &project.Member{ProjectID: projectID, UserID: userID, Role: r}, nil
}

func (s *mockProjects) RemoveMember(_ context.Context, projectID, userID string) error {
	if _, ok := s.members[projectID][userID]; !ok {
		return project.ErrNotMember
	}
	delete(s.members[projectID], userID)
	return nil
}

func (s *mockProjects) EnsureTable(context.Context) error { return nil }

// --- Tasks ---

type mockTasks struct {
	tasks map[string]*task.Task
}

func (s *mockTasks) Create(_ context.Context, t *task.Task) (*task.Task, error) {
	t.ID = fmt.Sprintf("t%d", len(s.tasks)+1)
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}
	t.CreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.tasks[t.ID] = &cp
	return t, nil
}

func (s *mockTasks) Get(_ context.Context, id string) (*task.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *mockTasks) Update(_ context.Context, id string, updates map[string]any) (*task.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	if v, ok := updates["title"]; ok {
		t.Title = v.(string)
	}
	if v, ok := updates["description"]; ok {
		t.Description = v.(string)
	}
	if v, ok := updates["status"]; ok {
		t.Status = v.(string)
	}
	if v, ok := updates["priority"]; ok {
		t.Priority = v.(int)
	}
	if v, ok := updates["assignee_ids"]; ok {
		t.AssigneeIDs = v.([]string)
	}
	if v, ok := updates["due_date"]; ok {
		t.DueDate = v.(*time.Time)
	}
	cp := *t
	return &cp, nil
}

func (s *mockTasks) ByProject(_ context.Context, projectID, status string, limit int) ([]task.Task, error) {
	var out []task.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockTasks) AssignedTo(_ context.Context, userID string, limit int) ([]task.Task, error) {
	var out []task.Task
	for _, t := range s.tasks {
		for _, id := range t.AssigneeIDs {
			if id == userID && t.Status != task.StatusDone {
				out = append(out, *t)
				break
			}
		}
	}
	return out, nil
}

func (s *mockTasks) Count(_ context.Context, projectID string) (int, error) {
	n := 0
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (s *mockTasks) EnsureTable(context.Context) error { return nil }

// --- Subtasks ---

type mockSubtasks struct {
	subtasks map[string]*subtask.Subtask
	edges    []subtask.DependencyEdge
}

func (s *mockSubtasks) Create(_ context.Context, st *subtask.Subtask) (*subtask.Subtask, error) {
	if st.ID == "" {
		st.ID = fmt.Sprintf("s%d", len(s.subtasks)+1)
	}
	cp := *st
	s.subtasks[st.ID] = &cp
	return st, nil
}

func (s *mockSubtasks) Get(_ context.Context, id string) (*subtask.Subtask, error) {
	st, ok := s.subtasks[id]
	if !ok {
		return nil, subtask.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *mockSubtasks) ByTask(ctx context.Context, taskID string) ([]subtask.Subtask, error) {
	var out []subtask.Subtask
	for _, st := range s.subtasks {
		if st.TaskID == taskID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	edges, _ := s.EdgesForTask(ctx, taskID)
	subtask.Annotate(out, edges)
	return out, nil
}

func (s *mockSubtasks) Update(_ context.Context, id string, u subtask.Update) (*subtask.Subtask, error) {
	st, ok := s.subtasks[id]
	if !ok {
		return nil, subtask.ErrNotFound
	}
	if u.Title != nil {
		st.Title = *u.Title
	}
	if u.Done != nil {
		st.Done = *u.Done
	}
	if u.Position != nil {
		st.Position = *u.Position
	}
	cp := *st
	return &cp, nil
}

func (s *mockSubtasks) Delete(_ context.Context, id string) error {
	if _, ok := s.subtasks[id]; !ok {
		return subtask.ErrNotFound
	}
	delete(s.subtasks, id)
	return nil
}

func (s *mockSubtasks) EdgesForTask(_ context.Context, taskID string) ([]subtask.DependencyEdge, error) {
	var out []subtask.DependencyEdge
	for _, e := range s.edges {
		if st, ok := s.subtasks[e.SubtaskID]; ok && st.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *mockSubtasks) AddDependency(ctx context.Context, subtaskID, dependsOnID string) (subtask.Validation, error) {
	a, ok := s.subtasks[subtaskID]
	if !ok {
		return subtask.Validation{}, subtask.ErrNotFound
	}
	b, ok := s.subtasks[dependsOnID]
	if !ok {
		return subtask.Validation{}, subtask.ErrNotFound
	}
	edges, _ := s.EdgesForTask(ctx, a.TaskID)
	v := subtask.ValidateDependency(a.ID, b.ID, a.TaskID, b.TaskID, edges)
	if v.OK {
		s.edges = append(s.edges, subtask.DependencyEdge{SubtaskID: subtaskID, DependsOnID: dependsOnID})
	}
	return v, nil
}

func (s *mockSubtasks) RemoveDependency(_ context.Context, subtaskID, dependsOnID string) error {
	for i, e := range s.edges {
		if e.SubtaskID == subtaskID && e.DependsOnID == dependsOnID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return nil
		}
	}
	return subtask.ErrNotFound
}

func (s *mockSubtasks) EnsureTable(context.Context) error { return nil }

// --- Wiki ---

type mockWiki struct {
	pages map[string]*wiki.Page // projectID/slug
}

func (s *mockWiki) List(_ context.Context, projectID string) ([]wiki.Page, error) {
	var out []wiki.Page
	for _, p := range s.pages {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *mockWiki) Get(_ context.Context, projectID, slug string) (*wiki.Page, error) {
	p, ok := s.pages[projectID+"/"+slug]
	if !ok {
		return nil, wiki.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *mockWiki) Save(_ context.Context, p *wiki.Page) (*wiki.Page, error) {
	if p.ID == "" {
		p.ID = fmt.Sprintf("w%d", len(s.pages)+1)
	}
	cp := *p
	s.pages[p.ProjectID+"/"+p.Slug] = &cp
	return p, nil
}

func (s *mockWiki) Delete(_ context.Context, projectID, slug string) error {
	if _, ok := s.pages[projectID+"/"+slug]; !ok {
		return wiki.ErrNotFound
	}
	delete(s.pages, projectID+"/"+slug)
	return nil
}

func (s *mockWiki) EnsureTable(context.Context) error { return nil }

// --- Absences ---

type mockAbsences struct {
	absences map[string]*absence.Absence
}

func (s *mockAbsences) Create(_ context.Context, a *absence.Absence) (*absence.Absence, error) {
	a.ID = fmt.Sprintf("a%d", len(s.absences)+1)
	a.Status = absence.StatusPending
	cp := *a
	s.absences[a.ID] = &cp
	return a, nil
}

func (s *mockAbsences) Resolve(_ context.Context, id, resolverID string, approved bool) (*absence.Absence, error) {
	a, ok := s.absences[id]
	if !ok {
		return nil, absence.ErrNotFound
	}
	if a.Status != absence.StatusPending {
		return nil, absence.ErrNotPending
	}
	a.Status = absence.StatusRejected
	if approved {
		a.Status = absence.StatusApproved
	}
	a.ResolvedBy = resolverID
	cp := *a
	return &cp, nil
}

func (s *mockAbsences) Get(_ context.Context, id string) (*absence.Absence, error) {
	a, ok := s.absences[id]
	if !ok {
		return nil, absence.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *mockAbsences) ListForUser(_ context.Context, userID string, limit int) ([]absence.Absence, error) {
	var out []absence.Absence
	for _, a := range s.absences {
		if a.RequesterID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *mockAbsences) Pending(_ context.Context) ([]absence.Absence, error) {
	var out []absence.Absence
	for _, a := range s.absences {
		if a.Status == absence.StatusPending {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *mockAbsences) Overlapping(_ context.Context, from, to time.Time) ([]absence.Absence, error) {
	var out []absence.Absence
	for _, a := range s.absences {
		if a.Status != absence.StatusRejected && !a.StartDate.After(to) && !a.EndDate.Before(from) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *mockAbsences) PendingCount(ctx context.Context) (int, error) {
	p, _ := s.Pending(ctx)
	return len(p), nil
}

func (s *mockAbsences) EnsureTable(context.Context) error { return nil }

// --- Activity ---

type mockActivity struct {
	events []activity.Event
}

func (s *mockActivity) Record(_ context.Context, e activity.Event) (*activity.Event, error) {
	e.ID = fmt.Sprintf("e%d", len(s.events)+1)
	s.events = append(s.events, e)
	return &e, nil
}

func (s *mockActivity) ByProject(_ context.Context, projectID string, limit int) ([]activity.Event, error) {
	var out []activity.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].ProjectID == projectID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *mockActivity) ByTask(_ context.Context, taskID string, limit int) ([]activity.Event, error) {
	var out []activity.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].TaskID == taskID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *mockActivity) EnsureTable(context.Context) error { return nil }

// --- Notifications ---

type mockNotifications struct {
	mu    sync.Mutex
	items []notification.Notification
}

func (s *mockNotifications) CreateMany(_ context.Context, inputs []notification.Input) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification.Notification, 0, len(inputs))
	for _, in := range inputs {
		n := notification.Notification{
			ID:      fmt.Sprintf("n%d", len(s.items)+1),
			UserID:  in.UserID,
			Type:    in.Type,
			Title:   in.Title,
			Message: in.Message,
			Link:    in.Link,
		}
		s.items = append(s.items, n)
		out = append(out, n)
	}
	return out, nil
}

func (s *mockNotifications) ListForUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Notification
	for _, n := range s.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *mockNotifications) MarkRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].Read = true
			return nil
		}
	}
	return notification.ErrNotFound
}

func (s *mockNotifications) MarkAllRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.items {
		if s.items[i].UserID == userID && !s.items[i].Read {
			s.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (s *mockNotifications) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, _ := s.ListForUser(ctx, userID, true, 1000)
	return len(list), nil
}

func (s *mockNotifications) PendingEmails(context.Context, int) ([]notification.Delivery, error) {
	return nil, nil
}

func (s *mockNotifications) MarkEmailed(context.Context, string) error { return nil }

func (s *mockNotifications) MarkEmailFailed(context.Context, string, time.Time) error { return nil }

func (s *mockNotifications) EnsureTable(context.Context) error { return nil }

// recipients returns the user ids notified so far, in creation order.
func (s *mockNotifications) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for _, n := range s.items {
		out = append(out, n.UserID)
	}
	return out
}
