package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"projecthub/internal/config"
	"projecthub/internal/db"
	"projecthub/pkg/absence"
	"projecthub/pkg/activity"
	"projecthub/pkg/format"
	"projecthub/pkg/notification"
	"projecthub/pkg/project"
	"projecthub/pkg/subtask"
	"projecthub/pkg/task"
	"projecthub/pkg/user"
	"projecthub/pkg/wiki"
)

type stores struct {
	users         *user.PgStore
	projects      *project.PgStore
	tasks         *task.PgStore
	subtasks      *subtask.PgStore
	notifications *notification.PgStore
	absences      *absence.PgStore
	activity      *activity.PgStore
	wiki          *wiki.PgStore
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Load().DatabaseURL)
	if err != nil {
		fatal("connect: %v", err)
	}
	defer pool.Close()

	st := stores{
		users:         user.NewPgStore(pool),
		projects:      project.NewPgStore(pool),
		tasks:         task.NewPgStore(pool),
		subtasks:      subtask.NewPgStore(pool),
		notifications: notification.NewPgStore(pool),
		absences:      absence.NewPgStore(pool),
		activity:      activity.NewPgStore(pool),
		wiki:          wiki.NewPgStore(pool),
	}

	switch os.Args[1] {
	case "init":
		handleInit(ctx, st)
	case "user":
		handleUser(ctx, st.users, os.Args[2:])
	case "project":
		handleProject(ctx, st, os.Args[2:])
	case "task":
		handleTask(ctx, st, os.Args[2:])
	case "dependency":
		handleDependency(ctx, st.subtasks, os.Args[2:])
	case "absence":
		handleAbsence(ctx, st, os.Args[2:])
	case "status":
		handleStatus(ctx, st)
	default:
		usage()
		os.Exit(1)
	}
}

func handleInit(ctx context.Context, st stores) {
	err := db.EnsureTables(ctx, st.users, st.projects, st.tasks, st.subtasks,
		st.notifications, st.absences, st.activity, st.wiki)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("tables ready")
}

func handleUser(ctx context.Context, store user.Store, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pm user <add|list|role|recipients>")
		os.Exit(1)
	}

	switch args[0] {
	case "add":
		flags := parseFlags(args[1:])
		if flags["email"] == "" {
			fatal("--email is required")
		}
		u, err := store.Register(ctx, flags["email"], flags["name"])
		if err != nil {
			fatal("register user: %v", err)
		}
		printJSON(u)

	case "list":
		users, err := store.List(ctx)
		if err != nil {
			fatal("list users: %v", err)
		}
		if parseFlags(args[1:])["format"] == "short" {
			for _, u := range users {
				fmt.Printf("%-8s  %-8s  %-12s  %s\n", truncStr(u.ID, 8), u.Role, u.Department, u.Label())
			}
			return
		}
		printJSON(users)

	case "role":
		if len(args) < 3 {
			fatal("Usage: pm user role <id> <admin|manager|member> [--department=X]")
		}
		u, err := store.SetRole(ctx, args[1], args[2], parseFlags(args[3:])["department"])
		if err != nil {
			fatal("set role: %v", err)
		}
		printJSON(u)

	case "recipients":
		if len(args) < 2 {
			fatal("Usage: pm user recipients <requester-id>")
		}
		u, err := store.Get(ctx, args[1])
		if err != nil {
			fatal("get user: %v", err)
		}
		recipients, err := store.FindAbsenceRequestRecipientsWithEmails(ctx, u.ID, u.Department)
		if err != nil {
			fatal("find recipients: %v", err)
		}
		printJSON(recipients)

	default:
		fatal("unknown user command: %s", args[0])
	}
}

func handleProject(ctx context.Context, st stores, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pm project <create|list|show|members|add-member>")
		os.Exit(1)
	}
	store := st.projects

	switch args[0] {
	case "create":
		flags := parseFlags(args[1:])
		if flags["name"] == "" || flags["owner"] == "" {
			fatal("--name and --owner are required")
		}
		p := &project.Project{Name: flags["name"], Description: flags["description"]}
		if b := flags["budget"]; b != "" {
			cents, ok := format.ParseEURToCents(b)
			if !ok {
				fatal("invalid budget %q", b)
			}
			p.BudgetCents = &cents
		}
		result, err := store.Create(ctx, p, flags["owner"])
		if err != nil {
			fatal("create project: %v", err)
		}
		printJSON(result)

	case "list":
		projects, err := store.List(ctx)
		if err != nil {
			fatal("list projects: %v", err)
		}
		if parseFlags(args[1:])["format"] == "short" {
			for _, p := range projects {
				budget := "-"
				if p.BudgetCents != nil {
					budget = format.FormatEURCents(*p.BudgetCents)
				}
				fmt.Printf("%-8s  %-24s  %14s  %s\n", truncStr(p.ID, 8), truncStr(p.Slug, 24), budget, p.Name)
			}
			return
		}
		printJSON(projects)

	case "show":
		if len(args) < 2 {
			fatal("Usage: pm project show <slug>")
		}
		p, err := store.BySlug(ctx, args[1])
		if err != nil {
			fatal("show project: %v", err)
		}
		n, err := st.tasks.Count(ctx, p.ID)
		if err != nil {
			fatal("count tasks: %v", err)
		}
		printJSON(map[string]any{"project": p, "task_count": n})

	case "members":
		if len(args) < 2 {
			fatal("Usage: pm project members <id>")
		}
		members, err := store.Members(ctx, args[1])
		if err != nil {
			fatal("list members: %v", err)
		}
		printJSON(members)

	case "add-member":
		if len(args) < 3 {
			fatal("Usage: pm project add-member <project-id> <user-id> [--role=member]")
		}
		m, err := store.AddMember(ctx, args[1], args[2], parseFlags(args[3:])["role"])
		if err != nil {
			fatal("add member: %v", err)
		}
		printJSON(m)

	default:
		fatal("unknown project command: %s", args[0])
	}
}

func handleTask(ctx context.Context, st stores, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pm task <list|export|subtasks> <project-id|task-id>")
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		if len(args) < 2 {
			fatal("Usage: pm task list <project-id> [--status=X] [--limit=N] [--format=short]")
		}
		flags := parseFlags(args[2:])
		tasks, err := st.tasks.ByProject(ctx, args[1], flags["status"], intFlag(flags, "limit", 50))
		if err != nil {
			fatal("list tasks: %v", err)
		}
		if flags["format"] == "short" {
			printShortTasks(tasks)
		} else {
			printJSON(tasks)
		}

	case "export":
		if len(args) < 2 {
			fatal("Usage: pm task export <project-id> [--xls]")
		}
		tasks, err := st.tasks.ByProject(ctx, args[1], "", 10000)
		if err != nil {
			fatal("list tasks: %v", err)
		}
		header := []string{"Titel", "Status", "Priorität", "Zuständig"}
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []string{t.Title, format.StatusLabel(t.Status), strconv.Itoa(t.Priority), strings.Join(t.AssigneeIDs, ", ")})
		}
		if _, xls := parseFlags(args[2:])["xls"]; xls {
			fmt.Print(format.BuildXLS(header, rows))
		} else {
			fmt.Print(format.BuildCSV(header, rows))
		}

	case "subtasks":
		if len(args) < 2 {
			fatal("Usage: pm task subtasks <task-id>")
		}
		subtasks, err := st.subtasks.ByTask(ctx, args[1])
		if err != nil {
			fatal("list subtasks: %v", err)
		}
		for _, s := range subtasks {
			mark := " "
			if s.Done {
				mark = "x"
			}
			blocked := ""
			if len(s.BlockedBy) > 0 {
				blocked = fmt.Sprintf("  (blocked by %d)", len(s.BlockedBy))
			}
			fmt.Printf("[%s] %-8s  %s%s\n", mark, truncStr(s.ID, 8), s.Title, blocked)
		}

	default:
		fatal("unknown task command: %s", args[0])
	}
}

func handleDependency(ctx context.Context, store subtask.Store, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: pm dependency <check|add|remove> <subtask-id> <depends-on-id>")
		os.Exit(1)
	}
	subtaskID, dependsOnID := args[1], args[2]

	switch args[0] {
	case "check":
		a, err := store.Get(ctx, subtaskID)
		if err != nil {
			fatal("get subtask: %v", err)
		}
		b, err := store.Get(ctx, dependsOnID)
		if err != nil {
			fatal("get subtask: %v", err)
		}
		edges, err := store.EdgesForTask(ctx, a.TaskID)
		if err != nil {
			fatal("load edges: %v", err)
		}
		printJSON(subtask.ValidateDependency(a.ID, b.ID, a.TaskID, b.TaskID, edges))

	case "add":
		v, err := store.AddDependency(ctx, subtaskID, dependsOnID)
		if err != nil {
			fatal("add dependency: %v", err)
		}
		printJSON(v)
		if !v.OK {
			os.Exit(2)
		}

	case "remove":
		if err := store.RemoveDependency(ctx, subtaskID, dependsOnID); err != nil {
			fatal("remove dependency: %v", err)
		}
		fmt.Println("removed")

	default:
		fatal("unknown dependency command: %s", args[0])
	}
}

func handleAbsence(ctx context.Context, st stores, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pm absence <pending|resolve>")
		os.Exit(1)
	}

	switch args[0] {
	case "pending":
		pending, err := st.absences.Pending(ctx)
		if err != nil {
			fatal("pending absences: %v", err)
		}
		for _, a := range pending {
			fmt.Printf("%-8s  %-8s  %-11s  %s – %s (%d Tage)\n", truncStr(a.ID, 8), truncStr(a.RequesterID, 8),
				format.AbsenceKindLabel(string(a.Kind)), a.StartDate.Format("02.01.2006"), a.EndDate.Format("02.01.2006"), a.Days())
		}

	case "resolve":
		if len(args) < 3 {
			fatal("Usage: pm absence resolve <id> <resolver-id> [--reject]")
		}
		_, reject := parseFlags(args[3:])["reject"]
		a, err := resolveAbsence(ctx, st.absences, st.users, st.notifications, args[1], args[2], !reject)
		if a == nil {
			fatal("resolve absence: %v", err)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "pm: %v\n", err)
		}
		printJSON(a)

	default:
		fatal("unknown absence command: %s", args[0])
	}
}

func handleStatus(ctx context.Context, st stores) {
	users, _ := st.users.List(ctx)
	projects, _ := st.projects.List(ctx)
	pendingAbsences, _ := st.absences.PendingCount(ctx)
	pendingEmails, _ := st.notifications.PendingEmails(ctx, 1000)

	printJSON(map[string]any{
		"users":            len(users),
		"projects":         len(projects),
		"pending_absences": pendingAbsences,
		"pending_emails":   len(pendingEmails),
	})
}

func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if idx := strings.Index(arg, "="); idx >= 0 {
			flags[arg[:idx]] = arg[idx+1:]
		} else {
			flags[arg] = ""
		}
	}
	return flags
}

func intFlag(flags map[string]string, key string, defaultVal int) int {
	if v, ok := flags[key]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode JSON: %v", err)
	}
}

func truncStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func printShortTasks(tasks []task.Task) {
	for _, t := range tasks {
		fmt.Printf("%-8s  %-11s  %s\n", truncStr(t.ID, 8), format.StatusLabel(t.Status), truncStr(t.Title, 60))
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "pm: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: pm <command>

Commands:
  init        Create database tables
  user        User operations (add, list, role, recipients)
  project     Project operations (create, list, show, members, add-member)
  task        Task operations (list, export, subtasks)
  dependency  Subtask dependencies (check, add, remove)
  absence     Absence operations (pending, resolve)
  status      Show system summary`)
}
