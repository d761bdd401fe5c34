package main

import (
	"context"
	"log"
	"net/http"

	"projecthub/internal/api"
	"projecthub/internal/config"
	"projecthub/internal/db"
	"projecthub/pkg/absence"
	"projecthub/pkg/activity"
	"projecthub/pkg/notification"
	"projecthub/pkg/project"
	"projecthub/pkg/subtask"
	"projecthub/pkg/task"
	"projecthub/pkg/user"
	"projecthub/pkg/wiki"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	users := user.NewPgStore(pool)
	projects := project.NewPgStore(pool)
	tasks := task.NewPgStore(pool)
	subtasks := subtask.NewPgStore(pool)
	notifications := notification.NewPgStore(pool)
	absences := absence.NewPgStore(pool)
	events := activity.NewPgStore(pool)
	pages := wiki.NewPgStore(pool)

	// Referenced tables first.
	if err := db.EnsureTables(ctx, users, projects, tasks, subtasks, notifications, absences, events, pages); err != nil {
		log.Fatalf("ensure tables: %v", err)
	}

	server := api.New(api.Stores{
		Users:         users,
		Projects:      projects,
		Tasks:         tasks,
		Subtasks:      subtasks,
		Wiki:          pages,
		Absences:      absences,
		Activity:      events,
		Notifications: notification.NewBus(notifications),
	})

	log.Printf("projecthub listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, server); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
