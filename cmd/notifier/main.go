package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projecthub/internal/config"
	"projecthub/internal/db"
	"projecthub/internal/mailer"
	"projecthub/pkg/notification"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	store := notification.NewPgStore(pool)

	// The server creates the tables; wait up to 30 seconds for them.
	for i := 0; i < 30; i++ {
		if _, err = store.PendingEmails(ctx, 1); err == nil {
			break
		}
		log.Printf("notifier: waiting for tables (attempt %d/30): %v", i+1, err)
		time.Sleep(time.Second)
	}
	if err != nil {
		log.Fatalf("notifier: tables not ready: %v", err)
	}

	d := notification.NewDispatcher(store, mailer.New(cfg.Email), cfg.BaseURL, cfg.NotifyInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		log.Printf("notifier: received %s, shutting down", sig)
		cancel()
	}()

	log.Println("notifier: process started")
	d.Run(ctx)
}
