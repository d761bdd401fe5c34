package notification

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"
)

// Sender delivers one e-mail.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher e-mails stored notifications that have not been e-mailed yet.
type Dispatcher struct {
	store    Store
	sender   Sender
	baseURL  string
	interval time.Duration
	batch    int
}

// NewDispatcher creates a Dispatcher. baseURL prefixes notification links.
func NewDispatcher(store Store, sender Sender, baseURL string, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		store:    store,
		sender:   sender,
		baseURL:  baseURL,
		interval: interval,
		batch:    50,
	}
}

// Run polls for pending notifications until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("notifier: running, polling every %s", d.interval)

	// Catch up immediately on startup
	d.poll(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("notifier: shutting down")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll sends one batch. Failed sends are held back and retried later.
func (d *Dispatcher) poll(ctx context.Context) int {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notifier: panic in poll: %v", r)
		}
	}()

	pending, err := d.store.PendingEmails(ctx, d.batch)
	if err != nil {
		log.Printf("notifier: load pending: %v", err)
		return 0
	}

	sent := 0
	for i := range pending {
		p := &pending[i]
		if p.Email == "" {
			// nothing to deliver to; stamp it so it does not block the queue
			if err := d.store.MarkEmailed(ctx, p.ID); err != nil {
				log.Printf("notifier: %v", err)
			}
			continue
		}
		if err := d.sender.Send(ctx, p.Email, p.Title, d.render(p)); err != nil {
			d.failed(ctx, p, err)
			continue
		}
		if err := d.store.MarkEmailed(ctx, p.ID); err != nil {
			log.Printf("notifier: %v", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Printf("notifier: sent %d of %d", sent, len(pending))
	}
	return sent
}

// failed records a failed send; the row is retried with exponential backoff
// until MaxEmailAttempts is reached.
func (d *Dispatcher) failed(ctx context.Context, p *Delivery, sendErr error) {
	attempts := p.Attempts + 1
	if attempts >= MaxEmailAttempts {
		log.Printf("notifier: send %s to %s: %v (giving up after %d attempts)", p.ID, p.Email, sendErr, attempts)
	} else {
		log.Printf("notifier: send %s to %s: %v (attempt %d)", p.ID, p.Email, sendErr, attempts)
	}
	if err := d.store.MarkEmailFailed(ctx, p.ID, time.Now().Add(d.backoff(attempts))); err != nil {
		log.Printf("notifier: %v", err)
	}
}

// backoff doubles the poll interval per failed attempt, capped at six hours.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	wait := d.interval
	for i := 1; i < attempts && wait < 6*time.Hour; i++ {
		wait *= 2
	}
	return min(wait, 6*time.Hour)
}

func (d *Dispatcher) render(p *Delivery) string {
	greeting := "Hallo"
	if p.Name != "" {
		greeting += " " + html.EscapeString(p.Name)
	}
	body := fmt.Sprintf(`<p>%s,</p><p>%s</p>`, greeting, html.EscapeString(p.Message))
	if p.Link != "" {
		body += fmt.Sprintf(`<p><a href="%s">Öffnen</a></p>`, html.EscapeString(d.baseURL+p.Link))
	}
	return body
}
