package notification

import (
	"context"
	"sync"
)

// Bus wraps a Store and fans every created notification out to the
// subscribers of its recipient.
type Bus struct {
	Store
	mu   sync.RWMutex
	subs map[chan *Notification]string // channel -> user id
}

// NewBus creates a Bus wrapping the given store.
func NewBus(store Store) *Bus {
	return &Bus{
		Store: store,
		subs:  make(map[chan *Notification]string),
	}
}

// CreateMany delegates to the underlying store, then publishes each stored notification.
func (b *Bus) CreateMany(ctx context.Context, inputs []Input) ([]Notification, error) {
	created, err := b.Store.CreateMany(ctx, inputs)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	for i := range created {
		n := &created[i]
		for ch, userID := range b.subs {
			if userID != n.UserID {
				continue
			}
			select {
			case ch <- n:
			default:
				// subscriber is behind; drop rather than block the request
			}
		}
	}
	b.mu.RUnlock()

	return created, nil
}

// Subscribe returns a buffered channel receiving new notifications for userID.
func (b *Bus) Subscribe(userID string) chan *Notification {
	ch := make(chan *Notification, 32)
	b.mu.Lock()
	b.subs[ch] = userID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan *Notification) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
