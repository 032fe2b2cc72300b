package service

import (
	"context"
	"sync"

	"itemboard/models"
	"itemboard/store"
)

// Subscription is a live feed of full item snapshots. Each value on C is
// the complete current item set. C is closed when the subscription ends.
type Subscription struct {
	C <-chan []models.Item

	c      chan []models.Item
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newSubscription(cancel context.CancelFunc) *Subscription {
	c := make(chan []models.Item, 1)
	return &Subscription{C: c, c: c, cancel: cancel, done: make(chan struct{})}
}

// Stop ends the subscription and waits for its goroutine to exit.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the feed ended early. It is nil after a normal Stop.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) run(ctx context.Context, snaps <-chan store.Snapshot) {
	defer close(s.done)
	defer close(s.c)
	defer s.cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if snap.Err != nil {
				s.mu.Lock()
				s.err = snap.Err
				s.mu.Unlock()
				return
			}
			items := make([]models.Item, 0, len(snap.Documents))
			for _, d := range snap.Documents {
				items = append(items, models.FromDocument(d.Key, d.Fields))
			}
			// Replace an unread snapshot so the consumer always sees the newest.
			select {
			case <-s.c:
			default:
			}
			select {
			case s.c <- items:
			case <-ctx.Done():
				return
			}
		}
	}
}
