package views

import (
	"context"
	"io"
	"sync"

	"itemboard/models"
	"itemboard/service"
)

// ItemLister opens a live item feed.
type ItemLister interface {
	ListItems(ctx context.Context) (*service.Subscription, error)
}

// ListView renders the live item list. It holds the last snapshot and
// nothing else; it never writes.
type ListView struct {
	lister ItemLister
	// OnRender, if set, is called after every snapshot is applied.
	OnRender func(items []models.Item)

	mu    sync.RWMutex
	items []models.Item
	sub   *service.Subscription
	done  chan struct{}
}

// NewListView returns a view bound to lister. Call Start to subscribe.
func NewListView(lister ItemLister) *ListView {
	return &ListView{lister: lister}
}

// Start subscribes and blocks until the first snapshot has been applied.
func (v *ListView) Start(ctx context.Context) error {
	sub, err := v.lister.ListItems(ctx)
	if err != nil {
		return err
	}
	v.sub = sub
	v.done = make(chan struct{})
	first := make(chan struct{})

	go func() {
		defer close(v.done)
		once := sync.Once{}
		defer once.Do(func() { close(first) })
		for items := range sub.C {
			v.apply(items)
			once.Do(func() { close(first) })
		}
	}()

	select {
	case <-first:
		return sub.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the subscription.
func (v *ListView) Stop() {
	if v.sub == nil {
		return
	}
	v.sub.Stop()
	<-v.done
}

// Err reports why the feed ended, if it ended on a store error.
func (v *ListView) Err() error {
	if v.sub == nil {
		return nil
	}
	return v.sub.Err()
}

// Items returns the last snapshot.
func (v *ListView) Items() []models.Item {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.Item, len(v.items))
	copy(out, v.items)
	return out
}

// Render writes the list page for the current snapshot.
func (v *ListView) Render(w io.Writer, ts *Templates, page PageData) error {
	return ts.Render(w, "items.html", ListPage{PageData: page, Items: v.Items()})
}

func (v *ListView) apply(items []models.Item) {
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	if v.OnRender != nil {
		v.OnRender(items)
	}
}
