package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"itemboard/metrics"
	"itemboard/models"
	"itemboard/store"
)

// CreatedBody is the body every new item is written with.
const CreatedBody = "test"

// ItemService is the only path between the application and the items
// collection.
type ItemService struct {
	coll  store.Collection
	log   *zap.Logger
	ids   IDGenerator
	clock func() time.Time
}

// Option customises an ItemService.
type Option func(*ItemService)

// WithIDs sets the id scheme for new items.
func WithIDs(g IDGenerator) Option {
	return func(s *ItemService) { s.ids = g }
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *ItemService) { s.clock = clock }
}

// New returns a service over coll. Defaults: UUID ids, wall clock.
func New(coll store.Collection, log *zap.Logger, opts ...Option) *ItemService {
	s := &ItemService{coll: coll, log: log, ids: UUIDs, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading in epoch milliseconds.
func (s *ItemService) Now() int64 { return s.clock().UnixMilli() }

// ListItems opens a live subscription to the full item set.
func (s *ItemService) ListItems(ctx context.Context) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	snaps, err := s.coll.Watch(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch items: %w", err)
	}
	sub := newSubscription(cancel)
	metrics.Subscribers.Inc()
	go func() {
		defer metrics.Subscribers.Dec()
		sub.run(ctx, snaps)
	}()
	return sub, nil
}

// GetItem reads one item. store.ErrNotFound is returned when it is absent.
func (s *ItemService) GetItem(ctx context.Context, id string) (models.Item, error) {
	if id == "" {
		return models.Item{}, ErrInvalidID
	}
	doc, err := s.coll.Get(ctx, id)
	if err != nil {
		return models.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return models.FromDocument(doc.Key, doc.Fields), nil
}

// GetItemFresh reads one item past any cache, for callers that will
// write the whole item back.
func (s *ItemService) GetItemFresh(ctx context.Context, id string) (models.Item, error) {
	return s.GetItem(store.Fresh(ctx), id)
}

// CreateItem writes a new active item. Only the candidate's title is used.
func (s *ItemService) CreateItem(ctx context.Context, candidate models.Item) (models.Item, error) {
	now := s.clock()
	item := models.Item{
		ID:        s.ids.NewID(now),
		Active:    true,
		Title:     candidate.Title,
		TimeStamp: now.UnixMilli(),
		Body:      CreatedBody,
	}
	if err := s.write("create", item.ID, s.coll.Set(ctx, item.ID, item.Document())); err != nil {
		return models.Item{}, err
	}
	s.log.Debug("item.created", zap.String("id", item.ID))
	return item, nil
}

// UpdateItem replaces the whole stored document at id with item.
func (s *ItemService) UpdateItem(ctx context.Context, id string, item models.Item) error {
	if id == "" {
		return ErrInvalidID
	}
	if item.ID == "" {
		item.ID = id
	}
	if item.ID != id {
		return fmt.Errorf("%w: %q != %q", ErrIDMismatch, item.ID, id)
	}
	return s.write("update", id, s.coll.Set(ctx, id, item.Document()))
}

// DeleteItem removes the document at id.
func (s *ItemService) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	return s.write("delete", id, s.coll.Delete(ctx, id))
}

func (s *ItemService) write(op, id string, err error) error {
	metrics.RecordWrite(op, err)
	if err == nil {
		return nil
	}
	s.log.Error("item.write.failed", zap.String("op", op), zap.String("id", id), zap.Error(err))
	return &WriteError{Op: op, ID: id, Err: err}
}
