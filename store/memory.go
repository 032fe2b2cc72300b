package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// Memory is a process-local Collection. Documents keep insertion order.
type Memory struct {
	mu   sync.Mutex
	keys []string
	docs map[string]bson.M
	subs map[chan Snapshot]struct{}
}

// NewMemory returns an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{
		docs: map[string]bson.M{},
		subs: map[chan Snapshot]struct{}{},
	}
}

func (m *Memory) Set(ctx context.Context, key string, fields bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.docs[key] = cloneFields(fields)
	m.publishLocked()
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Key: key, Fields: cloneFields(fields)}, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; !ok {
		return nil
	}
	delete(m.docs, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	m.publishLocked()
	return nil
}

func (m *Memory) Watch(ctx context.Context) (<-chan Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// Len reports the number of stored documents.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *Memory) snapshotLocked() Snapshot {
	docs := make([]Document, 0, len(m.keys))
	for _, k := range m.keys {
		docs = append(docs, Document{Key: k, Fields: cloneFields(m.docs[k])})
	}
	return Snapshot{Documents: docs}
}

// publishLocked hands every subscriber the newest snapshot. A subscriber
// that has not consumed the previous one gets it replaced.
func (m *Memory) publishLocked() {
	if len(m.subs) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
