package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const keyField = "_id"

// Mongo is a Collection backed by a MongoDB collection. Document keys are
// stored in _id. Watch needs a replica set for change streams.
type Mongo struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewMongo wraps an existing MongoDB collection handle.
func NewMongo(coll *mongo.Collection, log *zap.Logger) *Mongo {
	return &Mongo{coll: coll, log: log}
}

func (m *Mongo) Set(ctx context.Context, key string, fields bson.M) error {
	doc := cloneFields(fields)
	doc[keyField] = key
	_, err := m.coll.ReplaceOne(ctx, bson.M{keyField: key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, key string) (Document, error) {
	var raw bson.M
	err := m.coll.FindOne(ctx, bson.M{keyField: key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("find %s: %w", key, err)
	}
	return toDocument(raw), nil
}

func (m *Mongo) Delete(ctx context.Context, key string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{keyField: key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Watch opens a change stream first so no change between the initial read
// and the stream start is missed, then re-reads the collection after each
// change event.
func (m *Mongo) Watch(ctx context.Context) (<-chan Snapshot, error) {
	stream, err := m.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("open change stream: %w", err)
	}
	initial, err := m.all(ctx)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}

	out := make(chan Snapshot, 1)
	out <- Snapshot{Documents: initial}

	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			docs, err := m.all(ctx)
			if err != nil {
				m.send(ctx, out, Snapshot{Err: err})
				return
			}
			if !m.send(ctx, out, Snapshot{Documents: docs}) {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			m.log.Warn("store.watch.ended", zap.Error(err))
			m.send(ctx, out, Snapshot{Err: fmt.Errorf("change stream: %w", err)})
		}
	}()
	return out, nil
}

// send delivers s, replacing a snapshot the consumer has not read yet.
func (m *Mongo) send(ctx context.Context, out chan Snapshot, s Snapshot) bool {
	select {
	case <-out:
	default:
	}
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

// all reads every document in store order.
func (m *Mongo) all(ctx context.Context) ([]Document, error) {
	cursor, err := m.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return docs, nil
}

func toDocument(raw bson.M) Document {
	key := fmt.Sprint(raw[keyField])
	fields := cloneFields(raw)
	delete(fields, keyField)
	return Document{Key: key, Fields: fields}
}
