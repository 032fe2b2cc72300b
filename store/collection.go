package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned by Get when no document has the key.
var ErrNotFound = errors.New("document not found")

// Document is a raw stored record: its key plus every other field.
type Document struct {
	Key    string
	Fields bson.M
}

// Snapshot is the full contents of a collection at one point in time.
// A non-nil Err ends the stream it was delivered on.
type Snapshot struct {
	Documents []Document
	Err       error
}

// Collection is the narrow surface the application needs from a document
// store collection.
type Collection interface {
	// Set replaces the whole document at key, creating it if needed.
	Set(ctx context.Context, key string, fields bson.M) error
	Get(ctx context.Context, key string) (Document, error)
	// Delete removes the document at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Watch delivers the current snapshot and then a new one after every
	// change, until ctx is done. The channel is closed when the watch ends.
	Watch(ctx context.Context) (<-chan Snapshot, error)
}

type freshKey struct{}

// Fresh marks ctx so that caching layers read through to the backing
// store on Get. Use it when the document read will be written back.
func Fresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

// IsFresh reports whether ctx was marked by Fresh.
func IsFresh(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshKey{}).(bool)
	return fresh
}

func cloneFields(m bson.M) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
