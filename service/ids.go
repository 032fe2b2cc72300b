package service

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces the id for a new item created at now.
type IDGenerator interface {
	NewID(now time.Time) string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func(now time.Time) string

func (f IDFunc) NewID(now time.Time) string { return f(now) }

// UUIDs generates random v4 UUIDs.
var UUIDs IDGenerator = IDFunc(func(time.Time) string {
	return uuid.New().String()
})

// TimestampIDs uses the creation time in epoch milliseconds. Two items
// created within the same millisecond get the same id and the second
// overwrites the first.
var TimestampIDs IDGenerator = IDFunc(func(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
})

// ParseIDScheme maps a config value to a generator. Unknown names are rejected.
func ParseIDScheme(name string) (IDGenerator, bool) {
	switch name {
	case "", "uuid":
		return UUIDs, true
	case "timestamp":
		return TimestampIDs, true
	default:
		return nil, false
	}
}
