package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Stored document field names.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldBody      = "body"
	FieldActive    = "active"
	FieldTimeStamp = "timeStamp"
)

// Item is one entry of the "items" collection.
type Item struct {
	ID        string `json:"id" bson:"id"`
	Title     string `json:"title" bson:"title"`
	Body      string `json:"body" bson:"body"`
	Active    bool   `json:"active" bson:"active"`
	TimeStamp int64  `json:"timeStamp" bson:"timeStamp"`
}

// Document returns the full set of stored fields for the item.
func (i Item) Document() bson.M {
	return bson.M{
		FieldID:        i.ID,
		FieldTitle:     i.Title,
		FieldBody:      i.Body,
		FieldActive:    i.Active,
		FieldTimeStamp: i.TimeStamp,
	}
}

// FromDocument builds an Item from a raw stored document. The document key
// always wins over any id field in the body.
func FromDocument(key string, fields bson.M) Item {
	item := Item{ID: key}
	if v, ok := fields[FieldTitle].(string); ok {
		item.Title = v
	}
	if v, ok := fields[FieldBody].(string); ok {
		item.Body = v
	}
	if v, ok := fields[FieldActive].(bool); ok {
		item.Active = v
	}
	item.TimeStamp = toInt64(fields[FieldTimeStamp])
	return item
}

// toInt64 accepts whatever numeric width the store decoded.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}
