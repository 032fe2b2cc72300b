package views

import (
	"context"
	"io"

	"itemboard/models"
)

// ItemWriter is what the detail view needs from the item service.
type ItemWriter interface {
	UpdateItem(ctx context.Context, id string, item models.Item) error
	DeleteItem(ctx context.Context, id string) error
	Now() int64
}

// DetailView edits one item. Every update writes the whole held item, so
// any earlier in-memory change is persisted along with it.
type DetailView struct {
	writer ItemWriter
	Item   models.Item
}

// NewDetailView returns a view holding item.
func NewDetailView(writer ItemWriter, item models.Item) *DetailView {
	return &DetailView{writer: writer, Item: item}
}

// UpdateTimeStamp sets the time stamp to now and saves the item.
func (v *DetailView) UpdateTimeStamp(ctx context.Context) error {
	v.Item.TimeStamp = v.writer.Now()
	return v.writer.UpdateItem(ctx, v.Item.ID, v.Item)
}

// UpdateActive sets the active flag and saves the item.
func (v *DetailView) UpdateActive(ctx context.Context, active bool) error {
	v.Item.Active = active
	return v.writer.UpdateItem(ctx, v.Item.ID, v.Item)
}

func (v *DetailView) DeleteItem(ctx context.Context) error {
	return v.writer.DeleteItem(ctx, v.Item.ID)
}

// Render writes the detail page.
func (v *DetailView) Render(w io.Writer, ts *Templates, page PageData) error {
	return ts.Render(w, "item_detail.html", DetailPage{PageData: page, Item: v.Item})
}
