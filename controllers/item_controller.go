package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"itemboard/models"
	"itemboard/views"
)

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := s.page(r, "Items")
	if err := s.List.Err(); err != nil {
		page.Error = "The live item feed stopped; the list may be out of date."
	}
	if err := s.List.Render(w, s.Templates, page); err != nil {
		s.Log.Error("render.failed", zap.String("template", "items.html"), zap.Error(err))
	}
}

// CreateItemSubmit handles POST /items.
func (s *Server) CreateItemSubmit(w http.ResponseWriter, r *http.Request) {
	item, err := s.Items.CreateItem(r.Context(), models.Item{Title: r.FormValue("title")})
	if err != nil {
		page := s.page(r, "Items")
		page.Error = "Could not create the item."
		s.render(w, statusFor(err), "items.html", views.ListPage{PageData: page, Items: s.List.Items()})
		return
	}
	http.Redirect(w, r, "/items/"+item.ID, http.StatusSeeOther)
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.detailView(w, r)
	if !ok {
		return
	}
	s.renderDetail(w, r, http.StatusOK, v, "")
}

// TouchItem handles POST /items/{id}/timestamp.
func (s *Server) TouchItem(w http.ResponseWriter, r *http.Request) {
	v, ok := s.detailView(w, r)
	if !ok {
		return
	}
	if err := v.UpdateTimeStamp(r.Context()); err != nil {
		s.renderDetail(w, r, statusFor(err), v, "Could not save the item.")
		return
	}
	http.Redirect(w, r, "/items/"+v.Item.ID, http.StatusSeeOther)
}

// SetItemActive handles POST /items/{id}/active.
func (s *Server) SetItemActive(w http.ResponseWriter, r *http.Request) {
	v, ok := s.detailView(w, r)
	if !ok {
		return
	}
	active, err := strconv.ParseBool(r.FormValue("active"))
	if err != nil {
		s.renderDetail(w, r, http.StatusBadRequest, v, "Invalid active value.")
		return
	}
	if err := v.UpdateActive(r.Context(), active); err != nil {
		s.renderDetail(w, r, statusFor(err), v, "Could not save the item.")
		return
	}
	http.Redirect(w, r, "/items/"+v.Item.ID, http.StatusSeeOther)
}

// DeleteItemSubmit handles POST /items/{id}/delete.
func (s *Server) DeleteItemSubmit(w http.ResponseWriter, r *http.Request) {
	v, ok := s.detailView(w, r)
	if !ok {
		return
	}
	if err := v.DeleteItem(r.Context()); err != nil {
		s.renderDetail(w, r, statusFor(err), v, "Could not delete the item.")
		return
	}
	http.Redirect(w, r, s.home(), http.StatusSeeOther)
}

// detailView loads the addressed item into a DetailView. It writes the
// error response itself when it returns false.
func (s *Server) detailView(w http.ResponseWriter, r *http.Request) (*views.DetailView, bool) {
	item, err := s.Items.GetItemFresh(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			http.Error(w, "item not found", status)
		} else {
			s.Log.Error("item.get.failed", zap.String("id", mux.Vars(r)["id"]), zap.Error(err))
			http.Error(w, "internal error", status)
		}
		return nil, false
	}
	return views.NewDetailView(s.Items, item), true
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, status int, v *views.DetailView, msg string) {
	page := s.page(r, v.Item.Title)
	page.Error = msg
	var buf bytes.Buffer
	if err := v.Render(&buf, s.Templates, page); err != nil {
		s.Log.Error("render.failed", zap.String("template", "item_detail.html"), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// GetAllItems handles GET /api/items.
func (s *Server) GetAllItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.snapshot(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type createItemRequest struct {
	Title string `json:"title"`
}

// CreateItem handles POST /api/items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.Items.CreateItem(r.Context(), models.Item{Title: req.Title})
	if err != nil {
		jsonError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// GetItem handles GET /api/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.Items.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		jsonError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// itemDocument is the wire form of a full item. Every field except id
// must be present.
type itemDocument struct {
	ID        *string `json:"id"`
	Title     *string `json:"title"`
	Body      *string `json:"body"`
	Active    *bool   `json:"active"`
	TimeStamp *int64  `json:"timeStamp"`
}

var errPartialItem = errors.New("title, body, active and timeStamp are required")

func (d itemDocument) item() (models.Item, error) {
	if d.Title == nil || d.Body == nil || d.Active == nil || d.TimeStamp == nil {
		return models.Item{}, errPartialItem
	}
	item := models.Item{Title: *d.Title, Body: *d.Body, Active: *d.Active, TimeStamp: *d.TimeStamp}
	if d.ID != nil {
		item.ID = *d.ID
	}
	return item, nil
}

// UpdateItem handles PUT /api/items/{id}. The body replaces the stored
// item entirely.
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var doc itemDocument
	if err := dec.Decode(&doc); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := doc.item()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Items.UpdateItem(r.Context(), id, item); err != nil {
		jsonError(w, statusFor(err), err.Error())
		return
	}
	if item.ID == "" {
		item.ID = id
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.Items.DeleteItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		jsonError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}
