package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"itemboard/auth"
	"itemboard/models"
	"itemboard/service"
	"itemboard/store"
	"itemboard/views"
)

// Server holds the dependencies shared by all handlers.
type Server struct {
	Items     *service.ItemService
	List      *views.ListView
	Templates *views.Templates
	Signer    *auth.Signer
	Accounts  auth.Accounts
	Log       *zap.Logger

	// HomePath is where browsers land after login and delete.
	HomePath string
}

func (s *Server) home() string {
	if s.HomePath == "" {
		return "/user-profile"
	}
	return s.HomePath
}

func (s *Server) page(r *http.Request, title string) views.PageData {
	return views.PageData{Title: title, User: auth.FromContext(r.Context()), ListPath: s.HomePath}
}

// render writes an HTML page with status.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.Templates.Render(w, name, data); err != nil {
		s.Log.Error("render.failed", zap.String("template", name), zap.Error(err))
	}
}

// Deny answers requests the guard rejected: API callers get 401 JSON,
// browsers are sent to the login page.
func (s *Server) Deny(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Healthz reports liveness.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// snapshot reads the current item set through a short-lived subscription.
func (s *Server) snapshot(ctx context.Context) ([]models.Item, error) {
	sub, err := s.Items.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Stop()
	select {
	case items, ok := <-sub.C:
		if !ok {
			if err := sub.Err(); err != nil {
				return nil, err
			}
			return nil, context.Canceled
		}
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// statusFor maps service and store errors to HTTP status codes.
func statusFor(err error) int {
	var werr *service.WriteError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidID), errors.Is(err, service.ErrIDMismatch):
		return http.StatusBadRequest
	case errors.As(err, &werr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
