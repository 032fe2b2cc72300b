package routes

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"itemboard/auth"
	"itemboard/controllers"
	"itemboard/metrics"
)

// ListRoute names the route serving the live item list.
const ListRoute = "items.list"

// Route is one row of a route table.
type Route struct {
	Name    string
	Method  string
	Path    string
	Handler http.HandlerFunc
	// Guarded routes are only reachable through the auth guard.
	Guarded bool
}

// Primary is the full route table.
func Primary(s *controllers.Server) []Route {
	return []Route{
		{Name: "login.page", Method: http.MethodGet, Path: "/", Handler: s.LoginPage},
		{Name: "login.submit", Method: http.MethodPost, Path: "/login", Handler: s.LoginSubmit},
		{Name: "logout", Method: http.MethodPost, Path: "/logout", Handler: s.Logout},
		{Name: "profile", Method: http.MethodGet, Path: "/user-profile", Handler: s.Profile, Guarded: true},

		{Name: ListRoute, Method: http.MethodGet, Path: "/items", Handler: s.ItemsPage},
		{Name: "items.live", Method: http.MethodGet, Path: "/items/live", Handler: s.LiveItems},
		{Name: "items.create", Method: http.MethodPost, Path: "/items", Handler: s.CreateItemSubmit, Guarded: true},
		{Name: "items.detail", Method: http.MethodGet, Path: "/items/{id}", Handler: s.ItemDetailPage, Guarded: true},
		{Name: "items.timestamp", Method: http.MethodPost, Path: "/items/{id}/timestamp", Handler: s.TouchItem, Guarded: true},
		{Name: "items.active", Method: http.MethodPost, Path: "/items/{id}/active", Handler: s.SetItemActive, Guarded: true},
		{Name: "items.delete", Method: http.MethodPost, Path: "/items/{id}/delete", Handler: s.DeleteItemSubmit, Guarded: true},

		{Name: "api.login", Method: http.MethodPost, Path: "/api/login", Handler: s.APILogin},
		{Name: "api.items.list", Method: http.MethodGet, Path: "/api/items", Handler: s.GetAllItems, Guarded: true},
		{Name: "api.items.create", Method: http.MethodPost, Path: "/api/items", Handler: s.CreateItem, Guarded: true},
		{Name: "api.items.get", Method: http.MethodGet, Path: "/api/items/{id}", Handler: s.GetItem, Guarded: true},
		{Name: "api.items.update", Method: http.MethodPut, Path: "/api/items/{id}", Handler: s.UpdateItem, Guarded: true},
		{Name: "api.items.delete", Method: http.MethodDelete, Path: "/api/items/{id}", Handler: s.DeleteItem, Guarded: true},

		{Name: "healthz", Method: http.MethodGet, Path: "/healthz", Handler: s.Healthz},
		{Name: "metrics", Method: http.MethodGet, Path: "/metrics", Handler: metrics.Handler().ServeHTTP},
	}
}

// Compact is Primary without the item list page.
func Compact(s *controllers.Server) []Route {
	var out []Route
	for _, rt := range Primary(s) {
		if rt.Name != ListRoute {
			out = append(out, rt)
		}
	}
	return out
}

// Table returns the named route table.
func Table(name string, s *controllers.Server) ([]Route, error) {
	switch name {
	case "", "primary":
		return Primary(s), nil
	case "compact":
		return Compact(s), nil
	default:
		return nil, fmt.Errorf("unknown route table %q", name)
	}
}

// SetupRoutes registers table on a new router. Guarded rows go through
// guard; rejected requests are answered by s.Deny.
func SetupRoutes(table []Route, guard auth.Guard, s *controllers.Server) *mux.Router {
	r := mux.NewRouter()
	s.HomePath = ""
	for _, rt := range table {
		var h http.Handler = rt.Handler
		if rt.Guarded {
			h = auth.Protect(guard, http.HandlerFunc(s.Deny), h)
		}
		r.Handle(rt.Path, h).Methods(rt.Method).Name(rt.Name)
		if rt.Name == ListRoute {
			s.HomePath = rt.Path
		}
	}
	return r
}
