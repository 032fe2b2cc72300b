package controllers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"itemboard/auth"
)

// LoginPage handles GET /.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login.html", s.page(r, "Log in"))
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	if !s.Accounts.Verify(username, r.FormValue("password")) {
		page := s.page(r, "Log in")
		page.Error = "Wrong username or password."
		s.render(w, http.StatusUnauthorized, "login.html", page)
		return
	}
	tok, err := s.Signer.Sign(username)
	if err != nil {
		s.Log.Error("login.sign.failed", zap.Error(err))
		page := s.page(r, "Log in")
		page.Error = "Login failed."
		s.render(w, http.StatusInternalServerError, "login.html", page)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})
	s.Log.Info("login", zap.String("user", username))
	http.Redirect(w, r, s.home(), http.StatusSeeOther)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APILogin handles POST /api/login and returns a bearer token.
func (s *Server) APILogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.Accounts.Verify(req.Username, req.Password) {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	tok, err := s.Signer.Sign(req.Username)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Profile handles GET /user-profile.
func (s *Server) Profile(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "profile.html", s.page(r, "Profile"))
}
