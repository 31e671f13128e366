package server

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// flashCookie carries a one-shot message to the next rendered page.
const flashCookie = "microblog_flash"

type flashMessage struct {
	Kind    string // "info" or "alert"
	Message string
}

type pageData struct {
	CurrentUser *models.User
	Flash       *flashMessage
	Posts       []models.Post
	Users       []models.User
}

// setFlash queues a message for the next page render.
func setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + ":" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	})
}

// popFlash reads and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *flashMessage {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok {
		return nil
	}
	return &flashMessage{Kind: kind, Message: message}
}

// currentUser resolves the session identity to a user record. A missing or
// stale identity yields nil, which every caller treats as "not logged in".
func (s *Server) currentUser(r *http.Request) *models.User {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		logg.Error("render", "Failed to resolve session user", err)
		return nil
	}
	return user
}

// render writes the named page template with the shared page data filled in.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.CurrentUser = s.currentUser(r)
	data.Flash = popFlash(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		logg.Error("render", "Failed to render template "+name, err)
	}
}
