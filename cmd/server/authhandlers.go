package server

import (
	"net/http"

	"example.com/microblog/internal/middleware"
)

// homeHandler renders the home page.
func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index", pageData{})
}

// loginFormHandler renders the login form.
func (s *Server) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", pageData{})
}

// loginHandler checks the submitted credentials against the identity store.
// On a match it sets the session identity and redirects home; on a mismatch it
// redirects back to the login form without touching the session.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logg.Error("http/login", "Invalid form body", err)
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		logg.Error("http/login", "Failed to query user by email", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Plaintext equality, matching the classroom credential model. An unknown
	// email and a wrong password are treated identically.
	if user == nil || user.Password != password {
		logg.Info("http/login", "Failed login attempt for email="+email)
		setFlash(w, "alert", "Your password is incorrect")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := middleware.IssueSession(w, user.ID); err != nil {
		logg.Error("http/login", "Failed to issue session", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logg.Info("http/login", "User logged in with user_id="+user.ID)
	setFlash(w, "info", "You are now logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// signupFormHandler renders the signup form.
func (s *Server) signupFormHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup", pageData{})
}

// signupHandler creates a user and logs them straight in.
func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logg.Error("http/signup", "Invalid form body", err)
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	if email == "" || password == "" {
		setFlash(w, "alert", "Email and password are required")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	userID, err := s.store.CreateUser(email, password)
	if err != nil {
		logg.Error("http/signup", "Failed to create user", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := middleware.IssueSession(w, userID); err != nil {
		logg.Error("http/signup", "Failed to issue session", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logg.Info("http/signup", "User signed up with user_id="+userID)
	setFlash(w, "info", "You are now signed up and logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logoutHandler clears the session identity.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSession(w)
	setFlash(w, "info", "You are now logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
