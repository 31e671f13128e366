package server

import (
	"net/http"

	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/models"
)

// allUsersHandler lists every registered user. Public.
func (s *Server) allUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers()
	if err != nil {
		logg.Error("http/users", "Failed to list users", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "users", pageData{Users: users})
}

// resolveUsers maps ids to user records, skipping ids that no longer resolve.
func (s *Server) resolveUsers(ids []string) ([]models.User, error) {
	var users []models.User
	for _, id := range ids {
		user, err := s.store.GetUserByID(id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	return users, nil
}

// followeesHandler lists the users the caller follows.
// Anonymous callers get an empty list.
func (s *Server) followeesHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		s.render(w, r, "users", pageData{})
		return
	}

	ids, err := s.store.GetFollowees(callerID)
	if err != nil {
		logg.Error("http/followees", "Failed to get followees", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	users, err := s.resolveUsers(ids)
	if err != nil {
		logg.Error("http/followees", "Failed to resolve followees", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "users", pageData{Users: users})
}

// followersHandler lists the users following the caller.
// Anonymous callers get an empty list.
func (s *Server) followersHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		s.render(w, r, "followers", pageData{})
		return
	}

	ids, err := s.store.GetFollowers(callerID)
	if err != nil {
		logg.Error("http/followers", "Failed to get followers", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	users, err := s.resolveUsers(ids)
	if err != nil {
		logg.Error("http/followers", "Failed to resolve followers", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "followers", pageData{Users: users})
}

// followHandler creates a follow edge from the caller to the user in the
// path. The edge tables have set semantics, so repeating a follow is a no-op.
// Self-follow is rejected.
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/follow", "Anonymous follow attempt rejected")
		setFlash(w, "alert", "You must be logged in to follow users")
		http.Redirect(w, r, "/users/all", http.StatusSeeOther)
		return
	}

	followeeID := r.PathValue("followee_id")
	if followeeID == callerID {
		setFlash(w, "alert", "You cannot follow yourself")
		http.Redirect(w, r, "/users/all", http.StatusSeeOther)
		return
	}

	if err := s.store.CreateFollow(callerID, followeeID); err != nil {
		logg.Error("http/follow", "Failed to create follow relationship", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logg.Info("http/follow", "User "+callerID+" followed "+followeeID)
	http.Redirect(w, r, "/users/all", http.StatusSeeOther)
}

// unfollowHandler removes the follow edge from the caller to the user in the
// path. Removing an edge that never existed is a safe no-op.
func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/unfollow", "Anonymous unfollow attempt ignored")
		http.Redirect(w, r, "/users/all", http.StatusSeeOther)
		return
	}

	followeeID := r.PathValue("followee_id")
	if err := s.store.DeleteFollow(callerID, followeeID); err != nil {
		logg.Error("http/unfollow", "Failed to delete follow relationship", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logg.Info("http/unfollow", "User "+callerID+" unfollowed "+followeeID)
	http.Redirect(w, r, "/users/all", http.StatusSeeOther)
}
