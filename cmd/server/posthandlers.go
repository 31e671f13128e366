package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// newPostFormHandler renders the post composition form.
func (s *Server) newPostFormHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "new_post", pageData{})
}

// ownPostsHandler shows the caller's own posts. Anonymous callers get an
// empty page, never an error: with no owner id there is nothing to match.
func (s *Server) ownPostsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	posts, err := s.visibility.OwnPosts(callerID)
	if err != nil {
		logg.Error("http/posts", "Failed to load own posts", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "posts", pageData{Posts: posts})
}

// followerPostsHandler shows the posts of everyone who follows the caller,
// flattened follower by follower. Anonymous callers get an empty page.
func (s *Server) followerPostsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	posts, err := s.visibility.FollowerPosts(callerID)
	if err != nil {
		logg.Error("http/posts", "Failed to load followers' posts", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "posts", pageData{Posts: posts})
}

// allPostsHandler shows every post. Public.
func (s *Server) allPostsHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := s.visibility.AllPosts()
	if err != nil {
		logg.Error("http/posts", "Failed to load all posts", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "posts", pageData{Posts: posts})
}

// userPostsHandler shows the posts of the user named in the path. Public by
// design: no follow relationship or login is required.
func (s *Server) userPostsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	posts, err := s.visibility.PostsByUser(userID)
	if err != nil {
		logg.Error("http/posts", "Failed to load posts for user", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "posts", pageData{Posts: posts})
}

// createPostHandler stores a new post owned by the session user and publishes
// a post_created event for the feed fan-out worker. Anonymous submissions are
// rejected and sent to the login page.
func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/posts", "Anonymous post attempt rejected")
		setFlash(w, "alert", "You must be logged in to post")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		logg.Error("http/posts", "Invalid form body", err)
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	body := r.PostFormValue("body")
	if len(body) == 0 || len(body) > 1000 {
		logg.Info("http/posts", "Post body length invalid for user_id="+callerID)
		setFlash(w, "alert", "Post body must be 1-1000 characters")
		http.Redirect(w, r, "/posts/new", http.StatusSeeOther)
		return
	}

	post := models.Post{
		ID:       uuid.NewString(),
		AuthorID: callerID,
		Body:     body,
		Created:  time.Now(),
	}

	data, err := json.Marshal(post)
	if err != nil {
		logg.Error("http/posts", "Failed to marshal post", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Publish the post event for asynchronous feed fan-out.
	msg := kafka.Message{
		Key:   []byte("post_created"),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(msg); err != nil {
		logg.Error("http/posts", "Failed to write Kafka message", err)
		http.Error(w, "failed to publish post event", http.StatusInternalServerError)
		return
	}

	if err := s.store.AddPost(post); err != nil {
		logg.Error("http/posts", "Failed to save post", err)
		http.Error(w, "failed to save post", http.StatusInternalServerError)
		return
	}

	logg.Info("http/posts", "Post created successfully by user_id="+callerID)
	http.Redirect(w, r, "/posts/all", http.StatusSeeOther)
}

// feedHandler shows the caller's materialized home timeline, built by the
// fan-out worker. Anonymous callers get an empty page.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		s.render(w, r, "posts", pageData{})
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	posts, err := s.store.GetFeed(callerID, limit)
	if err != nil {
		logg.Error("http/feed", "Failed to get feed for user_id="+callerID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logg.Info("http/feed", "Feed retrieved for user_id="+callerID+" with limit="+strconv.Itoa(limit))
	s.render(w, r, "posts", pageData{Posts: posts})
}
