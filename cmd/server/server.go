package server

import (
	"context"
	"net/http"
	"time"

	appkafka "example.com/microblog/internal/broker"
	config "example.com/microblog/internal/init"
	"example.com/microblog/internal/logger"
	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/store"
	"example.com/microblog/internal/visibility"
)

type Server struct {
	store       store.StoreInterface
	kafkaWriter appkafka.KafkaWriter
	visibility  *visibility.Resolver
}

var logg = logger.New()

// routes builds the route table. Every route runs behind the session
// middleware; whether a caller is required is each handler's decision.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.homeHandler)

	// Auth
	mux.HandleFunc("GET /login", s.loginFormHandler)
	mux.HandleFunc("POST /login", s.loginHandler)
	mux.HandleFunc("GET /signup", s.signupFormHandler)
	mux.HandleFunc("POST /signup", s.signupHandler)
	mux.HandleFunc("GET /logout", s.logoutHandler)

	// Posts
	mux.HandleFunc("GET /posts/new", s.newPostFormHandler)
	mux.HandleFunc("GET /posts", s.ownPostsHandler)
	mux.HandleFunc("GET /posts/followers", s.followerPostsHandler)
	mux.HandleFunc("GET /posts/all", s.allPostsHandler)
	mux.HandleFunc("POST /posts", s.createPostHandler)
	mux.HandleFunc("GET /users/{user_id}/posts", s.userPostsHandler)
	mux.HandleFunc("GET /feed", s.feedHandler)

	// Users and the follow graph
	mux.HandleFunc("GET /users/all", s.allUsersHandler)
	mux.HandleFunc("GET /followees", s.followeesHandler)
	mux.HandleFunc("GET /followers", s.followersHandler)
	mux.HandleFunc("GET /users/{followee_id}/follow", s.followHandler)
	mux.HandleFunc("GET /users/{followee_id}/unfollow", s.unfollowHandler)

	return middleware.Session(mux)
}

// Run starts the HTTPS server with cookie-session routes and graceful shutdown.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, addr string) {
	s := &Server{
		store:       st,
		kafkaWriter: writer,
		visibility:  visibility.New(st),
	}

	cfg := config.Get()

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		logg.Info("server", "Starting HTTPS server on "+addr)
		if err := srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey); err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
