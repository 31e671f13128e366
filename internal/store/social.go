package store

import (
	"time"

	"example.com/microblog/internal/models"
	"github.com/gocql/gocql"
)

// --- User operations ---

// GetUserByEmail returns the user registered under the given email.
// The first registration of an email wins the lookup key; later signups with
// the same email still create user rows but never change who logs in.
// If no user exists for the email, it returns nil without an error.
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var id, password string
	var created time.Time
	err := s.Session.Query(
		`SELECT user_id, password, created_at FROM users_by_email WHERE email = ?`,
		email,
	).Scan(&id, &password, &created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		logg.Error("store", "Failed to query user by email", err)
		return nil, err
	}
	return &models.User{ID: id, Email: email, Password: password, Created: created}, nil
}

// GetUserByID returns the user with the given id, or nil without an error
// when the id resolves to nothing (e.g. a stale session).
func (s *Store) GetUserByID(id string) (*models.User, error) {
	var email, password string
	var created time.Time
	err := s.Session.Query(
		`SELECT email, password, created_at FROM users WHERE user_id = ?`,
		id,
	).Scan(&email, &password, &created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		logg.Error("store", "Failed to query user by id", err)
		return nil, err
	}
	return &models.User{ID: id, Email: email, Password: password, Created: created}, nil
}

// CreateUser registers a new user and returns its id. The email lookup entry
// is claimed with CAS so that the first registration keeps the login key.
func (s *Store) CreateUser(email, password string) (string, error) {
	id := gocql.TimeUUID().String()
	now := time.Now()

	// Claim the email lookup entry. If it is already taken the insert is not
	// applied, which preserves first-match-wins login semantics.
	result := make(map[string]interface{})
	_, err := s.Session.Query(`
		INSERT INTO users_by_email (email, user_id, password, created_at)
		VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		email, id, password, now,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create email entry", err)
		return "", err
	}

	// Insert into main users table
	err = s.Session.Query(`
		INSERT INTO users (user_id, email, password, created_at)
		VALUES (?, ?, ?, ?)`,
		id, email, password, now,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		return "", err
	}

	logg.Info("store", "User created successfully (email anonymized)")
	return id, nil
}

// ListUsers returns all registered users.
func (s *Store) ListUsers() ([]models.User, error) {
	iter := s.Session.Query(
		`SELECT user_id, email, created_at FROM users`,
	).Iter()

	var id, email string
	var created time.Time
	var res []models.User
	for iter.Scan(&id, &email, &created) {
		res = append(res, models.User{ID: id, Email: email, Created: created})
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list users", err)
		return nil, err
	}
	return res, nil
}

// --- Follow operations ---

// CreateFollow inserts a follow edge. The edge tables are keyed by the ordered
// pair, so repeating a follow is an idempotent upsert rather than a duplicate.
func (s *Store) CreateFollow(followerID, followeeID string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`INSERT INTO follows (follower_id, followee_id) VALUES (?, ?)`, followerID, followeeID)
	batch.Query(`INSERT INTO followers_by_followee (followee_id, follower_id) VALUES (?, ?)`, followeeID, followerID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to create follow relationship", err)
		return err
	}

	logg.Info("store", "Follow relationship created (user IDs anonymized)")
	return nil
}

// DeleteFollow removes a follow edge. Deleting an edge that does not exist is
// a no-op, never an error.
func (s *Store) DeleteFollow(followerID, followeeID string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	batch.Query(`DELETE FROM followers_by_followee WHERE followee_id = ? AND follower_id = ?`, followeeID, followerID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete follow relationship", err)
		return err
	}

	logg.Info("store", "Follow relationship removed (user IDs anonymized)")
	return nil
}

// GetFollowers returns the ids of users following the given user.
func (s *Store) GetFollowers(userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT follower_id FROM followers_by_followee WHERE followee_id = ?`,
		userID,
	).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get followers", err)
		return nil, err
	}
	return res, nil
}

// GetFollowees returns the ids of users the given user follows.
func (s *Store) GetFollowees(userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT followee_id FROM follows WHERE follower_id = ?`,
		userID,
	).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get followees", err)
		return nil, err
	}
	return res, nil
}

// --- Post operations ---

// AddPost stores a post in the global posts table and in the author's
// time-ordered partition.
func (s *Store) AddPost(post models.Post) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO posts (post_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.Body, post.Created,
	)
	batch.Query(`
		INSERT INTO posts_by_author (author_id, created_at, post_id, body)
		VALUES (?, ?, ?, ?)`,
		post.AuthorID, post.Created, post.ID, post.Body,
	)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add post", err)
		return err
	}

	logg.Info("store", "Post added (post content anonymized)")
	return nil
}

// GetPostsByAuthor returns the author's posts in creation-time order.
// An unknown author id simply yields an empty result.
func (s *Store) GetPostsByAuthor(authorID string) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id, body, created_at
		FROM posts_by_author WHERE author_id = ?`,
		authorID,
	).Iter()

	var res []models.Post
	var pid, body string
	var created time.Time

	for iter.Scan(&pid, &body, &created) {
		res = append(res, models.Post{
			ID:       pid,
			AuthorID: authorID,
			Body:     body,
			Created:  created,
		})
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to retrieve posts by author", err)
		return nil, err
	}
	return res, nil
}

// GetAllPosts returns every post. No cross-author ordering is guaranteed.
func (s *Store) GetAllPosts() ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id, author_id, body, created_at FROM posts`,
	).Iter()

	var res []models.Post
	var pid, aid, body string
	var created time.Time

	for iter.Scan(&pid, &aid, &body, &created) {
		res = append(res, models.Post{
			ID:       pid,
			AuthorID: aid,
			Body:     body,
			Created:  created,
		})
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to retrieve all posts", err)
		return nil, err
	}
	return res, nil
}

// --- Materialized feed operations ---

func (s *Store) AddToFeed(userID string, post models.Post) error {
	if err := s.Session.Query(`
		INSERT INTO feed_by_user (user_id, created_at, post_id, author_id, body)
		VALUES (?, ?, ?, ?, ?)`,
		userID, post.Created, post.ID, post.AuthorID, post.Body,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add post to feed", err)
		return err
	}

	logg.Info("store", "Post added to user's feed (IDs and content anonymized)")
	return nil
}

// GetFeed returns the user's materialized timeline, newest first.
func (s *Store) GetFeed(userID string, limit int) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id, author_id, body, created_at
		FROM feed_by_user WHERE user_id = ? LIMIT ?`,
		userID, limit,
	).Iter()

	var res []models.Post
	var pid, aid string
	var body string
	var created time.Time

	for iter.Scan(&pid, &aid, &body, &created) {
		res = append(res, models.Post{
			ID:       pid,
			AuthorID: aid,
			Body:     body,
			Created:  created,
		})
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to retrieve user feed", err)
		return nil, err
	}
	return res, nil
}
