package store

import (
	"errors"
	"fmt"

	"example.com/microblog/internal/models"
)

var mockUserCounter int

// MockStore simulates the Cassandra store in memory for testing.
// Slices preserve insertion order so ordering guarantees can be asserted.
type MockStore struct {
	Users      []models.User
	Followers  map[string][]string // followee -> followers, in follow order
	Followees  map[string][]string // follower -> followees, in follow order
	Posts      map[string][]models.Post
	AllPosts   []models.Post
	Feed       map[string][]models.Post
	ShouldFail bool // flag to simulate failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Followers: make(map[string][]string),
		Followees: make(map[string][]string),
		Posts:     make(map[string][]models.Post),
		Feed:      make(map[string][]models.Post),
	}
}

func (m *MockStore) Close() {}

// CreateUser simulates registering a new user. Duplicate emails still create
// user rows; lookup keeps first-match-wins semantics.
func (m *MockStore) CreateUser(email, password string) (string, error) {
	if m.ShouldFail {
		return "", errors.New("mock: create user failed")
	}
	mockUserCounter++
	id := fmt.Sprintf("user_%d", mockUserCounter)
	m.Users = append(m.Users, models.User{ID: id, Email: email, Password: password})
	return id, nil
}

// GetUserByEmail returns the first user registered under the email, or nil.
func (m *MockStore) GetUserByEmail(email string) (*models.User, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get user by email failed")
	}
	for i := range m.Users {
		if m.Users[i].Email == email {
			u := m.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// GetUserByID returns the user with the given id, or nil.
func (m *MockStore) GetUserByID(id string) (*models.User, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get user by id failed")
	}
	for i := range m.Users {
		if m.Users[i].ID == id {
			u := m.Users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// ListUsers returns all users in registration order.
func (m *MockStore) ListUsers() ([]models.User, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: list users failed")
	}
	return append([]models.User(nil), m.Users...), nil
}

// CreateFollow simulates creating a follow edge with set semantics:
// repeating a follow does not add a second edge.
func (m *MockStore) CreateFollow(followerID, followeeID string) error {
	if m.ShouldFail {
		return errors.New("mock: follow failed")
	}
	for _, f := range m.Followers[followeeID] {
		if f == followerID {
			return nil
		}
	}
	m.Followers[followeeID] = append(m.Followers[followeeID], followerID)
	m.Followees[followerID] = append(m.Followees[followerID], followeeID)
	return nil
}

// DeleteFollow removes a follow edge; removing a missing edge is a no-op.
func (m *MockStore) DeleteFollow(followerID, followeeID string) error {
	if m.ShouldFail {
		return errors.New("mock: unfollow failed")
	}
	m.Followers[followeeID] = remove(m.Followers[followeeID], followerID)
	m.Followees[followerID] = remove(m.Followees[followerID], followeeID)
	return nil
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// GetFollowers returns all followers of a given user
func (m *MockStore) GetFollowers(userID string) ([]string, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get followers failed")
	}
	return m.Followers[userID], nil
}

// GetFollowees returns all users the given user follows
func (m *MockStore) GetFollowees(userID string) ([]string, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get followees failed")
	}
	return m.Followees[userID], nil
}

// AddPost simulates adding a post
func (m *MockStore) AddPost(post models.Post) error {
	if m.ShouldFail {
		return errors.New("mock: add post failed")
	}
	m.Posts[post.AuthorID] = append(m.Posts[post.AuthorID], post)
	m.AllPosts = append(m.AllPosts, post)
	return nil
}

// GetPostsByAuthor returns the author's posts in creation order
func (m *MockStore) GetPostsByAuthor(authorID string) ([]models.Post, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get posts by author failed")
	}
	return m.Posts[authorID], nil
}

// GetAllPosts returns every post in insertion order
func (m *MockStore) GetAllPosts() ([]models.Post, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get all posts failed")
	}
	return append([]models.Post(nil), m.AllPosts...), nil
}

// AddToFeed simulates adding a post to a user's materialized feed
func (m *MockStore) AddToFeed(userID string, post models.Post) error {
	if m.ShouldFail {
		return errors.New("mock: add to feed failed")
	}
	m.Feed[userID] = append(m.Feed[userID], post)
	return nil
}

// GetFeed retrieves a user's feed with an optional limit
func (m *MockStore) GetFeed(userID string, limit int) ([]models.Post, error) {
	if m.ShouldFail {
		return nil, errors.New("mock: get feed failed")
	}
	posts := m.Feed[userID]
	if len(posts) > limit {
		return posts[:limit], nil
	}
	return posts, nil
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) CreateUser(email, password string) (string, error) {
	return "", errors.New("mock store create user failed")
}

func (m *MockStoreFail) GetUserByEmail(email string) (*models.User, error) {
	return nil, errors.New("mock store get user by email failed")
}

func (m *MockStoreFail) GetUserByID(id string) (*models.User, error) {
	return nil, errors.New("mock store get user by id failed")
}

func (m *MockStoreFail) ListUsers() ([]models.User, error) {
	return nil, errors.New("mock store list users failed")
}

func (m *MockStoreFail) CreateFollow(followerID, followeeID string) error {
	return errors.New("mock store create follow failed")
}

func (m *MockStoreFail) DeleteFollow(followerID, followeeID string) error {
	return errors.New("mock store delete follow failed")
}

func (m *MockStoreFail) GetFollowers(userID string) ([]string, error) {
	return nil, errors.New("mock store get followers failed")
}

func (m *MockStoreFail) GetFollowees(userID string) ([]string, error) {
	return nil, errors.New("mock store get followees failed")
}

func (m *MockStoreFail) AddPost(post models.Post) error {
	return errors.New("mock store add post failed")
}

func (m *MockStoreFail) GetPostsByAuthor(authorID string) ([]models.Post, error) {
	return nil, errors.New("mock store get posts by author failed")
}

func (m *MockStoreFail) GetAllPosts() ([]models.Post, error) {
	return nil, errors.New("mock store get all posts failed")
}

func (m *MockStoreFail) AddToFeed(userID string, post models.Post) error {
	return errors.New("mock store add to feed failed")
}

func (m *MockStoreFail) GetFeed(userID string, limit int) ([]models.Post, error) {
	return nil, errors.New("mock store get feed failed")
}
