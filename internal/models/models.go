package models

import "time"

type User struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	Created  time.Time `json:"created"`
}

type Post struct {
	ID       string    `json:"id"`
	AuthorID string    `json:"author_id"`
	Body     string    `json:"body"`
	Created  time.Time `json:"created"`
}

type Follow struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
}
