package visibility

import (
	"example.com/microblog/internal/models"
	"example.com/microblog/internal/store"
)

// Resolver computes which posts a given caller may see for each query intent.
// The caller id is passed explicitly; an empty id means "no current user" and
// is always a normal case, never an error.
type Resolver struct {
	store store.StoreInterface
}

func New(st store.StoreInterface) *Resolver {
	return &Resolver{store: st}
}

// OwnPosts returns the caller's own posts in creation order.
// With no caller there is no owner to match, so the result is empty.
func (r *Resolver) OwnPosts(callerID string) ([]models.Post, error) {
	if callerID == "" {
		return nil, nil
	}
	return r.store.GetPostsByAuthor(callerID)
}

// FollowerPosts returns the posts of everyone who follows the caller,
// concatenated follower by follower with each follower's posts in creation
// order. Followers with no posts contribute nothing. Posts are never
// deduplicated: each post has exactly one owner, so no duplicate can occur.
func (r *Resolver) FollowerPosts(callerID string) ([]models.Post, error) {
	if callerID == "" {
		return nil, nil
	}

	followers, err := r.store.GetFollowers(callerID)
	if err != nil {
		return nil, err
	}

	var res []models.Post
	for _, followerID := range followers {
		posts, err := r.store.GetPostsByAuthor(followerID)
		if err != nil {
			return nil, err
		}
		res = append(res, posts...)
	}
	return res, nil
}

// AllPosts returns every post. Public: no caller required, no ordering
// guarantee across authors.
func (r *Resolver) AllPosts() ([]models.Post, error) {
	return r.store.GetAllPosts()
}

// PostsByUser returns the posts of the given user in creation order.
// Public by design: no follow relationship or login is required to view
// another user's posts.
func (r *Resolver) PostsByUser(userID string) ([]models.Post, error) {
	return r.store.GetPostsByAuthor(userID)
}
