package server

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	appkafka "example.com/microblog/internal/broker"
	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/store"
	"example.com/microblog/internal/visibility"
)

//
// --- Setup test server ---
//

func setupTestServer(t *testing.T) (*store.MockStore, *httptest.Server) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-secret")

	mockStore := store.NewMock()
	s := &Server{
		store:       mockStore,
		kafkaWriter: &appkafka.MockKafka{Store: mockStore},
		visibility:  visibility.New(mockStore),
	}
	return mockStore, httptest.NewServer(s.routes())
}

//
// --- Helpers ---
//

// newClient returns an HTTP client with its own cookie jar, acting as one
// browser session.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New failed: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// submitForm posts a form and follows redirects to the final page.
func submitForm(t *testing.T, client *http.Client, target string, form url.Values) string {
	t.Helper()
	resp, err := client.PostForm(target, form)
	if err != nil {
		t.Fatalf("PostForm %s failed: %v", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PostForm %s: expected 200 after redirects, got %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	return string(body)
}

// getPage fetches a page and returns its HTML.
func getPage(t *testing.T, client *http.Client, target string) string {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("GET %s failed: %v", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	return string(body)
}

// signup registers a user through the form flow, leaving the session cookie
// in the client's jar, and returns the created user's id.
func signup(t *testing.T, st *store.MockStore, ts *httptest.Server, client *http.Client, email, password string) string {
	t.Helper()
	submitForm(t, client, ts.URL+"/signup", url.Values{
		"email":    {email},
		"password": {password},
	})

	user, err := st.GetUserByEmail(email)
	if err != nil || user == nil {
		t.Fatalf("signup did not create user %s: %v", email, err)
	}
	return user.ID
}

//
// --- Tests ---
//

// Sign up, post, and check visibility: the author sees the post on "my
// posts", and it is publicly visible on "all posts" even to anonymous
// visitors.
func TestSignupPostAndVisibility(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	alice := newClient(t)
	bob := newClient(t)
	signup(t, st, ts, alice, "a@x.com", "pw1")
	signup(t, st, ts, bob, "b@x.com", "pw2")

	page := submitForm(t, alice, ts.URL+"/posts", url.Values{"body": {"hello"}})
	if !strings.Contains(page, "hello") {
		t.Fatalf("expected /posts/all to show the new post, got:\n%s", page)
	}

	if page := getPage(t, alice, ts.URL+"/posts"); !strings.Contains(page, "hello") {
		t.Fatalf("expected author's own posts to contain the post, got:\n%s", page)
	}

	// b has no posts of their own
	if page := getPage(t, bob, ts.URL+"/posts"); strings.Contains(page, "hello") {
		t.Fatalf("foreign post leaked into b's own posts:\n%s", page)
	}

	// Anonymous visitors see the post on the public page
	anon := newClient(t)
	if page := getPage(t, anon, ts.URL+"/posts/all"); !strings.Contains(page, "hello") {
		t.Fatalf("expected anonymous /posts/all to contain the post, got:\n%s", page)
	}
}

// Followers' posts: after b follows a, b's posts appear on a's followers
// page, while a's own posts stay empty.
func TestFollowerPostsFlow(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	alice := newClient(t)
	bob := newClient(t)
	aliceID := signup(t, st, ts, alice, "a@x.com", "pw1")
	signup(t, st, ts, bob, "b@x.com", "pw2")

	// b follows a, then posts
	getPage(t, bob, ts.URL+"/users/"+aliceID+"/follow")
	submitForm(t, bob, ts.URL+"/posts", url.Values{"body": {"hi"}})

	if page := getPage(t, alice, ts.URL+"/posts/followers"); !strings.Contains(page, "hi") {
		t.Fatalf("expected follower's post on a's followers page, got:\n%s", page)
	}
	if page := getPage(t, alice, ts.URL+"/posts"); strings.Contains(page, "hi") {
		t.Fatalf("a has no own posts, but got:\n%s", page)
	}
}

// Wrong password redirects back to the login form and sets no session.
func TestLoginWrongPassword(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	signupClient := newClient(t)
	signup(t, st, ts, signupClient, "a@x.com", "pw1")

	// Client that does not follow redirects, to inspect the login response.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.PostForm(ts.URL+"/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("PostForm failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			t.Fatalf("session cookie must not be set on failed login")
		}
	}
}

// Correct password logs in and the session survives across requests.
func TestLoginAndSession(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	signupClient := newClient(t)
	signup(t, st, ts, signupClient, "a@x.com", "pw1")

	client := newClient(t)
	page := submitForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"pw1"},
	})
	if !strings.Contains(page, "You are now logged in") {
		t.Fatalf("expected login flash, got:\n%s", page)
	}

	if page := getPage(t, client, ts.URL+"/"); !strings.Contains(page, "a@x.com") {
		t.Fatalf("expected session to persist across requests, got:\n%s", page)
	}
}

// Logout clears the session identity.
func TestLogout(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	client := newClient(t)
	signup(t, st, ts, client, "a@x.com", "pw1")

	getPage(t, client, ts.URL+"/logout")

	if page := getPage(t, client, ts.URL+"/"); strings.Contains(page, "Log out") {
		t.Fatalf("expected anonymous home page after logout, got:\n%s", page)
	}
}

// "My posts" with no session renders an empty page, never an error.
func TestOwnPostsAnonymous(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	client := newClient(t)
	signup(t, st, ts, client, "a@x.com", "pw1")
	submitForm(t, client, ts.URL+"/posts", url.Values{"body": {"hello"}})

	anon := newClient(t)
	page := getPage(t, anon, ts.URL+"/posts")
	if strings.Contains(page, "hello") {
		t.Fatalf("anonymous caller must see no posts on /posts, got:\n%s", page)
	}
}

// Anonymous post submission is rejected and sent to the login page.
func TestCreatePostAnonymous(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	anon := newClient(t)
	page := submitForm(t, anon, ts.URL+"/posts", url.Values{"body": {"sneaky"}})
	if !strings.Contains(page, "logged in to post") {
		t.Fatalf("expected login redirect with alert, got:\n%s", page)
	}

	posts, _ := st.GetAllPosts()
	if len(posts) != 0 {
		t.Fatalf("anonymous post must not be created, got: %+v", posts)
	}
}

// Post body validation: empty bodies are rejected.
func TestCreatePostEmptyBody(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	client := newClient(t)
	signup(t, st, ts, client, "a@x.com", "pw1")

	submitForm(t, client, ts.URL+"/posts", url.Values{"body": {""}})

	posts, _ := st.GetAllPosts()
	if len(posts) != 0 {
		t.Fatalf("empty post must not be created, got: %+v", posts)
	}
}

// Follow and unfollow maintain the edge lists shown on /followees and
// /followers, and unfollowing without a prior edge is a safe no-op.
func TestFollowUnfollowFlow(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	alice := newClient(t)
	bob := newClient(t)
	aliceID := signup(t, st, ts, alice, "a@x.com", "pw1")
	bobID := signup(t, st, ts, bob, "b@x.com", "pw2")

	getPage(t, alice, ts.URL+"/users/"+bobID+"/follow")

	if page := getPage(t, alice, ts.URL+"/followees"); !strings.Contains(page, "b@x.com") {
		t.Fatalf("expected b on a's followees page, got:\n%s", page)
	}
	if page := getPage(t, bob, ts.URL+"/followers"); !strings.Contains(page, "a@x.com") {
		t.Fatalf("expected a on b's followers page, got:\n%s", page)
	}

	// Repeating the follow keeps a single edge
	getPage(t, alice, ts.URL+"/users/"+bobID+"/follow")
	followees, _ := st.GetFollowees(aliceID)
	if len(followees) != 1 {
		t.Fatalf("expected one edge after repeated follow, got: %v", followees)
	}

	getPage(t, alice, ts.URL+"/users/"+bobID+"/unfollow")
	if page := getPage(t, alice, ts.URL+"/followees"); strings.Contains(page, "b@x.com") {
		t.Fatalf("expected edge removed, got:\n%s", page)
	}

	// Unfollow without a prior edge must not fail
	getPage(t, alice, ts.URL+"/users/"+bobID+"/unfollow")
}

// Self-follow is rejected.
func TestSelfFollowRejected(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	client := newClient(t)
	userID := signup(t, st, ts, client, "a@x.com", "pw1")

	page := getPage(t, client, ts.URL+"/users/"+userID+"/follow")
	if !strings.Contains(page, "cannot follow yourself") {
		t.Fatalf("expected self-follow alert, got:\n%s", page)
	}

	followees, _ := st.GetFollowees(userID)
	if len(followees) != 0 {
		t.Fatalf("self-follow must not create an edge, got: %v", followees)
	}
}

// Posts by user X are public: no login or follow relationship required.
func TestUserPostsPublic(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	client := newClient(t)
	userID := signup(t, st, ts, client, "a@x.com", "pw1")
	submitForm(t, client, ts.URL+"/posts", url.Values{"body": {"open to all"}})

	anon := newClient(t)
	if page := getPage(t, anon, ts.URL+"/users/"+userID+"/posts"); !strings.Contains(page, "open to all") {
		t.Fatalf("expected public user posts page, got:\n%s", page)
	}
}

// The materialized feed: a follows b, b posts, the fan-out (synchronous in
// the mock broker) delivers the post into a's feed.
func TestFeedFanout(t *testing.T) {
	st, ts := setupTestServer(t)
	defer ts.Close()

	alice := newClient(t)
	bob := newClient(t)
	signup(t, st, ts, alice, "a@x.com", "pw1")
	bobID := signup(t, st, ts, bob, "b@x.com", "pw2")

	getPage(t, alice, ts.URL+"/users/"+bobID+"/follow")
	submitForm(t, bob, ts.URL+"/posts", url.Values{"body": {"fresh from b"}})

	if page := getPage(t, alice, ts.URL+"/feed"); !strings.Contains(page, "fresh from b") {
		t.Fatalf("expected fanned-out post in a's feed, got:\n%s", page)
	}

	// b does not follow a, so b's own feed stays empty
	if page := getPage(t, bob, ts.URL+"/feed"); strings.Contains(page, "fresh from b") {
		t.Fatalf("post must not appear in the author's feed, got:\n%s", page)
	}
}

// Store failures surface as 500s rather than panics.
func TestStoreFailure(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	failStore := &store.MockStoreFail{}
	s := &Server{
		store:       failStore,
		kafkaWriter: &appkafka.MockKafkaFail{},
		visibility:  visibility.New(failStore),
	}
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/posts/all")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 from failing store, got %d", resp.StatusCode)
	}
}
