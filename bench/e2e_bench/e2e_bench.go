package main

import (
	"crypto/tls"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// benchUser is one signed-up browser session plus its scraped user id.
type benchUser struct {
	email  string
	id     string
	client *http.Client
}

func main() {
	// CLI flags
	var serverAddr string
	var U, F, P, concurrency int
	var pollTimeout int

	flag.StringVar(&serverAddr, "server", "https://localhost:8080", "server base URL")
	flag.IntVar(&U, "users", 50, "number of users to create")
	flag.IntVar(&F, "follows", 10, "average follows per user")
	flag.IntVar(&P, "posts", 100, "number of posts to publish")
	flag.IntVar(&concurrency, "c", 20, "concurrency for posting")
	flag.IntVar(&pollTimeout, "timeout", 10, "seconds to wait for post delivery")
	flag.Parse()

	// --- 1) Sign up users ---
	fmt.Printf("Signing up %d users...\n", U)
	users := make([]*benchUser, 0, U)
	for i := 0; i < U; i++ {
		u := &benchUser{
			email:  fmt.Sprintf("user-%d-%d@bench.local", i, time.Now().UnixNano()),
			client: newTLSClient(),
		}
		form := url.Values{"email": {u.email}, "password": {"bench-password"}}
		resp, err := u.client.PostForm(serverAddr+"/signup", form)
		if err != nil {
			fmt.Printf("signup error: %v\n", err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		users = append(users, u)
	}
	if len(users) < 2 {
		fmt.Println("not enough users signed up, aborting")
		return
	}

	// --- 2) Scrape user ids from the public users page ---
	// The users listing links every user as /users/{id}/posts, which is the
	// only place the HTML app exposes ids.
	if err := scrapeUserIDs(serverAddr, users); err != nil {
		fmt.Printf("failed to scrape user ids: %v\n", err)
		return
	}

	// --- 3) Build a random follow graph ---
	fmt.Printf("Creating ~%d follows per user...\n", F)
	followersOf := make(map[string][]*benchUser) // followee id -> followers
	for _, u := range users {
		for j := 0; j < F; j++ {
			followee := users[rand.Intn(len(users))]
			if followee.id == u.id {
				continue
			}
			resp, err := u.client.Get(serverAddr + "/users/" + followee.id + "/follow")
			if err != nil {
				fmt.Printf("follow error: %v\n", err)
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			followersOf[followee.id] = append(followersOf[followee.id], u)
		}
	}

	// --- 4) Publish posts and measure end-to-end delivery ---
	// Delivery latency is the time from the post form submission until the
	// post body shows up in one of the author's followers' feeds.
	fmt.Printf("Publishing %d posts with concurrency %d...\n", P, concurrency)

	var mu sync.Mutex
	var latencies []float64
	var delivered, expired int

	jobs := make(chan int, P)
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				author := users[rand.Intn(len(users))]
				followers := followersOf[author.id]
				if len(followers) == 0 {
					continue
				}
				watcher := followers[rand.Intn(len(followers))]

				body := fmt.Sprintf("e2e bench post %d %d", i, time.Now().UnixNano())
				start := time.Now()

				resp, err := author.client.PostForm(serverAddr+"/posts", url.Values{"body": {body}})
				if err != nil {
					fmt.Printf("post error: %v\n", err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if pollFeed(serverAddr, watcher, body, time.Duration(pollTimeout)*time.Second) {
					lat := time.Since(start).Seconds() * 1000
					mu.Lock()
					latencies = append(latencies, lat)
					delivered++
					mu.Unlock()
				} else {
					mu.Lock()
					expired++
					mu.Unlock()
				}
			}
		}()
	}

	for i := 0; i < P; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// --- 5) Report ---
	sort.Float64s(latencies)
	fmt.Printf("Delivered: %d  Timed out: %d\n", delivered, expired)
	if len(latencies) > 0 {
		fmt.Printf("Delivery latency (ms): p50=%.2f p90=%.2f p99=%.2f\n",
			percentile(latencies, 50), percentile(latencies, 90), percentile(latencies, 99))
	}

	saveCSV("e2e_latencies.csv", latencies)
}

func newTLSClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Timeout: 10 * time.Second,
	}
}

var userLinkRe = regexp.MustCompile(`<a href="/users/([^/"]+)/posts">([^<]+)</a>`)

// scrapeUserIDs fills in each user's id from the /users/all listing.
func scrapeUserIDs(serverAddr string, users []*benchUser) error {
	resp, err := users[0].client.Get(serverAddr + "/users/all")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	idByEmail := make(map[string]string)
	for _, m := range userLinkRe.FindAllStringSubmatch(string(page), -1) {
		idByEmail[m[2]] = m[1]
	}

	for _, u := range users {
		id, ok := idByEmail[u.email]
		if !ok {
			return fmt.Errorf("user %s missing from users page", u.email)
		}
		u.id = id
	}
	return nil
}

// pollFeed polls the watcher's feed until the post body appears or the
// timeout expires.
func pollFeed(serverAddr string, watcher *benchUser, body string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := watcher.client.Get(serverAddr + "/feed")
		if err == nil {
			page, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if strings.Contains(string(page), body) {
				return true
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// percentile calculates the p-th percentile from sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}

func saveCSV(name string, data []float64) {
	f, err := os.Create(name)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"latency_ms"})
	for _, d := range data {
		w.Write([]string{fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", name)
}
