package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hazyhaar/ghframe/dbopen"
)

type fakeAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	auth  string
	names map[string]string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/users/")
	f.mu.Lock()
	f.hits[id]++
	f.auth = r.Header.Get("Authorization")
	f.mu.Unlock()

	switch id {
	case "broken":
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	case "ghost":
		http.NotFound(w, r)
		return
	}
	name := f.names[id]
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"login":"` + id + `","name":"` + name + `"}`))
}

func (f *fakeAPI) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[id]
}

func newResolver(t *testing.T, api *fakeAPI, now *time.Time) *Resolver {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	r, err := New(Config{
		APIURL: srv.URL + "/api",
		Token:  "s3cret",
		DB:     dbopen.OpenMemory(t, dbopen.WithSchema(Schema)),
		TTL:    time.Hour,
		Client: client,
		Now:    func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestResolve(t *testing.T) {
	api := &fakeAPI{hits: map[string]int{}, names: map[string]string{
		"alice": "Alice <b>Smith</b>",
		"bob":   "",
		"eve":   "Eve  &amp;  Co",
	}}
	now := time.UnixMilli(1_000_000)
	r := newResolver(t, api, &now)

	users, err := r.Resolve(context.Background(), []string{"alice", "bob", "alice", "ghost", "eve", ""})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %+v", users)
	}
	if got := users["alice"].Name; got != "Alice Smith" {
		t.Errorf("alice = %q", got)
	}
	if got := users["eve"].Name; got != "Eve & Co" {
		t.Errorf("eve = %q", got)
	}
	if api.count("alice") != 1 {
		t.Errorf("alice fetched %d times", api.count("alice"))
	}
	if api.auth != "Bearer s3cret" {
		t.Errorf("authorization = %q", api.auth)
	}
}

func TestResolve_Cache(t *testing.T) {
	api := &fakeAPI{hits: map[string]int{}, names: map[string]string{"alice": "Alice"}}
	now := time.UnixMilli(1_000_000)
	r := newResolver(t, api, &now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		users, err := r.Resolve(ctx, []string{"alice", "ghost"})
		if err != nil {
			t.Fatal(err)
		}
		if users["alice"].Name != "Alice" {
			t.Fatalf("round %d: %+v", i, users)
		}
	}
	if api.count("alice") != 1 || api.count("ghost") != 1 {
		t.Fatalf("hits = %v", api.hits)
	}

	now = now.Add(2 * time.Hour)
	api.names["alice"] = "Alice B."
	users, _ := r.Resolve(ctx, []string{"alice"})
	if users["alice"].Name != "Alice B." {
		t.Fatalf("expired entry not refreshed: %+v", users)
	}
	if api.count("alice") != 2 {
		t.Fatalf("alice hits = %d", api.count("alice"))
	}
}

func TestResolve_PartialFailure(t *testing.T) {
	api := &fakeAPI{hits: map[string]int{}, names: map[string]string{"alice": "Alice"}}
	now := time.UnixMilli(1_000_000)
	r := newResolver(t, api, &now)

	users, err := r.Resolve(context.Background(), []string{"alice", "broken"})
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	if users["alice"].Name != "Alice" {
		t.Fatalf("users = %+v", users)
	}

	// Failures are not cached.
	r.Resolve(context.Background(), []string{"broken"})
	if api.count("broken") != 2 {
		t.Fatalf("broken hits = %d", api.count("broken"))
	}
}

func TestResolve_Empty(t *testing.T) {
	api := &fakeAPI{hits: map[string]int{}}
	now := time.Now()
	r := newResolver(t, api, &now)
	users, err := r.Resolve(context.Background(), nil)
	if err != nil || len(users) != 0 {
		t.Fatalf("got %+v, %v", users, err)
	}
}
