// Package users resolves user ids (logins) to display names through the
// forge's REST API, with a SQLite cache in front of it.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/ghframe/page"
)

// ErrStatus is returned for an unexpected API response status.
var ErrStatus = errors.New("users: unexpected status")

// Config configures a Resolver.
type Config struct {
	APIURL string // e.g. https://api.github.com/
	Token  string // optional bearer token
	DB     *sql.DB
	TTL    time.Duration

	// Concurrency bounds parallel API lookups. Default 4.
	Concurrency int
	RetryMax    int
	Client      *retryablehttp.Client

	Logger *slog.Logger
	Now    func() time.Time
}

// Resolver maps user ids to display names.
type Resolver struct {
	api    *url.URL
	token  string
	client *retryablehttp.Client
	cache  cache
	limit  int
	policy *bluemonday.Policy
	log    *slog.Logger
	now    func() time.Time
}

// New builds a Resolver. The cache schema must already be applied to DB.
func New(cfg Config) (*Resolver, error) {
	api, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("users: api url: %w", err)
	}
	if !strings.HasSuffix(api.Path, "/") {
		api.Path += "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	client := cfg.Client
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 3
		client.RetryWaitMin = 500 * time.Millisecond
		client.RetryWaitMax = 10 * time.Second
		client.HTTPClient.Timeout = 15 * time.Second
		client.Logger = nil
	}
	if cfg.RetryMax > 0 {
		client.RetryMax = cfg.RetryMax
	}
	return &Resolver{
		api:    api,
		token:  cfg.Token,
		client: client,
		cache:  cache{db: cfg.DB, ttl: cfg.TTL},
		limit:  cfg.Concurrency,
		policy: bluemonday.StrictPolicy(),
		log:    cfg.Logger,
		now:    cfg.Now,
	}, nil
}

// Resolve returns display names for ids. Cached entries are served without
// a request; the rest are fetched in parallel. Ids without a display name
// are left out. A failed lookup does not stop the others: the names that
// resolved are returned together with the joined errors.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (page.Users, error) {
	ids = dedupe(ids)
	now := r.now()

	cached, err := r.cache.lookup(ctx, ids, now)
	if err != nil {
		r.log.Warn("users: cache unavailable", "error", err)
		cached = map[string]string{}
	}

	users := page.Users{}
	var missing []string
	for _, id := range ids {
		name, ok := cached[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if name != "" {
			users[id] = page.User{Name: name}
		}
	}
	if len(missing) == 0 {
		return users, nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, id := range missing {
		g.Go(func() error {
			name, err := r.fetch(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if err := r.cache.store(gctx, id, name, now); err != nil {
				r.log.Warn("users: cache store", "id", id, "error", err)
			}
			if name != "" {
				users[id] = page.User{Name: name}
			}
			return nil
		})
	}
	_ = g.Wait()
	r.log.Debug("users: resolved", "requested", len(ids), "fetched", len(missing), "named", len(users))
	return users, errors.Join(errs...)
}

type apiUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// fetch returns the sanitised display name of id, or "" when the user is
// unknown or has none.
func (r *Resolver) fetch(ctx context.Context, id string) (string, error) {
	u := r.api.JoinPath("users", id)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("users: request %s: %w", id, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("users: fetch %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: %s: %d", ErrStatus, id, resp.StatusCode)
	}

	var au apiUser
	if err := json.NewDecoder(resp.Body).Decode(&au); err != nil {
		return "", fmt.Errorf("users: decode %s: %w", id, err)
	}
	return r.clean(au.Name), nil
}

// clean strips markup from a display name and collapses whitespace.
func (r *Resolver) clean(name string) string {
	name = html.UnescapeString(r.policy.Sanitize(name))
	return strings.Join(strings.Fields(name), " ")
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
