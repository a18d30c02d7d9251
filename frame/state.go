package frame

import (
	"context"
	"fmt"
	"sync"

	"github.com/hazyhaar/ghframe/config"
	"github.com/hazyhaar/ghframe/page"
)

// Navigation is the last known navigation state.
type Navigation struct {
	URL   string           `json:"url"`
	Issue *page.Descriptor `json:"issue"`
}

// KV is the durable store behind State.
type KV interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// State holds the single Navigation instance and writes it through to the
// durable store. Only the controller mutates it.
type State struct {
	mu  sync.RWMutex
	kv  KV
	nav Navigation
}

// LoadState reads the persisted navigation state.
func LoadState(ctx context.Context, kv KV) (*State, error) {
	s := &State{kv: kv}
	if _, err := kv.Get(ctx, config.KeyStateURL, &s.nav.URL); err != nil {
		return nil, fmt.Errorf("frame: load state: %w", err)
	}
	var issue *page.Descriptor
	if _, err := kv.Get(ctx, config.KeyStateIssue, &issue); err != nil {
		return nil, fmt.Errorf("frame: load state: %w", err)
	}
	s.nav.Issue = issue
	return s, nil
}

// Current returns a copy of the state.
func (s *State) Current() Navigation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.nav
	if n.Issue != nil {
		d := *n.Issue
		n.Issue = &d
	}
	return n
}

// SetURL records the raw view URL.
func (s *State) SetURL(ctx context.Context, url string) error {
	s.mu.Lock()
	s.nav.URL = url
	s.mu.Unlock()
	if err := s.kv.Set(ctx, config.KeyStateURL, url); err != nil {
		return fmt.Errorf("frame: persist url: %w", err)
	}
	return nil
}

// SetPage records a confirmed page: its URL and descriptor.
func (s *State) SetPage(ctx context.Context, url string, d *page.Descriptor) error {
	s.mu.Lock()
	s.nav.URL = url
	s.nav.Issue = d
	s.mu.Unlock()
	if err := s.kv.Set(ctx, config.KeyStateURL, url); err != nil {
		return fmt.Errorf("frame: persist url: %w", err)
	}
	if err := s.kv.Set(ctx, config.KeyStateIssue, d); err != nil {
		return fmt.Errorf("frame: persist issue: %w", err)
	}
	return nil
}

// Reset forgets the in-memory state after the durable store was cleared.
func (s *State) Reset() {
	s.mu.Lock()
	s.nav = Navigation{}
	s.mu.Unlock()
}
