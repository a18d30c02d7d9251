// Package browser manages the Chrome instance behind the embedded view:
// launch or connect via Rod, one user-data directory per persistent
// partition, and the rod-backed frame.View with its content observer.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/ghframe/channel"
	"github.com/hazyhaar/ghframe/frame"
	"github.com/hazyhaar/ghframe/guest"
)

// ErrNoBrowser is returned once the manager is closed.
var ErrNoBrowser = errors.New("browser: no active browser")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	Headless bool
	// Stealth opens pages through go-rod/stealth.
	Stealth bool
	// DataDir holds one user-data directory per persistent partition.
	DataDir string
	// Devtools opens devtools for every new tab (headful only).
	Devtools bool

	// Debounce is the content observer idle window. Default: 200ms.
	Debounce time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.DataDir == "" {
		c.DataDir = "data/browser"
	}
	if c.Debounce <= 0 {
		c.Debounce = guest.DefaultDebounce
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages Chrome lifecycle.
type Manager struct {
	cfg       Config
	mu        sync.Mutex
	browser   *rod.Browser
	lnch      *launcher.Launcher
	wsURL     string
	partition string
	closed    bool
}

// NewManager creates a browser Manager. Chrome starts on the first Open.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Partition describes a named storage partition. "persist:<name>" survives
// restarts; any other name is in-memory.
type Partition struct {
	Name       string
	Persistent bool
}

var unsafeDirChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ParsePartition splits a partition name.
func ParsePartition(s string) Partition {
	if name, ok := strings.CutPrefix(s, "persist:"); ok {
		return Partition{Name: name, Persistent: true}
	}
	return Partition{Name: s}
}

// Dir is the user-data directory of a persistent partition under root.
func (p Partition) Dir(root string) string {
	name := unsafeDirChars.ReplaceAllString(p.Name, "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(root, "partitions", name)
}

// Open implements frame.Opener.
func (m *Manager) Open(ctx context.Context, partition, startURL string) (frame.View, error) {
	part := ParsePartition(partition)
	b, err := m.start(part)
	if err != nil {
		return nil, err
	}
	if !part.Persistent {
		if b, err = b.Incognito(); err != nil {
			return nil, fmt.Errorf("browser: incognito context: %w", err)
		}
	}

	var p *rod.Page
	if m.cfg.Stealth {
		p, err = stealth.Page(b)
	} else {
		p, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	v, err := newView(ctx, m, b, p)
	if err != nil {
		p.Close()
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := p.Context(navCtx).Navigate(startURL); err != nil {
		m.cfg.Logger.Warn("browser: initial navigation failed", "url", startURL, "error", err)
	}
	return v, nil
}

func (m *Manager) start(part Partition) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrNoBrowser
	}
	if m.browser != nil {
		if part.Persistent && part.Name != m.partition {
			m.cfg.Logger.Warn("browser: partition differs from running profile, reusing it",
				"want", part.Name, "running", m.partition)
		}
		return m.browser, nil
	}

	b, err := m.launch(part)
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.partition = part.Name
	return b, nil
}

func (m *Manager) launch(part Partition) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(m.cfg.Headless).
			Devtools(m.cfg.Devtools && !m.cfg.Headless)
		if part.Persistent {
			l = l.UserDataDir(part.Dir(m.cfg.DataDir))
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "partition", part.Name, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	m.wsURL = wsURL
	return b, nil
}

// devtoolsURL builds the frontend URL inspecting target.
func (m *Manager) devtoolsURL(target proto.TargetTargetID) (string, error) {
	m.mu.Lock()
	ws := m.wsURL
	m.mu.Unlock()
	return DevtoolsURL(ws, string(target))
}

// DevtoolsURL derives the devtools frontend URL for a page target from the
// browser's WebSocket control URL.
func DevtoolsURL(controlURL, targetID string) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("browser: bad control url %q", controlURL)
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/devtools/inspector.html?ws=%s/devtools/page/%s",
		scheme, u.Host, u.Host, targetID), nil
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}

// pipeSize bounds each direction of the guest channel.
const pipeSize = 256

func newPipe() *channel.Pipe { return channel.NewPipe(pipeSize) }
