// Package frame implements the host-side frame controller: it owns the
// embedded view, turns host commands into view operations, relays guest
// messages onto the host bus and keeps the persisted navigation state.
package frame

import (
	"context"

	"github.com/hazyhaar/ghframe/channel"
	"github.com/hazyhaar/ghframe/page"
)

// EventKind enumerates view lifecycle events.
type EventKind int

const (
	// EventWillNavigate fires when a top-level navigation starts.
	EventWillNavigate EventKind = iota + 1
	// EventDOMReady fires when a document finished parsing.
	EventDOMReady
	// EventNavigatedInPage fires on same-document navigation.
	EventNavigatedInPage
)

func (k EventKind) String() string {
	switch k {
	case EventWillNavigate:
		return "will-navigate"
	case EventDOMReady:
		return "dom-ready"
	case EventNavigatedInPage:
		return "did-navigate-in-page"
	}
	return "unknown"
}

// Event is one view lifecycle event.
type Event struct {
	Kind EventKind
	URL  string
}

// View is the embedded page as seen by the controller. Messages carries the
// guest→host queue; Send writes to the host→guest queue.
type View interface {
	channel.Sender

	LoadURL(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error
	URL(ctx context.Context) (string, error)

	IsDevToolsOpened() bool
	OpenDevTools(ctx context.Context) error
	CloseDevTools(ctx context.Context) error

	// ClearStorageData wipes cookies, cache and site storage of the view's
	// partition.
	ClearStorageData(ctx context.Context) error

	Messages() <-chan channel.Message
	Events() <-chan Event
	Close() error
}

// Opener creates the single view, bound to a named storage partition and
// pointed at url.
type Opener interface {
	Open(ctx context.Context, partition, url string) (View, error)
}

// Settings is the durable configuration the controller reads and clears.
type Settings interface {
	LoginURL(ctx context.Context, fallback string) (string, error)
	Clear(ctx context.Context) error
}

// NameResolver maps user ids to display names.
type NameResolver interface {
	Resolve(ctx context.Context, ids []string) (page.Users, error)
}
