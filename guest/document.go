package guest

import (
	"context"

	"github.com/hazyhaar/ghframe/channel"
)

// Snapshot is a point-in-time copy of the page, enough to run extraction
// without a live rendering context.
type Snapshot struct {
	URL   string
	Title string
	HTML  string
}

// Edit rewrites one element located by XPath. The page applies it only if
// the element is not yet marked user-name-replaced and its current content
// still equals Expect: the stripped text for text edits, the aria-label for
// label edits.
type Edit struct {
	XPath     string `json:"xpath"`
	Expect    string `json:"expect"`
	Text      string `json:"text,omitempty"`
	Title     string `json:"title,omitempty"`
	AriaLabel string `json:"ariaLabel,omitempty"`
}

// Shim signals delivered by a Document. They are internal to the guest and
// never reach the host.
const (
	SignalInit        = "init"
	SignalMutation    = "mutation"
	SignalClick       = "click"
	SignalWheel       = "wheel"
	SignalContextMenu = "contextmenu"
	SignalConsole     = "console"
)

// Document is the live page as seen by the observer.
type Document interface {
	// Signals carries raw shim signals. It is closed when the document
	// goes away.
	Signals() <-chan channel.Message
	Snapshot(ctx context.Context) (Snapshot, error)
	// Apply performs the edits and reports how many were applied.
	Apply(ctx context.Context, edits []Edit) (int, error)
	InjectCSS(ctx context.Context, css string) error
	SetZoom(ctx context.Context, scale float64) error
}
