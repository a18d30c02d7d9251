package guest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hazyhaar/ghframe/channel"
	"github.com/hazyhaar/ghframe/page"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDoc struct {
	signals chan channel.Message
	snap    Snapshot
	snaps   atomic.Int32

	mu    sync.Mutex
	edits []Edit
	css   []string
	zoom  []float64
}

func newFakeDoc(html string) *fakeDoc {
	return &fakeDoc{
		signals: make(chan channel.Message, 64),
		snap:    Snapshot{URL: "https://github.com/octo/repo/issues/12", Title: "t", HTML: html},
	}
}

func (d *fakeDoc) Signals() <-chan channel.Message { return d.signals }

func (d *fakeDoc) Snapshot(context.Context) (Snapshot, error) {
	d.snaps.Add(1)
	return d.snap, nil
}

func (d *fakeDoc) Apply(_ context.Context, edits []Edit) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edits = append(d.edits, edits...)
	return len(edits), nil
}

func (d *fakeDoc) InjectCSS(_ context.Context, css string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.css = append(d.css, css)
	return nil
}

func (d *fakeDoc) SetZoom(_ context.Context, scale float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoom = append(d.zoom, scale)
	return nil
}

func (d *fakeDoc) signal(t *testing.T, name string, args ...any) {
	t.Helper()
	m, err := channel.New(name, args...)
	if err != nil {
		t.Fatal(err)
	}
	d.signals <- m
}

type harness struct {
	doc    *fakeDoc
	out    *channel.Queue
	in     *channel.Queue
	cancel context.CancelFunc
	done   chan struct{}
}

func startObserver(t *testing.T, doc *fakeDoc, window time.Duration) *harness {
	t.Helper()
	h := &harness{doc: doc, out: channel.NewQueue(64), in: channel.NewQueue(64), done: make(chan struct{})}
	o := New(Config{Doc: doc, Out: h.out, In: h.in.C(), Debounce: window})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		o.Run(ctx)
	}()
	t.Cleanup(func() {
		h.cancel()
		<-h.done
	})
	return h
}

func (h *harness) next(t *testing.T) channel.Message {
	t.Helper()
	select {
	case m := <-h.out.C():
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for guest message")
		return channel.Message{}
	}
}

func (h *harness) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case m := <-h.out.C():
		t.Fatalf("unexpected message %q", m.Name)
	case <-time.After(within):
	}
}

func TestObserver_InitSequence(t *testing.T) {
	doc := newFakeDoc(issueHTML)
	h := startObserver(t, doc, 20*time.Millisecond)

	doc.signal(t, SignalInit)

	m := h.next(t)
	var logged bool
	m.Arg(0, &logged)
	if m.Name != "isLogged" || !logged {
		t.Fatalf("first message = %q logged=%v", m.Name, logged)
	}
	if m := h.next(t); m.Name != "docReady" {
		t.Fatalf("second message = %q", m.Name)
	}
	m = h.next(t)
	if m.Name != "domChanged" {
		t.Fatalf("third message = %q", m.Name)
	}
	var url string
	var d page.Descriptor
	m.Arg(0, &url)
	m.Arg(1, &d)
	if url != d.URL || d.Kind != page.KindIssue || d.ID != "12" {
		t.Fatalf("domChanged(%q, %+v)", url, d)
	}
}

func TestObserver_DomChangedKeepsFragment(t *testing.T) {
	tests := []struct {
		url, wantRaw, wantDesc string
	}{
		{
			"https://github.com/octo/repo/issues/12#issuecomment-7",
			"https://github.com/octo/repo/issues/12#issuecomment-7",
			"https://github.com/octo/repo/issues/12",
		},
		{"chrome-error://chromewebdata/", "", ""},
	}
	for _, tt := range tests {
		doc := newFakeDoc(issueHTML)
		doc.snap.URL = tt.url
		h := startObserver(t, doc, 10*time.Millisecond)

		doc.signal(t, SignalMutation)
		m := h.next(t)
		var raw string
		var d page.Descriptor
		m.Arg(0, &raw)
		m.Arg(1, &d)
		if m.Name != "domChanged" || raw != tt.wantRaw || d.URL != tt.wantDesc {
			t.Errorf("%s: domChanged(%q, url=%q)", tt.url, raw, d.URL)
		}
	}
}

func TestObserver_MutationBurstExtractsOnce(t *testing.T) {
	doc := newFakeDoc(issueHTML)
	h := startObserver(t, doc, 50*time.Millisecond)

	for i := 0; i < 20; i++ {
		doc.signal(t, SignalMutation)
		time.Sleep(5 * time.Millisecond)
	}

	if m := h.next(t); m.Name != "domChanged" {
		t.Fatalf("got %q", m.Name)
	}
	h.none(t, 150*time.Millisecond)
	if n := doc.snaps.Load(); n != 1 {
		t.Fatalf("snapshots = %d, want 1", n)
	}
}

func TestObserver_ClickAndSwipe(t *testing.T) {
	doc := newFakeDoc(issueHTML)
	h := startObserver(t, doc, time.Hour)

	doc.signal(t, SignalClick, ClickEvent{Location: "https://github.com/", Tag: "A", Href: "https://example.com/"})
	if m := h.next(t); m.Name != "documentClicked" {
		t.Fatalf("got %q", m.Name)
	}
	if m := h.next(t); m.Name != "externalLinkClicked" {
		t.Fatalf("got %q", m.Name)
	}

	// Wheel before swipe-start is ignored; the first wheel of a swipe is judged.
	doc.signal(t, SignalWheel, plainChain)
	h.in.Send(context.Background(), "swipe-start")
	time.Sleep(20 * time.Millisecond)
	doc.signal(t, SignalWheel, plainChain)
	doc.signal(t, SignalWheel, plainChain)
	if m := h.next(t); m.Name != "swipe-allowed" {
		t.Fatalf("got %q", m.Name)
	}
	h.none(t, 50*time.Millisecond)
}

func TestObserver_Commands(t *testing.T) {
	doc := newFakeDoc(mentionsHTML)
	h := startObserver(t, doc, time.Hour)
	ctx := context.Background()

	h.in.Send(ctx, "gatherUserIds")
	m := h.next(t)
	var ids []string
	m.Arg(0, &ids)
	if m.Name != "userIdsGathered" || len(ids) != 3 {
		t.Fatalf("got %q %v", m.Name, ids)
	}

	h.in.Send(ctx, "injectCss", "body{color:red}")
	if m := h.next(t); m.Name != "cssReady" {
		t.Fatalf("got %q", m.Name)
	}

	h.in.Send(ctx, "userIdsAndNames", page.Users{"alice": {Name: "Alice A"}})
	h.in.Send(ctx, "zoom", 3)
	h.in.Send(ctx, "no-such-command")
	h.in.Send(ctx, "gatherUserIds")
	h.next(t)

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if len(doc.css) != 1 || doc.css[0] != "body{color:red}" {
		t.Errorf("css = %v", doc.css)
	}
	if len(doc.edits) == 0 {
		t.Error("no name edits applied")
	}
	if len(doc.zoom) != 1 || doc.zoom[0] < 1.29 || doc.zoom[0] > 1.31 {
		t.Errorf("zoom = %v", doc.zoom)
	}
}

func TestObserver_StopsWhenDocumentCloses(t *testing.T) {
	doc := newFakeDoc("")
	o := New(Config{Doc: doc, Out: channel.NewQueue(1)})
	close(doc.signals)

	done := make(chan struct{})
	go func() {
		o.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not stop")
	}
}

func TestParseEventAndCommand(t *testing.T) {
	if ParseEvent("domChanged") != EventDomChanged || ParseEvent("bogus") != EventUnknown || ParseEvent("") != EventUnknown {
		t.Fatal("ParseEvent")
	}
	if ParseCommand("swipe-end") != CmdSwipeEnd || ParseCommand("bogus") != CmdUnknown {
		t.Fatal("ParseCommand")
	}
	for k := EventIsLogged; k <= EventCSSReady; k++ {
		if ParseEvent(k.String()) != k {
			t.Errorf("roundtrip %d", k)
		}
	}
}

func TestZoomScale(t *testing.T) {
	if ZoomScale(0) != 1 || ZoomScale(-5) != 0.5 {
		t.Fatal("scale")
	}
}
