package browser

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/ghframe/channel"
	"github.com/hazyhaar/ghframe/frame"
	"github.com/hazyhaar/ghframe/guest"
)

// View is the rod-backed embedded view. It owns the page, the guest pipe
// and the content observer running against the page.
type View struct {
	mgr     *Manager
	browser *rod.Browser
	page    *rod.Page
	doc     *guest.RodDocument
	pipe    *channel.Pipe
	events  chan frame.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	devtools *rod.Page
}

var _ frame.View = (*View)(nil)

func newView(ctx context.Context, mgr *Manager, b *rod.Browser, p *rod.Page) (*View, error) {
	log := mgr.cfg.Logger
	if err := (proto.PageEnable{}).Call(p); err != nil {
		return nil, fmt.Errorf("browser: page enable: %w", err)
	}

	vctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	doc, err := guest.Attach(vctx, p, log)
	if err != nil {
		cancel()
		return nil, err
	}

	v := &View{
		mgr:     mgr,
		browser: b,
		page:    p,
		doc:     doc,
		pipe:    newPipe(),
		events:  make(chan frame.Event, 64),
		ctx:     vctx,
		cancel:  cancel,
	}

	obs := guest.New(guest.Config{
		Doc:      doc,
		Out:      v.pipe.Up,
		In:       v.pipe.Down.C(),
		Debounce: mgr.cfg.Debounce,
		Logger:   log,
	})
	v.wg.Add(2)
	go func() {
		defer v.wg.Done()
		obs.Run(vctx)
	}()
	go func() {
		defer v.wg.Done()
		v.watchLifecycle(vctx)
	}()
	return v, nil
}

// watchLifecycle maps CDP page events of the main frame to frame events.
func (v *View) watchLifecycle(ctx context.Context) {
	defer close(v.events)
	emit := func(ev frame.Event) {
		select {
		case v.events <- ev:
		case <-ctx.Done():
		}
	}
	v.page.Context(ctx).EachEvent(
		func(e *proto.PageFrameStartedLoading) {
			if e.FrameID == v.page.FrameID {
				emit(frame.Event{Kind: frame.EventWillNavigate})
			}
		},
		func(e *proto.PageDomContentEventFired) {
			emit(frame.Event{Kind: frame.EventDOMReady})
		},
		func(e *proto.PageNavigatedWithinDocument) {
			if e.FrameID == v.page.FrameID {
				emit(frame.Event{Kind: frame.EventNavigatedInPage, URL: e.URL})
			}
		},
	)()
}

func (v *View) Send(ctx context.Context, name string, args ...any) error {
	return v.pipe.Down.Send(ctx, name, args...)
}

func (v *View) Messages() <-chan channel.Message { return v.pipe.Up.C() }
func (v *View) Events() <-chan frame.Event        { return v.events }

func (v *View) LoadURL(ctx context.Context, u string) error {
	if err := v.page.Context(ctx).Navigate(u); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", u, err)
	}
	return nil
}

func (v *View) GoBack(ctx context.Context) error {
	return v.page.Context(ctx).NavigateBack()
}

func (v *View) GoForward(ctx context.Context) error {
	return v.page.Context(ctx).NavigateForward()
}

func (v *View) Reload(ctx context.Context) error {
	return v.page.Context(ctx).Reload()
}

func (v *View) URL(ctx context.Context) (string, error) {
	info, err := v.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}

func (v *View) IsDevToolsOpened() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.devtools != nil
}

// OpenDevTools opens the devtools frontend for this page in its own tab.
func (v *View) OpenDevTools(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.devtools != nil {
		return nil
	}
	u, err := v.mgr.devtoolsURL(v.page.TargetID)
	if err != nil {
		return err
	}
	p, err := v.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: u})
	if err != nil {
		return fmt.Errorf("browser: open devtools: %w", err)
	}
	v.devtools = p

	// The user may close the devtools tab directly.
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(v.browser); err != nil {
		v.mgr.cfg.Logger.Debug("browser: discover targets", "error", err)
	}
	id := p.TargetID
	wait := v.browser.Context(v.ctx).EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		if e.TargetID != id {
			return false
		}
		v.forgetDevtools(id)
		return true
	})
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		wait()
	}()
	return nil
}

// forgetDevtools drops the devtools page if it is target id.
func (v *View) forgetDevtools(id proto.TargetTargetID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.devtools != nil && v.devtools.TargetID == id {
		v.devtools = nil
	}
}

func (v *View) CloseDevTools(ctx context.Context) error {
	v.mu.Lock()
	p := v.devtools
	v.devtools = nil
	v.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

// ClearStorageData wipes cookies and cache of the browser context and the
// site storage of the current origin.
func (v *View) ClearStorageData(ctx context.Context) error {
	p := v.page.Context(ctx)
	if err := (proto.NetworkClearBrowserCookies{}).Call(p); err != nil {
		return fmt.Errorf("browser: clear cookies: %w", err)
	}
	if err := (proto.NetworkClearBrowserCache{}).Call(p); err != nil {
		return fmt.Errorf("browser: clear cache: %w", err)
	}
	cur, err := v.URL(ctx)
	if err != nil {
		return err
	}
	if origin := originOf(cur); origin != "" {
		err := proto.StorageClearDataForOrigin{Origin: origin, StorageTypes: "all"}.Call(p)
		if err != nil {
			return fmt.Errorf("browser: clear storage for %s: %w", origin, err)
		}
	}
	return nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Close stops the observer and closes the page.
func (v *View) Close() error {
	v.CloseDevTools(context.Background())
	v.cancel()
	v.doc.Close()
	v.wg.Wait()
	v.pipe.Close()
	return v.page.Close()
}
