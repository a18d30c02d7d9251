package frame

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/ghframe/bus"
	"github.com/hazyhaar/ghframe/channel"
	"github.com/hazyhaar/ghframe/config"
	"github.com/hazyhaar/ghframe/guest"
	"github.com/hazyhaar/ghframe/page"
)

// Bus is the host bus as used by the controller.
type Bus interface {
	bus.Publisher
	bus.Subscriber
}

// Config for creating a Controller.
type Config struct {
	Opener   Opener
	Bus      Bus
	State    *State
	Settings Settings
	Names    NameResolver // optional

	Partition   string
	BaseURL     string
	NavDelay    time.Duration
	SettleDelay time.Duration
	// SupersedePending makes a delayed action cancel a pending one of the
	// same kind. Off, every delayed action fires.
	SupersedePending bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Partition == "" {
		c.Partition = config.DefaultPartition
	}
	if c.BaseURL == "" {
		c.BaseURL = config.DefaultBaseURL
	}
	if c.NavDelay <= 0 {
		c.NavDelay = 400 * time.Millisecond
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LinkClick is the payload of bus.FrameLinkClicked.
type LinkClick struct {
	URL     string `json:"url"`
	RawHref string `json:"rawHref"`
}

// MenuContext is the payload of bus.ContextMenuShow.
type MenuContext struct {
	Kind  string `json:"kind"` // img | link | selection
	Value string `json:"value"`
}

// Status is a read-only view of the controller for callers outside the
// host loop.
type Status struct {
	Ready    bool       `json:"ready"`
	Loading  bool       `json:"loading"`
	DevTools bool       `json:"devtools"`
	State    Navigation `json:"state"`
}

// Controller owns the embedded view.
type Controller struct {
	cfg   Config
	log   *slog.Logger
	sched *scheduler

	mu       sync.Mutex
	ready    bool
	view     View
	loading  bool
	pageLoad func()
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	offs     []func()

	// At most one name lookup runs; a newer one cancels it.
	namesCancel context.CancelFunc
	namesWG     sync.WaitGroup
}

// New creates a Controller. Call Init to open the view.
func New(cfg Config) *Controller {
	cfg.defaults()
	return &Controller{
		cfg:   cfg,
		log:   cfg.Logger,
		sched: newScheduler(cfg.SupersedePending),
		ctx:   context.Background(),
	}
}

// Init opens the view at the login URL and subscribes to the goto and menu
// topics. A second call is a no-op.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	login, err := c.cfg.Settings.LoginURL(ctx, c.cfg.BaseURL)
	if err != nil {
		c.log.Warn("frame: read base url", "error", err)
	}
	view, err := c.cfg.Opener.Open(ctx, c.cfg.Partition, login)
	if err != nil {
		return err
	}

	c.view = view
	c.loading = true
	c.ready = true
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.done = make(chan struct{})

	c.offs = append(c.offs,
		c.cfg.Bus.On(bus.FrameGoto, func(_ context.Context, p any) error {
			c.GotoURL(p)
			return nil
		}),
		c.cfg.Bus.On(bus.Menu, func(ctx context.Context, p any) error {
			return c.HandleMenu(ctx, ParseMenu(p))
		}),
	)

	go c.run(c.ctx, view)
	c.log.Info("frame: view opened", "partition", c.cfg.Partition, "url", login)
	return nil
}

// Close stops the host loop, cancels pending delayed actions and closes
// the view.
func (c *Controller) Close() error {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return nil
	}
	c.ready = false
	offs, view, cancel, done := c.offs, c.view, c.cancel, c.done
	c.offs = nil
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
	c.sched.stop()
	cancel()
	<-done
	c.namesWG.Wait()
	return view.Close()
}

func (c *Controller) run(ctx context.Context, view View) {
	defer close(c.done)
	msgs, events := view.Messages(), view.Events()
	for msgs != nil || events != nil {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			c.HandleMessage(ctx, m)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.HandleViewEvent(ctx, ev)
		}
	}
}

func (c *Controller) currentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// loop returns the view with the context of the host loop.
func (c *Controller) loop() (View, context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view, c.ctx
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// Loading reports whether the loading indicator is up.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Status snapshots the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{Ready: c.ready, Loading: c.loading}
	view := c.view
	c.mu.Unlock()
	if view != nil {
		st.DevTools = view.IsDevToolsOpened()
	}
	if c.cfg.State != nil {
		st.State = c.cfg.State.Current()
	}
	return st
}

// GotoURL navigates the view. The loading indicator goes up first, even
// when target turns out to be empty or not a string. prev, next and
// refresh run after NavDelay; a URL loads immediately.
func (c *Controller) GotoURL(target any) {
	c.setLoading(true)
	kind, url := ParseTarget(target)
	if kind == TargetNone {
		return
	}
	view, ctx := c.loop()
	if view == nil {
		c.log.Warn("frame: goto before init", "target", url)
		return
	}

	var action func(context.Context) error
	switch kind {
	case TargetPrev:
		action = view.GoBack
	case TargetNext:
		action = view.GoForward
	case TargetRefresh:
		action = view.Reload
	case TargetURL:
		c.log.Debug("frame: load url", "url", url)
		if err := view.LoadURL(ctx, url); err != nil {
			c.log.Warn("frame: load url failed", "url", url, "error", err)
		}
		return
	}

	c.sched.after(kind.String(), c.cfg.NavDelay, func() {
		if err := action(ctx); err != nil {
			c.log.Warn("frame: delayed navigation failed", "target", kind.String(), "error", err)
		}
	})
}

// OnPageLoad registers the single pending page-load callback. The next
// docReady from the guest resolves it; a later registration replaces an
// unresolved one.
func (c *Controller) OnPageLoad(fn func()) {
	c.mu.Lock()
	c.pageLoad = fn
	c.mu.Unlock()
}

// HandleMessage dispatches one guest→host message. Unknown names are
// dropped.
func (c *Controller) HandleMessage(ctx context.Context, m channel.Message) {
	kind := guest.ParseEvent(m.Name)
	switch kind {
	case guest.EventIsLogged:
		var logged bool
		m.Arg(0, &logged)
		if !logged {
			c.publish(ctx, bus.ToggleNotifications, false)
		}

	case guest.EventDomChanged:
		var url string
		var d *page.Descriptor
		if err := m.Arg(0, &url); err != nil {
			c.log.Debug("frame: bad domChanged url", "error", err)
			return
		}
		if err := m.Arg(1, &d); err != nil {
			c.log.Debug("frame: bad domChanged descriptor", "error", err)
			return
		}
		if c.cfg.State != nil {
			if err := c.cfg.State.SetPage(ctx, url, d); err != nil {
				c.log.Warn("frame: persist state failed", "error", err)
			}
		}
		c.replaceNames(ctx)
		c.publish(ctx, bus.IssueChanged, d)

	case guest.EventDocReady:
		c.mu.Lock()
		fn := c.pageLoad
		c.pageLoad = nil
		c.mu.Unlock()
		if fn != nil {
			fn()
		}

	case guest.EventUserIDsGathered:
		var ids []string
		m.Arg(0, &ids)
		c.resolveNames(ids)

	case guest.EventSwipeAllowed:
		c.publish(ctx, bus.FrameSwipeAllowed, nil)

	case guest.EventDocumentClicked:
		c.publish(ctx, bus.DocumentClicked, nil)

	case guest.EventLinkClicked:
		var lc LinkClick
		m.Arg(0, &lc.URL)
		m.Arg(1, &lc.RawHref)
		c.publish(ctx, bus.FrameLinkClicked, lc)

	case guest.EventExternalLinkClicked:
		c.publish(ctx, bus.FrameExternalLink, stringArg(m, 0))

	case guest.EventShowPreview:
		c.publish(ctx, bus.PreviewShow, stringArg(m, 0))

	case guest.EventShowImgMenu:
		c.publish(ctx, bus.ContextMenuShow, MenuContext{Kind: "img", Value: stringArg(m, 0)})

	case guest.EventShowLinkMenu:
		c.publish(ctx, bus.ContextMenuShow, MenuContext{Kind: "link", Value: stringArg(m, 0)})

	case guest.EventShowSelectionMenu:
		c.publish(ctx, bus.ContextMenuShow, MenuContext{Kind: "selection", Value: stringArg(m, 0)})

	case guest.EventCSSReady:
		c.publish(ctx, bus.FrameCSSReady, nil)

	case guest.EventUnknown:
		c.log.Debug("frame: unknown guest message dropped", "name", m.Name)
	}
}

func stringArg(m channel.Message, i int) string {
	var s string
	m.Arg(i, &s)
	return s
}

// HandleViewEvent reacts to view lifecycle events.
func (c *Controller) HandleViewEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventWillNavigate:
		c.setLoading(true)
	case EventDOMReady, EventNavigatedInPage:
		c.urlChanged(ctx, ev.URL)
	}
}

func (c *Controller) urlChanged(ctx context.Context, url string) {
	view := c.currentView()
	if url == "" && view != nil {
		if u, err := view.URL(ctx); err == nil {
			url = u
		}
	}
	if c.cfg.State != nil {
		if err := c.cfg.State.SetURL(ctx, url); err != nil {
			c.log.Warn("frame: persist url failed", "error", err)
		}
	}
	c.replaceNames(ctx)
	c.sched.after("settle", c.cfg.SettleDelay, func() { c.setLoading(false) })
	c.publish(ctx, bus.FrameURLChanged, view)
}

// HandleMenu runs one menu command.
func (c *Controller) HandleMenu(ctx context.Context, cmd MenuCommand) error {
	view := c.currentView()
	if view == nil {
		return nil
	}
	switch cmd {
	case MenuToggleDevTools:
		if view.IsDevToolsOpened() {
			return view.CloseDevTools(ctx)
		}
		return view.OpenDevTools(ctx)

	case MenuClearCookies:
		login, err := c.cfg.Settings.LoginURL(ctx, c.cfg.BaseURL)
		if err != nil {
			c.log.Warn("frame: read base url", "error", err)
		}
		var errs []error
		if err := c.cfg.Settings.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
		if c.cfg.State != nil {
			c.cfg.State.Reset()
		}
		if err := view.ClearStorageData(ctx); err != nil {
			errs = append(errs, err)
		}
		c.GotoURL(login)
		return errors.Join(errs...)

	case MenuUnknown:
		c.log.Debug("frame: unknown menu command ignored")
	}
	return nil
}

// InjectCSS asks the guest to add a stylesheet. The guest answers with
// cssReady, republished on bus.FrameCSSReady.
func (c *Controller) InjectCSS(ctx context.Context, css string) error {
	return c.send(ctx, guest.CmdInjectCSS, css)
}

// Zoom sets the page zoom in ticks of ten percent.
func (c *Controller) Zoom(ctx context.Context, level int) error {
	return c.send(ctx, guest.CmdZoom, level)
}

// SwipeStart and SwipeEnd bracket a horizontal swipe gesture.
func (c *Controller) SwipeStart(ctx context.Context) error {
	return c.send(ctx, guest.CmdSwipeStart)
}

func (c *Controller) SwipeEnd(ctx context.Context) error {
	return c.send(ctx, guest.CmdSwipeEnd)
}

func (c *Controller) send(ctx context.Context, cmd guest.CommandKind, args ...any) error {
	view := c.currentView()
	if view == nil {
		return nil
	}
	return view.Send(ctx, cmd.String(), args...)
}

// replaceNames starts a substitution round: the guest gathers ids, the
// controller resolves them and sends the mapping back.
func (c *Controller) replaceNames(ctx context.Context) {
	if c.cfg.Names == nil {
		return
	}
	if err := c.send(ctx, guest.CmdGatherUserIDs); err != nil {
		c.log.Debug("frame: gather user ids", "error", err)
	}
}

// resolveNames looks the ids up off the host loop, then sends the mapping
// to the guest. A lookup still running is superseded.
func (c *Controller) resolveNames(ids []string) {
	if c.cfg.Names == nil || len(ids) == 0 {
		return
	}
	_, loopCtx := c.loop()

	c.mu.Lock()
	if c.namesCancel != nil {
		c.namesCancel()
	}
	ctx, cancel := context.WithCancel(loopCtx)
	c.namesCancel = cancel
	c.namesWG.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.namesWG.Done()
		defer cancel()
		users, err := c.cfg.Names.Resolve(ctx, ids)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn("frame: resolve user names", "error", err)
		}
		if len(users) == 0 {
			return
		}
		if err := c.send(ctx, guest.CmdUserIDsAndNames, users); err != nil {
			c.log.Debug("frame: send user names", "error", err)
		}
	}()
}

func (c *Controller) publish(ctx context.Context, topic bus.Topic, payload any) {
	if err := c.cfg.Bus.Trigger(ctx, topic, payload); err != nil {
		c.log.Debug("frame: publish", "topic", string(topic), "error", err)
	}
}
