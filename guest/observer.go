package guest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/ghframe/channel"
	"github.com/hazyhaar/ghframe/page"
)

// Outbox is the writing end of the guest→host queue.
type Outbox interface {
	Put(ctx context.Context, m channel.Message) error
}

// Config for creating an Observer.
type Config struct {
	Doc      Document
	Out      Outbox
	In       <-chan channel.Message
	Debounce time.Duration
	Logger   *slog.Logger
}

// Observer is the per-view content observer. All of its state is owned by
// the Run goroutine.
type Observer struct {
	doc    Document
	out    Outbox
	in     <-chan channel.Message
	logger *slog.Logger

	debouncer *debouncer
	arbiter   Arbiter
}

// New creates an Observer. Call Run to start it.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Observer{
		doc:       cfg.Doc,
		out:       cfg.Out,
		in:        cfg.In,
		logger:    cfg.Logger,
		debouncer: newDebouncer(cfg.Debounce),
	}
}

// Run processes shim signals, host commands and the debounce timer until
// ctx is cancelled or the document's signal channel closes.
func (o *Observer) Run(ctx context.Context) error {
	defer o.debouncer.reset()
	signals := o.doc.Signals()

	for {
		select {
		case <-ctx.Done():
			return nil

		case sig, ok := <-signals:
			if !ok {
				o.logger.Debug("guest: document closed")
				return nil
			}
			o.handleSignal(ctx, sig)

		case cmd, ok := <-o.in:
			if !ok {
				o.in = nil
				continue
			}
			o.handleCommand(ctx, cmd)

		case <-o.debouncer.timerC():
			o.debouncer.reset()
			o.domChanged(ctx)
		}
	}
}

func (o *Observer) emit(ctx context.Context, m channel.Message) {
	if err := o.out.Put(ctx, m); err != nil {
		o.logger.Debug("guest: emit failed", "name", m.Name, "error", err)
	}
}

func (o *Observer) handleSignal(ctx context.Context, sig channel.Message) {
	switch sig.Name {
	case SignalInit:
		o.onInit(ctx)

	case SignalMutation:
		o.debouncer.touch()

	case SignalClick:
		var ev ClickEvent
		if err := sig.Arg(0, &ev); err != nil {
			o.logger.Debug("guest: bad click signal", "error", err)
			return
		}
		for _, m := range Click(ev) {
			o.emit(ctx, m)
		}

	case SignalWheel:
		var chain []Box
		if err := sig.Arg(0, &chain); err != nil {
			o.logger.Debug("guest: bad wheel signal", "error", err)
			return
		}
		if o.arbiter.Wheel(chain) {
			o.emit(ctx, message(EventSwipeAllowed))
		}

	case SignalContextMenu:
		var ev ContextEvent
		if err := sig.Arg(0, &ev); err != nil {
			o.logger.Debug("guest: bad contextmenu signal", "error", err)
			return
		}
		if m, ok := ContextMenu(ev); ok {
			o.emit(ctx, m)
		}

	case SignalConsole:
		var level, text string
		sig.Arg(0, &level)
		sig.Arg(1, &text)
		o.logger.Debug("guest: console", "level", level, "text", text)

	default:
		o.logger.Debug("guest: unknown signal dropped", "name", sig.Name)
	}
}

// onInit runs once per page load. Nothing from the previous page survives.
func (o *Observer) onInit(ctx context.Context) {
	o.arbiter = Arbiter{}
	o.debouncer.reset()

	snap, err := o.doc.Snapshot(ctx)
	if err != nil {
		o.logger.Warn("guest: init snapshot failed", "error", err)
	} else {
		o.emit(ctx, message(EventIsLogged, IsLogged(snap)))
	}
	o.emit(ctx, message(EventDocReady))
	o.debouncer.touch()
}

func (o *Observer) domChanged(ctx context.Context) {
	snap, err := o.doc.Snapshot(ctx)
	if err != nil {
		o.logger.Warn("guest: snapshot failed", "error", err)
		return
	}
	d := Extract(snap)
	if err := d.Validate(); err != nil {
		o.logger.Warn("guest: descriptor dropped", "url", snap.URL, "error", err)
		return
	}
	// The first argument keeps the fragment; the descriptor's URL does not.
	raw := ""
	if strings.HasPrefix(snap.URL, "http") {
		raw = snap.URL
	}
	o.logger.Debug("guest: dom changed", "url", raw, "kind", string(d.Kind))
	o.emit(ctx, message(EventDomChanged, raw, d))
}

func (o *Observer) handleCommand(ctx context.Context, cmd channel.Message) {
	switch ParseCommand(cmd.Name) {
	case CmdGatherUserIDs:
		snap, err := o.doc.Snapshot(ctx)
		if err != nil {
			o.logger.Warn("guest: snapshot failed", "error", err)
			return
		}
		o.emit(ctx, message(EventUserIDsGathered, GatherUserIDs(snap)))

	case CmdUserIDsAndNames:
		var users page.Users
		if err := cmd.Arg(0, &users); err != nil {
			o.logger.Debug("guest: bad users mapping", "error", err)
			return
		}
		snap, err := o.doc.Snapshot(ctx)
		if err != nil {
			o.logger.Warn("guest: snapshot failed", "error", err)
			return
		}
		edits := Substitutions(snap, users)
		if len(edits) == 0 {
			return
		}
		n, err := o.doc.Apply(ctx, edits)
		if err != nil {
			o.logger.Warn("guest: apply names failed", "error", err)
			return
		}
		o.logger.Debug("guest: names replaced", "edits", len(edits), "applied", n)

	case CmdInjectCSS:
		var css string
		if err := cmd.Arg(0, &css); err != nil {
			o.logger.Debug("guest: bad css", "error", err)
			return
		}
		if err := o.doc.InjectCSS(ctx, css); err != nil {
			o.logger.Warn("guest: inject css failed", "error", err)
			return
		}
		o.emit(ctx, message(EventCSSReady))

	case CmdZoom:
		var level float64
		if err := cmd.Arg(0, &level); err != nil {
			o.logger.Debug("guest: bad zoom level", "error", err)
			return
		}
		if err := o.doc.SetZoom(ctx, ZoomScale(level)); err != nil {
			o.logger.Warn("guest: zoom failed", "error", err)
		}

	case CmdSwipeStart:
		o.arbiter.SwipeStart()

	case CmdSwipeEnd:
		o.arbiter.SwipeEnd()

	case CmdUnknown:
		o.logger.Debug("guest: unknown command dropped", "name", cmd.Name)
	}
}

// ZoomScale converts a zoom tick into a rendering scale.
func ZoomScale(level float64) float64 {
	return 1 + level*0.1
}
