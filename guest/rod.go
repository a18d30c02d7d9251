package guest

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/ghframe/channel"
)

//go:embed shim.js
var shimJS string

const bindingName = "__ghframe_binding"

// applyJS performs name edits. Each edit is guarded by the marker class and
// by the content it expects to find.
const applyJS = `(edits) => {
	const marker = 'user-name-replaced';
	const strip = s => (s || '').trim().replace(/^@+|@+$/g, '');
	let n = 0;
	for (const e of edits) {
		const el = document.evaluate(e.xpath, document, null,
			XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el || !el.classList || el.classList.contains(marker)) continue;
		if (e.ariaLabel) {
			if ((el.getAttribute('aria-label') || '') !== e.expect) continue;
			el.setAttribute('aria-label', e.ariaLabel);
		} else {
			if (strip(el.innerText) !== e.expect) continue;
			el.innerText = e.text;
			if (e.title) el.title = e.title;
		}
		el.classList.add(marker);
		n++;
	}
	return n;
}`

const injectCSSJS = `(css) => {
	const style = document.createElement('style');
	style.textContent = css;
	document.head.appendChild(style);
}`

const zoomJS = `(scale) => { document.body.style.zoom = scale; }`

// RodDocument is a Document backed by a rod page. The shim is installed for
// every new document of the page, so it survives navigation.
type RodDocument struct {
	page    *rod.Page
	logger  *slog.Logger
	signals chan channel.Message
	cancel  context.CancelFunc
	done    chan struct{}
}

// Attach installs the binding and the shim on p and starts forwarding
// binding calls and console messages as signals.
func Attach(ctx context.Context, p *rod.Page, logger *slog.Logger) (*RodDocument, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := (proto.RuntimeEnable{}).Call(p); err != nil {
		return nil, fmt.Errorf("guest: runtime enable: %w", err)
	}
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(p); err != nil {
		logger.Warn("guest: addBinding failed (may already exist)", "error", err)
	}
	if _, err := p.EvalOnNewDocument(shimJS); err != nil {
		return nil, fmt.Errorf("guest: install shim: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &RodDocument{
		page:    p,
		logger:  logger,
		signals: make(chan channel.Message, 256),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go d.listen(ctx)

	// The current document predates EvalOnNewDocument. A blank placeholder
	// would report a logged-out empty page, so it is left alone.
	info, err := p.Info()
	switch {
	case err != nil:
		logger.Debug("guest: page info failed", "error", err)
	case !shimCurrentDocument(info.URL):
		logger.Debug("guest: skip shim on blank document", "url", info.URL)
	default:
		if _, err := p.Context(ctx).Eval("() => {" + shimJS + "}"); err != nil {
			logger.Debug("guest: shim on current document failed", "error", err)
		}
	}
	return d, nil
}

// shimCurrentDocument reports whether the document already loaded at url
// should get the shim. Error pages do, so the host learns about failed loads.
func shimCurrentDocument(url string) bool {
	return url != "" && url != "about:blank"
}

func (d *RodDocument) listen(ctx context.Context) {
	defer close(d.done)
	defer close(d.signals)

	d.page.Context(ctx).EachEvent(
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != bindingName {
				return
			}
			m, err := channel.Decode([]byte(e.Payload))
			if err != nil {
				d.logger.Debug("guest: bad binding payload", "error", err)
				return
			}
			d.forward(ctx, m)
		},
		func(e *proto.RuntimeConsoleAPICalled) {
			parts := make([]string, 0, len(e.Args))
			for _, a := range e.Args {
				if s := a.Value.Str(); s != "" {
					parts = append(parts, s)
				} else {
					parts = append(parts, a.Description)
				}
			}
			m, _ := channel.New(SignalConsole, string(e.Type), strings.Join(parts, " "))
			d.forward(ctx, m)
		},
	)()
}

func (d *RodDocument) forward(ctx context.Context, m channel.Message) {
	select {
	case d.signals <- m:
	case <-ctx.Done():
	}
}

func (d *RodDocument) Signals() <-chan channel.Message { return d.signals }

func (d *RodDocument) Snapshot(ctx context.Context) (Snapshot, error) {
	p := d.page.Context(ctx)
	info, err := p.Info()
	if err != nil {
		return Snapshot{}, fmt.Errorf("guest: page info: %w", err)
	}
	html, err := p.HTML()
	if err != nil {
		return Snapshot{}, fmt.Errorf("guest: page html: %w", err)
	}
	return Snapshot{URL: info.URL, Title: info.Title, HTML: html}, nil
}

func (d *RodDocument) Apply(ctx context.Context, edits []Edit) (int, error) {
	res, err := d.page.Context(ctx).Eval(applyJS, edits)
	if err != nil {
		return 0, fmt.Errorf("guest: apply edits: %w", err)
	}
	return res.Value.Int(), nil
}

func (d *RodDocument) InjectCSS(ctx context.Context, css string) error {
	if _, err := d.page.Context(ctx).Eval(injectCSSJS, css); err != nil {
		return fmt.Errorf("guest: inject css: %w", err)
	}
	return nil
}

func (d *RodDocument) SetZoom(ctx context.Context, scale float64) error {
	if _, err := d.page.Context(ctx).Eval(zoomJS, scale); err != nil {
		return fmt.Errorf("guest: zoom: %w", err)
	}
	return nil
}

// Close stops forwarding and waits for the listener to exit.
func (d *RodDocument) Close() error {
	d.cancel()
	<-d.done
	return nil
}
