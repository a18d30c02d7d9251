// Package bus is the host-wide publish/subscribe primitive. Publishers and
// subscribers agree on a Topic name only; payloads are plain Go values.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Topic names a host-wide event.
type Topic string

// Topics consumed or produced by the frame controller.
const (
	ToggleNotifications Topic = "toggle-notifications"
	IssueChanged        Topic = "issue/changed"
	FrameURLChanged     Topic = "frame/url-changed"
	FrameGoto           Topic = "frame/goto"
	Menu                Topic = "menu"

	FrameSwipeAllowed Topic = "frame/swipe-allowed"
	DocumentClicked   Topic = "document/clicked"
	FrameLinkClicked  Topic = "frame/link-clicked"
	FrameExternalLink Topic = "frame/external-link"
	PreviewShow       Topic = "preview/show"
	ContextMenuShow   Topic = "contextmenu/show"
	FrameCSSReady     Topic = "frame/css-ready"
)

// Handler receives one published payload.
type Handler func(ctx context.Context, payload any) error

// Publisher is the publishing half, as seen by components that only emit.
type Publisher interface {
	Trigger(ctx context.Context, topic Topic, payload any) error
}

// Subscriber is the subscribing half.
type Subscriber interface {
	On(topic Topic, h Handler) (off func())
}

type entry struct {
	id int
	h  Handler
}

// Bus fans out every published payload to all handlers of the topic, in
// subscription order. One handler error does not stop the others: errors
// are logged and the first encountered is returned.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]entry
	nextID   int
	logger   *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[Topic][]entry), logger: logger}
}

// On subscribes h to topic. The returned func removes the subscription.
func (b *Bus) On(topic Topic, h Handler) (off func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], entry{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.handlers[topic]
			for i, e := range list {
				if e.id == id {
					b.handlers[topic] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// Trigger publishes payload on topic. Handlers run synchronously on the
// caller's goroutine; the subscriber list is copied first so handlers may
// subscribe or publish themselves.
func (b *Bus) Trigger(ctx context.Context, topic Topic, payload any) error {
	b.mu.RLock()
	list := append([]entry(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	var firstErr error
	for _, e := range list {
		if err := b.call(ctx, topic, e.h, payload); err != nil {
			b.logger.Warn("bus: handler failed", "topic", string(topic), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *Bus) call(ctx context.Context, topic Topic, h Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bus: %s: handler panic: %v", topic, r)
		}
	}()
	return h(ctx, payload)
}
