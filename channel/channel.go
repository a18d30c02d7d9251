// Package channel implements the message transport between the guest page
// context and the host. A Queue carries messages in one direction only,
// in order, asynchronously; the two directions are two separate queues.
// Nothing is shared between the ends except serialised messages.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when sending on a closed Queue.
var ErrClosed = errors.New("channel: closed")

// Message is one named, variadic-payload message.
type Message struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args,omitempty"`
}

// New builds a Message, serialising each argument as JSON.
func New(name string, args ...any) (Message, error) {
	m := Message{Name: name}
	if len(args) == 0 {
		return m, nil
	}
	m.Args = make([]json.RawMessage, len(args))
	for i, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return Message{}, fmt.Errorf("channel: encode %s arg %d: %w", name, i, err)
		}
		m.Args[i] = data
	}
	return m, nil
}

// Arg decodes argument i into dst. A missing argument decodes as JSON null,
// which leaves dst untouched.
func (m Message) Arg(i int, dst any) error {
	if i >= len(m.Args) {
		return nil
	}
	if err := json.Unmarshal(m.Args[i], dst); err != nil {
		return fmt.Errorf("channel: decode %s arg %d: %w", m.Name, i, err)
	}
	return nil
}

// Decode parses the JSON envelope {"name": ..., "args": [...]}.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("channel: decode envelope: %w", err)
	}
	if m.Name == "" {
		return Message{}, fmt.Errorf("channel: decode envelope: missing name")
	}
	return m, nil
}

// Sender is the writing end of a one-directional channel.
type Sender interface {
	Send(ctx context.Context, name string, args ...any) error
}

// Queue is an ordered, buffered, one-directional message queue.
type Queue struct {
	ch   chan Message
	done chan struct{}
	once sync.Once
}

// NewQueue creates a Queue. size <= 0 selects the default of 1024.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{
		ch:   make(chan Message, size),
		done: make(chan struct{}),
	}
}

// Send encodes and enqueues a message. It blocks only while the buffer is
// full, and returns ErrClosed once the queue is closed.
func (q *Queue) Send(ctx context.Context, name string, args ...any) error {
	m, err := New(name, args...)
	if err != nil {
		return err
	}
	return q.Put(ctx, m)
}

// Put enqueues an already-built message.
func (q *Queue) Put(ctx context.Context, m Message) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- m:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the receiving end.
func (q *Queue) C() <-chan Message { return q.ch }

// Close stops further sends. Messages already buffered stay readable.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Pipe is a pair of queues: Up carries guest→host events, Down carries
// host→guest commands.
type Pipe struct {
	Up   *Queue
	Down *Queue
}

// NewPipe creates both directions with the same buffer size.
func NewPipe(size int) *Pipe {
	return &Pipe{Up: NewQueue(size), Down: NewQueue(size)}
}

// Close closes both directions.
func (p *Pipe) Close() {
	p.Up.Close()
	p.Down.Close()
}
