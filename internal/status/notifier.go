// Package status manages the single transient status message shown to the
// user.
package status

import (
	"sync"
	"time"

	"example.com/roster/internal/observability"
)

// HideDelay is how long a message stays visible.
const HideDelay = 5000 * time.Millisecond

// Kind classifies a status message.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is the current status message. ExpiresAt is zero once the message
// has been hidden.
type Message struct {
	Text      string
	Kind      Kind
	ExpiresAt time.Time
}

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules hide timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

// WithListener registers a callback invoked after every show or hide with the
// message and its visibility. Callbacks are delivered in the order the changes
// were made and must not call back into the Notifier.
func WithListener(fn func(Message, bool)) Option {
	return func(n *Notifier) { n.listeners = append(n.listeners, fn) }
}

// Notifier owns one message and one hide timer. Showing a message releases
// the previous timer before acquiring a new one.
type Notifier struct {
	clock     Clock
	listeners []func(Message, bool)

	// notifyMu orders each state change with its listener delivery.
	notifyMu sync.Mutex

	mu      sync.Mutex
	current Message
	visible bool
	timer   Timer
	// generation invalidates timers that fire after being superseded.
	generation uint64
}

// NewNotifier constructs a Notifier.
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{clock: systemClock{}}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show displays text and schedules it to hide after HideDelay.
func (n *Notifier) Show(text string, kind Kind) {
	n.notifyMu.Lock()
	defer n.notifyMu.Unlock()

	n.mu.Lock()
	n.releaseTimer()
	n.generation++
	gen := n.generation
	n.current = Message{Text: text, Kind: kind, ExpiresAt: n.clock.Now().Add(HideDelay)}
	n.visible = true
	n.timer = n.clock.AfterFunc(HideDelay, func() { n.expire(gen) })
	msg := n.current
	n.mu.Unlock()

	observability.RecordMessage(string(kind))
	n.notify(msg, true)
}

// Hide hides the current message immediately. Hiding an already hidden
// message does nothing.
func (n *Notifier) Hide() {
	n.notifyMu.Lock()
	defer n.notifyMu.Unlock()

	n.mu.Lock()
	if !n.visible {
		n.mu.Unlock()
		return
	}
	n.releaseTimer()
	n.generation++
	msg := n.hideLocked()
	n.mu.Unlock()

	n.notify(msg, false)
}

// Current returns the last message and whether it is visible.
func (n *Notifier) Current() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.visible
}

func (n *Notifier) expire(gen uint64) {
	n.notifyMu.Lock()
	defer n.notifyMu.Unlock()

	n.mu.Lock()
	if gen != n.generation || !n.visible {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	msg := n.hideLocked()
	n.mu.Unlock()

	n.notify(msg, false)
}

func (n *Notifier) hideLocked() Message {
	n.visible = false
	n.current.ExpiresAt = time.Time{}
	return n.current
}

func (n *Notifier) releaseTimer() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) notify(msg Message, visible bool) {
	for _, fn := range n.listeners {
		fn(msg, visible)
	}
}
