package render

import (
	"sync"

	"golang.org/x/text/language"

	"example.com/roster/internal/roster"
)

// DisplayOption configures a Display.
type DisplayOption func(*Display)

// WithPending marks withdrawal controls of in-flight actions as disabled.
func WithPending(fn PendingFunc) DisplayOption {
	return func(d *Display) { d.pending = fn }
}

// WithLocale sets the collation locale for card and option order.
func WithLocale(tag language.Tag) DisplayOption {
	return func(d *Display) { d.locale = tag }
}

// OnRender registers a callback receiving every rebuilt view.
func OnRender(fn func(View)) DisplayOption {
	return func(d *Display) { d.listeners = append(d.listeners, fn) }
}

// Display keeps the currently rendered view and rebuilds it whenever the
// roster store reports a refresh. It implements roster.Sink.
type Display struct {
	pending   PendingFunc
	locale    language.Tag
	listeners []func(View)

	// renderMu serializes rebuilds so listeners see views in order.
	renderMu sync.Mutex
	snap     roster.Snapshot
	loaded   bool
	failed   bool

	mu   sync.Mutex
	view View
}

var _ roster.Sink = (*Display)(nil)

// NewDisplay constructs a Display showing only the placeholder option.
func NewDisplay(opts ...DisplayOption) *Display {
	d := &Display{
		locale: language.Und,
		view:   View{Options: []Option{Placeholder()}},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SnapshotApplied discards the current view and renders snap.
func (d *Display) SnapshotApplied(snap roster.Snapshot) {
	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	d.snap, d.loaded, d.failed = snap, true, false
	d.set(Project(roster.SortedEntries(snap, d.locale), d.pending))
}

// LoadFailed replaces the cards with the failure notice. The options keep
// their last-known state.
func (d *Display) LoadFailed(error) {
	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	d.failed = true
	d.mu.Lock()
	options := d.view.Options
	d.mu.Unlock()

	d.set(View{Options: options, Notice: LoadFailureNotice})
}

// PendingChanged re-renders the last applied snapshot so withdrawal controls
// follow the pending state. It does nothing while the failure notice is shown.
func (d *Display) PendingChanged() {
	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	if !d.loaded || d.failed {
		return
	}
	d.set(Project(roster.SortedEntries(d.snap, d.locale), d.pending))
}

// View returns the current view.
func (d *Display) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

func (d *Display) set(view View) {
	d.mu.Lock()
	d.view = view
	d.mu.Unlock()

	for _, fn := range d.listeners {
		fn(view)
	}
}
