package roster

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"example.com/roster/internal/observability"
)

// Fetcher reads the full activity set from the remote authority.
type Fetcher interface {
	ListActivities(ctx context.Context) (Snapshot, error)
}

// Sink is notified after every refresh settles. Notifications are delivered
// in the order the store applied them.
type Sink interface {
	SnapshotApplied(Snapshot)
	LoadFailed(error)
}

// Option configures optional Store behaviour.
type Option func(*Store)

// WithLogger overrides the logger used to report refresh failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSink registers a sink for refresh notifications.
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sinks = append(s.sinks, sink) }
}

// WithLocale sets the collation locale used by SortedEntries.
func WithLocale(tag language.Tag) Option {
	return func(s *Store) { s.locale = tag }
}

// WithStaleGuard makes the store drop responses belonging to a refresh that
// started before the currently applied snapshot's refresh. Without it the last
// response to arrive wins, even when it is older.
func WithStaleGuard() Option {
	return func(s *Store) { s.staleGuard = true }
}

// Store holds the most recently applied snapshot.
type Store struct {
	fetcher    Fetcher
	sinks      []Sink
	logger     *slog.Logger
	locale     language.Tag
	staleGuard bool
	now        func() time.Time

	seq atomic.Uint64

	// notifyMu orders apply+notify pairs; mu guards the fields below.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	current  Snapshot
	loadErr  error
}

// NewStore constructs a Store reading from fetcher.
func NewStore(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		fetcher: fetcher,
		logger:  slog.Default(),
		locale:  language.Und,
		now:     time.Now,
		current: Snapshot{Activities: map[string]Activity{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the roster and replaces the current snapshot. On failure the
// previous snapshot stays in place and LoadErr reports the cause.
func (s *Store) Refresh(ctx context.Context) error {
	seq := s.seq.Add(1)
	started := s.now()
	snap, err := s.fetcher.ListActivities(ctx)
	elapsed := s.now().Sub(started)

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.staleGuard && s.current.Sequence > seq {
		applied := s.current.Sequence
		s.mu.Unlock()
		observability.RecordRefresh(observability.RefreshDiscarded, elapsed)
		s.logger.Debug("roster refresh discarded", "sequence", seq, "applied_sequence", applied)
		return nil
	}
	if err != nil {
		s.loadErr = err
		s.mu.Unlock()
		observability.RecordRefresh(observability.RefreshFailed, elapsed)
		s.logger.Warn("roster refresh failed", "sequence", seq, "error", err)
		for _, sink := range s.sinks {
			sink.LoadFailed(err)
		}
		return fmt.Errorf("refresh roster: %w", err)
	}

	if snap.Activities == nil {
		snap.Activities = map[string]Activity{}
	}
	snap.Sequence = seq
	snap.ReceivedAt = s.now().UTC()
	s.current = snap
	s.loadErr = nil
	s.mu.Unlock()

	observability.RecordRefresh(observability.RefreshApplied, elapsed)
	observability.RecordSnapshotApplied(snap.ReceivedAt)
	s.logger.Debug("roster snapshot applied", "sequence", seq, "activities", snap.Len())
	for _, sink := range s.sinks {
		sink.SnapshotApplied(snap)
	}
	return nil
}

// Snapshot returns the current snapshot; it is empty until the first
// successful refresh.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LoadErr returns the failure of the most recent refresh, or nil when it
// succeeded.
func (s *Store) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// SortedEntries returns the current activities ordered by name.
func (s *Store) SortedEntries() []Activity {
	return SortedEntries(s.Snapshot(), s.locale)
}

// SortedEntries orders a snapshot's activities ascending by name using
// locale-aware collation. Names the collator considers equal fall back to a
// byte comparison so the order stays deterministic.
func SortedEntries(snap Snapshot, locale language.Tag) []Activity {
	entries := make([]Activity, 0, len(snap.Activities))
	for name, activity := range snap.Activities {
		activity.Name = name
		entries = append(entries, activity)
	}

	// collate.Collator is not safe for concurrent use.
	collator := collate.New(locale)
	slices.SortFunc(entries, func(a, b Activity) int {
		if c := collator.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return entries
}
