// Package session assembles the roster client from configuration.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"example.com/roster/internal/action"
	"example.com/roster/internal/authority"
	"example.com/roster/internal/changefeed"
	"example.com/roster/internal/config"
	"example.com/roster/internal/render"
	"example.com/roster/internal/roster"
	"example.com/roster/internal/status"
)

// Option configures a Session.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	httpClient *http.Client
	clock      status.Clock
	locale     language.Tag
	onRender   []func(render.View)
	onStatus   []func(status.Message, bool)
	reader     changefeed.Reader
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithHTTPClient overrides the authority client's transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithClock overrides the status notifier's clock.
func WithClock(c status.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLocale sets the collation locale for roster ordering.
func WithLocale(tag language.Tag) Option {
	return func(s *settings) { s.locale = tag }
}

// OnRender registers a callback for every rebuilt view.
func OnRender(fn func(render.View)) Option {
	return func(s *settings) { s.onRender = append(s.onRender, fn) }
}

// OnStatus registers a callback for status message changes.
func OnStatus(fn func(status.Message, bool)) Option {
	return func(s *settings) { s.onStatus = append(s.onStatus, fn) }
}

// WithChangeFeedReader replaces the Kafka reader built from configuration.
func WithChangeFeedReader(r changefeed.Reader) Option {
	return func(s *settings) { s.reader = r }
}

// Session holds the wired components of one roster client.
type Session struct {
	Client     *authority.Client
	Notifier   *status.Notifier
	Display    *render.Display
	Store      *roster.Store
	Guard      *action.Guard
	Form       *action.Form
	Controller *action.Controller

	cfg    config.Config
	reader changefeed.Reader
	logger *slog.Logger
}

// New wires the client, store, display, notifier and controller. No request
// is made until Start.
func New(cfg config.Config, opts ...Option) *Session {
	st := settings{logger: slog.Default(), locale: language.Und}
	for _, opt := range opts {
		opt(&st)
	}

	clientOpts := []authority.Option{authority.WithLogger(st.logger)}
	if st.httpClient != nil {
		clientOpts = append(clientOpts, authority.WithHTTPClient(st.httpClient))
	}
	client := authority.NewClient(cfg.AuthorityURL, cfg.HTTPTimeout, clientOpts...)

	notifierOpts := make([]status.Option, 0, len(st.onStatus)+1)
	if st.clock != nil {
		notifierOpts = append(notifierOpts, status.WithClock(st.clock))
	}
	for _, fn := range st.onStatus {
		notifierOpts = append(notifierOpts, status.WithListener(fn))
	}
	notifier := status.NewNotifier(notifierOpts...)

	guard := action.NewGuard()
	displayOpts := []render.DisplayOption{render.WithPending(guard.WithdrawPending), render.WithLocale(st.locale)}
	for _, fn := range st.onRender {
		displayOpts = append(displayOpts, render.OnRender(fn))
	}
	display := render.NewDisplay(displayOpts...)

	storeOpts := []roster.Option{
		roster.WithLogger(st.logger),
		roster.WithSink(display),
		roster.WithLocale(st.locale),
	}
	if cfg.StaleGuard {
		storeOpts = append(storeOpts, roster.WithStaleGuard())
	}
	store := roster.NewStore(client, storeOpts...)

	form := &action.Form{}
	controller := action.NewController(client, store, notifier,
		action.WithLogger(st.logger),
		action.WithForm(form),
		action.WithGuard(guard),
		action.OnPendingChange(display.PendingChanged),
	)

	return &Session{
		Client:     client,
		Notifier:   notifier,
		Display:    display,
		Store:      store,
		Guard:      guard,
		Form:       form,
		Controller: controller,
		cfg:        cfg,
		reader:     st.reader,
		logger:     st.logger,
	}
}

// Start performs the initial roster load. A failed load still leaves the
// session usable; the display shows the failure notice.
func (s *Session) Start(ctx context.Context) error {
	return s.Controller.Init(ctx)
}

// Watch keeps the roster current until ctx is cancelled, following the change
// feed when one is configured and polling otherwise.
func (s *Session) Watch(ctx context.Context) error {
	if s.reader != nil || s.cfg.ChangeFeedEnabled() {
		return s.follow(ctx)
	}
	return s.poll(ctx)
}

func (s *Session) follow(ctx context.Context) error {
	reader := s.reader
	if reader == nil {
		reader = changefeed.NewKafkaReader(changefeed.ReaderConfig{
			Brokers: s.cfg.KafkaBrokers,
			Topic:   s.cfg.KafkaTopic,
			GroupID: s.cfg.KafkaGroupID,
		})
	}
	defer reader.Close()

	s.logger.Info("following roster changes", "topic", s.cfg.KafkaTopic, "group", s.cfg.KafkaGroupID)
	handler := changefeed.NewRefreshHandler(s.Store, changefeed.WithHandlerLogger(s.logger))
	proc := changefeed.NewProcessor(reader, handler, changefeed.WithLogger(s.logger))
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("change feed: %w", err)
	}
	return nil
}

func (s *Session) poll(ctx context.Context) error {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("polling roster", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// Failures are already surfaced through the display.
		_ = s.Store.Refresh(ctx)
	}
}
