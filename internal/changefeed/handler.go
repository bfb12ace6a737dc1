package changefeed

import (
	"context"
	"log/slog"
)

// Refresher reloads the roster.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshHandler reloads the whole roster for every change. Records carry no
// roster state of their own.
type RefreshHandler struct {
	store    Refresher
	logger   *slog.Logger
	onChange func(Change)
}

// HandlerOption configures a RefreshHandler.
type HandlerOption func(*RefreshHandler)

// WithHandlerLogger overrides the handler's logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *RefreshHandler) { h.logger = logger }
}

// OnChange registers fn to run after each successful refresh.
func OnChange(fn func(Change)) HandlerOption {
	return func(h *RefreshHandler) { h.onChange = fn }
}

// NewRefreshHandler constructs a RefreshHandler.
func NewRefreshHandler(store Refresher, opts ...HandlerOption) *RefreshHandler {
	h := &RefreshHandler{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle implements Handler.
func (h *RefreshHandler) Handle(ctx context.Context, change Change) error {
	h.logger.Debug("roster change received", "event_type", change.EventType, "activity", change.Activity)
	if err := h.store.Refresh(ctx); err != nil {
		return err
	}
	if h.onChange != nil {
		h.onChange(change)
	}
	return nil
}
