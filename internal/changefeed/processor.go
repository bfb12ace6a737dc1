// Package changefeed refreshes the roster when the authority publishes
// roster changes to Kafka.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types carried in the event_type header.
const (
	EventSignup   = "roster.signup"
	EventWithdraw = "roster.withdraw"
	EventChanged  = "roster.changed"
)

// DefaultTopic is the topic the authority publishes roster changes to.
const DefaultTopic = "roster_changes"

// Reader exposes the subset of kafka.Reader the processor needs.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded change records.
type Handler interface {
	Handle(context.Context, Change) error
}

// Change is a decoded roster-change record.
type Change struct {
	Topic      string
	Partition  int
	Offset     int64
	EventType  string
	Activity   string
	Email      string
	OccurredAt time.Time
}

type changePayload struct {
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the processor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// Processor pulls change records from Kafka and dispatches them to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  slog.Default().With("component", "changefeed"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("fetch failed", "error", err)
			continue
		}

		change, decodeErr := decodeChange(msg)
		if decodeErr != nil {
			p.logger.Warn("dropping malformed record",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", decodeErr)
			recordDecodeError(msg.Topic)
			// Malformed records are committed so they are not redelivered forever.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Warn("commit after decode failure failed", "error", commitErr)
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, change); handleErr != nil {
			p.logger.Error("handler failed", "event_type", change.EventType, "activity", change.Activity, "error", handleErr)
			recordHandlerError(change)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Warn("commit failed", "error", commitErr)
		} else {
			recordProcessed(change)
		}
	}
}

func decodeChange(msg kafka.Message) (Change, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Change{}, errors.New("missing event_type header")
	}
	switch eventType {
	case EventSignup, EventWithdraw, EventChanged:
	default:
		return Change{}, fmt.Errorf("unknown event type %q", eventType)
	}

	var payload changePayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return Change{}, fmt.Errorf("decode payload: %w", err)
	}
	if eventType != EventChanged && payload.Activity == "" {
		return Change{}, errors.New("payload missing activity")
	}

	occurred := payload.OccurredAt
	if occurred.IsZero() {
		occurred = msg.Time
	}
	return Change{
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		EventType:  eventType,
		Activity:   payload.Activity,
		Email:      payload.Email,
		OccurredAt: occurred,
	}, nil
}

func headerValue(msg kafka.Message, key string) (string, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return string(header.Value), true
		}
	}
	return "", false
}
