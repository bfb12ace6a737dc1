// Package action orchestrates signup and withdrawal requests against the
// activity authority.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"example.com/roster/internal/authority"
	"example.com/roster/internal/observability"
	"example.com/roster/internal/status"
)

// Kind names an action.
type Kind string

const (
	KindSignup   Kind = "signup"
	KindWithdraw Kind = "withdraw"
)

// Outcome is how an action settled.
type Outcome string

const (
	Succeeded       Outcome = "succeeded"
	Invalid         Outcome = "invalid"
	Busy            Outcome = "busy"
	Rejected        Outcome = "rejected"
	TransportFailed Outcome = "transport_failed"
)

// User-facing status texts.
const (
	MsgSelectActivity    = "Please select an activity."
	MsgEnterEmail        = "Please enter an email address."
	MsgSelectParticipant = "Please select a participant."
	MsgGenericSuccess    = "Success"
	MsgSignupRejected    = "An error occurred"
	MsgSignupFailed      = "Failed to sign up. Please try again."
	MsgWithdrawRejected  = "Failed to unregister"
	MsgWithdrawFailed    = "Failed to unregister. Please try again."
)

// Authority performs the remote mutations. Errors are reserved for requests
// that did not complete.
type Authority interface {
	Signup(ctx context.Context, activity, email string) (authority.Reply, error)
	Withdraw(ctx context.Context, activity, email string) (authority.Reply, error)
}

// Refresher reloads the roster.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier displays status messages.
type Notifier interface {
	Show(text string, kind status.Kind)
}

// FormResetter clears the signup inputs after a successful signup.
type FormResetter interface {
	Reset()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger overrides the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithForm resets form after every successful signup.
func WithForm(form FormResetter) Option {
	return func(c *Controller) { c.form = form }
}

// WithGuard shares a pending-action guard, typically with the renderer.
func WithGuard(g *Guard) Option {
	return func(c *Controller) { c.guard = g }
}

// OnPendingChange registers fn to run whenever an action becomes pending or
// settles, typically to re-render the roster's withdrawal controls.
func OnPendingChange(fn func()) Option {
	return func(c *Controller) { c.onPending = append(c.onPending, fn) }
}

// Controller runs signup and withdraw actions, reports their outcome through
// the notifier and refreshes the roster after successful mutations.
type Controller struct {
	authority Authority
	store     Refresher
	notifier  Notifier
	form      FormResetter
	guard     *Guard
	onPending []func()
	logger    *slog.Logger
}

// NewController constructs a Controller.
func NewController(auth Authority, store Refresher, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		authority: auth,
		store:     store,
		notifier:  notifier,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.guard == nil {
		c.guard = NewGuard()
	}
	return c
}

// Guard returns the controller's pending-action guard.
func (c *Controller) Guard() *Guard {
	return c.guard
}

// Init performs the initial roster load.
func (c *Controller) Init(ctx context.Context) error {
	return c.store.Refresh(ctx)
}

// Signup enrolls email in activity. The triggering control is pending from
// the request until the outcome, including the follow-up refresh, is settled.
func (c *Controller) Signup(ctx context.Context, activity, email string) Outcome {
	if strings.TrimSpace(activity) == "" {
		c.notifier.Show(MsgSelectActivity, status.KindError)
		return c.settle(KindSignup, Invalid)
	}
	if strings.TrimSpace(email) == "" {
		c.notifier.Show(MsgEnterEmail, status.KindError)
		return c.settle(KindSignup, Invalid)
	}

	key := Key{Kind: KindSignup, Activity: activity, Email: email}
	token, ok := c.guard.Acquire(key)
	if !ok {
		return c.settle(KindSignup, Busy)
	}
	defer c.release(key, token)
	c.pendingChanged()

	logger := c.logger.With("action_id", token, "kind", KindSignup, "activity", activity)

	reply, err := c.authority.Signup(ctx, activity, email)
	if err != nil {
		logger.Error("signup request failed", "error", err)
		c.notifier.Show(MsgSignupFailed, status.KindError)
		return c.settle(KindSignup, TransportFailed)
	}

	if !reply.OK() {
		logger.Info("signup rejected", "status", reply.Status)
		c.notifier.Show(firstNonEmpty(reply.Detail, reply.Message, MsgSignupRejected), status.KindError)
		return c.settle(KindSignup, Rejected)
	}

	c.notifier.Show(firstNonEmpty(reply.Message, MsgGenericSuccess), status.KindSuccess)
	if c.form != nil {
		c.form.Reset()
	}
	c.refreshAfter(ctx, logger)
	return c.settle(KindSignup, Succeeded)
}

// Submit runs Signup with the current values of form.
func (c *Controller) Submit(ctx context.Context, form *Form) Outcome {
	activity, email := form.Values()
	return c.Signup(ctx, activity, email)
}

// Withdraw removes email from activity. On success the control stays pending
// until the refreshed roster has been applied.
func (c *Controller) Withdraw(ctx context.Context, activity, email string) Outcome {
	if strings.TrimSpace(activity) == "" || strings.TrimSpace(email) == "" {
		c.notifier.Show(MsgSelectParticipant, status.KindError)
		return c.settle(KindWithdraw, Invalid)
	}

	key := Key{Kind: KindWithdraw, Activity: activity, Email: email}
	token, ok := c.guard.Acquire(key)
	if !ok {
		return c.settle(KindWithdraw, Busy)
	}
	defer c.release(key, token)
	c.pendingChanged()

	logger := c.logger.With("action_id", token, "kind", KindWithdraw, "activity", activity)

	reply, err := c.authority.Withdraw(ctx, activity, email)
	if err == nil && !reply.Decoded {
		// The body must be JSON on every path; anything else is treated like
		// a broken connection.
		err = fmt.Errorf("withdraw reply: %w", authority.ErrDecode)
	}
	if err != nil {
		logger.Error("withdraw request failed", "status", reply.Status, "error", err)
		c.notifier.Show(MsgWithdrawFailed, status.KindError)
		return c.settle(KindWithdraw, TransportFailed)
	}

	if !reply.OK() {
		logger.Info("withdraw rejected", "status", reply.Status)
		c.notifier.Show(firstNonEmpty(reply.Detail, MsgWithdrawRejected), status.KindError)
		return c.settle(KindWithdraw, Rejected)
	}

	c.notifier.Show(firstNonEmpty(reply.Message, MsgGenericSuccess), status.KindSuccess)
	c.refreshAfter(ctx, logger)
	return c.settle(KindWithdraw, Succeeded)
}

func (c *Controller) release(key Key, token string) {
	c.guard.Release(key, token)
	c.pendingChanged()
}

func (c *Controller) pendingChanged() {
	for _, fn := range c.onPending {
		fn()
	}
}

func (c *Controller) refreshAfter(ctx context.Context, logger *slog.Logger) {
	// A failed refresh is surfaced by the display's fallback notice; the
	// mutation itself already succeeded.
	if err := c.store.Refresh(ctx); err != nil {
		logger.Warn("roster refresh after mutation failed", "error", err)
	}
}

func (c *Controller) settle(kind Kind, outcome Outcome) Outcome {
	observability.RecordAction(string(kind), string(outcome))
	return outcome
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
