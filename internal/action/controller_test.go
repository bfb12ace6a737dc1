package action

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/roster/internal/authority"
	"example.com/roster/internal/status"
)

func TestSignupSuccessShowsOneMessageAndRefreshesOnce(t *testing.T) {
	auth := &stubAuthority{signupReply: authority.Reply{Status: http.StatusOK, Message: "Signed up x@y.com for Art", Decoded: true}}
	store := &stubRefresher{}
	notifier := &recordingNotifier{}
	form := &Form{}
	form.Set("Art", "x@y.com")
	c := NewController(auth, store, notifier, WithForm(form))

	outcome := c.Submit(context.Background(), form)

	require.Equal(t, Succeeded, outcome)
	require.Equal(t, []shown{{"Signed up x@y.com for Art", status.KindSuccess}}, notifier.messages)
	require.Equal(t, 1, store.calls)
	require.Equal(t, 1, auth.signupCalls)
	activity, email := form.Values()
	require.Empty(t, activity)
	require.Empty(t, email)
}

func TestSignupWithoutActivityIssuesNoRequest(t *testing.T) {
	auth := &stubAuthority{}
	store := &stubRefresher{}
	notifier := &recordingNotifier{}
	c := NewController(auth, store, notifier)

	require.Equal(t, Invalid, c.Signup(context.Background(), "", "x@y.com"))
	require.Equal(t, Invalid, c.Signup(context.Background(), "  ", "x@y.com"))

	require.Zero(t, auth.signupCalls)
	require.Zero(t, store.calls)
	require.Equal(t, shown{MsgSelectActivity, status.KindError}, notifier.last())
}

func TestSignupWithoutEmailIssuesNoRequest(t *testing.T) {
	auth := &stubAuthority{}
	notifier := &recordingNotifier{}
	c := NewController(auth, &stubRefresher{}, notifier)

	require.Equal(t, Invalid, c.Signup(context.Background(), "Art", ""))
	require.Zero(t, auth.signupCalls)
	require.Equal(t, shown{MsgEnterEmail, status.KindError}, notifier.last())
}

func TestSignupRejectionUsesDetail(t *testing.T) {
	auth := &stubAuthority{signupReply: authority.Reply{Status: http.StatusBadRequest, Detail: "Activity full", Message: "ignored", Decoded: true}}
	store := &stubRefresher{}
	notifier := &recordingNotifier{}
	form := &Form{}
	form.Set("Art", "x@y.com")
	c := NewController(auth, store, notifier, WithForm(form))

	outcome := c.Signup(context.Background(), "Art", "x@y.com")

	require.Equal(t, Rejected, outcome)
	require.Equal(t, []shown{{"Activity full", status.KindError}}, notifier.messages)
	require.Zero(t, store.calls)
	require.False(t, c.Guard().Pending(Key{Kind: KindSignup, Activity: "Art", Email: "x@y.com"}))
	activity, _ := form.Values()
	require.Equal(t, "Art", activity, "form is kept on rejection")
}

func TestSignupReplyFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		reply authority.Reply
		want  shown
	}{
		{name: "non-json success", reply: authority.Reply{Status: http.StatusOK}, want: shown{MsgGenericSuccess, status.KindSuccess}},
		{name: "json success without message", reply: authority.Reply{Status: http.StatusCreated, Decoded: true}, want: shown{MsgGenericSuccess, status.KindSuccess}},
		{name: "rejection with message only", reply: authority.Reply{Status: http.StatusConflict, Message: "Already registered", Decoded: true}, want: shown{"Already registered", status.KindError}},
		{name: "non-json rejection", reply: authority.Reply{Status: http.StatusInternalServerError}, want: shown{MsgSignupRejected, status.KindError}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			c := NewController(&stubAuthority{signupReply: tc.reply}, &stubRefresher{}, notifier)
			c.Signup(context.Background(), "Art", "x@y.com")
			require.Equal(t, []shown{tc.want}, notifier.messages)
		})
	}
}

func TestSignupTransportFailure(t *testing.T) {
	auth := &stubAuthority{signupErr: &authority.TransportError{Op: "signup", Err: errors.New("connection reset")}}
	store := &stubRefresher{}
	notifier := &recordingNotifier{}
	c := NewController(auth, store, notifier)

	require.Equal(t, TransportFailed, c.Signup(context.Background(), "Art", "x@y.com"))
	require.Equal(t, []shown{{MsgSignupFailed, status.KindError}}, notifier.messages)
	require.Zero(t, store.calls)
	require.False(t, c.Guard().AnyPending(KindSignup))
}

func TestControlPendingForWholeSpan(t *testing.T) {
	key := Key{Kind: KindSignup, Activity: "Art", Email: "x@y.com"}

	cases := map[string]*stubAuthority{
		"success":   {signupReply: authority.Reply{Status: http.StatusOK, Message: "ok", Decoded: true}},
		"rejection": {signupReply: authority.Reply{Status: http.StatusBadRequest, Detail: "nope", Decoded: true}},
		"transport": {signupErr: errors.New("dial tcp: refused")},
	}

	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			store := &stubRefresher{}
			c := NewController(auth, store, &recordingNotifier{})

			auth.onSignup = func() {
				require.True(t, c.Guard().Pending(key))
				require.True(t, c.Guard().AnyPending(KindSignup))
			}
			store.onRefresh = func() {
				require.True(t, c.Guard().Pending(key), "still pending during the follow-up refresh")
			}

			c.Signup(context.Background(), key.Activity, key.Email)
			require.False(t, c.Guard().Pending(key))
			require.False(t, c.Guard().AnyPending(KindSignup))
		})
	}
}

func TestReentrantSignupIsBlocked(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	auth := &stubAuthority{
		signupReply: authority.Reply{Status: http.StatusOK, Message: "ok", Decoded: true},
		block:       release,
		entered:     entered,
	}
	c := NewController(auth, &stubRefresher{}, &recordingNotifier{})

	var wg sync.WaitGroup
	var first Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = c.Signup(context.Background(), "Art", "x@y.com")
	}()
	<-entered

	require.Equal(t, Busy, c.Signup(context.Background(), "Art", "x@y.com"))
	close(release)
	wg.Wait()

	require.Equal(t, Succeeded, first)
	require.Equal(t, 1, auth.calls())
}

func TestWithdrawSuccessRefreshesBeforeReenabling(t *testing.T) {
	key := Key{Kind: KindWithdraw, Activity: "Chess Club", Email: "a@y.com"}
	auth := &stubAuthority{withdrawReply: authority.Reply{Status: http.StatusOK, Message: "Unregistered a@y.com from Chess Club", Decoded: true}}
	store := &stubRefresher{}
	notifier := &recordingNotifier{}
	c := NewController(auth, store, notifier)
	store.onRefresh = func() {
		require.True(t, c.Guard().WithdrawPending(key.Activity, key.Email))
		require.Len(t, notifier.messages, 1, "message is shown before the refresh")
	}

	require.Equal(t, Succeeded, c.Withdraw(context.Background(), key.Activity, key.Email))
	require.Equal(t, []shown{{"Unregistered a@y.com from Chess Club", status.KindSuccess}}, notifier.messages)
	require.Equal(t, 1, store.calls)
	require.False(t, c.Guard().Pending(key))
}

func TestWithdrawFailures(t *testing.T) {
	tests := []struct {
		name    string
		auth    *stubAuthority
		outcome Outcome
		want    shown
	}{
		{
			name:    "rejection with detail",
			auth:    &stubAuthority{withdrawReply: authority.Reply{Status: http.StatusNotFound, Detail: "Participant not found", Decoded: true}},
			outcome: Rejected,
			want:    shown{"Participant not found", status.KindError},
		},
		{
			name:    "rejection without detail",
			auth:    &stubAuthority{withdrawReply: authority.Reply{Status: http.StatusBadRequest, Message: "unused", Decoded: true}},
			outcome: Rejected,
			want:    shown{MsgWithdrawRejected, status.KindError},
		},
		{
			name:    "non-json body",
			auth:    &stubAuthority{withdrawReply: authority.Reply{Status: http.StatusBadGateway}},
			outcome: TransportFailed,
			want:    shown{MsgWithdrawFailed, status.KindError},
		},
		{
			name:    "transport",
			auth:    &stubAuthority{withdrawErr: errors.New("i/o timeout")},
			outcome: TransportFailed,
			want:    shown{MsgWithdrawFailed, status.KindError},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubRefresher{}
			notifier := &recordingNotifier{}
			c := NewController(tc.auth, store, notifier)

			require.Equal(t, tc.outcome, c.Withdraw(context.Background(), "Chess Club", "a@y.com"))
			require.Equal(t, []shown{tc.want}, notifier.messages)
			require.Zero(t, store.calls)
			require.False(t, c.Guard().AnyPending(KindWithdraw))
		})
	}
}

func TestRefreshFailureAfterSuccessKeepsOutcome(t *testing.T) {
	tests := []struct {
		name string
		run  func(*Controller) Outcome
		key  Key
		want string
	}{
		{
			name: "signup",
			run:  func(c *Controller) Outcome { return c.Signup(context.Background(), "Art", "x@y.com") },
			key:  Key{Kind: KindSignup, Activity: "Art", Email: "x@y.com"},
			want: "Signed up x@y.com for Art",
		},
		{
			name: "withdraw",
			run:  func(c *Controller) Outcome { return c.Withdraw(context.Background(), "Art", "a@y.com") },
			key:  Key{Kind: KindWithdraw, Activity: "Art", Email: "a@y.com"},
			want: "Unregistered a@y.com from Art",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth := &stubAuthority{
				signupReply:   authority.Reply{Status: http.StatusOK, Message: "Signed up x@y.com for Art", Decoded: true},
				withdrawReply: authority.Reply{Status: http.StatusOK, Message: "Unregistered a@y.com from Art", Decoded: true},
			}
			store := &stubRefresher{err: errors.New("authority unavailable")}
			notifier := &recordingNotifier{}
			c := NewController(auth, store, notifier)

			require.Equal(t, Succeeded, tc.run(c))
			require.Equal(t, []shown{{tc.want, status.KindSuccess}}, notifier.messages)
			require.Equal(t, 1, store.calls)
			require.False(t, c.Guard().Pending(tc.key))
		})
	}
}

func TestPendingChangesAreAnnounced(t *testing.T) {
	key := Key{Kind: KindWithdraw, Activity: "Chess Club", Email: "a@y.com"}

	cases := map[string]*stubAuthority{
		"success":   {withdrawReply: authority.Reply{Status: http.StatusOK, Message: "ok", Decoded: true}},
		"rejection": {withdrawReply: authority.Reply{Status: http.StatusNotFound, Detail: "Participant not found", Decoded: true}},
		"transport": {withdrawErr: errors.New("connection refused")},
	}

	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			var c *Controller
			var seen []bool
			c = NewController(auth, &stubRefresher{}, &recordingNotifier{},
				OnPendingChange(func() { seen = append(seen, c.Guard().Pending(key)) }))

			c.Withdraw(context.Background(), key.Activity, key.Email)
			require.Equal(t, []bool{true, false}, seen)
		})
	}
}

func TestSignupsForDifferentStudentsAreIndependent(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	blocked := &stubAuthority{
		signupReply: authority.Reply{Status: http.StatusOK, Message: "ok", Decoded: true},
		block:       release,
		entered:     entered,
	}
	g := NewGuard()
	first := NewController(blocked, &stubRefresher{}, &recordingNotifier{}, WithGuard(g))
	second := NewController(&stubAuthority{signupReply: authority.Reply{Status: http.StatusOK, Message: "ok", Decoded: true}},
		&stubRefresher{}, &recordingNotifier{}, WithGuard(g))

	done := make(chan Outcome, 1)
	go func() { done <- first.Signup(context.Background(), "Art", "x@y.com") }()
	<-entered

	require.True(t, g.AnyPending(KindSignup))
	require.Equal(t, Succeeded, second.Signup(context.Background(), "Art", "z@y.com"))
	require.True(t, g.Pending(Key{Kind: KindSignup, Activity: "Art", Email: "x@y.com"}))

	close(release)
	require.Equal(t, Succeeded, <-done)
	require.False(t, g.AnyPending(KindSignup))
}

func TestDifferentControlsRunConcurrently(t *testing.T) {
	g := NewGuard()
	a := Key{Kind: KindWithdraw, Activity: "Chess Club", Email: "a@y.com"}
	b := Key{Kind: KindWithdraw, Activity: "Chess Club", Email: "b@y.com"}

	tokenA, ok := g.Acquire(a)
	require.True(t, ok)
	tokenB, ok := g.Acquire(b)
	require.True(t, ok)
	require.NotEqual(t, tokenA, tokenB)

	_, ok = g.Acquire(a)
	require.False(t, ok)

	g.Release(a, "stale-token")
	require.True(t, g.Pending(a))
	g.Release(a, tokenA)
	require.False(t, g.Pending(a))
	require.True(t, g.Pending(b))
}

type shown struct {
	text string
	kind status.Kind
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []shown
}

func (n *recordingNotifier) Show(text string, kind status.Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, shown{text: text, kind: kind})
}

func (n *recordingNotifier) last() shown {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages[len(n.messages)-1]
}

type stubRefresher struct {
	calls     int
	err       error
	onRefresh func()
}

func (r *stubRefresher) Refresh(context.Context) error {
	r.calls++
	if r.onRefresh != nil {
		r.onRefresh()
	}
	return r.err
}

type stubAuthority struct {
	mu            sync.Mutex
	signupCalls   int
	withdrawCalls int

	signupReply   authority.Reply
	signupErr     error
	withdrawReply authority.Reply
	withdrawErr   error

	onSignup func()
	block    chan struct{}
	entered  chan struct{}
}

func (a *stubAuthority) Signup(context.Context, string, string) (authority.Reply, error) {
	a.mu.Lock()
	a.signupCalls++
	a.mu.Unlock()

	if a.onSignup != nil {
		a.onSignup()
	}
	if a.entered != nil {
		close(a.entered)
		<-a.block
	}
	return a.signupReply, a.signupErr
}

func (a *stubAuthority) Withdraw(context.Context, string, string) (authority.Reply, error) {
	a.mu.Lock()
	a.withdrawCalls++
	a.mu.Unlock()
	return a.withdrawReply, a.withdrawErr
}

func (a *stubAuthority) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signupCalls + a.withdrawCalls
}
