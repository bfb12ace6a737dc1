package action

import (
	"sync"

	"github.com/google/uuid"
)

// Key identifies the control that triggered an action.
type Key struct {
	Kind     Kind
	Activity string
	Email    string
}

// Guard tracks which controls have an action in flight. A key can be held by
// at most one action at a time.
type Guard struct {
	mu      sync.Mutex
	pending map[Key]string
}

// NewGuard constructs an empty Guard.
func NewGuard() *Guard {
	return &Guard{pending: make(map[Key]string)}
}

// Acquire marks key pending and returns a token identifying this action. It
// returns false when key is already pending.
func (g *Guard) Acquire(key Key) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.pending[key]; busy {
		return "", false
	}
	token := uuid.NewString()
	g.pending[key] = token
	return token, true
}

// Release clears key if it is still held by token.
func (g *Guard) Release(key Key, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[key] == token {
		delete(g.pending, key)
	}
}

// Pending reports whether key has an action in flight.
func (g *Guard) Pending(key Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[key]
	return ok
}

// AnyPending reports whether any action of kind is in flight.
func (g *Guard) AnyPending(kind Kind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.pending {
		if key.Kind == kind {
			return true
		}
	}
	return false
}

// WithdrawPending matches render.PendingFunc.
func (g *Guard) WithdrawPending(activity, email string) bool {
	return g.Pending(Key{Kind: KindWithdraw, Activity: activity, Email: email})
}
