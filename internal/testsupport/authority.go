// Package testsupport provides an in-memory implementation of the activity
// authority's REST contract for tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"example.com/roster/internal/roster"
)

// Route names accepted by Respond and Requests.
const (
	RouteList     = "GET /activities"
	RouteSignup   = "POST /activities/{name}/signup"
	RouteWithdraw = "DELETE /activities/{name}/participants"
)

type cannedResponse struct {
	status int
	body   string
}

// Authority stores activities in memory and serves the authority endpoints.
type Authority struct {
	mu         sync.Mutex
	activities map[string]roster.Activity
	canned     map[string][]cannedResponse
	requests   map[string][]*url.URL
	router     chi.Router
}

// NewAuthority constructs an Authority seeded with activities.
func NewAuthority(seed map[string]roster.Activity) *Authority {
	a := &Authority{
		activities: make(map[string]roster.Activity, len(seed)),
		canned:     make(map[string][]cannedResponse),
		requests:   make(map[string][]*url.URL),
	}
	for name, activity := range seed {
		activity.Name = ""
		activity.Participants = append([]string{}, activity.Participants...)
		a.activities[name] = activity
	}

	r := chi.NewRouter()
	r.Get("/activities", a.record(RouteList, a.list))
	r.Post("/activities/{name}/signup", a.record(RouteSignup, a.signup))
	r.Delete("/activities/{name}/participants", a.record(RouteWithdraw, a.withdraw))
	a.router = r
	return a
}

// Start serves the authority on a loopback listener closed with the test.
func (a *Authority) Start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)
	return srv
}

// ServeHTTP implements http.Handler.
func (a *Authority) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Respond queues a canned response for the next request on route. Queued
// responses bypass the in-memory state.
func (a *Authority) Respond(route string, status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.canned[route] = append(a.canned[route], cannedResponse{status: status, body: body})
}

// Requests returns the URLs received on route.
func (a *Authority) Requests(route string) []*url.URL {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*url.URL(nil), a.requests[route]...)
}

// Activity returns the stored state of an activity.
func (a *Authority) Activity(name string) (roster.Activity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	activity, ok := a.activities[name]
	if ok {
		activity.Name = name
		activity.Participants = append([]string(nil), activity.Participants...)
	}
	return activity, ok
}

func (a *Authority) record(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		u := *r.URL
		a.requests[route] = append(a.requests[route], &u)
		var canned *cannedResponse
		if queue := a.canned[route]; len(queue) > 0 {
			canned = &queue[0]
			a.canned[route] = queue[1:]
		}
		a.mu.Unlock()

		if canned != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.status)
			_, _ = w.Write([]byte(canned.body))
			return
		}
		next(w, r)
	}
}

func (a *Authority) list(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	writeJSON(w, http.StatusOK, a.activities)
}

func (a *Authority) signup(w http.ResponseWriter, r *http.Request) {
	name := activityName(r)
	email := r.URL.Query().Get("email")

	a.mu.Lock()
	defer a.mu.Unlock()

	activity, ok := a.activities[name]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, p := range activity.Participants {
		if strings.ToLower(strings.TrimSpace(p)) == normalized {
			writeDetail(w, http.StatusBadRequest, "Student already signed up for this activity")
			return
		}
	}
	if len(activity.Participants) >= activity.Capacity {
		writeDetail(w, http.StatusBadRequest, "Activity is full")
		return
	}

	activity.Participants = append(activity.Participants, email)
	a.activities[name] = activity
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Signed up %s for %s", email, name)})
}

func (a *Authority) withdraw(w http.ResponseWriter, r *http.Request) {
	name := activityName(r)
	email := r.URL.Query().Get("email")

	a.mu.Lock()
	defer a.mu.Unlock()

	activity, ok := a.activities[name]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	idx := -1
	for i, p := range activity.Participants {
		if p == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Participant not found")
		return
	}

	activity.Participants = append(activity.Participants[:idx:idx], activity.Participants[idx+1:]...)
	a.activities[name] = activity
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Unregistered %s from %s", email, name)})
}

// activityName returns the decoded {name} segment. chi matches on RawPath
// when the request path contains escaped separators.
func activityName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
