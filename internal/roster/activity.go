// Package roster holds the client's view of the activity roster reported by
// the remote authority.
package roster

import "time"

// Activity is a named, capacity-bounded enrollment unit.
type Activity struct {
	Name         string   `json:"-"`
	Description  string   `json:"description"`
	Schedule     string   `json:"schedule"`
	Capacity     int      `json:"max_participants"`
	Participants []string `json:"participants"`
}

// SpotsRemaining returns the number of open places. It is negative when the
// authority reports more participants than capacity.
func (a Activity) SpotsRemaining() int {
	return a.Capacity - len(a.Participants)
}

// IsFull returns true when no places remain.
func (a Activity) IsFull() bool {
	return a.SpotsRemaining() <= 0
}

// Snapshot is one complete server-reported state of all activities. A
// snapshot is never mutated after it has been applied to a Store.
type Snapshot struct {
	Activities map[string]Activity
	Sequence   uint64
	ReceivedAt time.Time
}

// NewSnapshot builds a snapshot from decoded activities, copying the
// participant slices so later mutation of the input cannot leak in.
func NewSnapshot(activities map[string]Activity) Snapshot {
	out := make(map[string]Activity, len(activities))
	for name, activity := range activities {
		activity.Name = name
		activity.Participants = append([]string(nil), activity.Participants...)
		out[name] = activity
	}
	return Snapshot{Activities: out}
}

// Len reports the number of activities in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Activities)
}

// Get looks up an activity by name.
func (s Snapshot) Get(name string) (Activity, bool) {
	a, ok := s.Activities[name]
	return a, ok
}
