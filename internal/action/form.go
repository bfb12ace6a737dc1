package action

import "sync"

// Form holds the signup inputs: the selected activity and the email address.
type Form struct {
	mu       sync.Mutex
	activity string
	email    string
}

// Set replaces both inputs.
func (f *Form) Set(activity, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = activity
	f.email = email
}

// Values returns the current inputs.
func (f *Form) Values() (activity, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity, f.email
}

// Reset clears both inputs, leaving the placeholder selected.
func (f *Form) Reset() {
	f.Set("", "")
}
