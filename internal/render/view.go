// Package render projects roster snapshots into a UI-agnostic view model.
package render

import (
	"strconv"

	"example.com/roster/internal/roster"
)

const (
	// PlaceholderLabel is the leading "no activity chosen" option.
	PlaceholderLabel = "-- Select an activity --"
	// LoadFailureNotice replaces the card list when the roster cannot be loaded.
	LoadFailureNotice = "Failed to load activities. Please try again later."
	// FullLabel is the availability text of an activity without open places.
	FullLabel = "Full"
)

// PendingFunc reports whether the withdrawal of email from activity is in
// flight.
type PendingFunc func(activity, email string) bool

// WithdrawControl triggers the withdrawal of one participant.
type WithdrawControl struct {
	Activity string
	Email    string
	Disabled bool
}

// Participant is one row of a card's participant list.
type Participant struct {
	Email    string
	Withdraw WithdrawControl
}

// Card is the display of a single activity.
type Card struct {
	Name         string
	Description  string
	Schedule     string
	Availability string
	Full         bool
	Participants []Participant
}

// Option is one entry of the activity selection control.
type Option struct {
	Value       string
	Label       string
	Disabled    bool
	Placeholder bool
}

// View is the full rendered state. Notice is set instead of Cards when the
// last load failed.
type View struct {
	Cards   []Card
	Options []Option
	Notice  string
}

// Placeholder returns the non-selectable leading option.
func Placeholder() Option {
	return Option{Value: "", Label: PlaceholderLabel, Disabled: true, Placeholder: true}
}

// Availability returns "{n} spots left" or "Full".
func Availability(a roster.Activity) string {
	if spots := a.SpotsRemaining(); spots > 0 {
		return strconv.Itoa(spots) + " spots left"
	}
	return FullLabel
}

// Project builds a view from entries, which must already be in display order.
// Every call builds a fresh view; nothing is shared with earlier results.
func Project(entries []roster.Activity, pending PendingFunc) View {
	view := View{
		Cards:   make([]Card, 0, len(entries)),
		Options: make([]Option, 0, len(entries)+1),
	}
	view.Options = append(view.Options, Placeholder())

	for _, activity := range entries {
		full := activity.IsFull()

		card := Card{
			Name:         activity.Name,
			Description:  activity.Description,
			Schedule:     activity.Schedule,
			Availability: Availability(activity),
			Full:         full,
			Participants: make([]Participant, 0, len(activity.Participants)),
		}
		for _, email := range activity.Participants {
			card.Participants = append(card.Participants, Participant{
				Email: email,
				Withdraw: WithdrawControl{
					Activity: activity.Name,
					Email:    email,
					Disabled: pending != nil && pending(activity.Name, email),
				},
			})
		}
		view.Cards = append(view.Cards, card)

		option := Option{Value: activity.Name, Label: activity.Name}
		if full {
			option.Label = activity.Name + " (Full)"
			option.Disabled = true
		}
		view.Options = append(view.Options, option)
	}
	return view
}
