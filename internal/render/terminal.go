package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"example.com/roster/internal/status"
)

// Styles holds the terminal styles used by Format.
type Styles struct {
	Card     lipgloss.Style
	FullCard lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Notice   lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the styles used by the roster CLI.
func DefaultStyles() Styles {
	return Styles{
		Card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		FullCard: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 1),
		Title:    lipgloss.NewStyle().Bold(true),
		Label:    lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Notice:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

// Format renders a view as terminal text: one bordered block per card, then
// the selection options.
func Format(view View, styles Styles) string {
	var b strings.Builder

	if view.Notice != "" {
		b.WriteString(styles.Notice.Render(view.Notice))
		b.WriteString("\n")
	}

	for _, card := range view.Cards {
		var body strings.Builder
		body.WriteString(styles.Title.Render(card.Name))
		body.WriteString("\n")
		body.WriteString(card.Description)
		body.WriteString("\n")
		body.WriteString(styles.Label.Render("Schedule:") + " " + card.Schedule)
		body.WriteString("\n")
		body.WriteString(styles.Label.Render("Availability:") + " " + card.Availability)
		body.WriteString("\n")
		body.WriteString(styles.Label.Render("Participants:"))
		if len(card.Participants) == 0 {
			body.WriteString("\n" + styles.Muted.Render("  (none)"))
		}
		for _, p := range card.Participants {
			body.WriteString("\n  - " + p.Email)
			if p.Withdraw.Disabled {
				body.WriteString(" " + styles.Muted.Render("(withdrawing…)"))
			}
		}

		style := styles.Card
		if card.Full {
			style = styles.FullCard
		}
		b.WriteString(style.Render(body.String()))
		b.WriteString("\n")
	}

	b.WriteString(styles.Label.Render("Activities:"))
	for _, opt := range view.Options {
		if opt.Placeholder {
			continue
		}
		line := "\n  " + opt.Label
		if opt.Disabled {
			line = "\n  " + styles.Muted.Render(opt.Label)
		}
		b.WriteString(line)
	}
	b.WriteString("\n")
	return b.String()
}

// FormatStatus renders a status message, or an empty string when hidden.
func FormatStatus(msg status.Message, visible bool, styles Styles) string {
	if !visible {
		return ""
	}
	if msg.Kind == status.KindError {
		return styles.Error.Render(msg.Text)
	}
	return styles.Success.Render(msg.Text)
}
