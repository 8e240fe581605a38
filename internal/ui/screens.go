package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"livery/internal/dispatch"
)

// screenTitle returns the heading text for a lifecycle screen.
func screenTitle(s dispatch.Screen) string {
	switch s {
	case dispatch.ScreenJobOffer:
		return "Job Offer"
	case dispatch.ScreenEnRoute:
		return "En Route"
	case dispatch.ScreenOnScene:
		return "On Scene"
	case dispatch.ScreenLoad:
		return "Passenger On Board"
	case dispatch.ScreenCompleteJob:
		return "Complete Job"
	case dispatch.ScreenUnload:
		return "Job Completed"
	case dispatch.ScreenRideRejected:
		return "Ride Rejected"
	default:
		return "Job Offer"
	}
}

// screenActions returns the lifecycle keys armed on a screen. Terminal
// screens arm nothing.
func screenActions(s dispatch.Screen, k KeyMap) []key.Binding {
	switch s {
	case dispatch.ScreenJobOffer:
		return []key.Binding{k.Accept, k.Reject}
	case dispatch.ScreenEnRoute:
		return []key.Binding{k.Arrive}
	case dispatch.ScreenOnScene:
		return []key.Binding{k.Start}
	case dispatch.ScreenLoad:
		return []key.Binding{k.AddStop, k.End}
	case dispatch.ScreenCompleteJob:
		return []key.Binding{k.Next, k.Save}
	default:
		return nil
	}
}

// renderFields renders the record's named columns as label/value rows.
// The server decides which fields a screen shows by which headings it sends.
func renderFields(record *dispatch.Record, width int) string {
	if record == nil {
		return ""
	}

	valueWidth := width - 24
	if valueWidth < 20 {
		valueWidth = 20
	}

	var rows []string
	for _, f := range record.Fields() {
		label := f.Label
		if label == "" {
			label = f.Key
		}
		value := wordwrap.String(f.Value, valueWidth)
		rows = append(rows, lipgloss.JoinHorizontal(
			lipgloss.Top,
			fieldLabelStyle.Render(label),
			fieldValueStyle.Render(value),
		))
	}
	return strings.Join(rows, "\n")
}

// renderActions renders the action hint line for a screen.
func renderActions(actions []key.Binding) string {
	if len(actions) == 0 {
		return terminalStyle.Render("No further actions for this job.")
	}

	var hints []string
	for _, b := range actions {
		h := b.Help()
		hints = append(hints, statusBarStyle.Render(h.Key+" "+h.Desc))
	}
	return strings.Join(hints, "    ")
}
