package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// completeForm is the three-field drop-off form on the Complete Job screen.
type completeForm struct {
	inputs []textinput.Model
	focus  int
}

const (
	fieldDropoff = iota
	fieldCityState
	fieldPassenger
)

var completeLabels = [...]string{
	"Drop-off location",
	"City / State",
	"Passenger name",
}

func newCompleteForm() completeForm {
	inputs := make([]textinput.Model, len(completeLabels))
	for i, label := range completeLabels {
		in := textinput.New()
		in.Placeholder = label
		in.CharLimit = 120
		in.Width = 40
		inputs[i] = in
	}
	inputs[0].Focus()
	return completeForm{inputs: inputs}
}

// Next moves focus to the following field, wrapping around.
func (f *completeForm) Next() tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + 1) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// Update forwards a message to the focused input.
func (f *completeForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// Values returns drop-off location, city/state, and passenger name.
func (f *completeForm) Values() (dropoff, cityState, passenger string) {
	return f.inputs[fieldDropoff].Value(),
		f.inputs[fieldCityState].Value(),
		f.inputs[fieldPassenger].Value()
}

// View renders the form with its labels.
func (f *completeForm) View() string {
	var b strings.Builder
	for i, in := range f.inputs {
		b.WriteString(formLabelStyle.Render(completeLabels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		if i < len(f.inputs)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
