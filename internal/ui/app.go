// Package ui contains the root Bubble Tea model for the driver terminal.
// The model never decides transitions itself: it renders whatever screen the
// stored route resolves to, and lifecycle keys only issue dispatch calls
// whose responses move the route.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"

	"livery/internal/dispatch"
	"livery/internal/log"
	"livery/internal/pubsub"
	"livery/internal/session"
	"livery/internal/store"
)

// authDoneMsg reports the terminal state of an authentication run.
type authDoneMsg struct {
	state session.State
}

// actionDoneMsg reports a completed lifecycle call. The store event that
// follows it drives any screen change; this only clears the busy flag.
type actionDoneMsg struct {
	record *dispatch.Record
}

// Model is the root application state.
type Model struct {
	session *session.Session
	ctx     context.Context
	cancel  context.CancelFunc

	storeListener    *pubsub.ContinuousListener[store.Event]
	freshListener    *pubsub.ContinuousListener[time.Time]
	restrictListener *pubsub.ContinuousListener[string]
	logListener      *log.LogListener

	keys KeyMap
	help help.Model
	spin spinner.Model
	form completeForm

	width  int
	height int

	screen      dispatch.Screen
	authState   session.State
	authDone    bool
	busy        bool
	restricted  bool
	lastContact time.Time
	lastLog     string
}

// New creates the root model for an established session.
func New(sess *session.Session) *Model {
	ctx, cancel := context.WithCancel(context.Background())

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(colorAccent)

	return &Model{
		session:          sess,
		ctx:              ctx,
		cancel:           cancel,
		storeListener:    pubsub.NewContinuousListener(ctx, sess.Store().Broker()),
		freshListener:    pubsub.NewContinuousListener(ctx, sess.Scheduler().FreshnessBroker()),
		restrictListener: pubsub.NewContinuousListener(ctx, sess.Scheduler().RestrictBroker()),
		logListener:      log.NewListener(ctx),
		keys:             DefaultKeyMap(),
		help:             help.New(),
		spin:             spin,
		form:             newCompleteForm(),
	}
}

// Close releases listeners and the session's background tasks.
func (m *Model) Close() {
	m.cancel()
	m.session.Close()
}

// Init starts the spinner, the listeners, and the authentication run.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spin.Tick,
		m.authenticateCmd(),
		m.storeListener.Listen(),
		m.freshListener.Listen(),
		m.restrictListener.Listen(),
	}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	return tea.Batch(cmds...)
}

func (m *Model) authenticateCmd() tea.Cmd {
	return func() tea.Msg {
		return authDoneMsg{state: m.session.Authenticate(m.ctx)}
	}
}

func (m *Model) restartCmd() tea.Cmd {
	m.authDone = false
	return func() tea.Msg {
		return authDoneMsg{state: m.session.Restart(m.ctx)}
	}
}

func (m *Model) actionCmd(fn func(context.Context) *dispatch.Record) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return actionDoneMsg{record: fn(m.ctx)}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case authDoneMsg:
		m.authDone = true
		m.restricted = false
		m.authState = msg.state
		m.syncScreen()
		return m, nil

	case actionDoneMsg:
		m.busy = false
		return m, nil

	case pubsub.Event[store.Event]:
		if msg.Payload.JobID == m.session.JobID() || msg.Payload.JobID == "" {
			m.syncScreen()
		}
		return m, m.storeListener.Listen()

	case pubsub.Event[time.Time]:
		m.lastContact = msg.Payload
		return m, m.freshListener.Listen()

	case pubsub.Event[string]:
		if msg.Payload == m.session.JobID() {
			// A restricting flag forces a full reload. The banner stays up
			// until the re-authentication run reports back.
			m.restricted = true
			log.Warn(log.CatUI, "session restricted, reconnecting", "job", msg.Payload)
			return m, tea.Batch(m.restartCmd(), m.restrictListener.Listen())
		}
		return m, m.restrictListener.Listen()

	case log.LogEvent:
		m.lastLog = strings.TrimRight(string(msg.Payload), "\n")
		if m.logListener == nil {
			return m, nil
		}
		return m, m.logListener.Listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// syncScreen re-resolves the active screen from the stored route. Entering
// the completion form resets it.
func (m *Model) syncScreen() {
	next := dispatch.ResolveScreen(m.session.Store().CurrentRoute(m.session.JobID()))
	if next != m.screen && next == dispatch.ScreenCompleteJob {
		m.form = newCompleteForm()
	}
	m.screen = next
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c always quits, even with a focused text input.
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showingUnauthorized() || m.restricted {
		switch {
		case key.Matches(msg, m.keys.Restart):
			return m, m.restartCmd()
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	if !m.ready() || m.busy {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.screen == dispatch.ScreenCompleteJob {
		switch {
		case key.Matches(msg, m.keys.Next):
			return m, m.form.Next()
		case key.Matches(msg, m.keys.Save):
			dropoff, cityState, passenger := m.form.Values()
			return m, m.actionCmd(func(ctx context.Context) *dispatch.Record {
				return m.session.Complete(ctx, dropoff, cityState, passenger)
			})
		}
		// Everything else belongs to the focused input.
		return m, m.form.Update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch m.screen {
	case dispatch.ScreenJobOffer:
		switch {
		case key.Matches(msg, m.keys.Accept):
			return m, m.actionCmd(m.session.Accept)
		case key.Matches(msg, m.keys.Reject):
			return m, m.actionCmd(m.session.Reject)
		}
	case dispatch.ScreenEnRoute:
		if key.Matches(msg, m.keys.Arrive) {
			return m, m.actionCmd(m.session.Arrive)
		}
	case dispatch.ScreenOnScene:
		if key.Matches(msg, m.keys.Start) {
			return m, m.actionCmd(m.session.StartRide)
		}
	case dispatch.ScreenLoad:
		switch {
		case key.Matches(msg, m.keys.AddStop):
			return m, m.actionCmd(m.session.AddStop)
		case key.Matches(msg, m.keys.End):
			return m, m.actionCmd(m.session.End)
		}
	}

	return m, nil
}

// ready reports whether a record exists for this job.
func (m *Model) ready() bool {
	return m.session.Store().JobData(m.session.JobID()) != nil
}

// showingUnauthorized reports whether the error screen should render.
func (m *Model) showingUnauthorized() bool {
	if m.authDone && m.authState == session.StateExhausted {
		return true
	}
	record := m.session.Store().JobData(m.session.JobID())
	return record != nil && record.Unauthorized()
}

// View renders the active screen.
func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	title := titleStyle.Render(ansi.Truncate(
		fmt.Sprintf("livery · job %s", m.session.JobID()), width-2, "…"))

	var body string
	switch {
	case !m.authDone:
		body = fmt.Sprintf("%s Contacting dispatch…", m.spin.View())
	case m.showingUnauthorized():
		body = m.viewUnauthorized(width)
	case !m.ready():
		body = fmt.Sprintf("%s Waiting for job data…", m.spin.View())
	default:
		body = m.viewScreen(width)
	}

	var banner string
	if m.restricted {
		banner = restrictedStyle.Render("Connection restricted, reloading session…") + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		banner+contentStyle.Render(body),
		m.statusBar(width),
	)
}

func (m *Model) viewUnauthorized(width int) string {
	message := dispatch.GenericErrorMessage
	if record := m.session.Store().JobData(m.session.JobID()); record != nil && record.Message() != "" {
		message = dispatch.Sanitize(record.Message())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Render("Not authorized"),
		"",
		wordwrap.String(message, width-6),
		"",
		statusBarStyle.Render("r reconnect    q quit"),
	)
}

func (m *Model) viewScreen(width int) string {
	record := m.session.Store().JobData(m.session.JobID())

	sections := []string{
		screenNameStyle.Render(screenTitle(m.screen)),
		"",
		renderFields(record, width-4),
		"",
	}

	if m.screen == dispatch.ScreenCompleteJob {
		sections = append(sections, m.form.View(), "")
	}

	if m.busy {
		sections = append(sections, fmt.Sprintf("%s Sending…", m.spin.View()))
	} else {
		sections = append(sections, renderActions(screenActions(m.screen, m.keys)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) statusBar(width int) string {
	contact := "–"
	if !m.lastContact.IsZero() {
		contact = m.lastContact.Format("15:04:05")
	}
	left := fmt.Sprintf(" last contact %s", contact)
	bar := statusBarStyle.Render(ansi.Truncate(left, width, "…"))
	if m.lastLog != "" {
		bar += "\n" + statusBarStyle.Render(ansi.Truncate(" "+m.lastLog, width, "…"))
	}
	return bar + "\n" + m.help.View(m.keys)
}
