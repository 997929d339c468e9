package progress

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

type messageMsg string

// Spinner shows an animated line with a replaceable message.
type Spinner struct {
	d       *display
	initial string
}

// NewSpinner returns a stopped spinner showing message once started.
func NewSpinner(message string) *Spinner {
	return &Spinner{d: newDisplay(), initial: message}
}

// Start draws the spinner. Calling it again has no effect.
func (s *Spinner) Start() {
	s.d.start(func(next tea.Cmd) tea.Model {
		sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.AccentStyle))
		return spinnerModel{spinner: sp, message: s.initial, next: next}
	})
}

// UpdateMessage replaces the message. Before Start it replaces the
// initial message.
func (s *Spinner) UpdateMessage(message string) {
	if !s.d.send(messageMsg(message)) {
		s.initial = message
	}
}

// Stop removes the spinner line.
func (s *Spinner) Stop() {
	s.d.stop()
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	next    tea.Cmd
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messageMsg:
		m.message = string(msg)
		return m, m.next
	case tea.QuitMsg:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() tea.View {
	if m.message == "" {
		return tea.NewView("")
	}
	return tea.NewView(m.spinner.View() + " " + m.message)
}
