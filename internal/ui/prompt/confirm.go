package prompt

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

// answer is the state a prompt ended in.
type answer int

const (
	pending answer = iota
	accepted
	declined
	cancelled
)

// maxLines caps the detail lines shown above a confirmation.
const maxLines = 15

// ConfirmResult holds the result of a confirmation prompt.
type ConfirmResult struct {
	Confirmed bool
	Cancelled bool
}

type confirmModel struct {
	prompt string
	lines  []string
	answer answer
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer = accepted
	case "n", "N", "enter":
		m.answer = declined
	case "ctrl+c", "q", "esc":
		m.answer = cancelled
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() tea.View {
	if m.answer != pending {
		return tea.NewView("")
	}
	var b strings.Builder
	for i, l := range m.lines {
		if i == maxLines {
			b.WriteString("  " + styles.MutedStyle.Render(fmt.Sprintf("... and %d more", len(m.lines)-maxLines)) + "\n")
			break
		}
		b.WriteString("  " + styles.MutedStyle.Render(l) + "\n")
	}
	fmt.Fprintf(&b, "%s [y/N] ", m.prompt)
	return tea.NewView(b.String())
}

// Confirm asks a yes/no question below optional detail lines. Enter
// answers no.
func Confirm(prompt string, lines ...string) (ConfirmResult, error) {
	final, err := newProgram(confirmModel{prompt: prompt, lines: lines}).Run()
	if err != nil {
		return ConfirmResult{}, err
	}
	m := final.(confirmModel)
	return ConfirmResult{
		Confirmed: m.answer == accepted,
		Cancelled: m.answer == cancelled,
	}, nil
}
