package prompt

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

// TextInputResult holds the entered text, trimmed.
type TextInputResult struct {
	Value     string
	Cancelled bool
}

type textModel struct {
	input  textinput.Model
	prompt string
	answer answer
}

func newTextModel(prompt, placeholder string) textModel {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.SetWidth(50)
	in.Focus()
	return textModel{input: in, prompt: prompt}
}

func (m textModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "enter":
			// Empty input keeps the prompt open.
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.answer = accepted
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.answer = cancelled
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textModel) View() tea.View {
	if m.answer != pending {
		return tea.NewView("")
	}
	return tea.NewView(styles.PrimaryStyle.Render(m.prompt) + "\n" + m.input.View())
}

// TextInput asks for one line of text, e.g. the node "cachemgr load"
// should point at.
func TextInput(prompt, placeholder string) (TextInputResult, error) {
	final, err := newProgram(newTextModel(prompt, placeholder)).Run()
	if err != nil {
		return TextInputResult{}, err
	}
	m := final.(textModel)
	if m.answer == cancelled {
		return TextInputResult{Cancelled: true}, nil
	}
	return TextInputResult{Value: strings.TrimSpace(m.input.Value())}, nil
}
