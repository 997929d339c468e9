package prompt

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

// SelectResult holds the chosen option.
type SelectResult struct {
	Value     string
	Index     int
	Cancelled bool
}

type selectModel struct {
	filterList
	prompt string
	chosen int

	done bool
}

func newSelectModel(prompt string, options []Option) selectModel {
	return selectModel{filterList: newFilterList(options), prompt: prompt, chosen: -1}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "enter":
		if idx := m.current(); idx >= 0 {
			m.chosen = idx
			m.done = true
			return m, tea.Quit
		}
	case "ctrl+c", "esc":
		m.done = true
		return m, tea.Quit
	default:
		m.handle(key)
	}
	return m, nil
}

func (m selectModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}
	var b strings.Builder
	b.WriteString(styles.PrimaryStyle.Render(m.prompt) + "\n")
	m.render(&b, func(int) string { return "" })
	b.WriteString("\n" + styles.MutedStyle.Render("↑/↓ move • type to filter • enter choose • esc cancel"))
	return tea.NewView(b.String())
}

// Select shows a fuzzy-filtered list and returns the chosen option.
func Select(prompt string, options []Option) (SelectResult, error) {
	if len(options) == 0 {
		return SelectResult{Cancelled: true}, nil
	}
	final, err := newProgram(newSelectModel(prompt, options)).Run()
	if err != nil {
		return SelectResult{}, err
	}
	m := final.(selectModel)
	if m.chosen < 0 {
		return SelectResult{Cancelled: true}, nil
	}
	return SelectResult{Value: options[m.chosen].Label, Index: m.chosen}, nil
}
