package prompt

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

// MultiSelectResult holds the selected option indexes in option order.
type MultiSelectResult struct {
	Indexes   []int
	Cancelled bool
}

type multiSelectModel struct {
	filterList
	prompt   string
	selected map[int]bool

	done      bool
	cancelled bool
}

func newMultiSelectModel(prompt string, options []Option, preselected []int) multiSelectModel {
	m := multiSelectModel{
		filterList: newFilterList(options),
		prompt:     prompt,
		selected:   map[int]bool{},
	}
	for _, i := range preselected {
		if i >= 0 && i < len(options) {
			m.selected[i] = true
		}
	}
	return m
}

func (m multiSelectModel) Init() tea.Cmd {
	return nil
}

func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "space", "tab":
		if idx := m.current(); idx >= 0 {
			m.toggle(idx, !m.selected[idx])
		}
	case "ctrl+a":
		all := true
		for _, idx := range m.filtered {
			all = all && m.selected[idx]
		}
		for _, idx := range m.filtered {
			m.toggle(idx, !all)
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	case "ctrl+c", "esc":
		m.cancelled = true
		m.done = true
		return m, tea.Quit
	default:
		m.handle(key)
	}
	return m, nil
}

func (m multiSelectModel) toggle(idx int, on bool) {
	if on {
		m.selected[idx] = true
	} else {
		delete(m.selected, idx)
	}
}

func (m multiSelectModel) indexes() []int {
	var out []int
	for i := range m.options {
		if m.selected[i] {
			out = append(out, i)
		}
	}
	return out
}

func (m multiSelectModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d selected)\n", styles.PrimaryStyle.Render(m.prompt), len(m.selected))
	m.render(&b, func(idx int) string {
		if m.selected[idx] {
			return styles.SuccessStyle.Render("[x]") + " "
		}
		return "[ ] "
	})
	b.WriteString("\n" + styles.MutedStyle.Render("↑/↓ move • space toggle • ctrl+a all • type to filter • enter confirm • esc cancel"))
	return tea.NewView(b.String())
}

// MultiSelect shows a fuzzy-filtered checklist. preselected indexes start
// checked.
func MultiSelect(prompt string, options []Option, preselected ...int) (MultiSelectResult, error) {
	if len(options) == 0 {
		return MultiSelectResult{Cancelled: true}, nil
	}
	final, err := newProgram(newMultiSelectModel(prompt, options, preselected)).Run()
	if err != nil {
		return MultiSelectResult{}, err
	}
	m := final.(multiSelectModel)
	if m.cancelled {
		return MultiSelectResult{Cancelled: true}, nil
	}
	return MultiSelectResult{Indexes: m.indexes()}, nil
}
