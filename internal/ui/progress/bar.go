package progress

import (
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

type stepMsg struct {
	done, total int
	label       string
}

// Bar shows how many steps of a batch are done:
//
//	[████████░░░░░░░░]  2/5 deleting flip/v003
type Bar struct {
	d *display
}

// NewBar returns a bar that appears with the first step.
func NewBar() *Bar {
	return &Bar{d: newDisplay()}
}

// Step adapts the bar to a per-step callback such as
// action.WithProgress. Each step is labelled "verb target".
func (b *Bar) Step(verb string) func(done, total int, target string) {
	return func(done, total int, target string) {
		msg := stepMsg{done: done, total: total, label: verb + " " + target}
		b.d.start(func(next tea.Cmd) tea.Model {
			return barModel{
				bar:  progress.New(progress.WithWidth(32), progress.WithoutPercentage(), progress.WithColors(styles.Primary, styles.Accent)),
				step: msg,
				next: next,
			}
		})
		b.d.send(msg)
	}
}

// Stop removes the bar line.
func (b *Bar) Stop() {
	b.d.stop()
}

type barModel struct {
	bar  progress.Model
	step stepMsg
	next tea.Cmd
}

func (m barModel) Init() tea.Cmd {
	return m.next
}

func (m barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		m.step = msg
		return m, m.next
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m barModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m barModel) render() string {
	s := m.step
	if s.total <= 0 {
		return ""
	}
	width := len(fmt.Sprint(s.total))
	return fmt.Sprintf("%s %*d/%d %s", m.bar.ViewAs(float64(s.done)/float64(s.total)), width, s.done, s.total, s.label)
}
