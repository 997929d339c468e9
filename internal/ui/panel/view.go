package panel

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/ui/progress"
	"github.com/raphi011/cachemgr/internal/ui/styles"
	"github.com/raphi011/cachemgr/internal/view"
)

const help = "↑/↓ move • →/← expand • / filter • 1-6 ext • m malformed • r rescan • u update • enter load • d delete • y copy • o open • q quit"

// View implements tea.Model.
func (m *Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	var b strings.Builder
	b.WriteString(m.header() + "\n")
	b.WriteString(m.filterLine() + "\n")

	lines := m.listLines()
	for _, l := range lines {
		b.WriteString(ansi.Truncate(l, m.width, "…") + "\n")
	}
	for range m.listHeight() - len(lines) {
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(styles.MutedStyle.Render(ansi.Truncate(help, m.width, "…")))

	v := tea.NewView(b.String())
	v.AltScreen = true
	if m.confirm != nil {
		v = tea.NewView(m.confirmView())
		v.AltScreen = true
	}
	return v
}

func (m *Model) header() string {
	root := ""
	if m.tree != nil {
		root = m.tree.Root
	}
	parts := []string{styles.PrimaryStyle.Bold(true).Render("cachemgr"), styles.FormatPath(root)}
	for _, g := range view.Groups {
		label := fmt.Sprintf("[%s %s]", g.Key, g.Label)
		if m.groups[g.Key] {
			parts = append(parts, styles.AccentStyle.Render(label))
		} else {
			parts = append(parts, styles.MutedStyle.Render(label))
		}
	}
	mal := "[m malformed]"
	if m.filter.ShowMalformed {
		parts = append(parts, styles.AccentStyle.Render(mal))
	} else {
		parts = append(parts, styles.MutedStyle.Render(mal))
	}
	return strings.Join(parts, " ")
}

func (m *Model) filterLine() string {
	if m.filtering {
		return m.input.View()
	}
	if m.filter.Query != "" {
		return styles.MutedStyle.Render("/") + m.filter.Query + styles.MutedStyle.Render(fmt.Sprintf("  (%d of %d caches)", len(m.rows), len(m.tree.Caches)))
	}
	return ""
}

func (m *Model) listLines() []string {
	if len(m.items) == 0 {
		switch {
		case m.tree == nil:
			return []string{styles.MutedStyle.Render("  waiting for the first scan")}
		case len(m.tree.Caches) == 0:
			return []string{styles.MutedStyle.Render("  no caches under " + m.tree.Root)}
		default:
			return []string{styles.MutedStyle.Render("  no caches match the filter")}
		}
	}

	end := min(m.offset+m.listHeight(), len(m.items))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		it := m.items[i]
		var line string
		if it.isCache() {
			line = m.cacheLine(it)
		} else {
			line = m.versionLine(it.version)
		}
		if i == m.cursor {
			line = styles.AccentStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return lines
}

func (m *Model) cacheLine(it item) string {
	sym := styles.CurrentSymbols()
	c := it.cache()

	arrow := sym.Collapsed
	if m.expanded[c.Name] {
		arrow = sym.Expanded
	}

	var size int64
	for _, v := range c.Versions {
		size += v.Size
	}

	cur, latest := "-", "-"
	if v := c.Current(); v != nil {
		cur = v.Segment
	}
	if v := c.Latest(); v != nil {
		latest = v.Segment
	}
	state := styles.MutedStyle.Render(cur + " > " + latest)
	switch {
	case c.NeedsUpdate():
		state = styles.WarningStyle.Render(cur + " > " + latest)
	case c.IsCurrentLatest():
		state = styles.SuccessStyle.Render(cur)
	}

	var counts []string
	for _, s := range reconcile.Statuses {
		n := 0
		for _, v := range it.row.Versions {
			if v.Status == s {
				n++
			}
		}
		if n > 0 {
			counts = append(counts, styles.StatusStyle(s).Render(fmt.Sprintf("%d %s", n, styles.StatusSymbol(s))))
		}
	}

	return fmt.Sprintf("%s %s  %s  %s  %s",
		arrow, highlight(c.Name, it.row.Matched), state, strings.Join(counts, " "),
		styles.MutedStyle.Render(humanize.Bytes(uint64(max(size, 0)))))
}

func (m *Model) versionLine(v *reconcile.Version) string {
	sym := styles.CurrentSymbols()

	ref := " "
	if v.InUse() {
		ref = styles.AccentStyle.Render(sym.Referenced)
	}

	detail := styles.MutedStyle.Render("not on disk")
	if v.OnDisk {
		detail = styles.MutedStyle.Render(fmt.Sprintf("%d files, %s, %s",
			len(v.Files), humanize.Bytes(uint64(max(v.Size, 0))), humanize.RelTime(v.ModTime, m.now(), "ago", "from now")))
	}

	nodes := strings.Join(v.Nodes(), ", ")
	return fmt.Sprintf("    %s %s %-8s %s  %s  %s",
		ref, styles.FormatStatus(v.Status), v.Segment, detail, nodes, styles.MutedStyle.Render(shorten(v.Path, 60)))
}

func (m *Model) statusLine() string {
	if m.busy() {
		msg := m.status.text
		if m.scanning {
			root, _ := m.sess.Root()
			msg = progress.ScanMessage(root, m.progress) + styles.MutedStyle.Render("  (esc cancels)")
		}
		return m.spinner.View() + " " + msg
	}
	if m.status.text == "" {
		return ""
	}
	return levelStyle(m.status.level).Render(m.status.level.String()) + " " + m.status.text
}

func levelStyle(l Level) lipgloss.Style {
	switch l {
	case LevelSuccess:
		return styles.SuccessStyle.Bold(true)
	case LevelWarning:
		return styles.WarningStyle.Bold(true)
	case LevelError:
		return styles.ErrorStyle.Bold(true)
	default:
		return styles.InfoStyle.Bold(true)
	}
}

func (m *Model) confirmView() string {
	var b strings.Builder
	b.WriteString(styles.PrimaryStyle.Bold(true).Render(m.confirm.title) + "\n\n")
	for _, l := range joinLimit(m.confirm.lines, max(m.height-6, 3)) {
		b.WriteString("  " + l + "\n")
	}
	b.WriteString("\n" + styles.RoundedBorder.Render("y confirm • any other key cancels"))
	return b.String()
}

func highlight(s string, matched []int) string {
	if len(matched) == 0 {
		return s
	}
	hit := map[int]bool{}
	for _, i := range matched {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range []rune(s) {
		if hit[i] {
			b.WriteString(styles.HighlightStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
