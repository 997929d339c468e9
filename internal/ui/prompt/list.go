package prompt

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/sahilm/fuzzy"

	"github.com/raphi011/cachemgr/internal/ui/styles"
)

// Option is a selectable entry. Detail is shown dimmed next to the label.
type Option struct {
	Label  string
	Detail string
}

const maxVisible = 12

var highlightStyle = lipgloss.NewStyle().Bold(true).Underline(true)

// filterList is the option list shared by Select and MultiSelect: typed
// text fuzzy-filters the labels, the cursor moves over the matches.
type filterList struct {
	options  []Option
	filter   string
	filtered []int
	matches  map[int][]int
	cursor   int
}

func newFilterList(options []Option) filterList {
	l := filterList{options: options}
	l.apply()
	return l
}

// current returns the option index under the cursor, or -1.
func (l *filterList) current() int {
	if len(l.filtered) == 0 {
		return -1
	}
	return l.filtered[l.cursor]
}

// handle applies navigation and filter keys. It reports whether the key
// was consumed.
func (l *filterList) handle(key tea.KeyPressMsg) bool {
	switch key.String() {
	case "up", "ctrl+p":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "ctrl+n":
		if l.cursor < len(l.filtered)-1 {
			l.cursor++
		}
	case "backspace":
		if l.filter != "" {
			r := []rune(l.filter)
			l.filter = string(r[:len(r)-1])
			l.apply()
		}
	default:
		if key.Text == "" || key.Mod&(tea.ModCtrl|tea.ModAlt) != 0 || key.Text == " " {
			return false
		}
		l.filter += key.Text
		l.apply()
	}
	return true
}

func (l *filterList) apply() {
	l.matches = map[int][]int{}
	l.filtered = nil
	if l.filter == "" {
		for i := range l.options {
			l.filtered = append(l.filtered, i)
		}
	} else {
		labels := make([]string, len(l.options))
		for i, o := range l.options {
			labels[i] = o.Label
		}
		for _, match := range fuzzy.Find(l.filter, labels) {
			l.filtered = append(l.filtered, match.Index)
			l.matches[match.Index] = match.MatchedIndexes
		}
	}
	l.cursor = min(l.cursor, max(0, len(l.filtered)-1))
}

// render writes the filter line and the visible window of rows. mark
// returns the prefix drawn before each option's label.
func (l *filterList) render(b *strings.Builder, mark func(idx int) string) {
	b.WriteString(styles.MutedStyle.Render("Filter: ") + l.filter + "\n\n")

	start := max(0, l.cursor-maxVisible+1)
	end := min(start+maxVisible, len(l.filtered))
	for i := start; i < end; i++ {
		idx := l.filtered[i]
		opt := l.options[idx]

		cursor := "  "
		if i == l.cursor {
			cursor = styles.AccentStyle.Render("> ")
		}
		b.WriteString(cursor + mark(idx) + highlight(opt.Label, l.matches[idx]))
		if opt.Detail != "" {
			b.WriteString("  " + styles.MutedStyle.Render(opt.Detail))
		}
		b.WriteString("\n")
	}
	switch {
	case len(l.filtered) == 0:
		b.WriteString(styles.MutedStyle.Render("  No matching items") + "\n")
	case end < len(l.filtered):
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("  %d more", len(l.filtered)-end)) + "\n")
	}
}

// highlight renders the matched runes of s in the highlight style.
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
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
