// Package panel is the interactive cache panel.
//
// The panel shows the session's tree as collapsible cache rows. Scans run
// in the background and stream progress into the status line; events from
// a superseded scan are drained and dropped. Actions are confirmed inside
// the panel and then handed to the session, which applies them and
// re-scans.
package panel

import (
	"context"
	"os"
	"slices"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/colorprofile"

	"github.com/raphi011/cachemgr/internal/cmd"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/scan"
	"github.com/raphi011/cachemgr/internal/session"
	"github.com/raphi011/cachemgr/internal/ui/styles"
	"github.com/raphi011/cachemgr/internal/view"
)

// Level is the severity of a status line message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

type status struct {
	level Level
	text  string
}

// confirmation is an action waiting for y/N.
type confirmation struct {
	title string
	lines []string
	run   func() tea.Cmd
}

// Options configures the panel.
type Options struct {
	// Extensions are the initially enabled extensions. Groups containing
	// one of them start enabled; extensions outside every group stay on.
	Extensions    []string
	ShowMalformed bool
	// Watch re-scans whenever a value arrives. Nil disables it.
	Watch <-chan struct{}
}

// Model is the bubbletea model of the panel.
type Model struct {
	ctx  context.Context
	sess *session.Session

	groups   map[string]bool
	extra    []string
	filter   view.Filter
	expanded map[string]bool

	tree   *reconcile.Tree
	rows   []view.Row
	items  []item
	cursor int
	offset int

	gen      string
	scanning bool
	acting   bool
	progress scan.Progress

	input     textinput.Model
	filtering bool
	spinner   spinner.Model
	confirm   *confirmation
	status    status

	width  int
	height int

	watch    <-chan struct{}
	copy     func(string) error
	open     func(context.Context, string) error
	now      func() time.Time
	quitting bool
}

// New returns a panel over sess. The first scan starts in Init.
func New(ctx context.Context, sess *session.Session, opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter caches"
	ti.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.PrimaryStyle

	m := &Model{
		ctx:      ctx,
		sess:     sess,
		groups:   map[string]bool{},
		expanded: map[string]bool{},
		input:    ti,
		spinner:  sp,
		watch:    opts.Watch,
		copy:     clipboard.WriteAll,
		open:     cmd.OpenInFileBrowser,
		now:      time.Now,
		height:   24,
		width:    100,
	}

	enabled := view.ExpandExts(opts.Extensions)
	for _, g := range view.Groups {
		for _, e := range g.Exts {
			if slices.Contains(enabled, e) {
				m.groups[g.Key] = true
			}
		}
	}
	for _, e := range enabled {
		if !inGroup(e) {
			m.extra = append(m.extra, e)
		}
	}
	m.filter.ShowMalformed = opts.ShowMalformed
	m.filter.Extensions = m.extensions()
	m.filter.AllExt = len(m.filter.Extensions) == 0

	if tree := sess.Tree(); tree != nil {
		m.tree = tree
		m.gen = sess.Generation()
		m.refresh()
	}
	return m
}

func inGroup(ext string) bool {
	for _, g := range view.Groups {
		if slices.Contains(g.Exts, ext) {
			return true
		}
	}
	return false
}

// extensions returns the enabled extensions.
func (m *Model) extensions() []string {
	exts := slices.Clone(m.extra)
	for _, g := range view.Groups {
		if m.groups[g.Key] {
			exts = append(exts, g.Exts...)
		}
	}
	return exts
}

// Init starts the first scan and the manifest watch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startScan(), m.waitWatch())
}

// Run shows the panel on stderr until the user quits.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	m := New(ctx, sess, opts)
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
		tea.WithColorProfile(colorprofile.Detect(os.Stderr, os.Environ())),
	)
	_, err := p.Run()
	sess.Cancel()
	return err
}

func (m *Model) setStatus(level Level, text string) {
	m.status = status{level: level, text: text}
}

// refresh re-applies the filter and rebuilds the visible items, keeping
// the cursor on the same cache or version when it is still visible.
func (m *Model) refresh() {
	var keep string
	if it, ok := m.current(); ok {
		keep = it.key()
	}

	m.rows = m.filter.Apply(m.tree)
	m.items = flatten(m.rows, m.expanded)

	m.cursor = min(m.cursor, max(len(m.items)-1, 0))
	if keep != "" {
		for i, it := range m.items {
			if it.key() == keep {
				m.cursor = i
				break
			}
		}
	}
	m.clampOffset()
}

func (m *Model) current() (item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return item{}, false
	}
	return m.items[m.cursor], true
}

// listHeight is the number of rows available for items.
func (m *Model) listHeight() int {
	return max(m.height-5, 3)
}

func (m *Model) clampOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = max(min(m.offset, len(m.items)-h), 0)
}

func (m *Model) busy() bool {
	return m.scanning || m.acting
}
