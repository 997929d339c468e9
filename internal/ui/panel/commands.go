package panel

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/dustin/go-humanize"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/scan"
	"github.com/raphi011/cachemgr/internal/session"
	"github.com/raphi011/cachemgr/internal/ui/static"
)

// scanEventMsg carries one session event together with its stream, so
// the stream can be drained even when the event is stale.
type scanEventMsg struct {
	ev     session.Event
	events <-chan session.Event
}

// scanClosedMsg reports the end of an event stream.
type scanClosedMsg struct {
	gen string
}

type actionDoneMsg struct {
	op      action.Op
	summary *action.Summary
	err     error
}

type watchMsg struct{}

type copiedMsg struct {
	path string
	err  error
}

type openedMsg struct {
	path string
	err  error
}

func waitEvent(gen string, events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return scanClosedMsg{gen: gen}
		}
		return scanEventMsg{ev: ev, events: events}
	}
}

func (m *Model) waitWatch() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	w := m.watch
	return func() tea.Msg {
		if _, ok := <-w; !ok {
			return nil
		}
		return watchMsg{}
	}
}

// startScan supersedes any running scan.
func (m *Model) startScan() tea.Cmd {
	events := m.sess.Scan(m.ctx)
	m.gen = m.sess.Generation()
	wasBusy := m.busy()
	m.scanning = true
	m.progress = scan.Progress{}
	m.setStatus(LevelInfo, "scanning")

	cmds := []tea.Cmd{waitEvent(m.gen, events)}
	if !wasBusy {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleScanEvent(msg scanEventMsg) tea.Cmd {
	next := waitEvent(msg.ev.Generation, msg.events)
	if msg.ev.Generation != m.gen {
		return next
	}

	switch msg.ev.Kind {
	case session.EventProgress:
		m.progress = msg.ev.Progress
	case session.EventDone:
		m.scanning = false
		m.tree = msg.ev.Tree
		m.refresh()
		m.scanStatus()
	case session.EventError:
		m.scanning = false
		m.scanError(msg.ev.Err)
	}
	return next
}

func (m *Model) scanStatus() {
	t := m.tree
	msg := fmt.Sprintf("%d caches: %s (%s)", len(t.Caches), static.FormatCounts(t.Counts()), t.ScanDuration.Round(1e6))
	if w := t.Warnings(); len(w) > 0 {
		m.setStatus(LevelWarning, fmt.Sprintf("%s, %d warning(s): %s", msg, len(w), w[0]))
		return
	}
	m.setStatus(LevelSuccess, msg)
}

func (m *Model) scanError(err error) {
	var fatal *session.FatalError
	switch {
	case errors.Is(err, context.Canceled):
		m.setStatus(LevelWarning, "scan cancelled")
	case errors.As(err, &fatal):
		m.setStatus(LevelError, fatal.Error()+", previous results kept")
	default:
		m.setStatus(LevelError, "scan failed: "+err.Error())
	}
}

// runAction runs fn off the update loop. The session re-scans after
// anything was applied.
func (m *Model) runAction(op action.Op, fn func(context.Context) (*action.Summary, error)) tea.Cmd {
	wasBusy := m.busy()
	m.acting = true
	m.setStatus(LevelInfo, string(op)+" running")
	ctx := m.ctx
	cmds := []tea.Cmd{func() tea.Msg {
		sum, err := fn(ctx)
		return actionDoneMsg{op: op, summary: sum, err: err}
	}}
	if !wasBusy {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleActionDone(msg actionDoneMsg) {
	m.acting = false
	if tree := m.sess.Tree(); tree != nil {
		m.tree = tree
		m.gen = m.sess.Generation()
		m.refresh()
	}

	s := msg.summary
	switch {
	case msg.err != nil && s == nil:
		m.setStatus(LevelError, fmt.Sprintf("%s failed: %v", msg.op, msg.err))
	case s == nil || s.Nothing():
		m.setStatus(LevelInfo, "nothing to "+string(msg.op))
	case len(s.Failures) > 0:
		m.setStatus(LevelError, fmt.Sprintf("%s: %d applied, %d failed: %v", msg.op, len(s.Applied), len(s.Failures), s.Failures[0]))
	case msg.err != nil:
		m.setStatus(LevelError, fmt.Sprintf("%s interrupted: %v", msg.op, msg.err))
	case len(s.Skipped) > 0:
		m.setStatus(LevelWarning, fmt.Sprintf("%s: %d applied, %d skipped (%s)", msg.op, len(s.Applied), len(s.Skipped), s.Skipped[0].Reason))
	default:
		m.setStatus(LevelSuccess, fmt.Sprintf("%s: %d applied", msg.op, len(s.Applied)))
	}
}

// askUpdate confirms updating every visible cache.
func (m *Model) askUpdate() tea.Cmd {
	sel := m.visibleCaches()
	plan, err := m.sess.PlanUpdate(sel)
	if err != nil {
		m.setStatus(LevelError, err.Error())
		return nil
	}
	if len(plan.Steps) == 0 {
		m.setStatus(LevelInfo, "All caches are up-to-date")
		return nil
	}
	m.confirm = &confirmation{
		title: fmt.Sprintf("Update %d reference(s) to latest?", len(plan.Steps)),
		lines: plan.Lines(),
		run: func() tea.Cmd {
			return m.runAction(action.OpUpdate, func(ctx context.Context) (*action.Summary, error) {
				return m.sess.Update(ctx, sel)
			})
		},
	}
	return nil
}

// askDelete confirms deleting the unused versions of the selected cache.
func (m *Model) askDelete() tea.Cmd {
	it, ok := m.current()
	if !ok {
		return nil
	}
	sel := action.Selection(it.cache().Versions)
	plan, err := m.sess.PlanDelete(sel, action.DeleteOptions{})
	if err != nil {
		m.setStatus(LevelError, err.Error())
		return nil
	}
	if len(plan.Steps) == 0 && len(plan.Skipped) > 0 && m.sess.Tree() != nil && len(m.sess.Tree().Unresolved) > 0 {
		m.setStatus(LevelWarning, "not deleting: "+plan.Skipped[0].Reason)
		return nil
	}
	if len(plan.Steps) == 0 {
		m.setStatus(LevelInfo, "no unused versions of "+it.cache().Name)
		return nil
	}
	var size int64
	for _, st := range plan.Steps {
		size += st.Version.Size
	}
	m.confirm = &confirmation{
		title: fmt.Sprintf("Delete %d unused version(s) of %s (%s)?", len(plan.Steps), it.cache().Name, humanize.Bytes(uint64(size))),
		lines: plan.Lines(),
		run: func() tea.Cmd {
			return m.runAction(action.OpDelete, func(ctx context.Context) (*action.Summary, error) {
				return m.sess.Delete(ctx, sel, action.DeleteOptions{})
			})
		},
	}
	return nil
}

// askLoad confirms pointing every node referencing the cache at the
// selected version.
func (m *Model) askLoad() tea.Cmd {
	it, ok := m.current()
	if !ok || it.isCache() {
		return nil
	}
	v := it.version
	if !v.OnDisk {
		m.setStatus(LevelWarning, fmt.Sprintf("%s %s is not on disk", v.CacheName, v.Segment))
		return nil
	}
	nodes := cacheNodes(it.cache())
	if len(nodes) == 0 {
		m.setStatus(LevelWarning, "no node references "+v.CacheName+", use cachemgr load --node")
		return nil
	}
	m.confirm = &confirmation{
		title: fmt.Sprintf("Load %s %s?", v.CacheName, v.Segment),
		lines: nodes,
		run: func() tea.Cmd {
			return m.runAction(action.OpLoad, func(ctx context.Context) (*action.Summary, error) {
				total := &action.Summary{Op: action.OpLoad}
				var errs []error
				for _, n := range nodes {
					s, err := m.sess.Load(ctx, n, v)
					if s != nil {
						total.Planned += s.Planned
						total.Applied = append(total.Applied, s.Applied...)
						total.Failures = append(total.Failures, s.Failures...)
					}
					if err != nil {
						errs = append(errs, err)
					}
				}
				return total, errors.Join(errs...)
			})
		},
	}
	return nil
}

// cacheNodes returns the nodes referencing any version of c.
func cacheNodes(c *reconcile.Cache) []string {
	var nodes []string
	seen := map[string]bool{}
	for _, v := range c.Versions {
		refs := append(v.Refs[:len(v.Refs):len(v.Refs)], v.Dangling...)
		for _, r := range refs {
			if !seen[r.Node] {
				seen[r.Node] = true
				nodes = append(nodes, r.Node)
			}
		}
	}
	return nodes
}

func (m *Model) visibleCaches() action.Selection {
	var sel action.Selection
	for _, r := range m.rows {
		sel = append(sel, r.Cache.Versions...)
	}
	return sel
}

func (m *Model) copyPath() tea.Cmd {
	it, ok := m.current()
	if !ok {
		return nil
	}
	p, copyFn := it.path(), m.copy
	if p == "" {
		m.setStatus(LevelWarning, "nothing to copy")
		return nil
	}
	return func() tea.Msg {
		return copiedMsg{path: p, err: copyFn(p)}
	}
}

func (m *Model) openPath() tea.Cmd {
	it, ok := m.current()
	if !ok {
		return nil
	}
	p := it.path()
	if it.version != nil {
		p = it.version.Dir
	}
	if p == "" {
		m.setStatus(LevelWarning, "nothing to open")
		return nil
	}
	openFn, ctx := m.open, m.ctx
	return func() tea.Msg {
		return openedMsg{path: p, err: openFn(ctx, p)}
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n+3:]
}

func joinLimit(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return append(lines[:n:n], fmt.Sprintf("... and %d more", len(lines)-n))
}
