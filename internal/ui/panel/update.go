package panel

import (
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/cachemgr/internal/view"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampOffset()
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)

	case scanEventMsg:
		return m, m.handleScanEvent(msg)

	case scanClosedMsg:
		if msg.gen == m.gen && m.scanning {
			m.scanning = false
		}
		return m, nil

	case actionDoneMsg:
		m.handleActionDone(msg)
		return m, nil

	case watchMsg:
		next := m.waitWatch()
		if m.acting {
			return m, next
		}
		m.setStatus(LevelInfo, "scene changed, rescanning")
		return m, tea.Batch(m.startScan(), next)

	case copiedMsg:
		if msg.err != nil {
			m.setStatus(LevelError, "copy failed: "+msg.err.Error())
		} else {
			m.setStatus(LevelSuccess, "copied "+msg.path)
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setStatus(LevelError, "open failed: "+msg.err.Error())
		} else {
			m.setStatus(LevelInfo, "opened "+msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.filtering {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()

	if key == "ctrl+c" {
		return m.quit()
	}
	if m.confirm != nil {
		return m.handleConfirmKey(key)
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch key {
	case "q":
		return m.quit()
	case "esc":
		switch {
		case m.scanning:
			m.sess.Cancel()
		case m.filter.Query != "":
			m.input.SetValue("")
			m.setQuery("")
		}
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.listHeight())
	case "pgdown":
		m.move(m.listHeight())
	case "home", "g":
		m.move(-len(m.items))
	case "end", "G":
		m.move(len(m.items))
	case "right", "l":
		m.setExpanded(true)
	case "left", "h":
		m.setExpanded(false)
	case "space", "tab":
		if it, ok := m.current(); ok {
			m.expanded[it.cache().Name] = !m.expanded[it.cache().Name]
			m.refresh()
		}
	case "e":
		m.toggleAll()
	case "/":
		m.filtering = true
		m.input.SetValue(m.filter.Query)
		return m.input.Focus()
	case "1", "2", "3", "4", "5", "6":
		m.toggleGroup(key)
	case "m":
		m.filter.ShowMalformed = !m.filter.ShowMalformed
		m.refresh()
		m.setStatus(LevelInfo, fmt.Sprintf("malformed versions %s", onOff(m.filter.ShowMalformed)))
	case "r":
		if m.acting {
			m.setStatus(LevelWarning, "action running, rescan when it is done")
			return nil
		}
		return m.startScan()
	case "u":
		return m.guard(m.askUpdate)
	case "enter":
		return m.guard(m.askLoad)
	case "d":
		return m.guard(m.askDelete)
	case "y":
		return m.copyPath()
	case "o":
		return m.openPath()
	}
	return nil
}

// guard refuses actions while the tree is not settled.
func (m *Model) guard(ask func() tea.Cmd) tea.Cmd {
	switch {
	case m.acting:
		m.setStatus(LevelWarning, "another action is running")
		return nil
	case m.scanning:
		m.setStatus(LevelWarning, "wait for the scan to finish")
		return nil
	case m.tree == nil:
		m.setStatus(LevelWarning, "nothing scanned yet")
		return nil
	}
	return ask()
}

func (m *Model) handleConfirmKey(key string) tea.Cmd {
	c := m.confirm
	m.confirm = nil
	if key == "y" || key == "Y" {
		return c.run()
	}
	m.setStatus(LevelInfo, "cancelled")
	return nil
}

func (m *Model) handleFilterKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.input.Blur()
		return nil
	case "esc":
		m.filtering = false
		m.input.Blur()
		m.input.SetValue("")
		m.setQuery("")
		return nil
	case "up", "down":
		m.move(map[string]int{"up": -1, "down": 1}[msg.String()])
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.filter.Query {
		m.setQuery(m.input.Value())
	}
	return cmd
}

func (m *Model) setQuery(q string) {
	m.filter.Query = q
	m.cursor, m.offset = 0, 0
	m.refresh()
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.sess.Cancel()
	return tea.Quit
}

func (m *Model) move(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.items)-1))
	m.clampOffset()
}

func (m *Model) setExpanded(open bool) {
	it, ok := m.current()
	if !ok {
		return
	}
	name := it.cache().Name
	if m.expanded[name] == open {
		if !open && !it.isCache() {
			m.moveToCache(name)
		}
		return
	}
	if open {
		m.expanded[name] = true
	} else {
		delete(m.expanded, name)
	}
	m.refresh()
	if !open {
		m.moveToCache(name)
	}
}

func (m *Model) moveToCache(name string) {
	for i, it := range m.items {
		if it.isCache() && it.cache().Name == name {
			m.cursor = i
			break
		}
	}
	m.clampOffset()
}

func (m *Model) toggleAll() {
	all := true
	for _, r := range m.rows {
		all = all && m.expanded[r.Cache.Name]
	}
	for _, r := range m.rows {
		if all {
			delete(m.expanded, r.Cache.Name)
		} else {
			m.expanded[r.Cache.Name] = true
		}
	}
	m.refresh()
}

func (m *Model) toggleGroup(key string) {
	m.groups[key] = !m.groups[key]
	m.filter.Extensions = m.extensions()
	m.filter.AllExt = len(m.filter.Extensions) == 0
	m.refresh()

	for _, g := range view.Groups {
		if g.Key == key {
			m.setStatus(LevelInfo, fmt.Sprintf("%s %s", g.Label, onOff(m.groups[key])))
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
