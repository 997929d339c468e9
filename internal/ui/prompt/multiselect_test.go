package prompt

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func typeText(m multiSelectModel, text string) multiSelectModel {
	for _, r := range text {
		updated, _ := m.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
		m = updated.(multiSelectModel)
	}
	return m
}

func press(m multiSelectModel, msg tea.KeyPressMsg) (multiSelectModel, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(multiSelectModel), cmd
}

var cacheOptions = []Option{
	{Label: "explosion"},
	{Label: "flip", Detail: "3 unused"},
	{Label: "pyro"},
	{Label: "stage"},
}

func TestMultiSelect_ToggleAndConfirm(t *testing.T) {
	t.Parallel()

	m := newMultiSelectModel("Caches", cacheOptions, nil)
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeySpace})
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeySpace})
	m, cmd := press(m, tea.KeyPressMsg{Code: tea.KeyEnter})

	assert.True(t, m.done)
	assert.False(t, m.cancelled)
	assert.NotNil(t, cmd)
	assert.Equal(t, []int{1, 3}, m.indexes())
}

func TestMultiSelect_FuzzyFilter(t *testing.T) {
	t.Parallel()

	m := typeText(newMultiSelectModel("Caches", cacheOptions, nil), "py")
	assert.Equal(t, []int{2}, m.filtered)

	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	assert.Len(t, m.filtered, len(cacheOptions))
}

func TestMultiSelect_SelectAllVisible(t *testing.T) {
	t.Parallel()

	m := typeText(newMultiSelectModel("Caches", cacheOptions, nil), "o")
	m, _ = press(m, tea.KeyPressMsg{Code: 'a', Mod: tea.ModCtrl})
	assert.ElementsMatch(t, m.filtered, m.indexes())

	m, _ = press(m, tea.KeyPressMsg{Code: 'a', Mod: tea.ModCtrl})
	assert.Empty(t, m.indexes())
}

func TestMultiSelect_Preselected(t *testing.T) {
	t.Parallel()

	m := newMultiSelectModel("Caches", cacheOptions, []int{0, 9})
	assert.Equal(t, []int{0}, m.indexes())
}

func TestMultiSelect_Cancel(t *testing.T) {
	t.Parallel()

	m, _ := press(newMultiSelectModel("Caches", cacheOptions, []int{1}), tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.True(t, m.cancelled)
}

func TestMultiSelect_View(t *testing.T) {
	t.Parallel()

	content := newMultiSelectModel("Caches", cacheOptions, []int{1}).View().Content
	assert.Contains(t, content, "(1 selected)")
	assert.Contains(t, content, "3 unused")
	assert.Equal(t, len(cacheOptions), strings.Count(content, "["+"x]")+strings.Count(content, "[ ]"))
}
