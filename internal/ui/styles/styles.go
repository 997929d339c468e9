// Package styles provides shared lipgloss styles for UI components.
//
// This package centralizes color definitions and styling so the table,
// prompts and the panel look the same. Colors follow the active theme;
// see [Init].
package styles

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/raphi011/cachemgr/internal/reconcile"
)

// Colors of the active theme.
var (
	Primary color.Color = DefaultTheme.Primary
	Accent  color.Color = DefaultTheme.Accent
	Success color.Color = DefaultTheme.Success
	Error   color.Color = DefaultTheme.Error
	Muted   color.Color = DefaultTheme.Muted
	Normal  color.Color = DefaultTheme.Normal
	Info    color.Color = DefaultTheme.Info
	Warning color.Color = DefaultTheme.Warning
)

// Common styles
var (
	Bold   = lipgloss.NewStyle().Bold(true)
	Italic = lipgloss.NewStyle().Italic(true)

	PrimaryStyle lipgloss.Style
	AccentStyle  lipgloss.Style
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	MutedStyle   lipgloss.Style
	NormalStyle  lipgloss.Style
	InfoStyle    lipgloss.Style
	WarningStyle lipgloss.Style

	// RoundedBorder frames the panel.
	RoundedBorder lipgloss.Style

	// HighlightStyle marks characters matched by a filter.
	HighlightStyle lipgloss.Style
)

func init() {
	applyTheme(DefaultTheme)
}

// StatusStyle returns the style a version status is rendered with.
func StatusStyle(s reconcile.Status) lipgloss.Style {
	switch s {
	case reconcile.StatusLatest:
		return SuccessStyle
	case reconcile.StatusOutdated:
		return WarningStyle
	case reconcile.StatusMissing:
		return ErrorStyle
	case reconcile.StatusMalformed:
		return MutedStyle
	default:
		return NormalStyle
	}
}
