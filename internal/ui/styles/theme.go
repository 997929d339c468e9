package styles

import (
	"image/color"
	"os"

	"charm.land/lipgloss/v2"

	"github.com/raphi011/cachemgr/internal/config"
)

// Theme is the palette used by tables, prompts and the panel.
type Theme struct {
	Primary color.Color // main accent color (borders, titles)
	Accent  color.Color // highlight color (selected items)
	Success color.Color // latest versions, applied actions
	Error   color.Color // missing versions, failures
	Muted   color.Color // malformed versions, inactive text
	Normal  color.Color // standard text
	Info    color.Color // informational text
	Warning color.Color // outdated versions, warnings
}

// palette builds a Theme from hex or ANSI color strings in field order.
func palette(primary, accent, success, errc, muted, normal, info, warning string) Theme {
	return Theme{
		Primary: lipgloss.Color(primary),
		Accent:  lipgloss.Color(accent),
		Success: lipgloss.Color(success),
		Error:   lipgloss.Color(errc),
		Muted:   lipgloss.Color(muted),
		Normal:  lipgloss.Color(normal),
		Info:    lipgloss.Color(info),
		Warning: lipgloss.Color(warning),
	}
}

// DefaultTheme uses the 256-color palette and has no light variant.
var DefaultTheme = palette("62", "212", "82", "196", "240", "252", "244", "214")

// NordTheme is the dark Nord variant.
var NordTheme = palette("#88c0d0", "#b48ead", "#a3be8c", "#bf616a", "#4c566a", "#eceff4", "#81a1c1", "#ebcb8b")

// NoneTheme keeps the terminal's colors; bold and underline still apply.
var NoneTheme = Theme{
	Primary: lipgloss.NoColor{},
	Accent:  lipgloss.NoColor{},
	Success: lipgloss.NoColor{},
	Error:   lipgloss.NoColor{},
	Muted:   lipgloss.NoColor{},
	Normal:  lipgloss.NoColor{},
	Info:    lipgloss.NoColor{},
	Warning: lipgloss.NoColor{},
}

// variants holds the light and dark palette of a preset. A nil variant
// falls back to the other one.
type variants struct {
	light, dark *Theme
}

func ptr(t Theme) *Theme { return &t }

// presets are the [theme] name values.
var presets = map[string]variants{
	"none":    {light: &NoneTheme, dark: &NoneTheme},
	"default": {dark: &DefaultTheme},
	"dracula": {dark: ptr(palette("#bd93f9", "#ff79c6", "#50fa7b", "#ff5555", "#6272a4", "#f8f8f2", "#8be9fd", "#ffb86c"))},
	"nord": {
		light: ptr(palette("#5e81ac", "#b48ead", "#a3be8c", "#bf616a", "#9a9a9a", "#2e3440", "#81a1c1", "#d08770")),
		dark:  &NordTheme,
	},
	"gruvbox": {
		light: ptr(palette("#076678", "#8f3f71", "#79740e", "#9d0006", "#928374", "#3c3836", "#427b58", "#b57614")),
		dark:  ptr(palette("#83a598", "#d3869b", "#b8bb26", "#fb4934", "#665c54", "#ebdbb2", "#8ec07c", "#fabd2f")),
	},
	"catppuccin": {
		light: ptr(palette("#1e66f5", "#ea76cb", "#40a02b", "#d20f39", "#9ca0b0", "#4c4f69", "#179299", "#fe640b")),
		dark:  ptr(palette("#89b4fa", "#f5c2e7", "#a6e3a1", "#f38ba8", "#6c7086", "#cdd6f4", "#94e2d5", "#fab387")),
	},
}

// hasDarkBackground queries the terminal; replaced in tests.
var hasDarkBackground = func() bool {
	return lipgloss.HasDarkBackground(os.Stdin, os.Stderr)
}

var currentTheme = DefaultTheme

// Current returns the current theme
func Current() Theme {
	return currentTheme
}

// Init applies the configured theme. Call it after loading config and
// before rendering anything.
func Init(cfg config.ThemeConfig) {
	theme := selectTheme(cfg)

	set := func(dst *color.Color, value string) {
		if value != "" {
			*dst = lipgloss.Color(value)
		}
	}
	set(&theme.Primary, cfg.Primary)
	set(&theme.Accent, cfg.Accent)
	set(&theme.Success, cfg.Success)
	set(&theme.Error, cfg.Error)
	set(&theme.Muted, cfg.Muted)
	set(&theme.Normal, cfg.Normal)
	set(&theme.Info, cfg.Info)
	set(&theme.Warning, cfg.Warning)

	currentTheme = theme
	applyTheme(theme)
	SetNerdfont(cfg.Nerdfont)
}

// selectTheme picks the preset variant for the configured mode. Unknown
// names fall back to "default" and unknown modes to "auto"; config
// validation rejects both before they get here.
func selectTheme(cfg config.ThemeConfig) Theme {
	v, ok := presets[cfg.Name]
	if !ok {
		v = presets["default"]
	}

	dark := cfg.Mode == "dark" || (cfg.Mode != "light" && hasDarkBackground())
	first, second := v.light, v.dark
	if dark {
		first, second = v.dark, v.light
	}
	switch {
	case first != nil:
		return *first
	case second != nil:
		return *second
	}
	return DefaultTheme
}

// applyTheme updates all global style variables to use the given theme
func applyTheme(t Theme) {
	Primary = t.Primary
	Accent = t.Accent
	Success = t.Success
	Error = t.Error
	Muted = t.Muted
	Normal = t.Normal
	Info = t.Info
	Warning = t.Warning

	PrimaryStyle = lipgloss.NewStyle().Foreground(t.Primary)
	AccentStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(t.Success)
	ErrorStyle = lipgloss.NewStyle().Foreground(t.Error)
	MutedStyle = lipgloss.NewStyle().Foreground(t.Muted)
	NormalStyle = lipgloss.NewStyle().Foreground(t.Normal)
	InfoStyle = lipgloss.NewStyle().Foreground(t.Info).Italic(true)
	WarningStyle = lipgloss.NewStyle().Foreground(t.Warning)

	RoundedBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)

	HighlightStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true).
		Underline(true)
}

// PresetNames returns the available theme families.
func PresetNames() []string {
	return config.ValidThemeNames
}
