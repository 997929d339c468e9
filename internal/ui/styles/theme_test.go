package styles

import (
	"testing"

	"charm.land/lipgloss/v2"

	"github.com/raphi011/cachemgr/internal/config"
)

func withBackground(t *testing.T, dark bool) {
	t.Helper()
	prev := hasDarkBackground
	hasDarkBackground = func() bool { return dark }
	t.Cleanup(func() {
		hasDarkBackground = prev
		Init(config.ThemeConfig{Mode: "dark"})
	})
}

func TestInit_DefaultTheme(t *testing.T) {
	withBackground(t, true)
	Init(config.ThemeConfig{})

	theme := Current()
	if theme.Primary != lipgloss.Color("62") {
		t.Errorf("expected default primary color 62, got %v", theme.Primary)
	}
	if theme.Accent != lipgloss.Color("212") {
		t.Errorf("expected default accent color 212, got %v", theme.Accent)
	}
}

func TestInit_PresetTheme(t *testing.T) {
	withBackground(t, true)

	tests := []struct {
		preset  string
		mode    string
		primary string
	}{
		{"dracula", "", "#bd93f9"},
		{"nord", "dark", "#88c0d0"},
		{"nord", "light", "#5e81ac"},
		{"gruvbox", "", "#83a598"},
		{"catppuccin", "light", "#1e66f5"},
		{"dracula", "light", "#bd93f9"}, // no light variant
	}

	for _, tt := range tests {
		t.Run(tt.preset+"/"+tt.mode, func(t *testing.T) {
			Init(config.ThemeConfig{Name: tt.preset, Mode: tt.mode})
			if got := Current().Primary; got != lipgloss.Color(tt.primary) {
				t.Errorf("primary = %v, want %s", got, tt.primary)
			}
		})
	}
}

func TestInit_AutoModeFollowsBackground(t *testing.T) {
	withBackground(t, false)

	Init(config.ThemeConfig{Name: "gruvbox"})
	if got := Current().Primary; got != lipgloss.Color("#076678") {
		t.Errorf("light background should pick the light variant, got %v", got)
	}
}

func TestInit_CustomColors(t *testing.T) {
	withBackground(t, true)

	Init(config.ThemeConfig{
		Name:    "nord",
		Primary: "#ff0000",
		Warning: "#00ff00",
	})

	theme := Current()
	if theme.Primary != lipgloss.Color("#ff0000") {
		t.Errorf("primary override lost: %v", theme.Primary)
	}
	if theme.Warning != lipgloss.Color("#00ff00") {
		t.Errorf("warning override lost: %v", theme.Warning)
	}
	if theme.Accent != NordTheme.Accent {
		t.Errorf("accent should stay nord: %v", theme.Accent)
	}
	if Primary != theme.Primary {
		t.Error("global Primary not updated")
	}
}

func TestInit_UnknownNameFallsBack(t *testing.T) {
	withBackground(t, true)

	Init(config.ThemeConfig{Name: "solarized"})
	if Current().Primary != DefaultTheme.Primary {
		t.Errorf("unknown preset should use default")
	}
}

func TestInit_Nerdfont(t *testing.T) {
	withBackground(t, true)
	t.Cleanup(func() { SetNerdfont(false) })

	Init(config.ThemeConfig{Nerdfont: true})
	if !NerdfontEnabled() {
		t.Error("nerdfont not enabled by Init")
	}
}

func TestPresetNames(t *testing.T) {
	for _, name := range PresetNames() {
		if _, ok := presets[name]; !ok {
			t.Errorf("preset %q listed in config but has no theme", name)
		}
	}
}
