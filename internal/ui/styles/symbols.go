package styles

import (
	"net/url"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"

	"github.com/raphi011/cachemgr/internal/reconcile"
)

// Symbols holds the icon/symbol set based on nerdfont configuration
type Symbols struct {
	Latest     string
	Outdated   string
	Missing    string
	Malformed  string
	Referenced string
	Expanded   string
	Collapsed  string
}

// Default symbols
var defaultSymbols = Symbols{
	Latest:     "●",
	Outdated:   "○",
	Missing:    "✕",
	Malformed:  "?",
	Referenced: "◆",
	Expanded:   "▾",
	Collapsed:  "▸",
}

// Nerd font symbols
var nerdfontSymbols = Symbols{
	Latest:     "\uf058", // nf-fa-check_circle
	Outdated:   "\uf017", // nf-fa-clock_o
	Missing:    "\uf057", // nf-fa-times_circle
	Malformed:  "\uf059", // nf-fa-question_circle
	Referenced: "\uf0c1", // nf-fa-link
	Expanded:   "\uf07c", // nf-fa-folder_open
	Collapsed:  "\uf07b", // nf-fa-folder
}

var (
	useNerdfont    bool
	currentSymbols = defaultSymbols
)

// SetNerdfont enables or disables nerd font symbols
func SetNerdfont(enabled bool) {
	useNerdfont = enabled
	if enabled {
		currentSymbols = nerdfontSymbols
	} else {
		currentSymbols = defaultSymbols
	}
}

// NerdfontEnabled returns whether nerd font symbols are enabled
func NerdfontEnabled() bool {
	return useNerdfont
}

// CurrentSymbols returns the current symbol set
func CurrentSymbols() Symbols {
	return currentSymbols
}

// StatusSymbol returns the unstyled symbol for a status.
func StatusSymbol(s reconcile.Status) string {
	switch s {
	case reconcile.StatusLatest:
		return currentSymbols.Latest
	case reconcile.StatusOutdated:
		return currentSymbols.Outdated
	case reconcile.StatusMissing:
		return currentSymbols.Missing
	case reconcile.StatusMalformed:
		return currentSymbols.Malformed
	default:
		return ""
	}
}

// FormatStatus returns the styled symbol followed by the status name.
func FormatStatus(s reconcile.Status) string {
	return StatusStyle(s).Render(StatusSymbol(s) + " " + s.String())
}

// FormatPath renders path as an OSC 8 file:// hyperlink so terminals that
// support it open the file on click. Relative or empty paths are returned
// as-is.
func FormatPath(path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return ansi.SetHyperlink(u.String()) + path + ansi.ResetHyperlink()
}
