package styles

import (
	"strings"
	"testing"

	"github.com/raphi011/cachemgr/internal/reconcile"
)

func TestSetNerdfont(t *testing.T) {
	t.Cleanup(func() { SetNerdfont(false) })

	SetNerdfont(false)
	if NerdfontEnabled() {
		t.Error("expected nerdfont disabled")
	}
	if CurrentSymbols() != defaultSymbols {
		t.Error("expected default symbols")
	}

	SetNerdfont(true)
	if !NerdfontEnabled() {
		t.Error("expected nerdfont enabled")
	}
	if CurrentSymbols() != nerdfontSymbols {
		t.Error("expected nerdfont symbols")
	}
}

func TestStatusSymbol(t *testing.T) {
	SetNerdfont(false)

	tests := []struct {
		status reconcile.Status
		want   string
	}{
		{reconcile.StatusLatest, "●"},
		{reconcile.StatusOutdated, "○"},
		{reconcile.StatusMissing, "✕"},
		{reconcile.StatusMalformed, "?"},
	}
	for _, tt := range tests {
		if got := StatusSymbol(tt.status); got != tt.want {
			t.Errorf("StatusSymbol(%v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusSymbolsDistinct(t *testing.T) {
	t.Cleanup(func() { SetNerdfont(false) })

	for _, nerd := range []bool{false, true} {
		SetNerdfont(nerd)
		seen := map[string]reconcile.Status{}
		for _, s := range reconcile.Statuses {
			sym := StatusSymbol(s)
			if sym == "" {
				t.Errorf("nerdfont=%v: empty symbol for %v", nerd, s)
			}
			if prev, dup := seen[sym]; dup {
				t.Errorf("nerdfont=%v: %v and %v share %q", nerd, prev, s, sym)
			}
			seen[sym] = s
		}
	}
}

func TestFormatStatus(t *testing.T) {
	SetNerdfont(false)

	got := FormatStatus(reconcile.StatusMissing)
	if !strings.Contains(got, "✕") || !strings.Contains(got, "MISSING") {
		t.Errorf("FormatStatus(MISSING) = %q", got)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		wantLink bool
	}{
		{"absolute", "/job/geo/flip/v002/flip.bgeo.sc", true},
		{"relative", "geo/flip", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FormatPath(tt.path)
			if !strings.Contains(got, tt.path) {
				t.Errorf("FormatPath(%q) = %q, path text missing", tt.path, got)
			}
			hasLink := strings.Contains(got, "\x1b]8;")
			if hasLink != tt.wantLink {
				t.Errorf("FormatPath(%q) hyperlink = %v, want %v", tt.path, hasLink, tt.wantLink)
			}
			if tt.wantLink && !strings.Contains(got, "file:///job/geo/flip/v002/flip.bgeo.sc") {
				t.Errorf("FormatPath(%q) = %q, missing file:// target", tt.path, got)
			}
		})
	}
}
