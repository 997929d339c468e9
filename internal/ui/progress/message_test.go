package progress

import (
	"testing"

	"github.com/raphi011/cachemgr/internal/scan"
)

func TestScanMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    scan.Progress
		want string
	}{
		{"not started", scan.Progress{}, "Scanning /job/geo"},
		{"running", scan.Progress{Visited: 12345, Candidates: 40, Caches: 3}, "Scanning /job/geo: 3 caches, 40 versions, 12,345 entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ScanMessage("/job/geo", tt.p); got != tt.want {
				t.Errorf("ScanMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
