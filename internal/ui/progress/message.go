package progress

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/raphi011/cachemgr/internal/scan"
)

// ScanMessage formats scan progress for the spinner.
func ScanMessage(root string, p scan.Progress) string {
	if p.Visited == 0 {
		return "Scanning " + root
	}
	return fmt.Sprintf("Scanning %s: %s caches, %s versions, %s entries",
		root, humanize.Comma(int64(p.Caches)), humanize.Comma(int64(p.Candidates)), humanize.Comma(int64(p.Visited)))
}
