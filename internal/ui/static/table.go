// Package static provides non-interactive terminal output components.
//
// This package renders the cache table printed by "cachemgr scan" and the
// summary lines printed after actions.
package static

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"

	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/ui/styles"
	"github.com/raphi011/cachemgr/internal/view"
)

// RenderTable creates a formatted table with proper column alignment.
// Headers and rows are rendered using lipgloss/table which automatically
// calculates column widths based on content. No borders are rendered.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	return t.String() + "\n"
}

// CacheHeaders are the columns of the cache table.
var CacheHeaders = []string{"CACHE", "VERSION", "STATUS", "NODES", "FILES", "SIZE", "MODIFIED", "PATH"}

// VersionTableRow returns the table cells for one version. The CACHE cell
// is left to the caller.
func VersionTableRow(v *reconcile.Version, now time.Time) []string {
	files, size, modified := "-", "-", "-"
	if v.OnDisk {
		files = fmt.Sprint(len(v.Files))
		size = humanize.Bytes(uint64(max(v.Size, 0)))
		if !v.ModTime.IsZero() {
			modified = humanize.RelTime(v.ModTime, now, "ago", "from now")
		}
	}

	nodes := strings.Join(v.Nodes(), ", ")
	if len(v.Dangling) > 0 {
		var dangling []string
		for _, r := range v.Dangling {
			dangling = append(dangling, r.Node)
		}
		nodes = strings.TrimPrefix(nodes+", "+styles.WarningStyle.Render(strings.Join(dangling, ", ")+" (file missing)"), ", ")
	}

	path := v.Path
	if path == "" {
		path = v.Dir
	}

	return []string{
		"",
		v.Segment,
		styles.FormatStatus(v.Status),
		nodes,
		files,
		size,
		modified,
		styles.FormatPath(path),
	}
}

// CacheTable renders the filtered rows. The cache name is printed on the
// first version row of each cache.
func CacheTable(rows []view.Row, now time.Time) string {
	var cells [][]string
	for _, r := range rows {
		for i, v := range r.Versions {
			row := VersionTableRow(v, now)
			if i == 0 {
				row[0] = r.Cache.Name
			}
			cells = append(cells, row)
		}
	}
	return RenderTable(CacheHeaders, cells)
}

// FormatCounts summarizes a status count map in status order, e.g.
// "3 latest, 2 outdated, 1 missing".
func FormatCounts(counts map[reconcile.Status]int) string {
	var parts []string
	for _, s := range reconcile.Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(s.String())))
		}
	}
	if len(parts) == 0 {
		return "no versions"
	}
	return strings.Join(parts, ", ")
}
