package panel

import (
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/view"
)

// item is one visible line: a cache row, or a version row of an expanded
// cache.
type item struct {
	row     *view.Row
	version *reconcile.Version
}

func (it item) isCache() bool { return it.version == nil }

func (it item) cache() *reconcile.Cache { return it.row.Cache }

// key identifies the item across re-scans.
func (it item) key() string {
	if it.version == nil {
		return it.row.Cache.Name
	}
	return it.row.Cache.Name + "/" + it.version.Segment
}

// path is what y and o act on.
func (it item) path() string {
	if it.version != nil {
		if it.version.Path != "" {
			return it.version.Path
		}
		return it.version.Dir
	}
	if cur := it.row.Cache.Current(); cur != nil && cur.OnDisk {
		return cur.Dir
	}
	if latest := it.row.Cache.Latest(); latest != nil {
		return latest.Dir
	}
	return ""
}

func flatten(rows []view.Row, expanded map[string]bool) []item {
	var items []item
	for i := range rows {
		r := &rows[i]
		items = append(items, item{row: r})
		if !expanded[r.Cache.Name] {
			continue
		}
		for _, v := range r.Versions {
			items = append(items, item{row: r, version: v})
		}
	}
	return items
}
