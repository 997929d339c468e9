// Package view narrows a reconciled tree to what the user asked to see.
// It is shared by the scan command and the panel.
package view

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/raphi011/cachemgr/internal/reconcile"
)

// ExtGroup is one extension toggle. A group covers several extensions
// when a format has variants (.usd, .usda, .usdc, .usdz).
type ExtGroup struct {
	Key   string
	Label string
	Exts  []string
}

// Groups are the extension toggles in key order.
var Groups = []ExtGroup{
	{Key: "1", Label: ".bgeo.sc", Exts: []string{".bgeo.sc"}},
	{Key: "2", Label: ".abc", Exts: []string{".abc"}},
	{Key: "3", Label: ".usd*", Exts: []string{".usd", ".usda", ".usdc", ".usdz"}},
	{Key: "4", Label: ".vdb", Exts: []string{".vdb"}},
	{Key: "5", Label: ".fbx", Exts: []string{".fbx"}},
	{Key: "6", Label: ".obj", Exts: []string{".obj"}},
}

// ExpandExts expands configured extensions to every variant of their
// group. Extensions outside any group are kept as given.
func ExpandExts(exts []string) []string {
	var out []string
	for _, e := range exts {
		e = strings.ToLower(e)
		found := false
		for _, g := range Groups {
			if g.Exts[0] == e || slices.Contains(g.Exts, e) {
				out = append(out, g.Exts...)
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Filter selects caches and versions.
type Filter struct {
	// Query fuzzy-matches cache names. Empty matches all.
	Query string
	// Extensions keeps on-disk versions holding at least one file with
	// one of these extensions. Ignored when AllExt is set.
	Extensions []string
	AllExt     bool
	// ShowMalformed includes versions failing the pattern.
	ShowMalformed bool
	// Statuses keeps only versions with these statuses. Empty keeps all.
	Statuses []reconcile.Status
}

// Row is a cache with its visible versions.
type Row struct {
	Cache    *reconcile.Cache
	Versions []*reconcile.Version
	// Matched holds the indexes of Cache.Name matched by the query.
	Matched []int
}

// Apply returns the visible rows in tree order. Caches without any
// visible version are left out.
func (f Filter) Apply(tree *reconcile.Tree) []Row {
	if tree == nil {
		return nil
	}

	matched := f.match(tree)
	exts := ExpandExts(f.Extensions)

	var rows []Row
	for i, c := range tree.Caches {
		idx, ok := matched[i]
		if !ok {
			continue
		}
		var versions []*reconcile.Version
		for _, v := range c.Versions {
			if f.keep(v, exts) {
				versions = append(versions, v)
			}
		}
		if len(versions) == 0 {
			continue
		}
		rows = append(rows, Row{Cache: c, Versions: versions, Matched: idx})
	}
	return rows
}

// match returns cache index -> matched character indexes.
func (f Filter) match(tree *reconcile.Tree) map[int][]int {
	out := make(map[int][]int, len(tree.Caches))
	q := strings.TrimSpace(f.Query)
	if q == "" {
		for i := range tree.Caches {
			out[i] = nil
		}
		return out
	}
	names := make([]string, len(tree.Caches))
	for i, c := range tree.Caches {
		names[i] = c.Name
	}
	for _, m := range fuzzy.Find(q, names) {
		out[m.Index] = m.MatchedIndexes
	}
	return out
}

func (f Filter) keep(v *reconcile.Version, exts []string) bool {
	if len(f.Statuses) > 0 {
		return slices.Contains(f.Statuses, v.Status) && f.extOK(v, exts)
	}
	if v.Status == reconcile.StatusMalformed && !f.ShowMalformed {
		return false
	}
	return f.extOK(v, exts)
}

// extOK applies the extension filter. Missing versions have no files and
// always pass.
func (f Filter) extOK(v *reconcile.Version, exts []string) bool {
	if f.AllExt || !v.OnDisk || len(exts) == 0 {
		return true
	}
	return v.HasExt(exts...)
}

// Versions flattens rows into a selection-ready list.
func Versions(rows []Row) []*reconcile.Version {
	var out []*reconcile.Version
	for _, r := range rows {
		out = append(out, r.Versions...)
	}
	return out
}

// CacheNames returns the names of the rows.
func CacheNames(rows []Row) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Cache.Name
	}
	return names
}
