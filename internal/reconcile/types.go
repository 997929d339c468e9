package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/raphi011/cachemgr/internal/scan"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/version"
)

// Status classifies a version entry.
type Status int

const (
	StatusLatest Status = iota
	StatusOutdated
	StatusMissing
	StatusMalformed
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusLatest, StatusOutdated, StatusMissing, StatusMalformed}

func (s Status) String() string {
	switch s {
	case StatusLatest:
		return "LATEST"
	case StatusOutdated:
		return "OUTDATED"
	case StatusMissing:
		return "MISSING"
	case StatusMalformed:
		return "MALFORMED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus accepts status names case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q (want latest, outdated, missing or malformed)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Version is one version directory of a cache, or a version known only
// through a scene reference.
type Version struct {
	CacheName string
	Segment   string
	Token     string
	Key       version.Key

	// Dir is the version directory. Path is the representative file: the
	// referenced one when the scene points into this version, otherwise
	// the first file in natural order. Path is empty when not on disk.
	Dir        string
	Path       string
	Files      []string
	Extensions []string
	Size       int64
	ModTime    time.Time

	OnDisk         bool
	MatchesPattern bool
	Referenced     bool
	Status         Status

	// Refs are the scene references resolving to a file of this version.
	// Dangling are references pointing into this directory at a file that
	// does not exist. The same references are the Refs of a MISSING
	// sibling with this segment.
	Refs     []scene.Reference
	Dangling []scene.Reference
	Failure  *version.ParseFailure

	order int
}

// Nodes returns the distinct nodes referencing this version.
func (v *Version) Nodes() []string {
	var nodes []string
	seen := map[string]bool{}
	for _, r := range v.Refs {
		if !seen[r.Node] {
			seen[r.Node] = true
			nodes = append(nodes, r.Node)
		}
	}
	return nodes
}

// HasExt reports whether the version holds a file with one of exts.
func (v *Version) HasExt(exts ...string) bool {
	for _, have := range v.Extensions {
		for _, want := range exts {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// InUse reports whether any scene reference points into the version,
// resolved or not.
func (v *Version) InUse() bool {
	return v.Referenced || len(v.Dangling) > 0
}

// Cache is a folder directly under the root and its versions. Versions are
// ordered by key (ascending), with entries that fail the pattern last.
type Cache struct {
	Name     string
	Versions []*Version
}

// Latest returns the LATEST version or nil.
func (c *Cache) Latest() *Version {
	for _, v := range c.Versions {
		if v.Status == StatusLatest {
			return v
		}
	}
	return nil
}

// Referenced returns the versions referenced by the scene.
func (c *Cache) Referenced() []*Version {
	var out []*Version
	for _, v := range c.Versions {
		if v.Referenced {
			out = append(out, v)
		}
	}
	return out
}

// Current returns the highest referenced version or nil.
func (c *Cache) Current() *Version {
	var cur *Version
	for _, v := range c.Versions {
		if v.Referenced && (cur == nil || version.Less(cur.Key, v.Key)) {
			cur = v
		}
	}
	return cur
}

// IsCurrentLatest reports whether the scene references only the LATEST
// version of this cache. A cache nobody references is not current.
func (c *Cache) IsCurrentLatest() bool {
	refs := c.Referenced()
	if len(refs) == 0 {
		return false
	}
	for _, v := range refs {
		if v.Status != StatusLatest {
			return false
		}
	}
	return true
}

// NeedsUpdate reports whether some referenced version is not LATEST while
// a LATEST exists.
func (c *Cache) NeedsUpdate() bool {
	if c.Latest() == nil {
		return false
	}
	for _, v := range c.Referenced() {
		if v.Status != StatusLatest {
			return true
		}
	}
	return false
}

// Find returns the version with the given token or segment.
func (c *Cache) Find(tokenOrSegment string) *Version {
	for _, v := range c.Versions {
		if v.Segment == tokenOrSegment {
			return v
		}
	}
	for _, v := range c.Versions {
		if v.Token == tokenOrSegment {
			return v
		}
	}
	return nil
}

// TieWarning records versions of one cache whose keys compared equal at
// the top.
type TieWarning struct {
	Cache  string
	Tokens []string
	Winner string
}

func (w TieWarning) String() string {
	return fmt.Sprintf("%s: versions %s have equal keys, using %s as latest",
		w.Cache, strings.Join(w.Tokens, ", "), w.Winner)
}

// UnplacedReference is a scene reference that does not fit the cache
// layout under the root.
type UnplacedReference struct {
	Ref      scene.Reference
	Expanded string
	Reason   version.Reason
}

func (w UnplacedReference) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.Ref.Node, w.Expanded, w.Reason)
}

// UnresolvedReference is a scene reference whose variable could not be
// expanded.
type UnresolvedReference struct {
	Ref scene.Reference
	Err error
}

func (w UnresolvedReference) String() string {
	return fmt.Sprintf("%s: %s (%v)", w.Ref.Node, w.Ref.Path, w.Err)
}

// DanglingReference points into an existing version directory at a file
// that is not there.
type DanglingReference struct {
	Ref      scene.Reference
	Expanded string
}

func (w DanglingReference) String() string {
	return fmt.Sprintf("%s: %s does not exist", w.Ref.Node, w.Expanded)
}

// Tree is the status-annotated result of one reconciliation.
type Tree struct {
	Root   string
	Caches []*Cache

	ScanWarnings []*scan.Warning
	Ties         []TieWarning
	Unplaced     []UnplacedReference
	Unresolved   []UnresolvedReference
	Dangling     []DanglingReference

	ScannedAt    time.Time
	ScanDuration time.Duration
}

// Find returns the cache with the given name or nil.
func (t *Tree) Find(name string) *Cache {
	if t == nil {
		return nil
	}
	for _, c := range t.Caches {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Counts returns the number of versions per status.
func (t *Tree) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	if t == nil {
		return counts
	}
	for _, c := range t.Caches {
		for _, v := range c.Versions {
			counts[v.Status]++
		}
	}
	return counts
}

// Warnings returns every warning as a display line.
func (t *Tree) Warnings() []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, w := range t.ScanWarnings {
		out = append(out, w.Error())
	}
	for _, w := range t.Ties {
		out = append(out, w.String())
	}
	for _, w := range t.Unresolved {
		out = append(out, "unresolved reference "+w.String())
	}
	for _, w := range t.Unplaced {
		out = append(out, "reference outside cache layout "+w.String())
	}
	for _, w := range t.Dangling {
		out = append(out, "dangling reference "+w.String())
	}
	return out
}
