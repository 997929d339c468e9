// Package reconcile joins scanned cache files with the scene's references
// and classifies every version as LATEST, OUTDATED, MISSING or MALFORMED.
//
// # Rules
//
// Versions are grouped per cache folder and version directory. Among the
// versions that exist on disk and match the version pattern, the one with
// the highest key is LATEST and the others are OUTDATED. A version that
// fails the pattern is MALFORMED. A reference into a version directory that
// does not exist yields a MISSING entry; MISSING wins over MALFORMED. A
// reference to an absent file inside an existing version directory also
// yields a MISSING entry with the same segment, next to the on-disk one,
// and keeps that directory in use.
//
// When several versions share the highest key the referenced one wins,
// otherwise the last one in scan order (the lexicographically greatest
// directory name). Each tie is reported in [Tree.Ties].
//
// Reconcile never modifies its inputs.
package reconcile

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/raphi011/cachemgr/internal/expand"
	"github.com/raphi011/cachemgr/internal/scan"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/version"
)

// Options configures Reconcile.
type Options struct {
	Parser *version.Parser

	// Expander resolves $VAR tokens in reference paths. Nil leaves paths
	// as written.
	Expander *expand.Expander
}

type versionID struct {
	cache   string
	segment string
}

type builder struct {
	root     string
	opts     Options
	tree     *Tree
	caches   map[string]*Cache
	versions map[versionID]*Version
	pinned   map[*Version]bool
	missing  map[*Version]*Version
	order    int
}

// Reconcile builds the status tree for one scan result and the scene's
// references.
func Reconcile(res *scan.Result, refs []scene.Reference, opts Options) *Tree {
	if res == nil {
		res = &scan.Result{}
	}
	if opts.Parser == nil {
		opts.Parser = version.MustCompile(version.DefaultPattern, version.SchemeNumeric)
	}

	b := &builder{
		root: res.Root,
		opts: opts,
		tree: &Tree{
			Root:         res.Root,
			ScanWarnings: append([]*scan.Warning(nil), res.Warnings...),
			ScannedAt:    time.Now(),
			ScanDuration: res.Duration,
		},
		caches:   map[string]*Cache{},
		versions: map[versionID]*Version{},
		pinned:   map[*Version]bool{},
		missing:  map[*Version]*Version{},
	}

	for _, name := range res.Caches {
		b.cache(name)
	}
	for _, c := range res.Candidates {
		b.addCandidate(c)
	}
	for _, ref := range refs {
		b.placeReference(ref)
	}

	for _, c := range b.caches {
		b.tree.Caches = append(b.tree.Caches, c)
	}
	sort.Slice(b.tree.Caches, func(i, j int) bool {
		return version.NaturalLess(b.tree.Caches[i].Name, b.tree.Caches[j].Name)
	})
	for _, c := range b.tree.Caches {
		b.finish(c)
	}
	return b.tree
}

func (b *builder) cache(name string) *Cache {
	c, ok := b.caches[name]
	if !ok {
		c = &Cache{Name: name}
		b.caches[name] = c
	}
	return c
}

func (b *builder) newVersion(cacheName, segment, dir, samplePath string) *Version {
	v := &Version{
		CacheName: cacheName,
		Segment:   segment,
		Token:     segment,
		Dir:       dir,
		order:     b.order,
	}
	b.order++

	pr := b.opts.Parser.Parse(b.root, samplePath)
	if pr.OK {
		v.MatchesPattern = true
		v.Token = pr.Token
		v.Key = pr.Key
	} else {
		v.Failure = pr.Failure
	}

	b.versions[versionID{cacheName, segment}] = v
	c := b.cache(cacheName)
	c.Versions = append(c.Versions, v)
	return v
}

func (b *builder) addCandidate(c scan.Candidate) {
	v, ok := b.versions[versionID{c.CacheName, c.Segment}]
	if !ok {
		v = b.newVersion(c.CacheName, c.Segment, c.Dir(), c.Path)
		v.OnDisk = true
	}
	v.Files = append(v.Files, c.Name)
	v.Size += c.Size
	if c.ModTime.After(v.ModTime) {
		v.ModTime = c.ModTime
	}
	ext := c.Ext()
	for _, have := range v.Extensions {
		if have == ext {
			return
		}
	}
	v.Extensions = append(v.Extensions, ext)
}

func (b *builder) placeReference(ref scene.Reference) {
	expanded := ref.Path
	if b.opts.Expander != nil {
		p, err := b.opts.Expander.Expand(ref.Path)
		if err != nil {
			b.tree.Unresolved = append(b.tree.Unresolved, UnresolvedReference{Ref: ref, Err: err})
			return
		}
		expanded = p
	}
	expanded = filepath.Clean(expanded)

	pr := b.opts.Parser.Parse(b.root, expanded)
	if pr.Failure != nil && pr.Failure.Reason != version.ReasonPattern {
		b.tree.Unplaced = append(b.tree.Unplaced, UnplacedReference{
			Ref:      ref,
			Expanded: expanded,
			Reason:   pr.Failure.Reason,
		})
		return
	}

	v := b.versions[versionID{pr.CacheName, pr.Segment}]
	if v != nil && v.OnDisk {
		name, ok := matchFile(filepath.Base(expanded), v.Files)
		if !ok {
			v.Dangling = append(v.Dangling, ref)
			b.tree.Dangling = append(b.tree.Dangling, DanglingReference{Ref: ref, Expanded: expanded})
			b.missingBeside(v, ref)
			return
		}
		v.Referenced = true
		v.Refs = append(v.Refs, ref)
		if !b.pinned[v] {
			v.Path = filepath.Join(v.Dir, name)
			b.pinned[v] = true
		}
		return
	}

	if v == nil {
		v = b.newVersion(pr.CacheName, pr.Segment, filepath.Dir(expanded), expanded)
	}
	v.Referenced = true
	v.Refs = append(v.Refs, ref)
}

// missingBeside records ref as a MISSING entry next to the on-disk
// version v whose directory lacks the referenced file. All such references
// into one directory share a single entry.
func (b *builder) missingBeside(v *Version, ref scene.Reference) {
	m := b.missing[v]
	if m == nil {
		m = &Version{
			CacheName:      v.CacheName,
			Segment:        v.Segment,
			Token:          v.Token,
			Key:            v.Key,
			Dir:            v.Dir,
			MatchesPattern: v.MatchesPattern,
			Failure:        v.Failure,
			order:          b.order,
		}
		b.order++
		b.missing[v] = m
		c := b.cache(v.CacheName)
		c.Versions = append(c.Versions, m)
	}
	m.Referenced = true
	m.Refs = append(m.Refs, ref)
}

func (b *builder) finish(c *Cache) {
	for _, v := range c.Versions {
		sort.Slice(v.Files, func(i, j int) bool { return version.NaturalLess(v.Files[i], v.Files[j]) })
		sort.Strings(v.Extensions)
		if v.OnDisk && v.Path == "" && len(v.Files) > 0 {
			v.Path = filepath.Join(v.Dir, v.Files[0])
		}
	}

	b.classify(c)

	sort.SliceStable(c.Versions, func(i, j int) bool {
		a, z := c.Versions[i], c.Versions[j]
		if a.MatchesPattern != z.MatchesPattern {
			return a.MatchesPattern
		}
		if a.MatchesPattern {
			if a.Key.Compare(z.Key) != 0 || a.Token != z.Token {
				return version.Less(a.Key, z.Key)
			}
			return a.order < z.order
		}
		return version.NaturalLess(a.Segment, z.Segment)
	})
}

func (b *builder) classify(c *Cache) {
	var top []*Version
	for _, v := range c.Versions {
		if !v.OnDisk || !v.MatchesPattern {
			continue
		}
		if len(top) == 0 {
			top = []*Version{v}
			continue
		}
		switch cmp := v.Key.Compare(top[0].Key); {
		case cmp > 0:
			top = []*Version{v}
		case cmp == 0:
			top = append(top, v)
		}
	}

	var latest *Version
	if len(top) > 0 {
		sort.Slice(top, func(i, j int) bool { return top[i].order < top[j].order })
		latest = top[len(top)-1]
		for _, v := range top {
			if v.Referenced {
				latest = v
			}
		}
		if len(top) > 1 {
			tokens := make([]string, len(top))
			for i, v := range top {
				tokens[i] = v.Segment
			}
			b.tree.Ties = append(b.tree.Ties, TieWarning{Cache: c.Name, Tokens: tokens, Winner: latest.Segment})
		}
	}

	for _, v := range c.Versions {
		switch {
		case !v.OnDisk:
			v.Status = StatusMissing
		case !v.MatchesPattern:
			v.Status = StatusMalformed
		case v == latest:
			v.Status = StatusLatest
		default:
			v.Status = StatusOutdated
		}
	}
}
