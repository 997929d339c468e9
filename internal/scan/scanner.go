// Package scan walks a cache root and yields every file that sits directly
// inside a version directory.
//
// The expected layout is <root>/<cache_name>/<version_segment>/<file>.
// Files at depth 1 or 2 and directories at depth 3 are ignored. Version
// segments are not checked here; the reconciler decides whether they
// match the configured pattern.
package scan

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults for Options.
const (
	DefaultWorkers          = 8
	DefaultProgressEvery    = 64
	DefaultProgressInterval = 100 * time.Millisecond
)

// Candidate is one file found at depth 3.
type Candidate struct {
	Path      string
	CacheName string
	Segment   string
	Name      string
	Size      int64
	ModTime   time.Time
}

// Dir returns the version directory holding the file.
func (c Candidate) Dir() string {
	return filepath.Dir(c.Path)
}

// Progress is a snapshot of walk counters.
type Progress struct {
	Visited    int
	Candidates int
	Caches     int
}

// Options configures a Scanner.
type Options struct {
	Root string

	// Workers bounds concurrent version directory listings per cache.
	Workers int

	// OnProgress, if set, receives a snapshot every ProgressEvery visited
	// entries (at most once per ProgressInterval) and once at the end.
	OnProgress       func(Progress)
	ProgressEvery    int
	ProgressInterval time.Duration
}

// Result is the outcome of a complete walk.
type Result struct {
	Root       string
	Caches     []string
	Candidates []Candidate
	Warnings   []*Warning
	Progress   Progress
	Duration   time.Duration
}

// Scanner walks one root. It holds no state between walks.
type Scanner struct {
	opts Options
}

// New returns a Scanner for opts, filling in defaults.
func New(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	opts.Root = filepath.Clean(opts.Root)
	return &Scanner{opts: opts}
}

// Root returns the cleaned root path.
func (s *Scanner) Root() string {
	return s.opts.Root
}

// Scan collects all candidates and warnings. A cancelled context returns
// ctx.Err() and no result.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Root: s.opts.Root}

	w := s.newWalk(ctx)
	for c, err := range w.seq() {
		if err != nil {
			var warn *Warning
			if errors.As(err, &warn) {
				res.Warnings = append(res.Warnings, warn)
				continue
			}
			return nil, err
		}
		res.Candidates = append(res.Candidates, c)
	}

	res.Caches = w.caches
	res.Progress = w.progress
	res.Duration = time.Since(start)
	return res, nil
}

// Candidates returns a lazy sequence over the walk. Each call walks from
// scratch. Errors are either *Warning values, after which the walk goes
// on, or a terminal error (unreadable root, cancellation) that ends it.
func (s *Scanner) Candidates(ctx context.Context) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		s.newWalk(ctx).seq()(yield)
	}
}

type walk struct {
	ctx      context.Context
	opts     Options
	caches   []string
	progress Progress
	lastSent time.Time
	sinceRep int
}

func (s *Scanner) newWalk(ctx context.Context) *walk {
	return &walk{ctx: ctx, opts: s.opts}
}

// versionListing is the result of reading one version directory.
type versionListing struct {
	files    []Candidate
	visited  int
	warnings []*Warning
}

func (w *walk) seq() iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		root := w.opts.Root
		entries, err := os.ReadDir(root)
		if err != nil {
			yield(Candidate{}, fmt.Errorf("read cache root %s: %w", root, err))
			return
		}

		for _, e := range entries {
			if err := w.ctx.Err(); err != nil {
				yield(Candidate{}, err)
				return
			}
			w.visit(1)
			if hidden(e.Name()) {
				continue
			}
			cacheDir := filepath.Join(root, e.Name())
			isDir, warn := entryIsDir(cacheDir, e)
			if warn != nil {
				if !yield(Candidate{}, warn) {
					return
				}
				continue
			}
			if !isDir {
				continue // files at depth 1
			}
			w.caches = append(w.caches, e.Name())
			w.progress.Caches = len(w.caches)

			if !w.walkCache(e.Name(), cacheDir, yield) {
				return
			}
		}
		w.report(true)
	}
}

// walkCache lists the version directories of one cache concurrently and
// yields their files in sorted order. It returns false when the caller
// stopped or the context ended.
func (w *walk) walkCache(name, dir string, yield func(Candidate, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return yield(Candidate{}, &Warning{Path: dir, Op: "read dir", Err: err})
	}

	var versionDirs []string
	for _, e := range entries {
		w.visit(1)
		if hidden(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		isDir, warn := entryIsDir(p, e)
		if warn != nil {
			if !yield(Candidate{}, warn) {
				return false
			}
			continue
		}
		if isDir {
			versionDirs = append(versionDirs, e.Name())
		}
	}

	listings := make([]versionListing, len(versionDirs))
	g, ctx := errgroup.WithContext(w.ctx)
	g.SetLimit(w.opts.Workers)
	for i, seg := range versionDirs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			listings[i] = listVersion(name, seg, filepath.Join(dir, seg))
			return nil
		})
	}
	_ = g.Wait()

	if err := w.ctx.Err(); err != nil {
		yield(Candidate{}, err)
		return false
	}

	for _, l := range listings {
		w.visit(l.visited)
		for _, warn := range l.warnings {
			if !yield(Candidate{}, warn) {
				return false
			}
		}
		for _, c := range l.files {
			w.progress.Candidates++
			if !yield(c, nil) {
				return false
			}
		}
	}
	return true
}

func listVersion(cacheName, segment, dir string) versionListing {
	var l versionListing
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.warnings = append(l.warnings, &Warning{Path: dir, Op: "read dir", Err: err})
		return l
	}
	for _, e := range entries {
		l.visited++
		if hidden(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		info, err := os.Stat(p)
		if err != nil {
			l.warnings = append(l.warnings, &Warning{Path: p, Op: "stat", Err: err})
			continue
		}
		if info.IsDir() {
			continue // directories at depth 3
		}
		l.files = append(l.files, Candidate{
			Path:      p,
			CacheName: cacheName,
			Segment:   segment,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	sort.Slice(l.files, func(i, j int) bool { return l.files[i].Name < l.files[j].Name })
	return l
}

// entryIsDir follows symlinks. A broken link is reported as a warning.
func entryIsDir(path string, e os.DirEntry) (bool, *Warning) {
	if e.Type()&os.ModeSymlink == 0 {
		return e.IsDir(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, &Warning{Path: path, Op: "stat", Err: err}
	}
	return info.IsDir(), nil
}

func (w *walk) visit(n int) {
	if n == 0 {
		return
	}
	w.progress.Visited += n
	w.sinceRep += n
	if w.sinceRep >= w.opts.ProgressEvery {
		w.report(false)
	}
}

func (w *walk) report(final bool) {
	if w.opts.OnProgress == nil {
		return
	}
	now := time.Now()
	if !final && now.Sub(w.lastSent) < w.opts.ProgressInterval {
		return
	}
	w.sinceRep = 0
	w.lastSent = now
	w.opts.OnProgress(w.progress)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
