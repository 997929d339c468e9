// Package session owns the current cache tree and runs the
// scan -> reconcile pipeline in the background.
//
// A new scan supersedes the one in flight: the old scan is cancelled and
// its results are dropped. The tree is only replaced by a complete scan.
// Panics inside the pipeline are recovered into a [FatalError] and the
// previous tree stays in place.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/expand"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/scan"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/version"
)

// ErrNoTree is returned by actions before the first successful scan or
// after the configuration changed.
var ErrNoTree = errors.New("no scan results, run a scan first")

// FatalError is a recovered panic from the pipeline.
type FatalError struct {
	Stage string
	Value any
	Stack []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Stage, e.Value)
}

// Config is the part of the user configuration the pipeline depends on.
type Config struct {
	// Root is the cache root as configured, usually "$JOB/geo".
	Root    string
	Pattern string
	Scheme  version.Scheme
	EnvVar  string

	Workers          int
	ProgressEvery    int
	ProgressInterval time.Duration
}

// invalidates reports whether switching from c to o makes a tree stale.
func (c Config) invalidates(o Config) bool {
	return c.Root != o.Root || c.Pattern != o.Pattern || c.Scheme != o.Scheme || c.EnvVar != o.EnvVar
}

// EventKind tags an Event.
type EventKind int

const (
	EventProgress EventKind = iota
	EventDone
	EventError
)

// Event is sent on the channel returned by Scan. Every scan ends with
// exactly one EventDone or EventError.
type Event struct {
	Kind       EventKind
	Generation string
	Progress   scan.Progress
	Tree       *reconcile.Tree
	Err        error
}

// Session holds the tree for one scene and one configuration.
type Session struct {
	scene scene.Context

	mu       sync.Mutex
	cfg      Config
	parser   *version.Parser
	expander *expand.Expander
	exec     *action.Executor
	execOpts []action.Option
	tree     *reconcile.Tree
	gen      string
	cancel   context.CancelFunc

	// pipeline serializes scans; a superseded scan releases it once its
	// cancellation is observed.
	pipeline sync.Mutex

	reconcileFn func(*scan.Result, []scene.Reference, reconcile.Options) *reconcile.Tree
}

// Option configures a Session.
type Option func(*Session)

// WithActionOptions configures the executor used by Load, Update and
// Delete.
func WithActionOptions(opts ...action.Option) Option {
	return func(s *Session) { s.execOpts = append(s.execOpts, opts...) }
}

// New returns a Session. An invalid pattern is returned as
// *version.PatternError.
func New(sc scene.Context, cfg Config, opts ...Option) (*Session, error) {
	s := &Session{scene: sc, reconcileFn: reconcile.Reconcile}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) apply(cfg Config) error {
	p, err := version.Compile(cfg.Pattern, cfg.Scheme)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.parser = p
	s.expander = expand.New(cfg.EnvVar, s.scene)
	s.exec = action.New(s.scene, s.expander, s.execOpts...)
	return nil
}

// SetConfig switches to a new configuration. When root, pattern, scheme or
// variable change, the in-flight scan is cancelled and the tree dropped.
func (s *Session) SetConfig(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cfg
	if err := s.apply(cfg); err != nil {
		return err
	}
	if old.invalidates(cfg) {
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.tree = nil
		s.gen = ""
	}
	return nil
}

// Config returns the active configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Expander returns the expander for the configured variable.
func (s *Session) Expander() *expand.Expander {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expander
}

// Tree returns the last complete tree, or nil.
func (s *Session) Tree() *reconcile.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Generation returns the id of the most recently started scan.
func (s *Session) Generation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Root returns the expanded, cleaned cache root.
func (s *Session) Root() (string, error) {
	s.mu.Lock()
	cfg, exp := s.cfg, s.expander
	s.mu.Unlock()
	return resolveRoot(cfg.Root, exp)
}

func resolveRoot(raw string, exp *expand.Expander) (string, error) {
	root, err := exp.Expand(raw)
	if err != nil {
		return "", fmt.Errorf("cache root %s: %w", raw, err)
	}
	root, err = expand.ExpandHome(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(root), nil
}

// Cancel stops the scan in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Scan starts a scan and returns its event stream. A scan already running
// is cancelled. The channel is closed after the final event.
func (s *Session) Scan(ctx context.Context) <-chan Event {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	gen := ulid.Make().String()
	s.gen = gen
	cfg, parser, exp := s.cfg, s.parser, s.expander
	s.mu.Unlock()

	events := make(chan Event, 32)
	go func() {
		defer close(events)
		defer cancel()

		s.pipeline.Lock()
		defer s.pipeline.Unlock()

		progress := func(p scan.Progress) {
			select {
			case events <- Event{Kind: EventProgress, Generation: gen, Progress: p}:
			default:
			}
		}

		// A reader that stopped draining must not pin the pipeline lock
		// once the scan is cancelled.
		emit := func(ev Event) {
			select {
			case events <- ev:
				return
			default:
			}
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		tree, err := s.run(ctx, cfg, parser, exp, progress)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			log.FromContext(ctx).Debug("scan failed", "generation", gen, "err", err)
			emit(Event{Kind: EventError, Generation: gen, Err: err})
			return
		}

		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.tree = tree
		}
		s.mu.Unlock()
		if !current {
			emit(Event{Kind: EventError, Generation: gen, Err: context.Canceled})
			return
		}
		emit(Event{Kind: EventDone, Generation: gen, Tree: tree})
	}()
	return events
}

// ScanWait runs a scan to completion. onProgress may be nil.
func (s *Session) ScanWait(ctx context.Context, onProgress func(scan.Progress)) (*reconcile.Tree, error) {
	var (
		tree *reconcile.Tree
		err  error
	)
	for ev := range s.Scan(ctx) {
		switch ev.Kind {
		case EventProgress:
			if onProgress != nil {
				onProgress(ev.Progress)
			}
		case EventDone:
			tree = ev.Tree
		case EventError:
			err = ev.Err
		}
	}
	return tree, err
}

func (s *Session) run(ctx context.Context, cfg Config, parser *version.Parser, exp *expand.Expander, progress func(scan.Progress)) (tree *reconcile.Tree, err error) {
	stage := "expand root"
	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = &FatalError{Stage: stage, Value: r, Stack: debug.Stack()}
		}
	}()

	root, err := resolveRoot(cfg.Root, exp)
	if err != nil {
		return nil, err
	}

	stage = "scan"
	res, err := scan.New(scan.Options{
		Root:             root,
		Workers:          cfg.Workers,
		OnProgress:       progress,
		ProgressEvery:    cfg.ProgressEvery,
		ProgressInterval: cfg.ProgressInterval,
	}).Scan(ctx)
	if err != nil {
		return nil, err
	}

	stage = "read references"
	refs, err := s.scene.ReferencedPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("read scene references: %w", err)
	}

	stage = "reconcile"
	tree = s.reconcileFn(res, refs, reconcile.Options{Parser: parser, Expander: exp})
	log.FromContext(ctx).Debug("scan complete",
		"root", root, "caches", len(tree.Caches), "files", len(res.Candidates), "took", res.Duration.Round(time.Millisecond))
	return tree, nil
}

func (s *Session) executor() (*action.Executor, *reconcile.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return nil, nil, ErrNoTree
	}
	return s.exec, s.tree, nil
}

// Load points node at v, then re-scans.
func (s *Session) Load(ctx context.Context, node string, v *reconcile.Version) (*action.Summary, error) {
	exec, _, err := s.executor()
	if err != nil {
		return nil, err
	}
	sum, err := exec.Load(ctx, node, v)
	return s.afterAction(ctx, sum, err)
}

// Update re-points every node of the selected caches to the latest
// version, then re-scans.
func (s *Session) Update(ctx context.Context, sel action.Selection) (*action.Summary, error) {
	exec, tree, err := s.executor()
	if err != nil {
		return nil, err
	}
	sum, err := exec.UpdateAllToLatest(ctx, tree, sel)
	return s.afterAction(ctx, sum, err)
}

// Delete removes unreferenced versions of the selection, then re-scans.
func (s *Session) Delete(ctx context.Context, sel action.Selection, opts action.DeleteOptions) (*action.Summary, error) {
	exec, tree, err := s.executor()
	if err != nil {
		return nil, err
	}
	sum, err := exec.DeleteUnused(ctx, tree, sel, opts)
	return s.afterAction(ctx, sum, err)
}

// PlanUpdate previews Update without confirming or applying.
func (s *Session) PlanUpdate(sel action.Selection) (*action.UpdatePlan, error) {
	exec, tree, err := s.executor()
	if err != nil {
		return nil, err
	}
	return exec.PlanUpdate(tree, sel), nil
}

// PlanDelete previews Delete without confirming or applying.
func (s *Session) PlanDelete(sel action.Selection, opts action.DeleteOptions) (*action.DeletePlan, error) {
	exec, tree, err := s.executor()
	if err != nil {
		return nil, err
	}
	return exec.PlanDelete(tree, sel, opts), nil
}

func (s *Session) afterAction(ctx context.Context, sum *action.Summary, err error) (*action.Summary, error) {
	if sum == nil || len(sum.Applied) == 0 {
		return sum, err
	}
	if _, serr := s.ScanWait(ctx, nil); serr != nil {
		log.FromContext(ctx).Warnf("re-scan after %s failed: %v", sum.Op, serr)
	}
	return sum, err
}
