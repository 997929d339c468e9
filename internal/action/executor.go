// Package action applies user decisions to the scene and the disk: load a
// version into a node, update references to the latest version, delete
// unreferenced versions.
//
// Every operation is planned first, confirmed through a [Confirmer] and
// only then applied. A declined confirmation changes nothing. Failures of
// single steps are collected in the [Summary] and do not stop the batch.
// Referenced versions are never deleted: the delete plan excludes them and
// the scene is asked again right before removal. While any scene reference
// cannot be expanded nothing is deleted at all.
package action

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/raphi011/cachemgr/internal/expand"
	"github.com/raphi011/cachemgr/internal/history"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/version"
)

// ErrNotOnDisk is returned when loading a version that has no files.
var ErrNotOnDisk = errors.New("version is not on disk")

// Recorder journals applied actions.
type Recorder interface {
	Record(ctx context.Context, entries ...history.Entry) error
}

// Executor runs action batches one at a time.
type Executor struct {
	scene    scene.Context
	expander *expand.Expander
	confirm  Confirmer
	remove   func(string) error
	recorder Recorder
	progress func(done, total int, target string)
	dryRun   bool

	mu sync.Mutex
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfirmer sets the confirmation strategy. The default declines.
func WithConfirmer(c Confirmer) Option {
	return func(e *Executor) { e.confirm = c }
}

// WithRemover replaces os.RemoveAll for deleting version directories.
func WithRemover(fn func(string) error) Option {
	return func(e *Executor) { e.remove = fn }
}

// WithRecorder journals every applied step.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithProgress is called after every step of an update or delete batch.
func WithProgress(fn func(done, total int, target string)) Option {
	return func(e *Executor) { e.progress = fn }
}

// WithDryRun plans and confirms nothing, and applies nothing.
func WithDryRun(dry bool) Option {
	return func(e *Executor) { e.dryRun = dry }
}

// New returns an Executor for the scene. exp contracts new paths back to
// their $VAR form; nil writes absolute paths.
func New(sc scene.Context, exp *expand.Expander, opts ...Option) *Executor {
	e := &Executor{
		scene:    sc,
		expander: exp,
		confirm:  Decline,
		remove:   os.RemoveAll,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) contract(p string) string {
	if e.expander == nil {
		return p
	}
	c, err := e.expander.Contract(p)
	if err != nil {
		return p
	}
	return c
}

func (e *Executor) expandPath(p string) string {
	x, err := e.tryExpand(p)
	if err != nil {
		return p
	}
	return x
}

func (e *Executor) tryExpand(p string) (string, error) {
	if e.expander == nil {
		return p, nil
	}
	return e.expander.Expand(p)
}

// unresolvedReason explains why nothing may be deleted while a scene
// reference cannot be expanded: it could point into any version.
func unresolvedReason(ref scene.Reference) string {
	return fmt.Sprintf("scene reference %s (%s) cannot be resolved", ref.Node, ref.Path)
}

// ask returns false without error when the user declined; in dry-run mode
// nothing is asked.
func (e *Executor) ask(ctx context.Context, s *Summary, p Prompt) (bool, error) {
	if e.dryRun {
		return false, nil
	}
	ok, err := e.confirm.Confirm(ctx, p)
	if err != nil {
		return false, err
	}
	if !ok {
		s.Declined = true
	}
	return ok, nil
}

func (e *Executor) step(done, total int, target string) {
	if e.progress != nil {
		e.progress(done, total, target)
	}
}

func (e *Executor) record(ctx context.Context, entries []history.Entry) {
	if e.recorder == nil || len(entries) == 0 {
		return
	}
	if err := e.recorder.Record(ctx, entries...); err != nil {
		log.FromContext(ctx).Warnf("could not write history: %v", err)
	}
}

// Load points node at version v.
func (e *Executor) Load(ctx context.Context, node string, v *reconcile.Version) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &Summary{Op: OpLoad, DryRun: e.dryRun}
	if v == nil || !v.OnDisk || v.Path == "" {
		f := &Failure{Op: OpLoad, Err: ErrNotOnDisk}
		if v != nil {
			f.Cache, f.Target = v.CacheName, v.Segment
		}
		s.Failures = append(s.Failures, f)
		return s, f
	}
	s.Planned = 1

	newPath := e.contract(v.Path)
	ok, err := e.ask(ctx, s, Prompt{
		Op:    OpLoad,
		Title: fmt.Sprintf("Load %s %s into %s?", v.CacheName, v.Token, node),
		Lines: []string{newPath},
	})
	if err != nil || !ok {
		return s, err
	}

	entry := history.Entry{Op: OpLoad, Cache: v.CacheName, Token: v.Token, Node: node, To: newPath}
	if err := e.scene.SetReference(ctx, node, newPath); err != nil {
		f := &Failure{Op: OpLoad, Cache: v.CacheName, Target: node, Err: err}
		s.Failures = append(s.Failures, f)
		entry.Error = err.Error()
		e.record(ctx, []history.Entry{entry})
		return s, f
	}
	s.Applied = append(s.Applied, Change{Cache: v.CacheName, Token: v.Token, Node: node, To: newPath})
	e.record(ctx, []history.Entry{entry})
	log.FromContext(ctx).Info("loaded version", "cache", v.CacheName, "token", v.Token, "node", node)
	return s, nil
}

// PlanUpdate finds every node that references a non-latest version of a
// selected cache.
func (e *Executor) PlanUpdate(tree *reconcile.Tree, sel Selection) *UpdatePlan {
	plan := &UpdatePlan{}
	for _, name := range sel.cacheNames() {
		c := tree.Find(name)
		if c == nil {
			continue
		}
		refd := c.Referenced()
		if len(refd) == 0 {
			continue
		}
		latest := c.Latest()
		if latest == nil {
			plan.Skipped = append(plan.Skipped, Skip{Cache: name, Reason: "no version on disk matches the pattern"})
			continue
		}

		nodes := map[string]bool{}
		for _, v := range refd {
			if v == latest {
				continue
			}
			for _, ref := range v.Refs {
				if nodes[ref.Node] {
					continue
				}
				nodes[ref.Node] = true
				target := reconcile.Retarget(filepath.Clean(e.expandPath(ref.Path)), v, latest)
				plan.Steps = append(plan.Steps, UpdateStep{
					Cache:   name,
					Node:    ref.Node,
					From:    v,
					To:      latest,
					OldPath: ref.Path,
					NewPath: e.contract(target),
				})
			}
		}
		if len(nodes) == 0 {
			plan.UpToDate = append(plan.UpToDate, name)
		}
	}
	return plan
}

// UpdateAllToLatest re-points every node referencing an older version of a
// selected cache to that cache's LATEST version.
func (e *Executor) UpdateAllToLatest(ctx context.Context, tree *reconcile.Tree, sel Selection) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan := e.PlanUpdate(tree, sel)
	s := &Summary{Op: OpUpdate, Planned: len(plan.Steps), Skipped: plan.Skipped, DryRun: e.dryRun}
	if len(plan.Steps) == 0 {
		return s, nil
	}

	ok, err := e.ask(ctx, s, Prompt{Op: OpUpdate, Title: "Update caches to latest?", Lines: plan.Lines()})
	if err != nil || !ok {
		return s, err
	}

	var entries []history.Entry
	defer func() { e.record(ctx, entries) }()

	for i, st := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		e.step(i, len(plan.Steps), st.Node)
		entry := history.Entry{Op: OpUpdate, Cache: st.Cache, Token: st.To.Token, Node: st.Node, From: st.OldPath, To: st.NewPath}
		if err := e.scene.SetReference(ctx, st.Node, st.NewPath); err != nil {
			s.Failures = append(s.Failures, &Failure{Op: OpUpdate, Cache: st.Cache, Target: st.Node, Err: err})
			entry.Error = err.Error()
			entries = append(entries, entry)
			continue
		}
		s.Applied = append(s.Applied, Change{Cache: st.Cache, Token: st.To.Token, Node: st.Node, From: st.OldPath, To: st.NewPath})
		entries = append(entries, entry)
	}
	log.FromContext(ctx).Info("updated caches", "applied", len(s.Applied), "failed", len(s.Failures))
	return s, nil
}

// PlanDelete selects the on-disk, unreferenced versions of sel.
func (e *Executor) PlanDelete(tree *reconcile.Tree, sel Selection, opts DeleteOptions) *DeletePlan {
	plan := &DeletePlan{}
	seen := map[*reconcile.Version]bool{}

	blocked := ""
	if tree != nil && len(tree.Unresolved) > 0 {
		blocked = unresolvedReason(tree.Unresolved[0].Ref)
	}

	for _, v := range sel {
		if seen[v] || !v.OnDisk {
			continue
		}
		seen[v] = true

		if blocked != "" {
			plan.Skipped = append(plan.Skipped, Skip{Cache: v.CacheName, Target: v.Segment, Reason: blocked})
			continue
		}

		if v.InUse() {
			nodes := v.Nodes()
			for _, r := range v.Dangling {
				nodes = append(nodes, r.Node)
			}
			plan.Skipped = append(plan.Skipped, Skip{Cache: v.CacheName, Target: v.Segment, Reason: "referenced by " + strings.Join(nodes, ", ")})
			continue
		}
		if opts.KeepLatest && v.Status == reconcile.StatusLatest {
			plan.Skipped = append(plan.Skipped, Skip{Cache: v.CacheName, Target: v.Segment, Reason: "latest version"})
			continue
		}
		if opts.OlderThanReferenced {
			if reason := notOlder(tree.Find(v.CacheName), v); reason != "" {
				plan.Skipped = append(plan.Skipped, Skip{Cache: v.CacheName, Target: v.Segment, Reason: reason})
				continue
			}
		}
		plan.Steps = append(plan.Steps, DeleteStep{Version: v})
	}
	return plan
}

func notOlder(c *reconcile.Cache, v *reconcile.Version) string {
	var cur *reconcile.Version
	if c != nil {
		cur = c.Current()
	}
	switch {
	case cur == nil || !cur.MatchesPattern:
		return "no referenced version to compare with"
	case !v.MatchesPattern:
		return "malformed version"
	case !version.Less(v.Key, cur.Key):
		return "not older than referenced " + cur.Token
	}
	return ""
}

// DeleteUnused removes the unreferenced on-disk versions of sel. The
// scene's references are read again before anything is removed and every
// version directory still referenced is skipped.
func (e *Executor) DeleteUnused(ctx context.Context, tree *reconcile.Tree, sel Selection, opts DeleteOptions) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan := e.PlanDelete(tree, sel, opts)
	s := &Summary{Op: OpDelete, Planned: len(plan.Steps), Skipped: plan.Skipped, DryRun: e.dryRun}
	if len(plan.Steps) == 0 {
		return s, nil
	}

	ok, err := e.ask(ctx, s, Prompt{
		Op:    OpDelete,
		Title: fmt.Sprintf("Delete %d unused version(s)?", len(plan.Steps)),
		Lines: plan.Lines(),
	})
	if err != nil || !ok {
		return s, err
	}

	refs, err := e.scene.ReferencedPaths(ctx)
	if err != nil {
		return s, fmt.Errorf("re-read scene references: %w", err)
	}
	inUse := map[string]bool{}
	for _, r := range refs {
		p, err := e.tryExpand(r.Path)
		if err != nil {
			reason := unresolvedReason(r)
			for _, st := range plan.Steps {
				s.Skipped = append(s.Skipped, Skip{Cache: st.Version.CacheName, Target: st.Version.Segment, Reason: reason})
			}
			log.FromContext(ctx).Warnf("nothing deleted: %s", reason)
			return s, nil
		}
		inUse[filepath.Dir(filepath.Clean(p))] = true
	}

	var entries []history.Entry
	defer func() { e.record(ctx, entries) }()

	for i, st := range plan.Steps {
		v := st.Version
		if err := ctx.Err(); err != nil {
			return s, err
		}
		e.step(i, len(plan.Steps), v.CacheName+"/"+v.Segment)
		dir := filepath.Clean(v.Dir)
		if inUse[dir] {
			s.Skipped = append(s.Skipped, Skip{Cache: v.CacheName, Target: v.Segment, Reason: "referenced since the last scan"})
			continue
		}

		entry := history.Entry{Op: OpDelete, Cache: v.CacheName, Token: v.Token, From: dir}
		err := checkDeletable(tree.Root, dir)
		if err == nil {
			err = e.remove(dir)
		}
		if err != nil {
			s.Failures = append(s.Failures, &Failure{Op: OpDelete, Cache: v.CacheName, Target: v.Segment, Err: err})
			entry.Error = err.Error()
			entries = append(entries, entry)
			continue
		}
		s.Applied = append(s.Applied, Change{Cache: v.CacheName, Token: v.Token, From: dir})
		entries = append(entries, entry)
	}
	log.FromContext(ctx).Info("deleted versions", "deleted", len(s.Applied), "failed", len(s.Failures))
	return s, nil
}

// checkDeletable refuses anything that is not exactly <root>/<cache>/<version>.
func checkDeletable(root, dir string) error {
	if root == "" {
		return errors.New("refusing to delete without a cache root")
	}
	rel, err := filepath.Rel(filepath.Clean(root), dir)
	if err != nil {
		return fmt.Errorf("refusing to delete %s: %w", dir, err)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." || parts[0] == "." || parts[1] == ".." {
		return fmt.Errorf("refusing to delete %s: not a version directory under %s", dir, root)
	}
	return nil
}
