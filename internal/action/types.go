package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphi011/cachemgr/internal/history"
	"github.com/raphi011/cachemgr/internal/reconcile"
)

// Op names an action.
type Op = history.Op

const (
	OpLoad   = history.OpLoad
	OpUpdate = history.OpUpdate
	OpDelete = history.OpDelete
)

// Failure is one failed step of an action. Failures are collected in a
// Summary; the remaining steps still run.
type Failure struct {
	Op     Op
	Cache  string
	Target string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", f.Op, f.Cache, f.Target, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Prompt is what the executor asks the user to confirm.
type Prompt struct {
	Op    Op
	Title string
	Lines []string
}

// Confirmer asks for confirmation before an action is applied.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// AutoConfirm accepts every prompt (--yes).
var AutoConfirm = ConfirmFunc(func(context.Context, Prompt) (bool, error) { return true, nil })

// Decline rejects every prompt.
var Decline = ConfirmFunc(func(context.Context, Prompt) (bool, error) { return false, nil })

// Change is one applied step.
type Change struct {
	Cache string
	Token string
	Node  string
	From  string
	To    string
}

// Skip is a selected entry the plan left out, with the reason.
type Skip struct {
	Cache  string
	Target string
	Reason string
}

// Summary reports the outcome of an action batch.
type Summary struct {
	Op       Op
	Planned  int
	Applied  []Change
	Skipped  []Skip
	Failures []*Failure
	Declined bool
	DryRun   bool
}

// Nothing reports whether the plan had no steps.
func (s *Summary) Nothing() bool {
	return s.Planned == 0
}

// Err joins all failures, or returns nil.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Selection is the set of entries an action works on.
type Selection []*reconcile.Version

// SelectCaches selects every version of the named caches. No names selects
// the whole tree.
func SelectCaches(tree *reconcile.Tree, names ...string) Selection {
	if tree == nil {
		return nil
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var sel Selection
	for _, c := range tree.Caches {
		if len(names) > 0 && !want[c.Name] {
			continue
		}
		sel = append(sel, c.Versions...)
	}
	return sel
}

// cacheNames returns the distinct cache names in selection order.
func (s Selection) cacheNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, v := range s {
		if !seen[v.CacheName] {
			seen[v.CacheName] = true
			names = append(names, v.CacheName)
		}
	}
	return names
}

// UpdateStep re-points one node to the latest version of its cache.
type UpdateStep struct {
	Cache   string
	Node    string
	From    *reconcile.Version
	To      *reconcile.Version
	OldPath string
	NewPath string
}

// UpdatePlan is the result of PlanUpdate.
type UpdatePlan struct {
	Steps    []UpdateStep
	UpToDate []string
	Skipped  []Skip
}

// Lines renders "name: current > latest" for confirmation.
func (p *UpdatePlan) Lines() []string {
	var lines []string
	seen := map[string]bool{}
	for _, s := range p.Steps {
		line := fmt.Sprintf("%s: %s > %s", s.Cache, s.From.Token, s.To.Token)
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return lines
}

// DeleteOptions narrows which unreferenced versions are deleted.
type DeleteOptions struct {
	// OlderThanReferenced only deletes versions below the highest
	// referenced version of their cache.
	OlderThanReferenced bool
	// KeepLatest never deletes the LATEST version.
	KeepLatest bool
}

// DeleteStep removes one version directory.
type DeleteStep struct {
	Version *reconcile.Version
}

// DeletePlan is the result of PlanDelete.
type DeletePlan struct {
	Steps   []DeleteStep
	Skipped []Skip
}

// Lines renders one line per version directory for confirmation.
func (p *DeletePlan) Lines() []string {
	lines := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		lines[i] = fmt.Sprintf("%s/%s (%d files)", s.Version.CacheName, s.Version.Segment, len(s.Version.Files))
	}
	return lines
}
