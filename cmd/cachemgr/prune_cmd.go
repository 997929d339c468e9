package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
	"github.com/raphi011/cachemgr/internal/ui/progress"
	"github.com/raphi011/cachemgr/internal/ui/prompt"
)

func newPruneCmd() *cobra.Command {
	var (
		dryRun      bool
		yes         bool
		interactive bool
		olderOnly   bool
		keepLatest  bool
	)

	cmd := &cobra.Command{
		Use:     "prune [cache...]",
		Aliases: []string{"delete-unused"},
		Short:   "Delete cache versions no node references",
		Long: `Delete on-disk cache versions that no scene node references.

Versions referenced by any node are never deleted. The scene is read again
right before deleting; a version that became referenced since the scan is
skipped. Only directories exactly one level below a cache under the cache
root are removed.`,
		Example: `  cachemgr prune                   # All unused versions
  cachemgr prune flip              # Unused versions of one cache
  cachemgr prune --older-only      # Only versions older than the referenced one
  cachemgr prune --keep-latest -y  # Keep LATEST, no confirmation
  cachemgr prune -n                # Dry-run: list what would be deleted`,
		GroupID:           GroupCore,
		ValidArgsFunction: completeCacheNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(ctx)
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			bar := progress.NewBar()
			defer bar.Stop()
			opts := []action.Option{action.WithConfirmer(confirmer(yes || interactive))}
			if showProgress(ctx) {
				opts = append(opts, action.WithProgress(bar.Step("deleting")))
			}

			sess, err := a.session(opts...)
			if err != nil {
				return err
			}
			tree, err := a.scan(ctx, sess)
			if err != nil {
				return err
			}
			sel, err := selectCaches(tree, args)
			if err != nil {
				return err
			}

			delOpts := action.DeleteOptions{OlderThanReferenced: olderOnly, KeepLatest: keepLatest}
			plan, err := sess.PlanDelete(sel, delOpts)
			if err != nil {
				return err
			}
			for _, s := range plan.Skipped {
				l.Debug("kept", "cache", s.Cache, "version", s.Target, "reason", s.Reason)
			}
			if len(tree.Unresolved) > 0 {
				for _, u := range tree.Unresolved {
					l.Warnf("unresolved reference %s", u)
				}
				return errors.New("refusing to delete while scene references cannot be resolved")
			}
			if len(plan.Steps) == 0 {
				out.Println("No unused versions to delete")
				return nil
			}

			if dryRun {
				var total int64
				for _, st := range plan.Steps {
					total += st.Version.Size
					out.Printf("%s/%s\t%s\n", st.Version.CacheName, st.Version.Segment, formatBytes(st.Version.Size))
				}
				l.Printf("Dry run: %s would be deleted, %s freed\n", plural(len(plan.Steps), "version"), formatBytes(total))
				return nil
			}

			if interactive {
				sel, err = pickDelete(plan)
				if err != nil || sel == nil {
					return err
				}
			}

			sum, err := sess.Delete(ctx, sel, delOpts)
			bar.Stop()
			if err != nil && (sum == nil || len(sum.Applied) == 0) {
				return err
			}
			reportSummary(ctx, sum)
			if err != nil {
				return err
			}
			return failuresErr(sum)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "List versions that would be deleted")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Select versions to delete interactively")
	cmd.Flags().BoolVar(&olderOnly, "older-only", false, "Only delete versions older than the referenced version")
	cmd.Flags().BoolVar(&keepLatest, "keep-latest", false, "Never delete the LATEST version")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "interactive")

	return cmd
}

func pickDelete(plan *action.DeletePlan) (action.Selection, error) {
	if !interactive() {
		return nil, errNoTTY
	}
	options := make([]prompt.Option, len(plan.Steps))
	for i, st := range plan.Steps {
		v := st.Version
		options[i] = prompt.Option{
			Label:  v.CacheName + "/" + v.Segment,
			Detail: fmt.Sprintf("%s, %s", plural(len(v.Files), "file"), formatBytes(v.Size)),
		}
	}

	res, err := prompt.MultiSelect("Versions to delete", options)
	if err != nil || res.Cancelled || len(res.Indexes) == 0 {
		return nil, err
	}
	sel := make(action.Selection, 0, len(res.Indexes))
	for _, i := range res.Indexes {
		sel = append(sel, plan.Steps[i].Version)
	}
	return sel, nil
}
