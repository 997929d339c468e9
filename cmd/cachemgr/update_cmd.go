package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
	"github.com/raphi011/cachemgr/internal/ui/progress"
	"github.com/raphi011/cachemgr/internal/ui/prompt"
)

func newUpdateCmd() *cobra.Command {
	var (
		dryRun      bool
		yes         bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "update [cache...]",
		Short: "Point references to the latest cache versions",
		Long: `Re-point every scene reference to an older version of a cache to that
cache's LATEST version.

Without arguments all caches are updated. The planned changes are listed
as "name: current > latest" and confirmed before anything is written.`,
		Example: `  cachemgr update              # Update all caches
  cachemgr update flip smoke   # Update selected caches
  cachemgr update -n           # Dry-run: show what would change
  cachemgr update -i           # Pick caches interactively
  cachemgr update -y           # Skip confirmation`,
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
				opts = append(opts, action.WithProgress(bar.Step("updating")))
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

			plan, err := sess.PlanUpdate(sel)
			if err != nil {
				return err
			}
			for _, s := range plan.Skipped {
				l.Warnf("%s: %s", s.Cache, s.Reason)
			}
			if len(plan.Steps) == 0 {
				out.Println("All caches are up-to-date")
				return nil
			}

			if dryRun {
				out.Lines(plan.Lines())
				l.Printf("Dry run: %s would be updated\n", plural(len(plan.Steps), "reference"))
				return nil
			}

			if interactive {
				sel, err = pickUpdate(plan)
				if err != nil || sel == nil {
					return err
				}
				sel = action.SelectCaches(tree, cacheNamesOf(sel)...)
			}

			sum, err := sess.Update(ctx, sel)
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

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show planned changes without applying them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Select caches to update interactively")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "interactive")

	return cmd
}

// pickUpdate lets the user choose among the caches with planned steps. A
// nil selection means the user cancelled.
func pickUpdate(plan *action.UpdatePlan) (action.Selection, error) {
	if !interactive() {
		return nil, errNoTTY
	}
	var (
		options []prompt.Option
		firsts  []action.UpdateStep
		all     []int
	)
	seen := map[string]bool{}
	for _, st := range plan.Steps {
		if seen[st.Cache] {
			continue
		}
		seen[st.Cache] = true
		all = append(all, len(options))
		firsts = append(firsts, st)
		options = append(options, prompt.Option{Label: st.Cache, Detail: fmt.Sprintf("%s > %s", st.From.Token, st.To.Token)})
	}

	res, err := prompt.MultiSelect("Caches to update", options, all...)
	if err != nil || res.Cancelled || len(res.Indexes) == 0 {
		return nil, err
	}
	var sel action.Selection
	for _, i := range res.Indexes {
		sel = append(sel, firsts[i].From)
	}
	return sel, nil
}

func cacheNamesOf(sel action.Selection) []string {
	var names []string
	seen := map[string]bool{}
	for _, v := range sel {
		if !seen[v.CacheName] {
			seen[v.CacheName] = true
			names = append(names, v.CacheName)
		}
	}
	return names
}
