package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/ui/static"
	"github.com/raphi011/cachemgr/internal/view"
)

// versionJSON is the --json form of a version.
type versionJSON struct {
	Token      string           `json:"token"`
	Segment    string           `json:"segment"`
	Status     reconcile.Status `json:"status"`
	OnDisk     bool             `json:"on_disk"`
	Referenced bool             `json:"referenced"`
	Nodes      []string         `json:"nodes,omitempty"`
	Path       string           `json:"path,omitempty"`
	Dir        string           `json:"dir"`
	Files      int              `json:"files"`
	Size       int64            `json:"size"`
	ModTime    *time.Time       `json:"modified,omitempty"`
}

type cacheJSON struct {
	Name     string        `json:"name"`
	Latest   string        `json:"latest,omitempty"`
	Versions []versionJSON `json:"versions"`
}

type scanJSON struct {
	Root     string      `json:"root"`
	Caches   []cacheJSON `json:"caches"`
	Warnings []string    `json:"warnings,omitempty"`
}

func toJSON(tree *reconcile.Tree, rows []view.Row) scanJSON {
	out := scanJSON{Root: tree.Root, Caches: []cacheJSON{}, Warnings: tree.Warnings()}
	for _, r := range rows {
		c := cacheJSON{Name: r.Cache.Name}
		if l := r.Cache.Latest(); l != nil {
			c.Latest = l.Token
		}
		for _, v := range r.Versions {
			vj := versionJSON{
				Token:      v.Token,
				Segment:    v.Segment,
				Status:     v.Status,
				OnDisk:     v.OnDisk,
				Referenced: v.InUse(),
				Nodes:      v.Nodes(),
				Path:       v.Path,
				Dir:        v.Dir,
				Files:      len(v.Files),
				Size:       v.Size,
			}
			if !v.ModTime.IsZero() {
				t := v.ModTime
				vj.ModTime = &t
			}
			c.Versions = append(c.Versions, vj)
		}
		out.Caches = append(out.Caches, c)
	}
	return out
}

// scanFilterFlags are shared by commands that narrow the tree.
type scanFilterFlags struct {
	statuses  []string
	exts      []string
	allExt    bool
	malformed bool
}

func (f *scanFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.statuses, "status", "s", nil, "Only show versions with these statuses (latest, outdated, missing, malformed)")
	cmd.Flags().StringSliceVarP(&f.exts, "ext", "e", nil, "Only show versions holding files with these extensions (default from config)")
	cmd.Flags().BoolVarP(&f.allExt, "all-ext", "a", false, "Show versions regardless of file extension")
	cmd.Flags().BoolVarP(&f.malformed, "malformed", "m", false, "Show versions not matching the version pattern")
	cmd.MarkFlagsMutuallyExclusive("ext", "all-ext")
	cmd.RegisterFlagCompletionFunc("status", cobra.FixedCompletions([]string{"latest", "outdated", "missing", "malformed"}, cobra.ShellCompDirectiveNoFileComp))
	cmd.RegisterFlagCompletionFunc("ext", completeExtensions)
}

func (f *scanFilterFlags) filter(a *app, query []string) (view.Filter, error) {
	flt := view.Filter{
		Query:         strings.Join(query, " "),
		Extensions:    a.cfg.Filter.Extensions,
		AllExt:        f.allExt,
		ShowMalformed: f.malformed || a.cfg.Filter.ShowMalformed,
	}
	if len(f.exts) > 0 {
		flt.Extensions = normalizeExts(f.exts)
	}
	for _, s := range f.statuses {
		st, err := reconcile.ParseStatus(s)
		if err != nil {
			return view.Filter{}, err
		}
		flt.Statuses = append(flt.Statuses, st)
	}
	return flt, nil
}

func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func newScanCmd() *cobra.Command {
	var (
		filterFlags scanFilterFlags
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:     "scan [query]",
		Short:   "Scan the cache root and show version status",
		Aliases: []string{"list", "ls"},
		GroupID: GroupCore,
		Long: `Scan the cache root and show every cache version with its status.

LATEST     highest version on disk matching the pattern
OUTDATED   lower version on disk
MISSING    referenced by the scene but not on disk
MALFORMED  on disk but not matching the pattern (hidden unless --malformed)

An optional query fuzzy-matches cache names. Press Ctrl-C to cancel a
running scan.`,
		Example: `  cachemgr scan                     # All caches
  cachemgr scan flip                # Caches fuzzy-matching "flip"
  cachemgr scan -s outdated,missing # Only versions needing attention
  cachemgr scan -e vdb              # Only versions holding .vdb files
  cachemgr scan --json              # Output as JSON`,
		ValidArgsFunction: completeCacheNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(ctx)
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			flt, err := filterFlags.filter(a, args)
			if err != nil {
				return err
			}

			sess, err := a.session()
			if err != nil {
				return err
			}
			tree, err := a.scan(ctx, sess)
			if err != nil {
				return err
			}
			rows := flt.Apply(tree)

			if jsonOutput {
				return out.JSON(toJSON(tree, rows))
			}

			if len(rows) == 0 {
				if len(tree.Caches) == 0 {
					l.Printf("No caches under %s\n", tree.Root)
				} else {
					l.Printf("No versions match the filter\n")
				}
			} else {
				out.Print(static.CacheTable(rows, time.Now()))
			}

			l.Printf("%d cache(s): %s (scanned in %s)\n", len(rows), static.FormatCounts(tree.Counts()), tree.ScanDuration.Round(time.Millisecond))
			for _, w := range tree.Warnings() {
				l.Warnf("%s", w)
			}
			if len(tree.Caches) > 0 && !flt.ShowMalformed {
				if n := tree.Counts()[reconcile.StatusMalformed]; n > 0 {
					l.Printf("%d malformed version(s) hidden, use --malformed to show them\n", n)
				}
			}
			return nil
		},
	}

	filterFlags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
