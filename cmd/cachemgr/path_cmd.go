package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/cmd"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/session"
)

// copyToClipboard is swapped in tests.
var copyToClipboard = clipboard.WriteAll

// openInBrowser is swapped in tests.
var openInBrowser = cmd.OpenInFileBrowser

func newPathCmd() *cobra.Command {
	var (
		copyPath bool
		contract bool
		dir      bool
	)

	c := &cobra.Command{
		Use:   "path <cache> [version]",
		Short: "Print the path of a cache version",
		Long: `Print the path of a cache version, the LATEST version by default.

The path is the version's representative file, the file a scene node
would reference. Use --dir for the version directory.`,
		Example: `  cachemgr path flip                # Latest version of flip
  cachemgr path flip v002 --dir     # Directory of v002
  cachemgr path flip --contract     # As written in the scene ($JOB/...)
  cachemgr path flip --copy         # Also copy to the clipboard`,
		GroupID:           GroupUtility,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeCacheVersion,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			a := appFrom(ctx)
			l := log.FromContext(ctx)

			sess, v, err := resolveVersion(c, a, args, false)
			if err != nil {
				return err
			}

			p := v.Path
			if dir || p == "" {
				p = v.Dir
			}
			if contract {
				if p, err = sess.Expander().Contract(p); err != nil {
					return err
				}
			}

			output.FromContext(ctx).Println(p)
			if copyPath {
				if err := copyToClipboard(p); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				l.Printf("Copied to clipboard\n")
			}
			return nil
		},
	}

	c.Flags().BoolVarP(&copyPath, "copy", "c", false, "Copy the path to the clipboard")
	c.Flags().BoolVar(&contract, "contract", false, "Replace the scene variable's value with $VAR")
	c.Flags().BoolVarP(&dir, "dir", "d", false, "Print the version directory")

	return c
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <cache> [version]",
		Short: "Show a cache version in the file browser",
		Long: `Open the directory of a cache version in the system file browser.

Without a version the version the scene references is opened, or the
LATEST version when nothing references the cache.`,
		Example: `  cachemgr open flip
  cachemgr open flip v001`,
		GroupID:           GroupUtility,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeCacheVersion,
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			_, v, err := resolveVersion(c, appFrom(ctx), args, true)
			if err != nil {
				return err
			}
			if !v.OnDisk {
				return fmt.Errorf("%s %s is not on disk", v.CacheName, v.Token)
			}
			log.FromContext(ctx).Debug("opening", "dir", v.Dir)
			return openInBrowser(ctx, v.Dir)
		},
	}
}

// resolveVersion scans and looks up <cache> [version]. Without a version
// the LATEST one is used, or with preferCurrent the referenced one first.
func resolveVersion(c *cobra.Command, a *app, args []string, preferCurrent bool) (*session.Session, *reconcile.Version, error) {
	sess, err := a.session()
	if err != nil {
		return nil, nil, err
	}
	tree, err := a.scan(c.Context(), sess)
	if err != nil {
		return nil, nil, err
	}
	cache, err := findCache(tree, args[0])
	if err != nil {
		return nil, nil, err
	}
	if len(args) == 1 && preferCurrent {
		if v := cache.Current(); v != nil && v.OnDisk {
			return sess, v, nil
		}
	}
	token := ""
	if len(args) == 2 {
		token = args[1]
	}
	v, err := findVersion(cache, token)
	return sess, v, err
}
