package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/ui/panel"
)

func newPanelCmd() *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Browse and manage caches interactively",
		Long: `Open the interactive cache panel.

Keys:
  up/down, j/k   move            right/left, l/h  expand/collapse
  space, tab     toggle          e                expand/collapse all
  /              filter caches   1-6              toggle extensions
  m              malformed       r                rescan (esc cancels)
  u              update visible  enter            load version
  d              delete unused   y / o            copy path / open
  q              quit

The panel re-scans when the scene manifest changes on disk unless
--no-watch is set.`,
		GroupID: GroupCore,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(ctx)
			if !interactive() {
				return errors.New("the panel needs a terminal")
			}

			// Stderr belongs to the panel; diagnostics only go to the file log.
			l := log.FromContext(ctx)
			ctx = log.WithLogger(ctx, log.New(io.Discard, false, true).WithFile(l.File()))

			// The panel confirms in place.
			sess, err := a.session(action.WithConfirmer(action.AutoConfirm))
			if err != nil {
				return err
			}

			opts := panel.Options{
				Extensions:    a.cfg.Filter.Extensions,
				ShowMalformed: a.cfg.Filter.ShowMalformed,
			}
			if !noWatch {
				watchCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				ch, err := scene.Watch(watchCtx, scene.DefaultWatchDebounce, a.manifest.WatchPaths()...)
				if err != nil {
					l.Warnf("not watching the scene: %v", err)
				} else {
					opts.Watch = ch
				}
			}

			return panel.Run(ctx, sess, opts)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not re-scan when the scene manifest changes")

	return cmd
}
