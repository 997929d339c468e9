package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/history"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
	"github.com/raphi011/cachemgr/internal/ui/static"
	"github.com/raphi011/cachemgr/internal/ui/styles"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently applied actions",
		Long: `Show the most recent loads, updates and deletions, newest first.

Every applied action is journaled, including failed steps.`,
		Example: `  cachemgr history         # Last 20 actions
  cachemgr history -n 100  # Last 100 actions
  cachemgr history --json  # Output as JSON`,
		GroupID: GroupUtility,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(ctx)
			out := output.FromContext(ctx)

			h, err := a.journal.Load()
			if err != nil {
				return err
			}
			entries := h.Recent(limit)

			if jsonOutput {
				if entries == nil {
					entries = []history.Entry{}
				}
				return out.JSON(entries)
			}
			if len(entries) == 0 {
				log.FromContext(ctx).Printf("No actions recorded in %s\n", a.journal.Path())
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				path := e.To
				if path == "" {
					path = e.From
				}
				errText := ""
				if e.Error != "" {
					errText = styles.ErrorStyle.Render(e.Error)
				}
				rows[i] = []string{humanize.Time(e.Time), string(e.Op), e.Cache, e.Token, e.Node, styles.FormatPath(path), errText}
			}
			out.Print(static.RenderTable([]string{"TIME", "OP", "CACHE", "VERSION", "NODE", "PATH", "ERROR"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "number", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
