package main

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/ui/styles"
)

// reportSummary prints what an action batch did.
func reportSummary(ctx context.Context, s *action.Summary) {
	l := log.FromContext(ctx)

	if s.Declined {
		l.Printf("Aborted, nothing changed\n")
		return
	}

	for _, c := range s.Applied {
		switch s.Op {
		case action.OpDelete:
			l.Printf("%s deleted %s\n", styles.SuccessStyle.Render("✓"), styles.FormatPath(c.From))
		default:
			l.Printf("%s %s %s -> %s\n", styles.SuccessStyle.Render("✓"), c.Node, c.Cache, c.Token)
		}
	}
	for _, sk := range s.Skipped {
		l.Debug("skipped", "cache", sk.Cache, "target", sk.Target, "reason", sk.Reason)
	}
	for _, f := range s.Failures {
		l.Printf("%s %v\n", styles.ErrorStyle.Render("✗"), f)
	}

	switch s.Op {
	case action.OpDelete:
		l.Printf("Deleted %s, skipped %d, failed %d\n", plural(len(s.Applied), "version"), len(s.Skipped), len(s.Failures))
	case action.OpUpdate:
		l.Printf("Updated %s, failed %d\n", plural(len(s.Applied), "reference"), len(s.Failures))
	case action.OpLoad:
		if len(s.Failures) == 0 {
			l.Printf("Loaded %s\n", plural(len(s.Applied), "reference"))
		}
	}
}

// failuresErr turns collected failures into a non-zero exit after they
// were printed.
func failuresErr(s *action.Summary) error {
	if s == nil || len(s.Failures) == 0 {
		return nil
	}
	return errSilent
}

func formatBytes(n int64) string {
	return humanize.Bytes(uint64(max(n, 0)))
}
