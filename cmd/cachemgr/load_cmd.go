package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/ui/prompt"
	"github.com/raphi011/cachemgr/internal/ui/styles"
)

func newLoadCmd() *cobra.Command {
	var (
		node string
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "load <cache> [version]",
		Short: "Point a node at a specific cache version",
		Long: `Point a scene node at a specific version of a cache.

Without --node the node referencing the cache is used. When several nodes
reference it you are asked to pick one. Without a version you pick one of
the versions on disk.`,
		Example: `  cachemgr load flip v003                 # The node referencing flip
  cachemgr load flip v003 --node /obj/sim # A specific node
  cachemgr load flip                      # Pick a version interactively`,
		GroupID:           GroupCore,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeCacheVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFrom(ctx)

			sess, err := a.session(action.WithConfirmer(confirmer(yes)))
			if err != nil {
				return err
			}
			tree, err := a.scan(ctx, sess)
			if err != nil {
				return err
			}
			c, err := findCache(tree, args[0])
			if err != nil {
				return err
			}

			var v *reconcile.Version
			if len(args) == 2 {
				if v, err = findVersion(c, args[1]); err != nil {
					return err
				}
			} else if v, err = pickVersion(c); err != nil || v == nil {
				return err
			}
			if !v.OnDisk {
				return fmt.Errorf("%s %s: %w", c.Name, v.Token, action.ErrNotOnDisk)
			}

			if node == "" {
				if node, err = pickNode(c); err != nil || node == "" {
					return err
				}
			}

			sum, err := sess.Load(ctx, node, v)
			if err != nil && (sum == nil || len(sum.Failures) == 0) {
				return err
			}
			reportSummary(ctx, sum)
			return failuresErr(sum)
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Node to point at the version")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	cmd.RegisterFlagCompletionFunc("node", completeNodes)

	return cmd
}

// pickVersion asks for one of the on-disk versions of c, newest first.
func pickVersion(c *reconcile.Cache) (*reconcile.Version, error) {
	if !interactive() {
		return nil, errors.New("no version given and no terminal to pick one")
	}
	var (
		options []prompt.Option
		onDisk  []*reconcile.Version
	)
	for _, v := range slices.Backward(c.Versions) {
		if !v.OnDisk {
			continue
		}
		detail := styles.FormatStatus(v.Status)
		if v.Referenced {
			detail += "  " + strings.Join(v.Nodes(), ", ")
		}
		options = append(options, prompt.Option{Label: v.Token, Detail: detail})
		onDisk = append(onDisk, v)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("cache %s has no version on disk", c.Name)
	}
	res, err := prompt.Select("Version of "+c.Name, options)
	if err != nil || res.Cancelled {
		return nil, err
	}
	return onDisk[res.Index], nil
}

// pickNode resolves the node to load into from the nodes referencing c.
func pickNode(c *reconcile.Cache) (string, error) {
	nodes := cacheNodes(c)
	switch {
	case len(nodes) == 1:
		return nodes[0], nil
	case !interactive() && len(nodes) == 0:
		return "", fmt.Errorf("no node references %s, pass --node", c.Name)
	case !interactive():
		return "", fmt.Errorf("%d nodes reference %s (%s), pass --node", len(nodes), c.Name, strings.Join(nodes, ", "))
	case len(nodes) == 0:
		res, err := prompt.TextInput("Node to load "+c.Name+" into", "/obj/...")
		if err != nil || res.Cancelled {
			return "", err
		}
		return strings.TrimSpace(res.Value), nil
	}

	options := make([]prompt.Option, len(nodes))
	for i, n := range nodes {
		options[i] = prompt.Option{Label: n}
	}
	res, err := prompt.Select("Node", options)
	if err != nil || res.Cancelled {
		return "", err
	}
	return nodes[res.Index], nil
}

// cacheNodes lists the nodes referencing any version of c, sorted.
func cacheNodes(c *reconcile.Cache) []string {
	var nodes []string
	for _, v := range c.Versions {
		nodes = append(nodes, v.Nodes()...)
		for _, r := range v.Dangling {
			nodes = append(nodes, r.Node)
		}
	}
	slices.Sort(nodes)
	return slices.Compact(nodes)
}
