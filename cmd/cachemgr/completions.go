package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/config"
	"github.com/raphi011/cachemgr/internal/view"
)

// completionApp resolves the configuration for a completion request.
// Completion runs without the root's PersistentPreRunE, so the global
// flags are read back from the command.
func completionApp(cmd *cobra.Command) (*app, error) {
	flag := func(name string) string {
		if f := cmd.Flag(name); f != nil {
			return f.Value.String()
		}
		return ""
	}
	flags := &globalFlags{
		quiet:   true,
		scene:   flag("scene"),
		root:    flag("root"),
		pattern: flag("pattern"),
		envVar:  flag("env-var"),
	}
	return setup(context.Background(), flags, os.Getenv, io.Discard)
}

// cacheRoot returns the expanded cache root.
func (a *app) cacheRoot() (string, error) {
	sess, err := a.session()
	if err != nil {
		return "", err
	}
	return sess.Root()
}

// listDirs returns the directory names in dir.
func listDirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names
}

// matchNames keeps prefix matches, falling back to fuzzy matches.
func matchNames(names []string, toComplete string) []string {
	if toComplete == "" {
		return names
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, toComplete) {
			out = append(out, n)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, m := range fuzzy.Find(toComplete, names) {
		out = append(out, m.Str)
	}
	return out
}

// completeCacheNames completes cache folder names under the cache root.
// Directories are listed, not scanned.
func completeCacheNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	a, err := completionApp(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer a.close()

	root, err := a.cacheRoot()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return matchNames(listDirs(root), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeCacheVersion completes <cache> then [version].
func completeCacheVersion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return completeCacheNames(cmd, args, toComplete)
	case 1:
		a, err := completionApp(cmd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer a.close()

		root, err := a.cacheRoot()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return matchNames(listDirs(filepath.Join(root, args[0])), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// completeNodes completes the nodes referencing files in the scene.
func completeNodes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	a, err := completionApp(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer a.close()

	refs, err := a.manifest.ReferencedPaths(context.Background())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	nodes := make([]string, 0, len(refs))
	for _, r := range refs {
		nodes = append(nodes, r.Node)
	}
	return matchNames(nodes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeExtensions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var exts []string
	for _, g := range view.Groups {
		exts = append(exts, g.Exts...)
	}
	return matchNames(exts, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeConfigKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return matchNames(config.Keys(), toComplete), cobra.ShellCompDirectiveNoFileComp
}
