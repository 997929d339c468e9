package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
)

// Command group IDs for organizing help output
const (
	GroupCore    = "core"
	GroupUtility = "utility"
	GroupConfig  = "config"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	verbose  bool
	quiet    bool
	scene    string
	root     string
	pattern  string
	envVar   string
	logLevel string
}

// skipSetup lists commands that run without a resolved configuration.
var skipSetup = map[string]bool{
	"completion":                    true,
	"help":                          true,
	cobra.ShellCompRequestCmd:       true,
	cobra.ShellCompNoDescRequestCmd: true,
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "cachemgr",
		Short: "Manage versioned simulation caches referenced by a scene",
		Long: `cachemgr scans a cache root for versioned cache folders, matches them
against the file references of a scene and shows which versions are
latest, outdated, missing or malformed.

It can re-point references to the latest versions, load a specific
version into a node and delete versions nothing references.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipSetup[cmd.Name()] || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
				return nil
			}
			if flags.verbose && flags.quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			a, err := setup(cmd.Context(), flags, os.Getenv, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(a.ctx, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a := appFrom(cmd.Context()); a != nil {
				return a.close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug output and external commands")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress all log output")
	pf.StringVar(&flags.scene, "scene", "", "Scene manifest (overrides config and CACHEMGR_SCENE)")
	pf.StringVar(&flags.root, "root", "", "Cache root, may start with $VAR (overrides config)")
	pf.StringVar(&flags.pattern, "pattern", "", "Version pattern regexp (overrides config)")
	pf.StringVar(&flags.envVar, "env-var", "", "Scene variable contracted in written paths (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "File log level: debug, info, warn, error, off")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	cmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions([]string{"debug", "info", "warn", "error", "off"}, cobra.ShellCompDirectiveNoFileComp))

	cmd.Version = versionString()
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddGroup(
		&cobra.Group{ID: GroupCore, Title: "Core Commands:"},
		&cobra.Group{ID: GroupUtility, Title: "Utility Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	// Core commands
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newPanelCmd())

	// Utility commands
	cmd.AddCommand(newPathCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newHistoryCmd())

	// Config commands
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCompletionCmd())

	return cmd
}

// run executes the command tree with args and returns its error. stdout
// receives primary data, stderr diagnostics.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Replaced once the global flags are parsed.
	ctx = log.WithLogger(ctx, log.New(stderr, false, false))
	ctx = output.WithPrinter(ctx, stdout)

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "Run 'cachemgr -h' for help")
		}
		os.Exit(1)
	}
}

// errSilent exits non-zero after the command already reported why.
var errSilent = errors.New("")
