package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raphi011/cachemgr/internal/config"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/output"
	"github.com/raphi011/cachemgr/internal/storage"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage cachemgr configuration.

Global config: ~/.config/cachemgr/config.toml (or $CACHEMGR_CONFIG)
Local config:  .cachemgr.toml next to the scene manifest`,
		Example: `  cachemgr config init                  # Create default global config
  cachemgr config init --local          # Create local config next to the scene
  cachemgr config show                  # Show effective config
  cachemgr config set root_folder /jobs/geo
  cachemgr config reset filter.extensions`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigResetCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigKeysCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
		local  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		Long: `Create default config file.

Without flags, creates the global config. With --local, creates a
per-project .cachemgr.toml next to the scene manifest.`,
		Example: `  cachemgr config init           # Create global config
  cachemgr config init --local   # Create local config
  cachemgr config init -f        # Overwrite existing config
  cachemgr config init -s        # Print config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			l := log.FromContext(ctx)

			content := config.DefaultTemplate()
			if local {
				content = config.DefaultLocalConfig()
			}
			if stdout {
				out.Print(content)
				return nil
			}

			if !local {
				path, err := config.Init(force)
				if err != nil {
					return fmt.Errorf("%w (use -f to overwrite)", err)
				}
				l.Printf("Created config file: %s\n", path)
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.ApplyEnv(os.Getenv)
			path := filepath.Join(filepath.Dir(cfg.Scene), config.LocalConfigFileName)
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("local config already exists: %s (use -f to overwrite)", path)
				}
			}
			if err := storage.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
				return err
			}
			l.Printf("Created local config: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")
	cmd.Flags().BoolVar(&local, "local", false, "Create .cachemgr.toml next to the scene instead of the global config")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		Long: `Show the effective configuration: the global file, the local
.cachemgr.toml next to the scene and CACHEMGR_* environment overrides.`,
		Example: `  cachemgr config show         # Show config
  cachemgr config show --json  # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			l := log.FromContext(ctx)

			cfg, err := config.Resolve(os.Getenv)
			if err != nil {
				return err
			}
			if jsonOutput {
				return out.JSON(cfg)
			}

			globalPath, err := config.Path()
			if err != nil {
				return err
			}
			localPath := filepath.Join(filepath.Dir(cfg.Scene), config.LocalConfigFileName)
			l.Printf("Global config: %s\n", globalPath)
			if _, err := os.Stat(localPath); err == nil {
				l.Printf("Local config:  %s\n", localPath)
			} else {
				l.Printf("Local config:  (none)\n")
			}

			for _, k := range config.Keys() {
				v, _ := cfg.Get(k)
				out.Printf("%s = %s\n", k, v)
			}
			for _, k := range cfg.Unknown {
				l.Warnf("unknown config key %q", k)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             "Print one configuration value",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(os.Getenv)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			output.FromContext(cmd.Context()).Println(v)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the global config file",
		Long: `Set a value in the global config file. The whole configuration is
validated before it is written.

List values (filter.extensions) are comma separated. Comments in the
file are not preserved.`,
		Example: `  cachemgr config set version_pattern 'v(\d+)'
  cachemgr config set filter.extensions .vdb,.abc
  cachemgr config set theme.nerdfont true`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editGlobalConfig(cmd, func(cfg *config.Config) error {
				return cfg.Set(args[0], args[1])
			})
		},
	}
}

func newConfigResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [key]",
		Short: "Restore defaults in the global config file",
		Long: `Restore one key, or the whole global config file, to its default.`,
		Example: `  cachemgr config reset filter.extensions
  cachemgr config reset`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return editGlobalConfig(cmd, func(cfg *config.Config) error {
				return cfg.Reset(name)
			})
		},
	}
}

// editGlobalConfig loads the global file, applies edit and saves it.
func editGlobalConfig(cmd *cobra.Command, edit func(*config.Config) error) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := edit(&cfg); err != nil {
		var cerr *config.ConfigurationError
		if errors.As(err, &cerr) {
			return fmt.Errorf("not saved: %w", err)
		}
		return err
	}
	if err := config.Save(path, &cfg); err != nil {
		return err
	}
	log.FromContext(cmd.Context()).Printf("Updated %s\n", path)
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the global config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			output.FromContext(cmd.Context()).Println(path)
			return nil
		},
	}
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the keys accepted by set, get and reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			def := config.Default()
			for _, k := range config.Keys() {
				v, _ := def.Get(k)
				out.Printf("%-24s %s\n", k, v)
			}
			return nil
		},
	}
}
