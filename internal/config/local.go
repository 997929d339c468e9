package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LocalConfigFileName is the per-project override file, looked up next to
// the scene manifest.
const LocalConfigFileName = ".cachemgr.toml"

// LocalConfig holds per-project overrides from .cachemgr.toml.
// Pointer fields and zero-value strings indicate "not set" (inherit from global).
type LocalConfig struct {
	VersionPattern string      `toml:"version_pattern"`
	VersionScheme  string      `toml:"version_scheme"`
	EnvVar         string      `toml:"env_var"`
	RootFolder     string      `toml:"root_folder"`
	Filter         LocalFilter `toml:"filter"`
}

// LocalFilter holds local filter overrides
type LocalFilter struct {
	Extensions    []string `toml:"extensions"`
	ShowMalformed *bool    `toml:"show_malformed"`
}

// LoadLocal reads a .cachemgr.toml from dir.
// Returns nil (no error) if the file doesn't exist.
// Returns an error only on parse or validation failure.
func LoadLocal(dir string) (*LocalConfig, error) {
	configFile := filepath.Join(dir, LocalConfigFileName)

	data, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read local config %s: %w", configFile, err)
	}

	var local LocalConfig
	if _, err := toml.Decode(string(data), &local); err != nil {
		return nil, fmt.Errorf("failed to parse local config %s: %w", configFile, err)
	}

	if err := validateEnum(local.VersionScheme, "version_scheme", ValidVersionSchemes); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}
	if err := ValidatePath(local.RootFolder, "root_folder"); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}
	if err := validateExtensions(local.Filter.Extensions, "filter.extensions"); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}

	return &local, nil
}

// defaultLocalConfig is the template for cachemgr config init --local
const defaultLocalConfig = `# cachemgr local config (per-project overrides)
# Place this file next to the scene manifest.
# Settings here override ~/.config/cachemgr/config.toml for this project only.

# version_pattern = '\d{3}'
# version_scheme = "numeric"
# env_var = "SHOT"
# root_folder = "$SHOT/cache"

# [filter]
# extensions = [".vdb"]
# show_malformed = true
`

// DefaultLocalConfig returns the default local configuration template content.
func DefaultLocalConfig() string {
	return defaultLocalConfig
}
