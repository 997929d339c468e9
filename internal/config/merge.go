package config

import (
	"path/filepath"
	"slices"
)

// MergeLocal merges a local per-project config into a global config,
// returning a new Config without mutating the global.
// Returns global unchanged if local is nil.
func MergeLocal(global *Config, local *LocalConfig) *Config {
	if local == nil {
		return global
	}

	// Shallow copy: fields LocalConfig does not carry (scene, theme, log,
	// scan, history) are inherited as-is.
	merged := *global
	merged.Filter.Extensions = slices.Clone(global.Filter.Extensions)

	if local.VersionPattern != "" {
		merged.VersionPattern = local.VersionPattern
	}
	if local.VersionScheme != "" {
		merged.VersionScheme = local.VersionScheme
	}
	if local.EnvVar != "" {
		merged.EnvVar = local.EnvVar
	}
	if local.RootFolder != "" {
		merged.RootFolder = local.RootFolder
	}

	// Extensions replace the global list.
	if len(local.Filter.Extensions) > 0 {
		merged.Filter.Extensions = slices.Clone(local.Filter.Extensions)
	}
	if local.Filter.ShowMalformed != nil {
		merged.Filter.ShowMalformed = *local.Filter.ShowMalformed
	}

	return &merged
}

// Resolve builds the effective configuration: the global file, the
// .cachemgr.toml next to the scene, then environment overrides. The
// result is validated.
func Resolve(getenv func(string) string) (*Config, error) {
	global, err := Load()
	if err != nil {
		return nil, err
	}
	return resolve(&global, getenv)
}

func resolve(global *Config, getenv func(string) string) (*Config, error) {
	// The scene may itself come from the environment.
	scene := global.Scene
	if v := getenv(EnvScene); v != "" {
		scene = v
	}

	local, err := LoadLocal(filepath.Dir(scene))
	if err != nil {
		return nil, err
	}

	cfg := MergeLocal(global, local)
	if cfg == global {
		c := *global
		cfg = &c
	}
	cfg.ApplyEnv(getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
