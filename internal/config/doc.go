// Package config handles loading and validation of cachemgr configuration.
//
// Configuration is read from ~/.config/cachemgr/config.toml (or the file
// named by CACHEMGR_CONFIG), merged with a per-project .cachemgr.toml next
// to the scene manifest, then overridden from the environment.
//
// # Configuration Sources (highest priority first)
//
//   - CACHEMGR_ROOT, CACHEMGR_PATTERN, CACHEMGR_ENV_VAR, CACHEMGR_SCENE
//   - .cachemgr.toml next to the scene
//   - Config file settings
//   - Default values
//
// # Key Settings
//
//   - version_pattern: regexp a version folder must match (default: v\d{3})
//   - version_scheme: "numeric" or "semver"
//   - env_var: scene variable anchoring cache paths (default: JOB)
//   - root_folder: cache root (default: $JOB/geo)
//   - scene: scene manifest path (default: scene.yaml)
//
// Changing version_pattern, version_scheme, env_var or root_folder
// invalidates scan results.
//
// # Errors
//
// Invalid values are reported as *ConfigurationError naming the field, the
// value and the reason. Save validates before writing, so an invalid
// configuration never reaches disk.
package config
