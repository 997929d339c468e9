package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/raphi011/cachemgr/internal/storage"
)

// Defaults for the cache layout.
const (
	DefaultVersionPattern = `v\d{3}`
	DefaultVersionScheme  = "numeric"
	DefaultEnvVar         = "JOB"
	DefaultRootFolder     = "$JOB/geo"
	DefaultScene          = "scene.yaml"
	DefaultLogLevel       = "info"
)

// ConfigEnv overrides the config file location.
const ConfigEnv = "CACHEMGR_CONFIG"

// DefaultExtensions are the extension filters enabled out of the box.
// ".fbx" and ".obj" are known but off.
var DefaultExtensions = []string{".bgeo.sc", ".abc", ".usd", ".vdb"}

// Duration is a time.Duration written as "100ms" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ScanConfig tunes the scanner.
type ScanConfig struct {
	Workers          int      `toml:"workers"`
	ProgressEvery    int      `toml:"progress_every"`
	ProgressInterval Duration `toml:"progress_interval"`
}

// FilterConfig holds the default view filters.
type FilterConfig struct {
	Extensions    []string `toml:"extensions"`
	ShowMalformed bool     `toml:"show_malformed"`
}

// ThemeConfig holds UI theme settings
type ThemeConfig struct {
	Name     string `toml:"name"` // preset family: "default", "dracula", "nord", "gruvbox", "catppuccin", "none"
	Mode     string `toml:"mode"` // "auto", "light", "dark"
	Primary  string `toml:"primary"`
	Accent   string `toml:"accent"`
	Success  string `toml:"success"`
	Error    string `toml:"error"`
	Muted    string `toml:"muted"`
	Normal   string `toml:"normal"`
	Info     string `toml:"info"`
	Warning  string `toml:"warning"`
	Nerdfont bool   `toml:"nerdfont"`
}

// LogConfig controls the persistent log file.
type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// Config holds the cachemgr configuration
type Config struct {
	VersionPattern string `toml:"version_pattern"`
	VersionScheme  string `toml:"version_scheme"`
	EnvVar         string `toml:"env_var"`
	RootFolder     string `toml:"root_folder"`
	Scene          string `toml:"scene"`
	HistoryPath    string `toml:"history_path"`

	Scan   ScanConfig   `toml:"scan"`
	Filter FilterConfig `toml:"filter"`
	Theme  ThemeConfig  `toml:"theme"`
	Log    LogConfig    `toml:"log"`

	// Unknown lists keys in the file that no field consumed.
	Unknown []string `toml:"-"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		VersionPattern: DefaultVersionPattern,
		VersionScheme:  DefaultVersionScheme,
		EnvVar:         DefaultEnvVar,
		RootFolder:     DefaultRootFolder,
		Scene:          DefaultScene,
		Scan: ScanConfig{
			Workers:          8,
			ProgressEvery:    64,
			ProgressInterval: Duration{100 * time.Millisecond},
		},
		Filter: FilterConfig{
			Extensions: slices.Clone(DefaultExtensions),
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// ValidatePath checks that the path is absolute or starts with ~ or $.
// Empty is allowed (means not configured).
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	if path[0] == '~' || path[0] == '$' {
		return nil
	}
	if !filepath.IsAbs(path) {
		return &ConfigurationError{Field: fieldName, Value: path, Reason: "must be absolute or start with ~ or $"}
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
	}
	return path, nil
}

// Path returns the config file location, honouring CACHEMGR_CONFIG.
func Path() (string, error) {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cachemgr", "config.toml"), nil
}

// Load reads the config file at Path.
// Returns Default() if the file doesn't exist.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads config from path on top of Default(). A missing file is
// not an error; a file that fails to parse or validate is.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for _, k := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, k.String())
	}

	if err := cfg.normalize(); err != nil {
		return Default(), err
	}
	if err := Validate(&cfg); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// normalize expands ~ in path fields and fills empty required values.
func (c *Config) normalize() error {
	for _, p := range []*string{&c.HistoryPath, &c.Log.Dir, &c.Scene} {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	if c.VersionScheme == "" {
		c.VersionScheme = DefaultVersionScheme
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	return nil
}

// Environment overrides, applied after the file and local overrides.
const (
	EnvRoot    = "CACHEMGR_ROOT"
	EnvPattern = "CACHEMGR_PATTERN"
	EnvVar     = "CACHEMGR_ENV_VAR"
	EnvScene   = "CACHEMGR_SCENE"
)

// ApplyEnv overrides fields from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvRoot); v != "" {
		c.RootFolder = v
	}
	if v := getenv(EnvPattern); v != "" {
		c.VersionPattern = v
	}
	if v := getenv(EnvVar); v != "" {
		c.EnvVar = v
	}
	if v := getenv(EnvScene); v != "" {
		c.Scene = v
	}
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save validates cfg and writes it to path. Comments in an existing file
// are not preserved.
func Save(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := Encode(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data, 0o644)
}

const defaultConfig = `# cachemgr configuration

# Regular expression a version folder name must match in full.
# A capture group, when present, selects the part used for ordering.
# version_pattern = 'v\d{3}'

# How version tokens are ordered: "numeric" (first digit run) or
# "semver" (tokens like 1.2.0 or v2.0.0-rc.1, numeric fallback).
# version_scheme = "numeric"

# Scene variable that anchors cache paths.
# env_var = "JOB"

# Cache root. May start with the scene variable, ~ or be absolute.
# Layout below the root: <root>/<cache_name>/<version>/<files>
# root_folder = "$JOB/geo"

# Scene manifest read by cachemgr. Relative paths resolve against the
# working directory.
# scene = "scene.yaml"

# Action journal (default: ~/.cachemgr/history.json)
# history_path = "~/.cachemgr/history.json"

# [scan]
# workers = 8              # version folders listed concurrently per cache
# progress_every = 64      # report progress every N entries
# progress_interval = "100ms"

# Default view filters for "cachemgr scan" and the panel.
# ".usd" also matches .usda, .usdc and .usdz.
# [filter]
# extensions = [".bgeo.sc", ".abc", ".usd", ".vdb"]   # also: ".fbx", ".obj"
# show_malformed = false

# [theme]
# name = "default"   # default, dracula, nord, gruvbox, catppuccin, none
# mode = "auto"      # auto, light, dark
# nerdfont = false
# primary = "#89b4fa"
# accent = "#f5c2e7"

# Log files are written daily to ~/.cachemgr/logs and kept for 7 days.
# [log]
# level = "info"     # debug, info, warn, error, off
# dir = "~/.cachemgr/logs"
`

// DefaultTemplate returns the commented config written by Init.
func DefaultTemplate() string {
	return defaultConfig
}

// Init creates a default config file at Path().
// If force is true, overwrites existing file.
// Returns the path to the created file.
func Init(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	return path, InitFile(path, force)
}

// InitFile writes the default template to path.
func InitFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New("config file already exists: " + path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, []byte(defaultConfig), 0o644)
}
