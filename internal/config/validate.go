package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/raphi011/cachemgr/internal/version"
)

// Valid enum values for configuration fields.
var (
	ValidVersionSchemes = version.ValidSchemes
	ValidLogLevels      = []string{"debug", "info", "warn", "error", "off"}
	ValidThemeNames     = []string{"default", "dracula", "nord", "gruvbox", "catppuccin", "none"}
	ValidThemeModes     = []string{"auto", "light", "dark"}
	KnownExtensions     = []string{".bgeo.sc", ".abc", ".usd", ".vdb", ".fbx", ".obj"}
)

var envVarName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ConfigurationError is an invalid configuration value. It blocks the
// operation that needed the value.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Validate checks every field of cfg and returns the first problem as a
// *ConfigurationError.
func Validate(cfg *Config) error {
	if err := validateEnum(cfg.VersionScheme, "version_scheme", ValidVersionSchemes); err != nil {
		return err
	}
	scheme, _ := version.ParseScheme(cfg.VersionScheme)
	if _, err := version.Compile(cfg.VersionPattern, scheme); err != nil {
		reason := err.Error()
		var perr *version.PatternError
		if errors.As(err, &perr) {
			reason = perr.Err.Error()
		}
		return &ConfigurationError{Field: "version_pattern", Value: cfg.VersionPattern, Reason: reason}
	}
	if !envVarName.MatchString(cfg.EnvVar) {
		return &ConfigurationError{Field: "env_var", Value: cfg.EnvVar, Reason: "must be a variable name like JOB"}
	}
	if cfg.RootFolder == "" {
		return &ConfigurationError{Field: "root_folder", Value: "", Reason: "must not be empty"}
	}
	if err := ValidatePath(cfg.RootFolder, "root_folder"); err != nil {
		return err
	}
	if err := ValidatePath(cfg.HistoryPath, "history_path"); err != nil {
		return err
	}
	if err := ValidatePath(cfg.Log.Dir, "log.dir"); err != nil {
		return err
	}
	if err := validateExtensions(cfg.Filter.Extensions, "filter.extensions"); err != nil {
		return err
	}
	if cfg.Scan.Workers < 0 {
		return &ConfigurationError{Field: "scan.workers", Value: fmt.Sprint(cfg.Scan.Workers), Reason: "must not be negative"}
	}
	if cfg.Scan.ProgressEvery < 0 {
		return &ConfigurationError{Field: "scan.progress_every", Value: fmt.Sprint(cfg.Scan.ProgressEvery), Reason: "must not be negative"}
	}
	if cfg.Scan.ProgressInterval.Duration < 0 {
		return &ConfigurationError{Field: "scan.progress_interval", Value: cfg.Scan.ProgressInterval.String(), Reason: "must not be negative"}
	}
	if err := validateEnum(cfg.Log.Level, "log.level", ValidLogLevels); err != nil {
		return err
	}
	if err := validateEnum(cfg.Theme.Name, "theme.name", ValidThemeNames); err != nil {
		return err
	}
	return validateEnum(cfg.Theme.Mode, "theme.mode", ValidThemeModes)
}

// validateEnum checks that value (if non-empty) is one of the allowed values.
func validateEnum(value, field string, allowed []string) error {
	if value == "" {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return &ConfigurationError{Field: field, Value: value, Reason: "must be " + formatOptions(allowed)}
	}
	return nil
}

func validateExtensions(exts []string, field string) error {
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") || len(e) < 2 {
			return &ConfigurationError{Field: field, Value: e, Reason: `must start with "." like ".abc"`}
		}
	}
	return nil
}

// formatOptions formats a list of allowed values for error messages.
// E.g., ["a", "b", "c"] -> `"a", "b", or "c"`
func formatOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	if len(quoted) <= 2 {
		return strings.Join(quoted, " or ")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
