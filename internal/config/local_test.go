package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LocalConfigFileName), []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return dir
}

func TestLoadLocal_NoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	local, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if local != nil {
		t.Fatalf("expected nil, got %+v", local)
	}
}

func TestLoadLocal_EmptyFile(t *testing.T) {
	t.Parallel()

	local, err := LoadLocal(writeLocal(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if local == nil {
		t.Fatal("expected non-nil local config for empty file")
	}
}

func TestLoadLocal_AllFields(t *testing.T) {
	t.Parallel()

	dir := writeLocal(t, `
version_pattern = '\d{3}'
version_scheme = "semver"
env_var = "SHOT"
root_folder = "$SHOT/cache"

[filter]
extensions = [".vdb", ".fbx"]
show_malformed = true
`)

	local, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if local.VersionPattern != `\d{3}` {
		t.Errorf("version_pattern = %q", local.VersionPattern)
	}
	if local.VersionScheme != "semver" {
		t.Errorf("version_scheme = %q", local.VersionScheme)
	}
	if local.EnvVar != "SHOT" || local.RootFolder != "$SHOT/cache" {
		t.Errorf("env_var/root_folder = %q %q", local.EnvVar, local.RootFolder)
	}
	if !slices.Equal(local.Filter.Extensions, []string{".vdb", ".fbx"}) {
		t.Errorf("extensions = %v", local.Filter.Extensions)
	}
	if local.Filter.ShowMalformed == nil || !*local.Filter.ShowMalformed {
		t.Errorf("show_malformed = %v, want true", local.Filter.ShowMalformed)
	}
}

func TestLoadLocal_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"scheme", `version_scheme = "calver"`, "version_scheme"},
		{"relative root", `root_folder = "cache"`, "root_folder"},
		{"extension", "[filter]\nextensions = [\"vdb\"]", "filter.extensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadLocal(writeLocal(t, tt.content))
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *ConfigurationError, got %v", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestLoadLocal_ParseError(t *testing.T) {
	t.Parallel()

	if _, err := LoadLocal(writeLocal(t, "env_var = ")); err == nil {
		t.Fatal("expected parse error")
	}
}
