package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveJSON(t *testing.T) {
	t.Parallel()

	type entry struct {
		Cache string `json:"cache"`
		Token string `json:"token"`
	}
	path := filepath.Join(t.TempDir(), "data", "history.json")

	require.NoError(t, SaveJSON(path, []entry{{"flip", "v002"}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"cache\": \"flip\",\n    \"token\": \"v002\"\n  }\n]\n", string(raw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

	var got []entry
	require.NoError(t, LoadJSON(path, &got))
	assert.Equal(t, []entry{{"flip", "v002"}}, got)
}

func TestLoadJSON_Missing(t *testing.T) {
	t.Parallel()

	var v any
	assert.ErrorIs(t, LoadJSON(filepath.Join(t.TempDir(), "none.json"), &v), fs.ErrNotExist)
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")

	require.NoError(t, WriteFileAtomic(path, []byte("references: []\n"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("env: {}\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "env: {}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestWriteFileAtomic_UnwritableDir(t *testing.T) {
	t.Parallel()

	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, nil, 0o644))

	assert.Error(t, WriteFileAtomic(filepath.Join(parent, "scene.yaml"), []byte("x"), 0o644))
}

func TestDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	t.Setenv(HomeEnv, dir)

	got, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.DirExists(t, dir)
}
