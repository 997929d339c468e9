// Package storage holds the on-disk plumbing shared by the scene manifest
// and the action journal: the ~/.cachemgr data directory, atomic writes
// and advisory file locks.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the data directory location.
const HomeEnv = "CACHEMGR_HOME"

// DataDir returns $CACHEMGR_HOME or ~/.cachemgr and makes sure it exists.
func DataDir() (string, error) {
	dir, ok := os.LookupEnv(HomeEnv)
	if !ok || dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate data dir: %w", err)
		}
		dir = filepath.Join(home, ".cachemgr")
	}
	return dir, os.MkdirAll(dir, 0o755)
}

// WriteFileAtomic replaces path with data. The bytes go to a hidden temp
// file in the same directory first, which is then renamed over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write %s: %w", path, werr)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SaveJSON writes v as indented JSON, readable by the owner only.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, append(data, '\n'), 0o600)
}

// LoadJSON decodes the file at path into v. A missing file returns an
// error matching fs.ErrNotExist.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
