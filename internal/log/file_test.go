package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenFile_WritesDailyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	z, sync, err := OpenFile(dir, "debug")
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	var buf bytes.Buffer
	l := New(&buf, false, false).WithFile(z)
	l.Debug("scan finished", "caches", 3)
	l.Warnf("cannot read %s", "/job/geo/flip")
	if err := sync(); err != nil && !strings.Contains(err.Error(), "sync") {
		t.Fatalf("sync error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName(time.Now())))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	got := string(data)
	for _, want := range []string{"scan finished", "caches", "WARN", "cannot read /job/geo/flip", " | cachemgr | "} {
		if !strings.Contains(got, want) {
			t.Errorf("log file = %q, want to contain %q", got, want)
		}
	}

	if !strings.Contains(buf.String(), "Warning: cannot read /job/geo/flip") {
		t.Errorf("stderr = %q, want warning line", buf.String())
	}
	if strings.Contains(buf.String(), "scan finished") {
		t.Errorf("debug should not reach stderr without verbose")
	}
}

func TestOpenFile_PrunesOldFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, FileName(time.Now().AddDate(0, 0, -10)))
	recent := filepath.Join(dir, FileName(time.Now().AddDate(0, 0, -2)))
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, recent, other} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := OpenFile(dir, "info"); err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("old log file should be removed")
	}
	for _, p := range []string{recent, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be kept: %v", filepath.Base(p), err)
		}
	}
}

func TestOpenFile_Levels(t *testing.T) {
	t.Parallel()

	if _, _, err := OpenFile(t.TempDir(), "loud"); err == nil {
		t.Error("expected error for unknown level")
	}

	z, _, err := OpenFile(t.TempDir(), "off")
	if err != nil {
		t.Fatalf("OpenFile(off) error = %v", err)
	}
	z.Info("dropped")
}
