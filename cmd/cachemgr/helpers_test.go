package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raphi011/cachemgr/internal/scene"
)

// fixture is a job directory with a cache root, a scene manifest and a
// config file pointing at both.
type fixture struct {
	job     string
	scene   string
	config  string
	history string
}

// newFixture lays out files under <job>/geo and references refs (node ->
// path relative to the cache root) in the scene. The config file is
// selected through CACHEMGR_CONFIG, so tests using it cannot run in
// parallel.
func newFixture(t *testing.T, files []string, refs map[string]string) *fixture {
	t.Helper()

	job, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for _, f := range files {
		p := filepath.Join(job, "geo", filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("data"), 0o644))
	}

	f := &fixture{
		job:     job,
		scene:   filepath.Join(job, "scene.yaml"),
		config:  filepath.Join(job, "config.toml"),
		history: filepath.Join(job, "history.json"),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "env:\n  JOB: %s\n", job)
	if len(refs) == 0 {
		b.WriteString("references: []\n")
	} else {
		b.WriteString("references:\n")
	}
	for node, path := range refs {
		fmt.Fprintf(&b, "  - node: %s\n    path: $JOB/geo/%s\n", node, path)
	}
	require.NoError(t, os.WriteFile(f.scene, []byte(b.String()), 0o644))

	cfg := fmt.Sprintf(`scene = %q
history_path = %q

[log]
level = "off"
`, f.scene, f.history)
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))

	t.Setenv("CACHEMGR_CONFIG", f.config)
	for _, k := range []string{"CACHEMGR_ROOT", "CACHEMGR_PATTERN", "CACHEMGR_ENV_VAR", "CACHEMGR_SCENE"} {
		t.Setenv(k, "")
	}
	return f
}

// run executes cachemgr with args and returns stdout and stderr.
func (f *fixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// refs reads the scene manifest back as node -> path.
func (f *fixture) refs(t *testing.T) map[string]string {
	t.Helper()
	refs, err := scene.NewManifest(f.scene).ReferencedPaths(context.Background())
	require.NoError(t, err)
	out := map[string]string{}
	for _, r := range refs {
		out[r.Node] = r.Path
	}
	return out
}

// flipFixture has three flip versions, v001 referenced, plus an
// unreferenced smoke cache.
func flipFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, []string{
		"flip/v001/flip.0001.bgeo.sc",
		"flip/v002/flip.0001.bgeo.sc",
		"flip/v003/flip.0001.bgeo.sc",
		"smoke/v001/smoke.0001.vdb",
	}, map[string]string{
		"/obj/flip": "flip/v001/flip.0001.bgeo.sc",
	})
}
