package scene

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `scene: /projects/show/hip/fx.hip
env:
  JOB: /projects/show
references:
  - node: /obj/flip/filecache1
    parm: file
    path: $JOB/geo/flip/v001/flip.$F4.bgeo.sc
  - node: /obj/smoke/filecache1
    path: $JOB/geo/smoke/v003/smoke.vdb
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManifest_ReferencedPaths(t *testing.T) {
	t.Parallel()

	m := NewManifest(writeManifest(t, sampleManifest))
	refs, err := m.ReferencedPaths(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Reference{
		{Node: "/obj/flip/filecache1", Parm: "file", Path: "$JOB/geo/flip/v001/flip.$F4.bgeo.sc"},
		{Node: "/obj/smoke/filecache1", Path: "$JOB/geo/smoke/v003/smoke.vdb"},
	}, refs)
}

func TestManifest_Missing(t *testing.T) {
	t.Parallel()

	m := NewManifest(filepath.Join(t.TempDir(), "scene.yaml"))
	_, err := m.ReferencedPaths(context.Background())
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, ok := m.EnvironmentValue("JOB")
	assert.False(t, ok)
}

func TestManifest_UnknownField(t *testing.T) {
	t.Parallel()

	m := NewManifest(writeManifest(t, "refs: []\n"))
	_, err := m.ReferencedPaths(context.Background())
	assert.Error(t, err)
}

func TestManifest_SetReference(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, sampleManifest)
	m := NewManifest(path)
	ctx := context.Background()

	require.NoError(t, m.SetReference(ctx, "/obj/flip/filecache1", "$JOB/geo/flip/v002/flip.$F4.bgeo.sc"))

	refs, err := NewManifest(path).ReferencedPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$JOB/geo/flip/v002/flip.$F4.bgeo.sc", refs[0].Path)
	assert.Equal(t, "file", refs[0].Parm, "other fields are kept")
	assert.Equal(t, "$JOB/geo/smoke/v003/smoke.vdb", refs[1].Path)

	f, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, "/projects/show/hip/fx.hip", f.Scene)
}

func TestManifest_SetReferenceUnknownNode(t *testing.T) {
	t.Parallel()

	m := NewManifest(writeManifest(t, sampleManifest))
	err := m.SetReference(context.Background(), "/obj/nope", "/x")

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Equal(t, "/obj/nope", rejected.Node)
}

func TestManifest_ConcurrentSetReference(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, sampleManifest)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i, node := range []string{"/obj/flip/filecache1", "/obj/smoke/filecache1"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, NewManifest(path).SetReference(ctx, node, filepath.Join("/new", string(rune('a'+i)))))
		}()
	}
	wg.Wait()

	refs, err := NewManifest(path).ReferencedPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/new/a", refs[0].Path)
	assert.Equal(t, "/new/b", refs[1].Path)
}

func TestManifest_Environment(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, sampleManifest)
	envFile := filepath.Join(filepath.Dir(path), DefaultEnvFile)
	require.NoError(t, os.WriteFile(envFile, []byte("JOB=/from/dotenv\nHIP=/projects/show/hip\n"), 0o644))

	m := NewManifest(path)

	job, ok := m.EnvironmentValue("JOB")
	assert.True(t, ok)
	assert.Equal(t, "/projects/show", job, "manifest env wins over dotenv")

	hip, ok := m.EnvironmentValue("HIP")
	assert.True(t, ok)
	assert.Equal(t, "/projects/show/hip", hip)

	_, ok = m.EnvironmentValue("HOME_NOT_IN_SCENE")
	assert.False(t, ok, "process environment is not consulted")
}

func TestManifest_WithEnvFile(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "references: []\n")
	envFile := filepath.Join(t.TempDir(), "show.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JOB=/elsewhere\n"), 0o644))

	v, ok := NewManifest(path, WithEnvFile(envFile)).EnvironmentValue("JOB")
	assert.True(t, ok)
	assert.Equal(t, "/elsewhere", v)
}

func TestReference_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/obj/a/file: /x", Reference{Node: "/obj/a", Parm: "file", Path: "/x"}.String())
	assert.Equal(t, "/obj/a: /x", Reference{Node: "/obj/a", Path: "/x"}.String())
}
