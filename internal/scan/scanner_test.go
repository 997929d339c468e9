package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (and their parent dirs) relative to root.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func paths(root string, cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		rel, _ := filepath.Rel(root, c.Path)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestScan_Layout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root,
		"stray.txt",                       // depth 1 file
		"flip/notes.txt",                  // depth 2 file
		"flip/v002/flip.0001.bgeo.sc",     // candidate
		"flip/v001/flip.0001.bgeo.sc",     // candidate
		"flip/v001/flip.0002.bgeo.sc",     // candidate
		"flip/v001/sub/deep.bgeo.sc",      // below a depth 3 dir
		"flip/17/flip.bgeo.sc",            // candidate, malformed later
		"smoke/v001/smoke.vdb",            // candidate
		"flip/.hidden/flip.bgeo.sc",       // hidden version dir
		"flip/v001/.flip.bgeo.sc.partial", // hidden file
	)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	res, err := New(Options{Root: root}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"flip/17/flip.bgeo.sc",
		"flip/v001/flip.0001.bgeo.sc",
		"flip/v001/flip.0002.bgeo.sc",
		"flip/v002/flip.0001.bgeo.sc",
		"smoke/v001/smoke.vdb",
	}, paths(root, res.Candidates))
	assert.Equal(t, []string{"empty", "flip", "smoke"}, res.Caches)
	assert.Empty(t, res.Warnings)

	c := res.Candidates[1]
	assert.Equal(t, "flip", c.CacheName)
	assert.Equal(t, "v001", c.Segment)
	assert.Equal(t, "flip.0001.bgeo.sc", c.Name)
	assert.Equal(t, filepath.Join(root, "flip", "v001"), c.Dir())
	assert.Equal(t, int64(1), c.Size)
	assert.Equal(t, ".bgeo.sc", c.Ext())

	assert.Equal(t, 5, res.Progress.Candidates)
	assert.Equal(t, 3, res.Progress.Caches)
}

func TestScan_Deterministic(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, v := range []string{"v003", "v001", "v010", "v002", "001"} {
		writeTree(t, root, "flip/"+v+"/flip.bgeo.sc")
	}

	s := New(Options{Root: root, Workers: 3})
	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	for range 5 {
		again, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, paths(root, first.Candidates), paths(root, again.Candidates))
	}
}

func TestScan_BrokenLinkIsWarning(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "flip/v001/flip.bgeo.sc")
	link := filepath.Join(root, "flip", "v001", "gone.bgeo.sc")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), link))

	res, err := New(Options{Root: root}).Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Candidates, 1)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, link, res.Warnings[0].Path)
	assert.Equal(t, "stat", res.Warnings[0].Op)
	assert.True(t, errors.Is(res.Warnings[0], os.ErrNotExist))
}

func TestScan_UnreadableDirIsWarning(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	tests := []struct {
		name   string
		locked string
		want   []string
	}{
		{"version dir", "flip/v002", []string{"flip/v001/flip.bgeo.sc", "smoke/v001/smoke.vdb"}},
		{"cache dir", "flip", []string{"smoke/v001/smoke.vdb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			writeTree(t, root, "flip/v001/flip.bgeo.sc", "flip/v002/flip.bgeo.sc", "smoke/v001/smoke.vdb")
			locked := filepath.Join(root, filepath.FromSlash(tt.locked))
			require.NoError(t, os.Chmod(locked, 0o000))
			t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

			res, err := New(Options{Root: root}).Scan(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want, paths(root, res.Candidates))
			require.Len(t, res.Warnings, 1)
			assert.Equal(t, "read dir", res.Warnings[0].Op)
			assert.Equal(t, locked, res.Warnings[0].Path)
			assert.True(t, errors.Is(res.Warnings[0], os.ErrPermission))
		})
	}
}

func TestScan_SymlinkedVersionDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	other := t.TempDir()
	writeTree(t, other, "v005/flip.bgeo.sc")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "flip"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(other, "v005"), filepath.Join(root, "flip", "v005")))

	res, err := New(Options{Root: root}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"flip/v005/flip.bgeo.sc"}, paths(root, res.Candidates))
}

func TestScan_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Root: filepath.Join(t.TempDir(), "nope")}).Scan(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScan_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "flip/v001/flip.bgeo.sc", "smoke/v001/smoke.vdb")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(Options{Root: root}).Scan(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCandidates_CancelMidWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a/v001/a.bgeo.sc", "b/v001/b.bgeo.sc", "c/v001/c.bgeo.sc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	var errs []error
	for c, err := range New(Options{Root: root}).Candidates(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got = append(got, c.CacheName)
		cancel()
	}

	assert.Equal(t, []string{"a"}, got)
	require.Len(t, errs, 1, "cancellation is reported exactly once")
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestCandidates_Restartable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "flip/v001/flip.bgeo.sc")

	seq := New(Options{Root: root}).Candidates(context.Background())
	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 1, count())

	writeTree(t, root, "flip/v002/flip.bgeo.sc")
	assert.Equal(t, 2, count(), "each iteration walks from scratch")
}

func TestScan_Progress(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, c := range []string{"a", "b", "c", "d"} {
		writeTree(t, root, c+"/v001/x.bgeo.sc", c+"/v002/x.bgeo.sc")
	}

	var reports []Progress
	s := New(Options{
		Root:             root,
		ProgressEvery:    1,
		ProgressInterval: time.Nanosecond,
		OnProgress:       func(p Progress) { reports = append(reports, p) },
	})
	res, err := s.Scan(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, res.Progress, last)
	assert.Equal(t, 8, last.Candidates)
	assert.Equal(t, 4, last.Caches)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Visited, reports[i-1].Visited)
	}
}

func TestScan_ProgressThrottled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, c := range []string{"a", "b", "c", "d"} {
		writeTree(t, root, c+"/v001/x.bgeo.sc")
	}

	var n int
	s := New(Options{
		Root:             root,
		ProgressEvery:    1,
		ProgressInterval: time.Hour,
		OnProgress:       func(Progress) { n++ },
	})
	_, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 2, "one throttled report plus the final one")
}

func TestExt(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"flip.0001.bgeo.sc": ".bgeo.sc",
		"FLIP.BGEO.SC":      ".bgeo.sc",
		"smoke.vdb":         ".vdb",
		"geo.abc":           ".abc",
		"stage.usdc":        ".usdc",
		"noext":             "",
		".bgeo.sc":          ".sc",
	}
	for name, want := range tests {
		assert.Equal(t, want, Ext(name), name)
	}
}
