package panel

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/scene/scenetest"
	"github.com/raphi011/cachemgr/internal/session"
	"github.com/raphi011/cachemgr/internal/version"
)

func setup(t *testing.T, files []string, refs ...scene.Reference) (string, *scenetest.Fake) {
	t.Helper()
	job := t.TempDir()
	for _, f := range files {
		p := filepath.Join(job, "geo", filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return job, scenetest.New(map[string]string{"JOB": job}, refs...)
}

func newSession(t *testing.T, sc scene.Context) *session.Session {
	t.Helper()
	s, err := session.New(sc, session.Config{
		Root:    "$JOB/geo",
		Pattern: version.DefaultPattern,
		Scheme:  version.SchemeNumeric,
		EnvVar:  "JOB",
	}, session.WithActionOptions(action.WithConfirmer(action.AutoConfirm)))
	require.NoError(t, err)
	return s
}

// scanned returns a panel over a session that already holds a tree.
func scanned(t *testing.T, sc scene.Context, opts Options) *Model {
	t.Helper()
	s := newSession(t, sc)
	_, err := s.ScanWait(context.Background(), nil)
	require.NoError(t, err)
	return New(context.Background(), s, opts)
}

func key(k string) tea.KeyPressMsg {
	switch k {
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "right":
		return tea.KeyPressMsg{Code: tea.KeyRight}
	case "left":
		return tea.KeyPressMsg{Code: tea.KeyLeft}
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "space":
		return tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}
	}
	r := []rune(k)[0]
	return tea.KeyPressMsg{Code: r, Text: k}
}

// press sends keys and returns the command of the last one.
func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

// pump runs cmd and feeds every resulting message back into m until no
// work is left. Spinner ticks are dropped.
func pump(m *Model, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func itemKeys(m *Model) []string {
	keys := make([]string, len(m.items))
	for i, it := range m.items {
		keys[i] = it.key()
	}
	return keys
}

var flipFiles = []string{
	"flip/v001/flip.bgeo.sc",
	"flip/v002/flip.bgeo.sc",
	"smoke/v001/smoke.vdb",
}

func flipRef() scene.Reference {
	return scene.Reference{Node: "/obj/flip", Parm: "file", Path: "$JOB/geo/flip/v001/flip.bgeo.sc"}
}

func TestPanel_InitialScan(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles, flipRef())
	m := New(context.Background(), newSession(t, sc), Options{})
	require.Nil(t, m.tree)

	pump(m, m.Init())

	require.NotNil(t, m.tree)
	assert.False(t, m.scanning)
	assert.Equal(t, []string{"flip", "smoke"}, itemKeys(m))
	assert.Equal(t, LevelSuccess, m.status.level)
	assert.Contains(t, m.status.text, "2 caches")
}

func TestPanel_ExpandKeptAcrossRescan(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles, flipRef())
	m := scanned(t, sc, Options{})

	press(m, "right")
	assert.Equal(t, []string{"flip", "flip/v001", "flip/v002", "smoke"}, itemKeys(m))

	press(m, "down", "down")
	pump(m, press(m, "r"))

	assert.Equal(t, []string{"flip", "flip/v001", "flip/v002", "smoke"}, itemKeys(m))
	assert.Equal(t, "flip/v002", m.items[m.cursor].key(), "cursor stays on the same version")

	press(m, "left")
	assert.Equal(t, []string{"flip", "smoke"}, itemKeys(m))
	assert.Equal(t, 0, m.cursor)

	press(m, "e")
	assert.Len(t, m.items, 5)
}

func TestPanel_FuzzyFilter(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles)
	m := scanned(t, sc, Options{})

	press(m, "/", "s", "m")
	assert.True(t, m.filtering)
	assert.Equal(t, []string{"smoke"}, itemKeys(m))

	press(m, "enter")
	assert.False(t, m.filtering)
	assert.Equal(t, "sm", m.filter.Query)

	press(m, "esc")
	assert.Equal(t, []string{"flip", "smoke"}, itemKeys(m))
}

func TestPanel_ExtensionToggles(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles)
	m := scanned(t, sc, Options{Extensions: []string{".bgeo.sc"}})
	assert.Equal(t, []string{"flip"}, itemKeys(m))

	press(m, "4")
	assert.Equal(t, []string{"flip", "smoke"}, itemKeys(m))
	assert.Contains(t, m.status.text, ".vdb on")

	press(m, "1")
	assert.Equal(t, []string{"smoke"}, itemKeys(m))
}

func TestPanel_MalformedToggle(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, []string{"flip/v001/flip.bgeo.sc", "flip/17/flip.bgeo.sc"})
	m := scanned(t, sc, Options{})
	press(m, "right")
	assert.Equal(t, []string{"flip", "flip/v001"}, itemKeys(m))

	press(m, "m")
	assert.Equal(t, []string{"flip", "flip/v001", "flip/17"}, itemKeys(m))
}

func TestPanel_UpdateConfirmed(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles, flipRef())
	sc.AllowAnySetReference()
	m := scanned(t, sc, Options{})

	press(m, "u")
	require.NotNil(t, m.confirm)
	assert.Equal(t, []string{"flip: v001 > v002"}, m.confirm.lines)
	assert.Contains(t, m.View().Content, "flip: v001 > v002")

	pump(m, press(m, "y"))

	assert.Nil(t, m.confirm)
	assert.False(t, m.acting)
	assert.Equal(t, LevelSuccess, m.status.level, m.status.text)
	assert.Equal(t, "$JOB/geo/flip/v002/flip.bgeo.sc", sc.References()[0].Path)
	assert.True(t, m.tree.Find("flip").IsCurrentLatest(), "tree re-scanned after the update")
}

func TestPanel_UpdateDeclined(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles, flipRef())
	m := scanned(t, sc, Options{})

	press(m, "u")
	require.NotNil(t, m.confirm)
	cmd := press(m, "n")

	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.Equal(t, "cancelled", m.status.text)
	sc.AssertNotCalled(t, "SetReference", mock.Anything, mock.Anything)
}

func TestPanel_UpToDate(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, []string{"flip/v001/flip.bgeo.sc"}, flipRef())
	m := scanned(t, sc, Options{})

	press(m, "u")
	assert.Nil(t, m.confirm)
	assert.Equal(t, "All caches are up-to-date", m.status.text)
}

func TestPanel_DeleteUnused(t *testing.T) {
	t.Parallel()

	job, sc := setup(t, flipFiles, flipRef())
	m := scanned(t, sc, Options{})

	press(m, "d")
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.confirm.title, "Delete 1 unused version(s) of flip")

	pump(m, press(m, "y"))

	_, err := os.Stat(filepath.Join(job, "geo", "flip", "v002"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(job, "geo", "flip", "v001"))
	assert.NoError(t, err, "referenced version kept")
	assert.Nil(t, m.tree.Find("flip").Find("v002"))
}

func TestPanel_LoadVersion(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles, flipRef())
	sc.AllowAnySetReference()
	m := scanned(t, sc, Options{})

	press(m, "right", "down", "down")
	require.Equal(t, "flip/v002", m.items[m.cursor].key())

	press(m, "enter")
	require.NotNil(t, m.confirm)
	assert.Equal(t, []string{"/obj/flip"}, m.confirm.lines)

	pump(m, press(m, "y"))
	assert.Equal(t, LevelSuccess, m.status.level, m.status.text)
	assert.Equal(t, "$JOB/geo/flip/v002/flip.bgeo.sc", sc.References()[0].Path)
}

func TestPanel_LoadWithoutNode(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles)
	m := scanned(t, sc, Options{})

	press(m, "right", "down", "enter")
	assert.Nil(t, m.confirm)
	assert.Equal(t, LevelWarning, m.status.level)
}

func TestPanel_CopyAndOpen(t *testing.T) {
	t.Parallel()

	job, sc := setup(t, flipFiles, flipRef())
	m := scanned(t, sc, Options{})
	var copied, opened string
	m.copy = func(p string) error { copied = p; return nil }
	m.open = func(_ context.Context, p string) error { opened = p; return nil }

	press(m, "right", "down")
	pump(m, press(m, "y"))
	pump(m, press(m, "o"))

	assert.Equal(t, filepath.Join(job, "geo", "flip", "v001", "flip.bgeo.sc"), copied)
	assert.Equal(t, filepath.Join(job, "geo", "flip", "v001"), opened)
	assert.Equal(t, LevelInfo, m.status.level)
}

func TestPanel_StaleGenerationDropped(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles)
	m := scanned(t, sc, Options{})
	before := m.tree

	events := make(chan session.Event)
	close(events)
	cmd := m.handleScanEvent(scanEventMsg{
		ev:     session.Event{Kind: session.EventDone, Generation: "stale", Tree: &reconcile.Tree{}},
		events: events,
	})

	assert.Same(t, before, m.tree)
	require.NotNil(t, cmd, "the stale stream is still drained")
	assert.Equal(t, scanClosedMsg{gen: "stale"}, cmd())
}

// blockingScene blocks the first ReferencedPaths call until its context
// is cancelled.
type blockingScene struct {
	*scenetest.Fake
	calls atomic.Int32
}

func (b *blockingScene) ReferencedPaths(ctx context.Context) ([]scene.Reference, error) {
	if b.calls.Add(1) == 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.Fake.ReferencedPaths(ctx)
}

func TestPanel_EscCancelsScan(t *testing.T) {
	t.Parallel()

	_, fake := setup(t, flipFiles)
	m := New(context.Background(), newSession(t, &blockingScene{Fake: fake}), Options{})

	cmd := m.Init()
	assert.True(t, m.scanning)
	press(m, "esc")
	pump(m, cmd)

	assert.False(t, m.scanning)
	assert.Equal(t, LevelWarning, m.status.level)
	assert.Equal(t, "scan cancelled", m.status.text)
	assert.Nil(t, m.tree)
}

func TestPanel_WatchRescans(t *testing.T) {
	t.Parallel()

	job, sc := setup(t, flipFiles)
	watch := make(chan struct{}, 1)
	m := scanned(t, sc, Options{Watch: watch})
	require.Len(t, m.items, 2)

	p := filepath.Join(job, "geo", "pyro", "v001", "pyro.vdb")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	close(watch)
	_, cmd := m.Update(watchMsg{})
	pump(m, cmd)

	assert.Equal(t, []string{"flip", "pyro", "smoke"}, itemKeys(m))
}

func TestPanel_View(t *testing.T) {
	t.Parallel()

	_, sc := setup(t, flipFiles, flipRef())
	m := scanned(t, sc, Options{})
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 20})
	press(m, "right")

	content := m.View().Content
	assert.Contains(t, content, "flip")
	assert.Contains(t, content, "v002")
	assert.Contains(t, content, "/obj/flip")
	assert.Contains(t, content, "q quit")

	press(m, "q")
	assert.Empty(t, m.View().Content)
}
