package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/cachemgr/internal/reconcile"
)

func ver(cache, token string, status reconcile.Status, exts ...string) *reconcile.Version {
	return &reconcile.Version{
		CacheName:  cache,
		Segment:    token,
		Token:      token,
		Status:     status,
		OnDisk:     status != reconcile.StatusMissing,
		Extensions: exts,
	}
}

func sampleTree() *reconcile.Tree {
	return &reconcile.Tree{Caches: []*reconcile.Cache{
		{Name: "explosion", Versions: []*reconcile.Version{
			ver("explosion", "v001", reconcile.StatusOutdated, ".vdb"),
			ver("explosion", "v002", reconcile.StatusLatest, ".vdb"),
		}},
		{Name: "flip", Versions: []*reconcile.Version{
			ver("flip", "v001", reconcile.StatusOutdated, ".bgeo.sc"),
			ver("flip", "v002", reconcile.StatusLatest, ".bgeo.sc"),
			ver("flip", "v009", reconcile.StatusMissing),
			ver("flip", "17", reconcile.StatusMalformed, ".bgeo.sc"),
		}},
		{Name: "rig", Versions: []*reconcile.Version{
			ver("rig", "v001", reconcile.StatusLatest, ".fbx"),
		}},
		{Name: "stage", Versions: []*reconcile.Version{
			ver("stage", "v003", reconcile.StatusLatest, ".usdc"),
		}},
	}}
}

func tokens(r Row) []string {
	var out []string
	for _, v := range r.Versions {
		out = append(out, v.Token)
	}
	return out
}

func TestApply_DefaultExtensions(t *testing.T) {
	t.Parallel()

	rows := Filter{Extensions: []string{".bgeo.sc", ".abc", ".usd", ".vdb"}}.Apply(sampleTree())

	assert.Equal(t, []string{"explosion", "flip", "stage"}, CacheNames(rows))
	assert.Equal(t, []string{"v001", "v002", "v009"}, tokens(rows[1]), "malformed hidden, missing kept")
}

func TestApply_AllExtAndMalformed(t *testing.T) {
	t.Parallel()

	rows := Filter{Extensions: []string{".abc"}, AllExt: true, ShowMalformed: true}.Apply(sampleTree())

	assert.Equal(t, []string{"explosion", "flip", "rig", "stage"}, CacheNames(rows))
	assert.Equal(t, []string{"v001", "v002", "v009", "17"}, tokens(rows[1]))
}

func TestApply_Statuses(t *testing.T) {
	t.Parallel()

	rows := Filter{AllExt: true, Statuses: []reconcile.Status{reconcile.StatusMalformed, reconcile.StatusMissing}}.Apply(sampleTree())

	require.Len(t, rows, 1)
	assert.Equal(t, "flip", rows[0].Cache.Name)
	assert.Equal(t, []string{"v009", "17"}, tokens(rows[0]))
}

func TestApply_Query(t *testing.T) {
	t.Parallel()

	rows := Filter{Query: "fl", AllExt: true}.Apply(sampleTree())

	require.Len(t, rows, 1)
	assert.Equal(t, "flip", rows[0].Cache.Name)
	assert.Equal(t, []int{0, 1}, rows[0].Matched)

	assert.Empty(t, Filter{Query: "zzz", AllExt: true}.Apply(sampleTree()))
}

func TestApply_NilTree(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Filter{}.Apply(nil))
}

func TestExpandExts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{".abc", ".usd", ".usda", ".usdc", ".usdz"}, ExpandExts([]string{".USD", ".abc", ".usdc"}))
	assert.Equal(t, []string{".ass"}, ExpandExts([]string{".ass"}))
	assert.Empty(t, ExpandExts(nil))
}

func TestVersions(t *testing.T) {
	t.Parallel()

	rows := Filter{AllExt: true}.Apply(sampleTree())
	assert.Len(t, Versions(rows), 7)
}
