package version

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"default", DefaultPattern, false},
		{"optional prefix", `v?\d+`, false},
		{"capture group", `ver_(\d+)`, false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"bad regexp", `v(\d{3}`, true},
		{"matches empty", `\d*`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Compile(tt.pattern, SchemeNumeric)
			if tt.wantErr {
				var perr *PatternError
				require.True(t, errors.As(err, &perr), "want *PatternError, got %v", err)
				assert.Equal(t, tt.pattern, perr.Pattern)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pattern, p.Pattern())
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	p := MustCompile(DefaultPattern, SchemeNumeric)
	root := "/job/geo"

	tests := []struct {
		name      string
		path      string
		wantOK    bool
		wantCache string
		wantToken string
		wantWhy   Reason
	}{
		{"valid", "/job/geo/flip/v001/flip.bgeo.sc", true, "flip", "v001", ""},
		{"pattern must match whole segment", "/job/geo/flip/v0012/flip.bgeo.sc", false, "flip", "", ReasonPattern},
		{"numeric folder", "/job/geo/flip/17/flip.bgeo.sc", false, "flip", "", ReasonPattern},
		{"too shallow", "/job/geo/flip/flip.bgeo.sc", false, "flip", "", ReasonLayout},
		{"too deep", "/job/geo/flip/v001/sub/flip.bgeo.sc", false, "flip", "", ReasonLayout},
		{"outside root", "/other/flip/v001/flip.bgeo.sc", false, "", "", ReasonOutsideRoot},
		{"root itself", "/job/geo", false, "", "", ReasonOutsideRoot},
		{"unclean path", "/job/geo/./flip/v002//flip.bgeo.sc", true, "flip", "v002", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := p.Parse(root, tt.path)
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantCache, res.CacheName)
			if tt.wantOK {
				assert.Nil(t, res.Failure)
				assert.Equal(t, tt.wantToken, res.Token)
				assert.Equal(t, KindNumeric, res.Key.Kind())
				return
			}
			require.NotNil(t, res.Failure)
			assert.Equal(t, tt.wantWhy, res.Failure.Reason)
			assert.Equal(t, tt.path, res.Failure.Path)
		})
	}
}

func TestParse_CaptureGroup(t *testing.T) {
	t.Parallel()

	p := MustCompile(`ver_(\d+)`, SchemeNumeric)
	res := p.Parse("/r", "/r/smoke/ver_12/smoke.vdb")
	require.True(t, res.OK)
	assert.Equal(t, "12", res.Token)
	assert.Equal(t, "ver_12", res.Segment)
}

func TestKeyCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b   string
		scheme Scheme
		want   int
	}{
		{"v001", "v002", SchemeNumeric, -1},
		{"v010", "v009", SchemeNumeric, 1},
		{"v001", "001", SchemeNumeric, 0},
		{"v9", "v10", SchemeNumeric, -1},
		{"v99999999999999999999999", "v100000000000000000000000", SchemeNumeric, -1},
		{"latest", "v001", SchemeNumeric, -1},
		{"alpha", "beta", SchemeNumeric, -1},
		{"1.2.0", "1.10.0", SchemeSemver, -1},
		{"2.0.0", "v3", SchemeSemver, -1},
		{"1.0.0", "text", SchemeSemver, 1},
		{"release-7", "2.0.0", SchemeSemver, -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			t.Parallel()
			a, b := NewKey(tt.a, tt.scheme), NewKey(tt.b, tt.scheme)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}
}

func TestKeyKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindSemver, NewKey("1.2.3", SchemeSemver).Kind())
	assert.Equal(t, KindNumeric, NewKey("1.2.3", SchemeNumeric).Kind())
	assert.Equal(t, KindText, NewKey("final", SchemeSemver).Kind())
	assert.True(t, Key{}.IsZero())
	assert.False(t, NewKey("v001", SchemeNumeric).IsZero())
}

func TestLess_TotalOrder(t *testing.T) {
	t.Parallel()

	tokens := []string{"v002", "001", "v001", "final", "v010", "0001"}
	keys := make([]Key, len(tokens))
	for i, tok := range tokens {
		keys[i] = NewKey(tok, SchemeNumeric)
	}
	sort.Slice(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })

	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.Token()
	}
	assert.Equal(t, []string{"final", "0001", "001", "v001", "v002", "v010"}, got)
}

func TestParseScheme(t *testing.T) {
	t.Parallel()

	s, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, SchemeNumeric, s)

	s, err = ParseScheme(" SemVer ")
	require.NoError(t, err)
	assert.Equal(t, SchemeSemver, s)

	_, err = ParseScheme("date")
	assert.Error(t, err)
}

func TestNaturalLess(t *testing.T) {
	t.Parallel()

	names := []string{"flip10", "Flip2", "flip2", "explosion", "flip1", "flip02", "a"}
	sort.Slice(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })
	assert.Equal(t, []string{"a", "explosion", "flip1", "Flip2", "flip02", "flip2", "flip10"}, names)

	assert.Equal(t, 0, NaturalCompare("same", "same"))
	assert.True(t, NaturalLess("flip", "flip1"))
}
