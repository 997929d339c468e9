package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Scheme selects how version tokens are turned into keys.
type Scheme string

const (
	// SchemeNumeric orders tokens by their first run of digits.
	SchemeNumeric Scheme = "numeric"
	// SchemeSemver parses tokens as semantic versions first and falls
	// back to the numeric scheme.
	SchemeSemver Scheme = "semver"
)

// ValidSchemes lists the accepted scheme names.
var ValidSchemes = []string{string(SchemeNumeric), string(SchemeSemver)}

// ParseScheme converts a config value into a Scheme. Empty means numeric.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemeNumeric:
		return SchemeNumeric, nil
	case SchemeSemver:
		return SchemeSemver, nil
	}
	return "", fmt.Errorf("unknown version scheme %q", s)
}

// Kind ranks keys of different shape. Higher kinds sort above lower ones.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindSemver
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindSemver:
		return "semver"
	default:
		return "text"
	}
}

// Key is the comparable value of a version token.
//
// Numeric keys hold the digit run without leading zeros so that
// arbitrarily long numbers compare correctly without overflow.
type Key struct {
	kind   Kind
	digits string
	sem    *semver.Version
	raw    string
}

// NewKey builds the key for a raw token.
func NewKey(token string, scheme Scheme) Key {
	if scheme == SchemeSemver {
		if v, err := semver.NewVersion(token); err == nil {
			return Key{kind: KindSemver, sem: v, raw: token}
		}
	}
	if run, ok := firstDigitRun(token); ok {
		return Key{kind: KindNumeric, digits: trimZeros(run), raw: token}
	}
	return Key{kind: KindText, raw: token}
}

// Kind returns the key shape.
func (k Key) Kind() Kind { return k.kind }

// Token returns the raw token the key was built from.
func (k Key) Token() string { return k.raw }

// IsZero reports whether the key was never set.
func (k Key) IsZero() bool {
	return k.kind == KindText && k.raw == "" && k.sem == nil
}

func (k Key) String() string {
	switch k.kind {
	case KindSemver:
		return k.sem.String()
	case KindNumeric:
		return k.digits
	default:
		return k.raw
	}
}

// Compare orders keys only: -1, 0 or +1. Tokens such as "v001" and "001"
// compare equal. Use [Less] for a total order over tokens.
func (k Key) Compare(o Key) int {
	if k.kind != o.kind {
		if k.kind < o.kind {
			return -1
		}
		return 1
	}
	switch k.kind {
	case KindSemver:
		return k.sem.Compare(o.sem)
	case KindNumeric:
		if len(k.digits) != len(o.digits) {
			if len(k.digits) < len(o.digits) {
				return -1
			}
			return 1
		}
		return strings.Compare(k.digits, o.digits)
	default:
		return strings.Compare(k.raw, o.raw)
	}
}

// Less is the total order over versions: by key, then by raw token.
func Less(a, b Key) bool {
	if c := a.Compare(b); c != 0 {
		return c < 0
	}
	return a.raw < b.raw
}

func firstDigitRun(s string) (string, bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i], true
		}
	}
	if start >= 0 {
		return s[start:], true
	}
	return "", false
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
