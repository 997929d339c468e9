// Package version parses version segments out of cache paths and orders
// them.
//
// Caches are laid out as <root>/<cache_name>/<version_segment>/<cache_file>.
// The cache name is taken positionally and the version segment must fully
// match the configured pattern.
package version

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultPattern matches three-digit "v" versions such as v001.
const DefaultPattern = `v\d{3}`

// PatternError is returned by Compile for an unusable pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid version pattern %q", e.Pattern)
	}
	return fmt.Sprintf("invalid version pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Reason classifies why a path did not parse.
type Reason string

const (
	ReasonOutsideRoot Reason = "outside root"
	ReasonLayout      Reason = "not <cache>/<version>/<file>"
	ReasonPattern     Reason = "version segment does not match pattern"
)

// ParseFailure describes a path that could not be parsed. It is carried in
// a [Result], never returned as an error from Parse.
type ParseFailure struct {
	Path      string
	CacheName string
	Segment   string
	Pattern   string
	Reason    Reason
}

func (f *ParseFailure) Error() string {
	switch f.Reason {
	case ReasonPattern:
		return fmt.Sprintf("%s: %q in %s does not match %q", f.Path, f.Segment, f.CacheName, f.Pattern)
	default:
		return fmt.Sprintf("%s: %s", f.Path, f.Reason)
	}
}

// Result is the tagged outcome of Parse. When OK is false, Failure is set
// and CacheName/Segment hold whatever could be read positionally.
type Result struct {
	OK        bool
	CacheName string
	Segment   string
	Token     string
	Key       Key
	Failure   *ParseFailure
}

// Parser is a compiled version pattern.
type Parser struct {
	pattern string
	re      *regexp.Regexp
	scheme  Scheme
}

// Compile anchors pattern so that it must match a whole path segment.
// A capture group, if present, selects the version token inside the
// segment; otherwise the whole segment is the token.
func Compile(pattern string, scheme Scheme) (*Parser, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &PatternError{Pattern: pattern, Err: fmt.Errorf("pattern is empty")}
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	if re.MatchString("") {
		return nil, &PatternError{Pattern: pattern, Err: fmt.Errorf("pattern matches the empty string")}
	}
	if scheme == "" {
		scheme = SchemeNumeric
	}
	return &Parser{pattern: pattern, re: re, scheme: scheme}, nil
}

// MustCompile is Compile for patterns known to be valid.
func MustCompile(pattern string, scheme Scheme) *Parser {
	p, err := Compile(pattern, scheme)
	if err != nil {
		panic(err)
	}
	return p
}

// Pattern returns the pattern as configured (unanchored).
func (p *Parser) Pattern() string { return p.pattern }

// Scheme returns the key scheme.
func (p *Parser) Scheme() Scheme { return p.scheme }

// MatchSegment reports whether a path segment is a version segment and
// returns its token.
func (p *Parser) MatchSegment(segment string) (string, bool) {
	m := p.re.FindStringSubmatch(segment)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return m[0], true
}

// Parse splits path relative to root and checks the version segment.
func (p *Parser) Parse(root, path string) Result {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Result{Failure: &ParseFailure{Path: path, Pattern: p.pattern, Reason: ReasonOutsideRoot}}
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	res := Result{CacheName: parts[0]}
	if len(parts) > 1 {
		res.Segment = parts[1]
	}
	if len(parts) != 3 {
		res.Failure = &ParseFailure{
			Path:      path,
			CacheName: res.CacheName,
			Segment:   res.Segment,
			Pattern:   p.pattern,
			Reason:    ReasonLayout,
		}
		return res
	}

	token, ok := p.MatchSegment(res.Segment)
	if !ok {
		res.Failure = &ParseFailure{
			Path:      path,
			CacheName: res.CacheName,
			Segment:   res.Segment,
			Pattern:   p.pattern,
			Reason:    ReasonPattern,
		}
		return res
	}

	res.OK = true
	res.Token = token
	res.Key = NewKey(token, p.scheme)
	return res
}

// KeyFor builds a key for a token with this parser's scheme.
func (p *Parser) KeyFor(token string) Key {
	return NewKey(token, p.scheme)
}
