// Package expand resolves an environment-variable token in cache paths.
//
// Paths written by a scene usually start with a job token such as
// "$JOB/geo/flip/v001/flip.bgeo.sc". The token is resolved against the
// host scene environment, which is not the process environment, so the
// lookup is injected through [Environment].
package expand

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment looks up variables in the host scene environment.
type Environment interface {
	EnvironmentValue(name string) (string, bool)
}

// EnvironmentFunc adapts a plain function to [Environment].
type EnvironmentFunc func(name string) (string, bool)

// EnvironmentValue implements Environment.
func (f EnvironmentFunc) EnvironmentValue(name string) (string, bool) {
	return f(name)
}

// MapEnvironment is an [Environment] backed by a map.
type MapEnvironment map[string]string

// EnvironmentValue implements Environment.
func (m MapEnvironment) EnvironmentValue(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// UnsetError is returned when the token's variable has no value.
// Callers keep the unexpanded path and treat it as unknown.
type UnsetError struct {
	Name string
}

func (e *UnsetError) Error() string {
	return fmt.Sprintf("environment variable $%s is not set", e.Name)
}

// Expander expands and contracts one named variable.
type Expander struct {
	name string
	env  Environment
}

// New returns an Expander for the variable name (without the leading $).
func New(name string, env Environment) *Expander {
	return &Expander{name: strings.TrimPrefix(name, "$"), env: env}
}

// Name returns the variable name.
func (e *Expander) Name() string {
	return e.name
}

// Token returns the canonical token form, e.g. "$JOB".
func (e *Expander) Token() string {
	return "$" + e.name
}

// Value returns the cleaned variable value.
func (e *Expander) Value() (string, error) {
	if e.name == "" || e.env == nil {
		return "", &UnsetError{Name: e.name}
	}
	v, ok := e.env.EnvironmentValue(e.name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &UnsetError{Name: e.name}
	}
	return cleanValue(v), nil
}

// Expand replaces every $NAME and ${NAME} token with the variable value.
// Paths without the token are returned unchanged. When the variable is
// unset the input is returned together with an *UnsetError.
func (e *Expander) Expand(path string) (string, error) {
	if !e.Contains(path) {
		return path, nil
	}
	v, err := e.Value()
	if err != nil {
		return path, err
	}

	var b strings.Builder
	rest := path
	for {
		i, n := e.findToken(rest)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])
		rest = rest[i+n:]
		if v == "/" && strings.HasPrefix(rest, "/") {
			continue
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Contract replaces the variable value with the $NAME token. Absolute
// values only match at the start of the path; relative values match at
// the first path boundary.
func (e *Expander) Contract(path string) (string, error) {
	v, err := e.Value()
	if err != nil {
		return path, err
	}
	if v == "/" {
		if path == "/" {
			return e.Token(), nil
		}
		if strings.HasPrefix(path, "/") {
			return e.Token() + path, nil
		}
		return path, nil
	}

	if filepath.IsAbs(v) {
		if strings.HasPrefix(path, v) && atBoundary(path, len(v)) {
			return e.Token() + path[len(v):], nil
		}
		return path, nil
	}

	for from := 0; from < len(path); {
		i := strings.Index(path[from:], v)
		if i < 0 {
			break
		}
		i += from
		if (i == 0 || isSep(path[i-1])) && atBoundary(path, i+len(v)) {
			return path[:i] + e.Token() + path[i+len(v):], nil
		}
		from = i + 1
	}
	return path, nil
}

// Contains reports whether the path carries the $NAME or ${NAME} token.
func (e *Expander) Contains(path string) bool {
	i, _ := e.findToken(path)
	return i >= 0
}

// findToken returns the index and length of the first token occurrence.
// "$JOBS" does not match the variable "JOB".
func (e *Expander) findToken(s string) (int, int) {
	if e.name == "" {
		return -1, 0
	}
	braced := "${" + e.name + "}"
	plain := "$" + e.name
	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			continue
		}
		if strings.HasPrefix(s[i:], braced) {
			return i, len(braced)
		}
		if strings.HasPrefix(s[i:], plain) {
			end := i + len(plain)
			if end == len(s) || !isNameChar(s[end]) {
				return i, len(plain)
			}
		}
	}
	return -1, 0
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 1 {
		v = strings.TrimRight(v, "/")
		if v == "" {
			return "/"
		}
	}
	return v
}

func atBoundary(path string, end int) bool {
	return end == len(path) || isSep(path[end])
}

func isSep(c byte) bool {
	return c == '/'
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
