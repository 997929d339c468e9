package reconcile

import (
	"regexp"
	"strings"
)

// placeholderRe finds frame and tile placeholders in a file name:
// $F, $F4, ${F4}, ####, <UDIM> and printf-style %04d.
var placeholderRe = regexp.MustCompile(`\$\{F\d*\}|\$F\d*|#+|<UDIM>|%0?\d*d`)

// framePattern turns a referenced file name into a regexp matching the
// concrete files of a sequence. ok is false when name has no placeholder.
func framePattern(name string) (*regexp.Regexp, bool) {
	locs := placeholderRe.FindAllStringIndex(name, -1)
	if len(locs) == 0 {
		return nil, false
	}

	var b strings.Builder
	b.WriteString("^")
	last := 0
	found := false
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		// $FOO is a variable, not a frame token
		if strings.HasPrefix(name[start:], "$F") && !strings.HasPrefix(name[start:], "${") &&
			end < len(name) && isIdentChar(name[end]) {
			continue
		}
		b.WriteString(regexp.QuoteMeta(name[last:start]))
		b.WriteString(`-?\d+`)
		last = end
		found = true
	}
	if !found {
		return nil, false
	}
	b.WriteString(regexp.QuoteMeta(name[last:]))
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, false
	}
	return re, true
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// matchFile returns the first of files matched by the referenced name,
// exactly or through frame placeholders.
func matchFile(refName string, files []string) (string, bool) {
	for _, f := range files {
		if f == refName {
			return f, true
		}
	}
	re, ok := framePattern(refName)
	if !ok {
		return "", false
	}
	for _, f := range files {
		if re.MatchString(f) {
			return f, true
		}
	}
	return "", false
}
