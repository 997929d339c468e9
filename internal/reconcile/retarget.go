package reconcile

import (
	"path/filepath"
	"strings"
)

// Retarget returns the path a reference into from should take to point at
// to. The referenced file name is carried over with the version segment
// swapped (flip_v001.$F4.bgeo.sc -> flip_v002.$F4.bgeo.sc) when such a file
// exists in to; otherwise to's representative path is used.
func Retarget(expanded string, from, to *Version) string {
	name := filepath.Base(expanded)
	if from != nil {
		name = replaceBounded(name, from.Segment, to.Segment)
		if from.Token != from.Segment && to.Token != to.Segment {
			name = replaceBounded(name, from.Token, to.Token)
		}
	}
	if _, ok := matchFile(name, to.Files); ok {
		return filepath.Join(to.Dir, name)
	}
	return to.Path
}

// replaceBounded replaces old with repl where old is not part of a longer
// digit run, so frame numbers survive.
func replaceBounded(s, old, repl string) string {
	if old == "" || old == repl {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], old)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		j += i
		end := j + len(old)
		bounded := (j == 0 || !isDigitByte(s[j-1]) || !isDigitByte(old[0])) &&
			(end == len(s) || !isDigitByte(s[end]) || !isDigitByte(old[len(old)-1]))
		b.WriteString(s[i:j])
		if bounded {
			b.WriteString(repl)
		} else {
			b.WriteString(old)
		}
		i = end
	}
	return b.String()
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}
