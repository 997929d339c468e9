package scan

import (
	"path/filepath"
	"strings"
)

// compound extensions written by simulation tools, longest first.
var compoundExts = []string{".bgeo.sc", ".bgeo.gz", ".bgeo.lzma", ".geo.sc", ".geo.gz", ".vdb.sc"}

// Ext returns the lower-cased extension of a cache file name, keeping
// compound extensions such as ".bgeo.sc" whole.
func Ext(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range compoundExts {
		if strings.HasSuffix(lower, ext) && len(lower) > len(ext) {
			return ext
		}
	}
	return filepath.Ext(lower)
}

// Ext returns the candidate's extension.
func (c Candidate) Ext() string {
	return Ext(c.Name)
}
