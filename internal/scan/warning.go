package scan

import "fmt"

// Warning is a non-fatal problem met during a walk: an unreadable
// directory or a broken link. The walk continues past it.
type Warning struct {
	Path string
	Op   string
	Err  error
}

func (w *Warning) Error() string {
	return fmt.Sprintf("%s %s: %v", w.Op, w.Path, w.Err)
}

func (w *Warning) Unwrap() error { return w.Err }
