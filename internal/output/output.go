// Package output writes command results to stdout. Diagnostics go through
// the log package on stderr, so results stay pipeable.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type printerKey struct{}

// Printer writes tables, paths and JSON.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// WithPrinter stores a Printer for w in ctx.
func WithPrinter(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, printerKey{}, New(w))
}

// FromContext returns the Printer stored in ctx, or one for os.Stdout.
func FromContext(ctx context.Context) *Printer {
	p, ok := ctx.Value(printerKey{}).(*Printer)
	if !ok {
		p = New(os.Stdout)
	}
	return p
}

func (p *Printer) Print(a ...any)                 { fmt.Fprint(p.w, a...) }
func (p *Printer) Printf(format string, a ...any) { fmt.Fprintf(p.w, format, a...) }
func (p *Printer) Println(a ...any)               { fmt.Fprintln(p.w, a...) }

// Lines writes each line followed by a newline.
func (p *Printer) Lines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(p.w, l)
	}
}

// JSON writes v indented by two spaces.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
