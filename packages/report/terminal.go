package report

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/abdul-hamid-achik/suitecast/packages/output"
)

// TerminalReporter writes one colorized line or block per notification.
// Build it with NewTerminalReporter; the zero value returns ErrNotConstructed.
type TerminalReporter struct {
	gate
	formatter    *output.Formatter
	writer       io.Writer
	colorCapable bool
}

type TerminalOption func(*TerminalReporter)

func NewTerminalReporter(f *output.Formatter, opts ...TerminalOption) *TerminalReporter {
	r := &TerminalReporter{
		formatter: f,
		writer:    os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.gate.out = r
	return r
}

func WithWriter(w io.Writer) TerminalOption {
	return func(r *TerminalReporter) {
		r.writer = w
	}
}

func WithVerbosity(v Verbosity) TerminalOption {
	return func(r *TerminalReporter) {
		r.verbosity = v
	}
}

// WithColor records whether the output is a color-capable terminal
func WithColor(capable bool) TerminalOption {
	return func(r *TerminalReporter) {
		r.colorCapable = capable
	}
}

func (r *TerminalReporter) emit(ev event.Event) error {
	text, err := r.formatter.Text(ev, r.colorCapable)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.writer, text)
	return err
}
