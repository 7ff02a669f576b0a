package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/abdul-hamid-achik/suitecast/packages/output"
)

// Reporter receives test lifecycle notifications. Calls are made one at a
// time, in lifecycle order: Intro, then per set SetIntro, TestOutcome* and
// SetResult, then TotalResult.
//
// Normal operation never returns an error. ReportSetResult and
// ReportTotalResult return *event.InvalidResultError for impossible counts,
// and the terminal variant returns write errors.
type Reporter interface {
	ReportNoSetFound() error
	ReportIntro() error
	ReportSetIntro(setName, setDoc string) error
	ReportTestOutcome(outcome event.TestOutcome) error
	ReportTestDirtyFailure(exceptionMessage string) error
	ReportSetResult(setName string, testsTotal, testsPassed int) error
	ReportTotalResult(testsTotal, testsPassed int) error
}

// Verbosity gates which notifications are emitted
type Verbosity int

// ShowSets reports whether set intros and set results are emitted
func (v Verbosity) ShowSets() bool {
	return v >= 1
}

// ShowTests reports whether per-test outcomes are emitted
func (v Verbosity) ShowTests() bool {
	return v >= 2
}

type emitter interface {
	emit(ev event.Event) error
}

// ErrNotConstructed is returned by a reporter that was not built by its
// constructor
var ErrNotConstructed = errors.New("report: reporter used without its constructor")

// gate implements Reporter on top of an emitter, dropping the events the
// verbosity level hides.
type gate struct {
	verbosity Verbosity
	out       emitter
}

func (g gate) dispatch(ev event.Event) error {
	if g.out == nil {
		return ErrNotConstructed
	}
	return g.out.emit(ev)
}

func (g gate) ReportNoSetFound() error {
	return g.dispatch(event.NoSetFound{})
}

func (g gate) ReportIntro() error {
	return g.dispatch(event.Intro{})
}

func (g gate) ReportSetIntro(setName, setDoc string) error {
	if !g.verbosity.ShowSets() {
		return nil
	}
	return g.dispatch(event.SetIntro{SetName: setName, SetDoc: setDoc})
}

func (g gate) ReportTestOutcome(outcome event.TestOutcome) error {
	if !g.verbosity.ShowTests() {
		return nil
	}
	return g.dispatch(outcome)
}

func (g gate) ReportTestDirtyFailure(exceptionMessage string) error {
	if !g.verbosity.ShowTests() {
		return nil
	}
	return g.dispatch(event.DirtyFailure{ExceptionMessage: exceptionMessage})
}

// ReportSetResult rejects invalid counts even when the set result is hidden.
func (g gate) ReportSetResult(setName string, testsTotal, testsPassed int) error {
	res := event.SetResult{SetName: setName, TestsTotal: testsTotal, TestsPassed: testsPassed}
	if _, err := res.Percentage(); err != nil {
		return err
	}
	if !g.verbosity.ShowSets() {
		return nil
	}
	return g.dispatch(res)
}

func (g gate) ReportTotalResult(testsTotal, testsPassed int) error {
	res := event.TotalResult{TestsTotal: testsTotal, TestsPassed: testsPassed}
	build, err := res.Build()
	if err != nil {
		return err
	}
	if err := g.dispatch(res); err != nil {
		return err
	}
	return g.dispatch(build)
}

// Mode selects the reporter implementation
type Mode string

const (
	ModeTerminal Mode = "terminal"
	ModeStream   Mode = "stream"
)

// ParseMode converts a CLI value into a Mode. "console" and "json" are
// accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "terminal", "console":
		return ModeTerminal, nil
	case "stream", "json":
		return ModeStream, nil
	}
	return "", fmt.Errorf("unknown output mode %q (use terminal or stream)", s)
}

// Options carries everything the factory needs to build a reporter
type Options struct {
	Verbosity    Verbosity
	Table        config.Table
	ColorCapable bool      // terminal only
	Writer       io.Writer // terminal only, defaults to os.Stdout
	Channel      Channel   // stream only, required
}

// New builds the reporter for mode. A template table missing any required
// key fails here with *output.TemplateKeyError instead of mid-run.
func New(mode Mode, opts Options) (Reporter, error) {
	f, err := output.NewFormatter(opts.Table)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	switch mode {
	case ModeTerminal:
		termOpts := []TerminalOption{
			WithVerbosity(opts.Verbosity),
			WithColor(opts.ColorCapable),
		}
		if opts.Writer != nil {
			termOpts = append(termOpts, WithWriter(opts.Writer))
		}
		return NewTerminalReporter(f, termOpts...), nil

	case ModeStream:
		if opts.Channel == nil {
			return nil, fmt.Errorf("stream reporter requires an outbound channel")
		}
		return NewStreamReporter(f, opts.Channel, StreamWithVerbosity(opts.Verbosity)), nil
	}

	return nil, fmt.Errorf("unknown output mode %q", mode)
}
