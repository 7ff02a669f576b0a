package runner

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/abdul-hamid-achik/suitecast/packages/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callRecorder implements report.Reporter and records each call
type callRecorder struct {
	calls    []string
	outcomes []event.TestOutcome
	dirty    []string
}

func (c *callRecorder) ReportNoSetFound() error {
	c.calls = append(c.calls, "no_set_found")
	return nil
}

func (c *callRecorder) ReportIntro() error {
	c.calls = append(c.calls, "intro")
	return nil
}

func (c *callRecorder) ReportSetIntro(setName, setDoc string) error {
	c.calls = append(c.calls, "set_intro:"+setName)
	return nil
}

func (c *callRecorder) ReportTestOutcome(outcome event.TestOutcome) error {
	c.calls = append(c.calls, fmt.Sprintf("outcome:%t:%d", outcome.Success, outcome.ExitCode))
	c.outcomes = append(c.outcomes, outcome)
	return nil
}

func (c *callRecorder) ReportTestDirtyFailure(exceptionMessage string) error {
	c.calls = append(c.calls, "dirty")
	c.dirty = append(c.dirty, exceptionMessage)
	return nil
}

func (c *callRecorder) ReportSetResult(setName string, testsTotal, testsPassed int) error {
	c.calls = append(c.calls, fmt.Sprintf("set_result:%s:%d/%d", setName, testsPassed, testsTotal))
	return nil
}

func (c *callRecorder) ReportTotalResult(testsTotal, testsPassed int) error {
	c.calls = append(c.calls, fmt.Sprintf("total:%d/%d", testsPassed, testsTotal))
	return nil
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.Equal(t, DefaultShell, r.config.Shell)
		assert.Equal(t, DefaultTimeout, r.config.DefaultTimeout)
		assert.Nil(t, r.limiter)
	})

	t.Run("with rate", func(t *testing.T) {
		r := NewRunner(&Config{Rate: 20})
		assert.NotNil(t, r.limiter)
	})
}

func TestRunner_Run_Lifecycle(t *testing.T) {
	s := &suite.Suite{
		Sets: []*suite.Set{
			{
				Name: "usecase1",
				Tests: []*suite.Test{
					{Doc: "passes", Run: "exit 0"},
					{Doc: "fails", Run: "exit 3"},
					{Doc: "expected code", Run: "exit 4", ExpectCode: 4},
				},
			},
			{Name: "empty"},
			{
				Name: "usecase2",
				Tests: []*suite.Test{
					{Doc: "bad dir", Run: "true", Dir: filepath.Join(t.TempDir(), "missing")},
				},
			},
		},
	}

	rec := &callRecorder{}
	summary, err := NewRunner(nil).Run(context.Background(), s, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"intro",
		"set_intro:usecase1",
		"outcome:true:0",
		"outcome:false:3",
		"outcome:true:4",
		"set_result:usecase1:2/3",
		"set_intro:empty",
		"set_intro:usecase2",
		"dirty",
		"set_result:usecase2:0/1",
		"total:2/4",
	}, rec.calls)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 2, summary.Failed())
	assert.Equal(t, 1, summary.Dirty)
	require.Len(t, summary.Sets, 3)

	pct, err := summary.Percentage()
	require.NoError(t, err)
	assert.Equal(t, 50, pct)
	assert.False(t, summary.BuildOK())

	for _, o := range rec.outcomes {
		assert.GreaterOrEqual(t, o.ElapsedMs, 0.0)
	}
	assert.Greater(t, summary.Max, time.Duration(0))
	assert.LessOrEqual(t, summary.P50, summary.Max)
}

func TestRunner_Run_NoSets(t *testing.T) {
	rec := &callRecorder{}
	summary, err := NewRunner(nil).Run(context.Background(), &suite.Suite{}, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"no_set_found"}, rec.calls)
	assert.Equal(t, 0, summary.Total)
	assert.False(t, summary.BuildOK())
}

func TestRunner_Run_OnlyEmptySets(t *testing.T) {
	rec := &callRecorder{}
	s := &suite.Suite{Sets: []*suite.Set{{Name: "a"}, {Name: "b"}}}

	_, err := NewRunner(nil).Run(context.Background(), s, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "set_intro:a", "set_intro:b"}, rec.calls)
}

func TestRunner_Timeout(t *testing.T) {
	rec := &callRecorder{}
	s := &suite.Suite{Sets: []*suite.Set{{
		Name:  "slow",
		Tests: []*suite.Test{{Doc: "sleeps", Run: "sleep 5", Timeout: 50 * time.Millisecond}},
	}}}

	summary, err := NewRunner(nil).Run(context.Background(), s, rec)
	require.NoError(t, err)

	require.Len(t, rec.dirty, 1)
	assert.Contains(t, rec.dirty[0], "timed out")
	assert.Equal(t, 1, summary.Dirty)
	assert.Equal(t, 0, summary.Passed)
}

func TestRunner_Env(t *testing.T) {
	rec := &callRecorder{}
	s := &suite.Suite{Sets: []*suite.Set{{
		Name: "env",
		Tests: []*suite.Test{
			{Doc: "suite env", Run: `test "$GLOBAL" = one`},
			{Doc: "test env wins", Run: `test "$MODE" = strict`, Env: map[string]string{"MODE": "strict"}},
		},
	}}}

	r := NewRunner(&Config{Env: map[string]string{"GLOBAL": "one", "MODE": "loose"}})
	summary, err := r.Run(context.Background(), s, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Passed)
	assert.True(t, summary.BuildOK())
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &callRecorder{}
	s := &suite.Suite{Sets: []*suite.Set{{
		Name:  "a",
		Tests: []*suite.Test{{Doc: "never runs", Run: "true"}},
	}}}

	_, err := NewRunner(nil).Run(ctx, s, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"intro", "set_intro:a"}, rec.calls)
}

func TestRunner_WithTerminalReporter(t *testing.T) {
	var buf bytes.Buffer
	rep, err := report.New(report.ModeTerminal, report.Options{
		Verbosity: 1,
		Table:     config.DefaultTable(),
		Writer:    &buf,
	})
	require.NoError(t, err)

	s := &suite.Suite{Sets: []*suite.Set{{
		Name:  "usecase1",
		Doc:   "Shell checks",
		Tests: []*suite.Test{{Doc: "ok", Run: "true"}, {Doc: "ok too", Run: "true"}},
	}}}

	_, err = NewRunner(nil).Run(context.Background(), s, rep)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Launching tests\n"))
	assert.Contains(t, out, "usecase1: Shell checks")
	assert.Contains(t, out, "Total for usecase1 : 2 / 2 successful tests (100%)")
	assert.Contains(t, out, "[BUILD: OK]")
}

func TestElapsedStats(t *testing.T) {
	s := newElapsedStats()
	assert.Equal(t, time.Duration(0), s.percentile(50))
	assert.Equal(t, time.Duration(0), s.max())

	for i := 1; i <= 100; i++ {
		s.record(time.Duration(i) * time.Millisecond)
	}

	assert.InDelta(t, float64(50*time.Millisecond), float64(s.percentile(50)), float64(time.Millisecond))
	assert.InDelta(t, float64(95*time.Millisecond), float64(s.percentile(95)), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.max()), float64(time.Millisecond))
}
