package runner

import (
	"context"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/abdul-hamid-achik/suitecast/packages/report"
	"golang.org/x/time/rate"
)

const (
	// DefaultShell runs each test command
	DefaultShell = "sh"
	// DefaultTimeout applies to tests that set no timeout of their own
	DefaultTimeout = 5 * time.Minute
)

type Runner struct {
	config  *Config
	limiter *rate.Limiter
}

type Config struct {
	Shell          string
	DefaultTimeout time.Duration
	Env            map[string]string
	// Rate caps how many tests start per second. Zero means no cap.
	Rate float64
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}

	r := &Runner{config: cfg}
	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return r
}

// SetSummary holds the counts of one finished set
type SetSummary struct {
	Name   string
	Total  int
	Passed int
	Tests  []*TestResult
}

// Summary describes a finished run
type Summary struct {
	Suite    string
	Sets     []*SetSummary
	Total    int
	Passed   int
	Dirty    int
	Duration time.Duration
	P50      time.Duration
	P95      time.Duration
	Max      time.Duration
}

// Failed returns the number of tests that did not pass
func (s *Summary) Failed() int {
	return s.Total - s.Passed
}

// Percentage returns the share of passed tests. It fails when no test ran.
func (s *Summary) Percentage() (int, error) {
	return event.Percentage(s.Total, s.Passed)
}

// BuildOK reports whether every test passed. A run without tests is not OK.
func (s *Summary) BuildOK() bool {
	pct, err := s.Percentage()
	return err == nil && pct == 100
}

// Run executes every set of s in order and reports progress to rep.
//
// Sets without tests get no set result and a run without tests gets no
// total result, since neither has a defined percentage.
func (r *Runner) Run(ctx context.Context, s *suite.Suite, rep report.Reporter) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Suite: s.DisplayName()}

	if len(s.Sets) == 0 {
		return summary, rep.ReportNoSetFound()
	}

	if err := rep.ReportIntro(); err != nil {
		return summary, err
	}

	stats := newElapsedStats()

	for _, set := range s.Sets {
		setSummary, err := r.runSet(ctx, set, rep, stats)
		if setSummary != nil {
			summary.Sets = append(summary.Sets, setSummary)
			summary.Total += setSummary.Total
			summary.Passed += setSummary.Passed
			for _, t := range setSummary.Tests {
				if t.Dirty != nil {
					summary.Dirty++
				}
			}
		}
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	summary.P50 = stats.percentile(50)
	summary.P95 = stats.percentile(95)
	summary.Max = stats.max()

	if summary.Total == 0 {
		return summary, nil
	}
	return summary, rep.ReportTotalResult(summary.Total, summary.Passed)
}

func (r *Runner) runSet(ctx context.Context, set *suite.Set, rep report.Reporter, stats *elapsedStats) (*SetSummary, error) {
	if err := rep.ReportSetIntro(set.Name, set.Doc); err != nil {
		return nil, err
	}

	result := &SetSummary{Name: set.Name}

	for _, t := range set.Tests {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tr := r.executeShellCommand(ctx, t)
		result.Tests = append(result.Tests, tr)
		result.Total++

		if tr.Dirty != nil {
			if err := rep.ReportTestDirtyFailure(tr.Dirty.Error()); err != nil {
				return result, err
			}
			continue
		}

		stats.record(tr.Elapsed)
		if tr.Passed {
			result.Passed++
		}

		err := rep.ReportTestOutcome(event.TestOutcome{
			Success:   tr.Passed,
			ExitCode:  tr.ExitCode,
			ElapsedMs: float64(tr.Elapsed.Microseconds()) / 1000,
			Doc:       tr.Doc,
		})
		if err != nil {
			return result, err
		}
	}

	if result.Total == 0 {
		return result, nil
	}
	return result, rep.ReportSetResult(set.Name, result.Total, result.Passed)
}
