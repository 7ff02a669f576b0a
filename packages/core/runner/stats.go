package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// elapsedStats tracks test durations in microseconds
type elapsedStats struct {
	histogram *hdrhistogram.Histogram
}

func newElapsedStats() *elapsedStats {
	return &elapsedStats{
		// 1µs to 1h with 3 significant figures
		histogram: hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
	}
}

func (s *elapsedStats) record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	// values above the highest trackable value are dropped
	_ = s.histogram.RecordValue(us)
}

func (s *elapsedStats) percentile(q float64) time.Duration {
	if s.histogram.TotalCount() == 0 {
		return 0
	}
	return time.Duration(s.histogram.ValueAtQuantile(q)) * time.Microsecond
}

func (s *elapsedStats) max() time.Duration {
	if s.histogram.TotalCount() == 0 {
		return 0
	}
	return time.Duration(s.histogram.Max()) * time.Microsecond
}
