// Package logx holds the process logger. Reporter output goes to stdout or
// the remote channel; diagnostics such as dropped messages go here.
package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

// Configure sets where diagnostics go and how much is logged. Verbose
// enables debug output with timestamps.
func Configure(w io.Writer, verbose bool) {
	if w == nil {
		w = io.Discard
	}
	logger.SetOutput(w)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

// Logger returns the shared logger
func Logger() *logrus.Logger {
	return logger
}

// WithComponent returns an entry tagged with the emitting component
func WithComponent(name string) *logrus.Entry {
	return logger.WithField("component", name)
}
