// Package notify provides notification functionality for suitecast build results.
package notify

import (
	"fmt"
	"time"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when the build is KO
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when the build is OK
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failures and when a build recovers
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(s); on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	case "":
		return NotifyFailure, nil
	}
	return "", fmt.Errorf("unknown notify policy %q (use always, failure, success or recovery)", s)
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	Suite       string        `json:"suite"`
	TotalTests  int           `json:"total_tests"`
	PassedTests int           `json:"passed_tests"`
	DirtyTests  int           `json:"dirty_tests"`
	Percentage  int           `json:"percentage"`
	BuildOK     bool          `json:"build_ok"`
	Duration    time.Duration `json:"duration"`
	P95         time.Duration `json:"p95"`
	FailedSets  []FailedSet   `json:"failed_sets,omitempty"`
	IsRecovery  bool          `json:"is_recovery,omitempty"`
}

// FailedTests returns the number of tests that did not pass
func (s *RunSummary) FailedTests() int {
	return s.TotalTests - s.PassedTests
}

// FailedSet names a test set that did not fully pass
type FailedSet struct {
	Name   string `json:"name"`
	Total  int    `json:"total"`
	Passed int    `json:"passed"`
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last build was OK
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetLastState seeds the previous build state, e.g. from run history
func (m *Manager) SetLastState(ok bool) {
	m.lastState = ok
}

// Notify sends notifications based on the configured policy
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := false
	currentOK := summary.BuildOK

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentOK
	case NotifySuccess:
		shouldNotify = currentOK
	case NotifyRecovery:
		if !m.lastState && currentOK {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentOK {
			shouldNotify = true
		}
	}

	m.lastState = currentOK

	if !shouldNotify {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			lastErr = fmt.Errorf("%s: %w", n.Name(), err)
		}
	}

	return lastErr
}
