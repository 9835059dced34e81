package healthcheck

import (
	"context"
	"time"
)

// Report is the aggregated result of every registered checker.
type Report struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// Aggregator runs a fixed set of checkers.
type Aggregator struct {
	checkers []Checker
	now      func() time.Time
}

// NewAggregator creates an Aggregator. Nil checkers are skipped.
func NewAggregator(checkers ...Checker) *Aggregator {
	kept := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Aggregator{checkers: kept, now: time.Now}
}

// Collect runs all checkers in registration order.
func (a *Aggregator) Collect(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	checks := []CheckResult{}
	if a != nil {
		for _, c := range a.checkers {
			checks = append(checks, c.ListChecks(ctx)...)
		}
	}
	now := time.Now
	if a != nil && a.now != nil {
		now = a.now
	}
	return Report{
		Status:    Overall(checks),
		Timestamp: now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

// Overall folds check statuses into one. The process answering at all is
// "ok"; a failed check degrades it to "warn" or "error". Unknown results do
// not degrade the status.
func Overall(checks []CheckResult) string {
	status := StatusOK
	for _, c := range checks {
		switch c.Status {
		case StatusError:
			return StatusError
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}
