package summarize

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedRange matches any *UnsupportedRangeError.
var ErrUnsupportedRange = errors.New("unsupported range")

// UnsupportedRangeError is returned for a range token outside SupportedRanges.
type UnsupportedRangeError struct {
	Range string
}

func (e *UnsupportedRangeError) Error() string {
	return fmt.Sprintf("unsupported range: %q", e.Range)
}

func (e *UnsupportedRangeError) Is(target error) bool {
	return target == ErrUnsupportedRange
}

// Window is a resolved [From, To) interval.
type Window struct {
	From  time.Time
	To    time.Time
	Label string
}

type rangeSpec struct {
	token    string
	duration time.Duration
	label    string
}

const day = 24 * time.Hour

var ranges = []rangeSpec{
	{"1h", time.Hour, "last 1 hour"},
	{"6h", 6 * time.Hour, "last 6 hours"},
	{"24h", 24 * time.Hour, "last 24 hours"},
	{"3d", 3 * day, "last 3 days"},
	{"7d", 7 * day, "last 7 days"},
	{"30d", 30 * day, "last 30 days"},
}

// SupportedRanges returns the accepted range tokens, shortest first.
func SupportedRanges() []string {
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, r.token)
	}
	return out
}

// RangeLabel returns the human label of token, or the token itself.
func RangeLabel(token string) string {
	for _, r := range ranges {
		if r.token == token {
			return r.label
		}
	}
	return token
}

// ResolveRange maps a range token to the window ending at now.
func ResolveRange(token string, now time.Time) (Window, error) {
	for _, r := range ranges {
		if r.token == token {
			return Window{From: now.Add(-r.duration), To: now, Label: r.label}, nil
		}
	}
	return Window{}, &UnsupportedRangeError{Range: token}
}
