package healthcheck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type staticChecker []CheckResult

func (s staticChecker) ListChecks(context.Context) []CheckResult { return s }

func TestOverall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		checks []CheckResult
		want   string
	}{
		{name: "no checks", want: StatusOK},
		{name: "all ok", checks: []CheckResult{{Status: StatusOK}, {Status: StatusOK}}, want: StatusOK},
		{name: "unknown ignored", checks: []CheckResult{{Status: StatusUnknown}}, want: StatusOK},
		{name: "warn", checks: []CheckResult{{Status: StatusOK}, {Status: StatusWarn}}, want: StatusWarn},
		{name: "error wins", checks: []CheckResult{{Status: StatusWarn}, {Status: StatusError}, {Status: StatusOK}}, want: StatusError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Overall(tt.checks))
		})
	}
}

func TestAggregator_Collect(t *testing.T) {
	t.Parallel()

	a := NewAggregator(
		staticChecker{{ID: "discord.session", Status: StatusOK}},
		nil,
		staticChecker{{ID: "conversation.store", Status: StatusWarn}},
	)
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)) }

	report := a.Collect(context.Background())
	assert.Equal(t, StatusWarn, report.Status)
	assert.Equal(t, "2025-06-01T11:00:00Z", report.Timestamp)
	if assert.Len(t, report.Checks, 2) {
		assert.Equal(t, "discord.session", report.Checks[0].ID)
		assert.Equal(t, "conversation.store", report.Checks[1].ID)
	}
}

func TestAggregator_CollectEmpty(t *testing.T) {
	t.Parallel()

	report := NewAggregator().Collect(context.Background())
	assert.Equal(t, StatusOK, report.Status)
	assert.NotNil(t, report.Checks)
	assert.Empty(t, report.Checks)
}
