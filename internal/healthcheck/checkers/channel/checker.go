package channelchecker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memohai/recap/internal/channel"
	"github.com/memohai/recap/internal/healthcheck"
)

const (
	checkTypeChannelConnection = "channel.connection"
	// Gateway heartbeats above this are reported as a warning.
	slowHeartbeat = 2 * time.Second
)

// ConnectionObserver reads the runtime channel connection status.
type ConnectionObserver interface {
	ConnectionStatus() channel.ConnectionStatus
}

// Checker evaluates channel connection health checks.
type Checker struct {
	logger   *slog.Logger
	observer ConnectionObserver
}

// NewChecker creates a channel health checker.
func NewChecker(log *slog.Logger, observer ConnectionObserver) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:   log.With(slog.String("checker", "healthcheck_channel")),
		observer: observer,
	}
}

// ListChecks reports the connection state of the observed channel.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return []healthcheck.CheckResult{}
	}
	if c.observer == nil {
		c.logger.Warn("channel healthcheck dependency is unavailable")
		return []healthcheck.CheckResult{
			{
				ID:      checkTypeChannelConnection + ".service",
				Type:    checkTypeChannelConnection,
				Status:  healthcheck.StatusWarn,
				Summary: "Channel checker service is not available.",
				Detail:  "connection observer is nil",
			},
		}
	}

	status := c.observer.ConnectionStatus()
	channelType := strings.TrimSpace(status.ChannelType.String())
	if channelType == "" {
		channelType = "unknown"
	}
	item := healthcheck.CheckResult{
		ID:      checkTypeChannelConnection + "." + channelType,
		Type:    checkTypeChannelConnection,
		Status:  healthcheck.StatusError,
		Summary: fmt.Sprintf("Channel %s connection is down.", channelType),
		Metadata: map[string]any{
			"channel_type": channelType,
			"running":      status.Running,
		},
	}
	if !status.UpdatedAt.IsZero() {
		item.Metadata["updated_at"] = status.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	switch {
	case status.Running && status.Latency > slowHeartbeat:
		item.Status = healthcheck.StatusWarn
		item.Summary = fmt.Sprintf("Channel %s heartbeat is slow.", channelType)
		item.Metadata["latency_ms"] = status.Latency.Milliseconds()
	case status.Running:
		item.Status = healthcheck.StatusOK
		item.Summary = fmt.Sprintf("Channel %s is connected.", channelType)
		item.Metadata["latency_ms"] = status.Latency.Milliseconds()
	case status.UpdatedAt.IsZero():
		item.Status = healthcheck.StatusUnknown
		item.Summary = fmt.Sprintf("Channel %s has not connected yet.", channelType)
	case strings.TrimSpace(status.LastError) != "":
		item.Summary = fmt.Sprintf("Channel %s connection failed.", channelType)
		item.Detail = strings.TrimSpace(status.LastError)
	}
	return []healthcheck.CheckResult{item}
}
