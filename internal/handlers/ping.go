package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/recap/internal/healthcheck"
)

// HealthReporter produces the aggregated health report.
type HealthReporter interface {
	Collect(ctx context.Context) healthcheck.Report
}

type PingHandler struct {
	logger *slog.Logger
	health HealthReporter
}

func NewPingHandler(log *slog.Logger, health HealthReporter) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{
		logger: log.With(slog.String("handler", "ping")),
		health: health,
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.GET("/health", h.Health)
	e.HEAD("/health", h.PingHead)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health always answers 200 while the process is serving; degraded checks
// show up in the body.
func (h *PingHandler) Health(c echo.Context) error {
	if h.health == nil {
		return c.JSON(http.StatusOK, healthcheck.NewAggregator().Collect(c.Request().Context()))
	}
	report := h.health.Collect(c.Request().Context())
	if report.Status != healthcheck.StatusOK {
		h.logger.Warn("health degraded", slog.String("status", report.Status), slog.Int("checks", len(report.Checks)))
	}
	return c.JSON(http.StatusOK, report)
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
