package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/recap/internal/chat"
)

// ErrNoChunks is returned when Summarize is called without input.
var ErrNoChunks = errors.New("no chunks to summarize")

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	DefaultModel   string
	MaxTokens      int
	ReduceMaxWords int
	SystemPrompt   string
}

// Orchestrator summarizes chunks one by one and merges the partials with a
// final reduce call.
type Orchestrator struct {
	provider chat.Provider
	cfg      OrchestratorConfig
	logger   *slog.Logger
}

func NewOrchestrator(log *slog.Logger, provider chat.Provider, cfg OrchestratorConfig) *Orchestrator {
	if cfg.ReduceMaxWords <= 0 {
		cfg.ReduceMaxWords = DefaultReduceMaxWords
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = SystemPrompt
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		logger:   log.With(slog.String("service", "summarize_orchestrator")),
	}
}

// Summarize returns the trimmed summary of chunks. Calls are sequential and
// in order; the first failure aborts the run.
func (o *Orchestrator) Summarize(ctx context.Context, chunks []string, sc SummaryContext) (string, error) {
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}
	if len(chunks) == 1 {
		return o.complete(ctx, sc.Model, chunkPrompt(sc, chunks[0]))
	}

	partials := make([]string, 0, len(chunks))
	for i, c := range chunks {
		part, err := o.complete(ctx, sc.Model, chunkPrompt(sc, c))
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, part)
		o.logger.Debug("chunk summarized", slog.Int("chunk", i+1), slog.Int("total", len(chunks)))
	}

	merged, err := o.complete(ctx, sc.Model, reducePrompt(partials, o.cfg.ReduceMaxWords))
	if err != nil {
		return "", fmt.Errorf("reduce %d partial summaries: %w", len(partials), err)
	}
	return merged, nil
}

func (o *Orchestrator) complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = o.cfg.DefaultModel
	}
	req := chat.Request{
		Model: model,
		Messages: []chat.Message{
			{Role: "system", Content: o.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	if o.cfg.MaxTokens > 0 {
		req.MaxTokens = chat.IntPtr(o.cfg.MaxTokens)
	}
	res, err := o.provider.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Message.Content), nil
}
