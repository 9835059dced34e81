package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/memohai/recap/internal/prune"
	"github.com/memohai/recap/internal/retry"
)

const providerOpenAI = "openai"

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	// RetryDelay is the first backoff delay.
	RetryDelay time.Duration
}

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	logger     *slog.Logger
}

func NewOpenAIProvider(log *slog.Logger, cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("provider", providerOpenAI))
	return &OpenAIProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: client,
		retry: retry.Config{
			MaxAttempts:  cfg.MaxRetries + 1,
			InitialDelay: cfg.RetryDelay,
			ShouldRetry:  Retryable,
			Logger:       log,
		},
		logger: log,
	}, nil
}

type completionRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	MaxCompletionTokens *int      `json:"max_completion_tokens,omitempty"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage        `json:"usage"`
	Error *apiErrorBody `json:"error"`
}

// Chat sends one completion request, retrying on 429, 5xx, and transport
// errors.
func (p *OpenAIProvider) Chat(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Model) == "" {
		return Result{}, fmt.Errorf("%w: model is required", ErrBadRequest)
	}
	body, err := json.Marshal(completionRequest{
		Model:               req.Model,
		Messages:            req.Messages,
		MaxCompletionTokens: req.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	start := time.Now()
	var parsed completionResponse
	err = retry.Do(ctx, p.retry, func(ctx context.Context) error {
		var callErr error
		parsed, callErr = p.postCompletion(ctx, body)
		return callErr
	})
	if err != nil {
		p.logger.Error("chat completion failed", slog.String("model", req.Model), slog.Any("error", err))
		return Result{}, err
	}
	if len(parsed.Choices) == 0 {
		return Result{}, ErrEmptyResponse
	}

	choice := parsed.Choices[0]
	if choice.FinishReason == "content_filter" && strings.TrimSpace(choice.Message.Content) == "" {
		return Result{}, ErrContentFiltered
	}
	res := Result{
		Message:      Message{Role: "assistant", Content: choice.Message.Content},
		Model:        parsed.Model,
		Provider:     providerOpenAI,
		FinishReason: choice.FinishReason,
	}
	if res.Model == "" {
		res.Model = req.Model
	}
	if parsed.Usage != nil {
		res.Usage = *parsed.Usage
	}
	p.logger.Info("chat completion generated",
		slog.String("model", res.Model),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("response_length", len(res.Message.Content)),
		slog.Int("total_tokens", res.Usage.TotalTokens),
	)
	return res, nil
}

func (p *OpenAIProvider) postCompletion(ctx context.Context, body []byte) (completionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return completionResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	respBody, status, err := p.do(httpReq)
	if err != nil {
		return completionResponse{}, err
	}
	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if status < 200 || status >= 300 {
			return completionResponse{}, &APIError{StatusCode: status, Message: prune.Excerpt(string(respBody), 300)}
		}
		return completionResponse{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if status < 200 || status >= 300 || parsed.Error != nil {
		return completionResponse{}, newAPIError(status, parsed.Error)
	}
	return parsed, nil
}

// Ping lists models to verify the key and base URL.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	respBody, status, err := p.do(httpReq)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		var parsed struct {
			Error *apiErrorBody `json:"error"`
		}
		_ = json.Unmarshal(respBody, &parsed)
		return newAPIError(status, parsed.Error)
	}
	return nil
}

func (p *OpenAIProvider) do(req *http.Request) ([]byte, int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("openai: read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func newAPIError(status int, body *apiErrorBody) *APIError {
	e := &APIError{StatusCode: status}
	if body != nil {
		e.Message = body.Message
		e.Type = body.Type
		if body.Code != nil {
			e.Code = fmt.Sprint(body.Code)
		}
	}
	return e
}
