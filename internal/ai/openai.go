package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"primetime-intel/internal/common/config"
	commonerrors "primetime-intel/internal/common/errors"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/common/metrics"
)

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
}

// NewOpenAIClient builds the client. The API key is required at
// construction time; callers treat a construction failure as "semantic
// tier unavailable", not as a fatal error.
func NewOpenAIClient(cfg config.OpenAIConfig, log logger.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, commonerrors.NewLLMAnalysisError("OPENAI_API_KEY not set")
	}

	return &OpenAIClient{
		cfg: cfg,
		// No client-level timeout; the per-request context carries the
		// deadline.
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerS), 1),
		logger:     log.WithFields(map[string]interface{}{"component": "openai"}),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt and returns the raw model text. Retries
// transient failures with exponential backoff inside the caller's
// deadline, and rate-limits outbound calls to respect provider quotas.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(c.cfg.Timeout))
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", commonerrors.NewLLMTimeoutError(err.Error())
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", commonerrors.NewLLMAnalysisError(fmt.Sprintf("marshal request: %v", err))
	}

	started := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(started).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", commonerrors.NewLLMTimeoutError(ctx.Err().Error())
			}
		}

		content, err := c.doRequest(ctx, body)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", commonerrors.NewLLMTimeoutError(err.Error())
		}
		lastErr = err
	}

	return "", commonerrors.NewLLMAnalysisError(fmt.Sprintf("no successful response after %d attempts: %v", c.cfg.MaxRetries+1, lastErr))
}

func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}
