// Package gemini implements the enrichment model client on Google's Gemini
// API: text embedding for the embedding queue and semantic summarization for
// the semantic queue, both with bounded retry and jittered exponential
// backoff around transient API failures.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/loamdb/loam/internal/config"
	"github.com/loamdb/loam/internal/enrich"
)

// summaryPrompt instructs the model to return the two summary fields as
// JSON; ResponseMIMEType pins the output format.
const summaryPrompt = `Summarize the following content for a context-storage index.
Respond with a JSON object containing exactly two string fields:
  "abstract": one or two sentences capturing what the content is about
  "overview": a short paragraph describing its structure and key points

Content:
%s`

// Client talks to the Gemini API. It implements enrich.Embedder and
// enrich.Summarizer.
type Client struct {
	client *genai.Client
	logger *slog.Logger

	embeddingModel  string
	generationModel string
	maxRetries      int
	baseDelay       time.Duration
}

// NewClient validates cfg and builds a Gemini client.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model cannot be empty", ErrInvalidConfig)
	}
	if cfg.GenerationModel == "" {
		return nil, fmt.Errorf("%w: generation model cannot be empty", ErrInvalidConfig)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	delaySeconds := cfg.RetryDelaySeconds
	if delaySeconds < 1 {
		logger.Warn("invalid retry delay value, using default", "base_delay_seconds", 2)
		delaySeconds = 2
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &Client{
		client:          client,
		logger:          logger,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		maxRetries:      maxRetries,
		baseDelay:       time.Duration(delaySeconds) * time.Second,
	}, nil
}

// Embed computes an embedding vector for text. Implements enrich.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, string, error) {
	if text == "" {
		return nil, "", ErrEmptyInput
	}

	var vector []float32
	err := c.callWithRetry(ctx, "embed", func(ctx context.Context) error {
		resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return fmt.Errorf("%w: no embedding returned", ErrInvalidResponse)
		}
		vector = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return vector, c.embeddingModel, nil
}

// summarySchema mirrors the JSON object requested by summaryPrompt.
type summarySchema struct {
	Abstract string `json:"abstract"`
	Overview string `json:"overview"`
}

// Summarize produces an abstract and overview of content. Implements
// enrich.Summarizer.
func (c *Client) Summarize(ctx context.Context, content string) (enrich.SummaryResult, error) {
	if content == "" {
		return enrich.SummaryResult{}, ErrEmptyInput
	}

	prompt := fmt.Sprintf(summaryPrompt, content)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var parsed summarySchema
	err := c.callWithRetry(ctx, "summarize", func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.generationModel, genai.Text(prompt), cfg)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return fmt.Errorf("%w: no content generated", ErrInvalidResponse)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return fmt.Errorf("%w: empty response text", ErrInvalidResponse)
		}
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return fmt.Errorf("%w: failed to parse summary JSON: %v", ErrInvalidResponse, err)
		}
		if parsed.Abstract == "" {
			return fmt.Errorf("%w: summary is missing the abstract field", ErrInvalidResponse)
		}
		return nil
	})
	if err != nil {
		return enrich.SummaryResult{}, err
	}

	return enrich.SummaryResult{
		Abstract: parsed.Abstract,
		Overview: parsed.Overview,
		Model:    c.generationModel,
	}, nil
}

// callWithRetry invokes fn up to maxRetries+1 times with jittered
// exponential backoff between attempts. Malformed-response and cancellation
// errors are permanent and returned immediately; API call errors are assumed
// transient.
func (c *Client) callWithRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Warn("retrying Gemini API call",
				"operation", op,
				"attempt", attempt+1,
				"max_attempts", c.maxRetries+1,
				"delay", delay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("gemini %s failed after %d attempts: %w", op, c.maxRetries+1, lastErr)
}

// backoff returns the jittered exponential delay before the given retry
// attempt: base * 2^(attempt-1) * (0.5 + rand * 0.5).
func (c *Client) backoff(attempt int) time.Duration {
	base := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(base * jitter)
}

// isTransient classifies an error for retry purposes. Responses we could
// not interpret and cancelled contexts will not improve on retry; anything
// else from the API is assumed transient.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrEmptyInput),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
