package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/receiptwise/backend/internal/domain"
)

// Per-token pricing for the default vision model, USD per million tokens.
const (
	promptCostPerMillion     = 2.50
	completionCostPerMillion = 10.00
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 2000
	maxAttempts      = 3
)

// Client calls the OpenAI chat-completions API with a receipt image and the
// structural extraction prompt, returning the raw text plus finish-reason
// and token-usage metadata. Normalization of the text happens downstream.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new OpenAI vision client.
func NewClient(apiKey, baseURL, model string) *Client {
	if model == "" {
		model = defaultModel
	}

	// Keep well under the account tier's request-per-minute limit.
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   defaultMaxTokens,
		rateLimiter: limiter,
	}
}

// SetDebug enables request/response logging.
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// EstimateCost returns the estimated USD cost of a call at fixed per-token rates.
func (c *Client) EstimateCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*promptCostPerMillion/1e6 +
		float64(completionTokens)*completionCostPerMillion/1e6
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ParseReceiptImage sends the receipt image to the vision model and returns
// the raw completion. Transient failures are retried with exponential
// backoff; the finish reason is passed through so the caller can gate
// truncation repair on it.
func (c *Client) ParseReceiptImage(ctx context.Context, receiptImageURL string) (*domain.VisionResult, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: receiptPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: receiptImageURL}},
				},
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, endpoint, payload)
		if err != nil {
			if c.debug {
				log.Printf("[OPENAI] request error (attempt %d): %v", attempt, err)
			}
			lastErr = err
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if c.debug {
				log.Printf("[OPENAI] API error (attempt %d) - status: %d, body: %s", attempt, resp.StatusCode, string(body))
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrVisionAPIFailure, resp.StatusCode)
			if !retryableStatus(resp.StatusCode) {
				return nil, lastErr
			}
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		var chatResp chatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return nil, fmt.Errorf("%w: response contained no choices", domain.ErrVisionAPIFailure)
		}

		choice := chatResp.Choices[0]
		if c.debug {
			log.Printf("[OPENAI] finish_reason=%s prompt_tokens=%d completion_tokens=%d",
				choice.FinishReason, chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
		}

		return &domain.VisionResult{
			Text:             choice.Message.Content,
			FinishReason:     choice.FinishReason,
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		}, nil
	}

	return nil, lastErr
}

// doRequest executes an HTTP POST with the proper headers.
func (c *Client) doRequest(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "Receiptwise/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVisionAPIFailure, err)
	}

	return resp, nil
}

// retryableStatus reports whether a non-200 status is worth another attempt.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// exponentialBackoff returns the wait before the next attempt: 500ms, 1s, 2s.
func exponentialBackoff(attempt int) time.Duration {
	return 500 * time.Millisecond << (attempt - 1)
}

func sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(exponentialBackoff(attempt)):
		return true
	case <-ctx.Done():
		return false
	}
}
