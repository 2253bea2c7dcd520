package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key", "https://api.openai.com", "gpt-4o")

	assert.NotNil(t, client)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, "https://api.openai.com", client.baseURL)
	assert.Equal(t, "gpt-4o", client.model)
	assert.Equal(t, defaultMaxTokens, client.maxTokens)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestNewClient_DefaultModel(t *testing.T) {
	client := NewClient("test-api-key", "https://api.openai.com", "")

	assert.Equal(t, defaultModel, client.Model())
}

func TestSetDebug(t *testing.T) {
	client := NewClient("test-api-key", "https://api.openai.com", "gpt-4o")

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestEstimateCost(t *testing.T) {
	client := NewClient("test-api-key", "https://api.openai.com", "gpt-4o")

	assert.Equal(t, 0.0, client.EstimateCost(0, 0))
	// 1M prompt tokens at $2.50, 1M completion tokens at $10.00
	assert.InDelta(t, 12.50, client.EstimateCost(1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.00475, client.EstimateCost(900, 250), 1e-9)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, exponentialBackoff(1))
	assert.Equal(t, 1*time.Second, exponentialBackoff(2))
	assert.Equal(t, 2*time.Second, exponentialBackoff(3))
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(http.StatusTooManyRequests))
	assert.True(t, retryableStatus(http.StatusInternalServerError))
	assert.True(t, retryableStatus(http.StatusBadGateway))
	assert.False(t, retryableStatus(http.StatusBadRequest))
	assert.False(t, retryableStatus(http.StatusUnauthorized))
	assert.False(t, retryableStatus(http.StatusNotFound))
}

func chatCompletionBody(content, finishReason string, promptTokens, completionTokens int) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"content": content},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
		},
	}
}

func TestParseReceiptImage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, float64(0), req.Temperature)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "text", req.Messages[0].Content[0].Type)
		assert.NotEmpty(t, req.Messages[0].Content[0].Text)
		assert.Equal(t, "image_url", req.Messages[0].Content[1].Type)
		require.NotNil(t, req.Messages[0].Content[1].ImageURL)
		assert.Equal(t, "https://store.example/receipt.jpg", req.Messages[0].Content[1].ImageURL.URL)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody(`{"items":[]}`, "stop", 900, 120))
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o")

	result, err := client.ParseReceiptImage(context.Background(), "https://store.example/receipt.jpg")
	require.NoError(t, err)

	assert.Equal(t, `{"items":[]}`, result.Text)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 900, result.PromptTokens)
	assert.Equal(t, 120, result.CompletionTokens)
	assert.False(t, result.Truncated())
}

func TestParseReceiptImage_TruncatedFinishReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody(`{"items":[{"a":1},{"b`, "length", 900, 2000))
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o")

	result, err := client.ParseReceiptImage(context.Background(), "https://store.example/receipt.jpg")
	require.NoError(t, err)

	assert.Equal(t, domain.FinishReasonLength, result.FinishReason)
	assert.True(t, result.Truncated())
}

func TestParseReceiptImage_RetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody(`{"items":[]}`, "stop", 100, 10))
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o")

	result, err := client.ParseReceiptImage(context.Background(), "https://store.example/receipt.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, `{"items":[]}`, result.Text)
}

func TestParseReceiptImage_GivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o")

	_, err := client.ParseReceiptImage(context.Background(), "https://store.example/receipt.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVisionAPIFailure))
	assert.Equal(t, maxAttempts, attempts)
}

func TestParseReceiptImage_NonRetryableStatusFailsFast(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-api-key", server.URL, "gpt-4o")

	_, err := client.ParseReceiptImage(context.Background(), "https://store.example/receipt.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVisionAPIFailure))
	assert.Equal(t, 1, attempts)
}

func TestParseReceiptImage_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[],"usage":{"prompt_tokens":0,"completion_tokens":0}}`))
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o")

	_, err := client.ParseReceiptImage(context.Background(), "https://store.example/receipt.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVisionAPIFailure))
}

func TestParseReceiptImage_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ParseReceiptImage(ctx, "https://store.example/receipt.jpg")
	require.Error(t, err)
}
