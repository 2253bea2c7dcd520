package domain

import "time"

// UsageLog is an append-only audit record written for every parse attempt,
// successful or not. Failing to write one never fails the parse itself.
type UsageLog struct {
	ID                string    `json:"id"`
	ReceiptID         string    `json:"receiptId"`
	UserID            string    `json:"userId"`
	Model             string    `json:"model"`
	PromptTokens      int       `json:"promptTokens"`
	CompletionTokens  int       `json:"completionTokens"`
	TotalTokens       int       `json:"totalTokens"`
	EstimatedCost     float64   `json:"estimatedCost"` // USD
	FinishReason      string    `json:"finishReason"`
	WasTruncated      bool      `json:"wasTruncated"`
	ItemCount         int       `json:"itemCount"`
	EnhancedCount     int       `json:"enhancedCount"`
	ParsingSuccessful bool      `json:"parsingSuccessful"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
