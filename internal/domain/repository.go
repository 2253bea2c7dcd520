package domain

import (
	"context"
	"io"
	"time"
)

// ReceiptRepository defines persistence for receipts and their line items.
type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, receipt *Receipt) error
	GetReceipt(ctx context.Context, id, userID string) (*Receipt, error)
	DeleteReceipt(ctx context.Context, id, userID string) error

	// UpdateParsed updates the receipt header fields after a successful parse.
	UpdateParsed(ctx context.Context, id, storeName, purchaseDate string, totalAmount float64, rawText string) error

	// ReplaceItems atomically discards all existing line items for the
	// receipt and inserts the given ones in order.
	ReplaceItems(ctx context.Context, receiptID string, items []ParsedLineItem) error

	// RecentItems returns up to limit of the user's most recently stored line
	// items with non-empty receipt text, newest first.
	RecentItems(ctx context.Context, userID string, limit int) ([]MatchCandidate, error)
}

// UsageLogRepository defines persistence for parse-attempt audit records.
type UsageLogRepository interface {
	InsertUsageLog(ctx context.Context, entry *UsageLog) error
}

// VisionClient defines the interface for the vision model that extracts
// structured line items from a receipt image.
type VisionClient interface {
	ParseReceiptImage(ctx context.Context, imageURL string) (*VisionResult, error)
	Model() string
	EstimateCost(promptTokens, completionTokens int) float64
}

// ImageStore defines the interface for the object store holding receipt images.
type ImageStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
