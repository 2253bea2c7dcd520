package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/receiptwise/backend/internal/domain"
)

// candidatePoolLimit bounds the slice of the user's purchase history
// consulted for enhancement on each parse.
const candidatePoolLimit = 500

// presignExpiry is how long the image URL handed to the vision model stays valid.
const presignExpiry = 15 * time.Minute

// ParseResult is the outcome of a successful parse request.
type ParseResult struct {
	Receipt       *domain.ParsedReceipt `json:"receipt"`
	ItemCount     int                   `json:"itemCount"`
	EnhancedCount int                   `json:"enhancedCount"`
	Truncated     bool                  `json:"truncated"`
}

// ParseService runs the receipt-parsing pipeline: look up the receipt,
// presign its image for the vision model, normalize the model output,
// enhance it against the user's purchase history, and persist the result.
// Every attempt, success or failure, writes a usage log record.
type ParseService struct {
	receipts   domain.ReceiptRepository
	usageLogs  domain.UsageLogRepository
	vision     domain.VisionClient
	images     domain.ImageStore
	normalizer *Normalizer
}

// NewParseService creates a parse service with its dependencies.
func NewParseService(
	receipts domain.ReceiptRepository,
	usageLogs domain.UsageLogRepository,
	vision domain.VisionClient,
	images domain.ImageStore,
) *ParseService {
	return &ParseService{
		receipts:   receipts,
		usageLogs:  usageLogs,
		vision:     vision,
		images:     images,
		normalizer: NewNormalizer(),
	}
}

// ParseReceipt (re-)parses the receipt's stored image. A re-parse discards
// all previously stored line items for the receipt and replaces them
// wholesale; the caller is expected to fence concurrent re-parses of the
// same receipt.
func (s *ParseService) ParseReceipt(ctx context.Context, receiptID, userID string) (*ParseResult, error) {
	if receiptID == "" {
		return nil, domain.ErrInvalidRequest
	}

	receipt, err := s.receipts.GetReceipt(ctx, receiptID, userID)
	if err != nil {
		return nil, err
	}
	if receipt.ImageKey == "" {
		return nil, domain.ErrReceiptHasNoImage
	}

	imageURL, err := s.images.PresignedURL(ctx, receipt.ImageKey, presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign receipt image: %w", err)
	}

	vision, err := s.vision.ParseReceiptImage(ctx, imageURL)
	if err != nil {
		s.logUsage(ctx, receipt, nil, nil, 0, err)
		return nil, err
	}

	parsed, err := s.normalizer.Normalize(vision.Text, vision.Truncated())
	if err != nil {
		s.logUsage(ctx, receipt, vision, nil, 0, err)
		return nil, err
	}

	candidates, err := s.receipts.RecentItems(ctx, userID, candidatePoolLimit)
	if err != nil {
		// Enhancement is best-effort: a missing pool degrades to pass-through.
		log.Printf("[PARSE] failed to load candidate pool for user %s: %v", userID, err)
		candidates = nil
	}

	items, enhancedCount := EnhanceWithHistory(parsed.Items, candidates)
	parsed.Items = items

	rawPayload, _ := json.Marshal(parsed)
	if err := s.receipts.UpdateParsed(ctx, receipt.ID, parsed.StoreName, parsed.PurchaseDate, parsed.TotalAmount, string(rawPayload)); err != nil {
		s.logUsage(ctx, receipt, vision, parsed, enhancedCount, err)
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	if err := s.receipts.ReplaceItems(ctx, receipt.ID, parsed.Items); err != nil {
		s.logUsage(ctx, receipt, vision, parsed, enhancedCount, err)
		return nil, fmt.Errorf("replace receipt items: %w", err)
	}

	s.logUsage(ctx, receipt, vision, parsed, enhancedCount, nil)

	return &ParseResult{
		Receipt:       parsed,
		ItemCount:     len(parsed.Items),
		EnhancedCount: enhancedCount,
		Truncated:     parsed.Truncated,
	}, nil
}

// logUsage writes the audit record for a parse attempt. Failure to write is
// logged and swallowed so it never masks the outcome of the parse itself.
func (s *ParseService) logUsage(
	ctx context.Context,
	receipt *domain.Receipt,
	vision *domain.VisionResult,
	parsed *domain.ParsedReceipt,
	enhancedCount int,
	parseErr error,
) {
	entry := &domain.UsageLog{
		ReceiptID:         receipt.ID,
		UserID:            receipt.UserID,
		Model:             s.vision.Model(),
		EnhancedCount:     enhancedCount,
		ParsingSuccessful: parseErr == nil,
		CreatedAt:         time.Now(),
	}
	if vision != nil {
		entry.PromptTokens = vision.PromptTokens
		entry.CompletionTokens = vision.CompletionTokens
		entry.TotalTokens = vision.PromptTokens + vision.CompletionTokens
		entry.EstimatedCost = s.vision.EstimateCost(vision.PromptTokens, vision.CompletionTokens)
		entry.FinishReason = vision.FinishReason
		entry.WasTruncated = vision.Truncated()
	}
	if parsed != nil {
		entry.ItemCount = len(parsed.Items)
	}
	if parseErr != nil {
		entry.ErrorMessage = parseErr.Error()
	}

	if err := s.usageLogs.InsertUsageLog(ctx, entry); err != nil {
		log.Printf("[PARSE] failed to write usage log for receipt %s: %v", receipt.ID, err)
	}
}
