package usecase

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/backend/internal/domain"
)

// ReceiptService handles receipt lifecycle outside of parsing: image upload,
// retrieval and deletion.
type ReceiptService struct {
	receipts domain.ReceiptRepository
	images   domain.ImageStore
}

// NewReceiptService creates a receipt service with its dependencies.
func NewReceiptService(receipts domain.ReceiptRepository, images domain.ImageStore) *ReceiptService {
	return &ReceiptService{receipts: receipts, images: images}
}

// UploadReceipt stores the image under a user-scoped key and creates the
// receipt row. The receipt stays unparsed until a parse request comes in.
func (s *ReceiptService) UploadReceipt(
	ctx context.Context,
	userID, filename, contentType string,
	reader io.Reader,
	size int64,
) (*domain.Receipt, error) {
	if userID == "" {
		return nil, domain.ErrInvalidRequest
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%s%s", userID, id, path.Ext(filename))

	if err := s.images.Upload(ctx, key, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("upload receipt image: %w", err)
	}

	receipt := &domain.Receipt{
		ID:        id,
		UserID:    userID,
		ImageKey:  key,
		CreatedAt: time.Now(),
	}
	if err := s.receipts.CreateReceipt(ctx, receipt); err != nil {
		// Don't leave an orphaned object behind if the row insert failed.
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			log.Printf("[RECEIPT] failed to clean up image %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	return receipt, nil
}

// GetReceipt returns a user's receipt by ID.
func (s *ReceiptService) GetReceipt(ctx context.Context, id, userID string) (*domain.Receipt, error) {
	return s.receipts.GetReceipt(ctx, id, userID)
}

// DeleteReceipt removes the receipt, its line items (cascade) and its image.
// Image deletion is best-effort: a storage failure does not block removal of
// the record.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, id, userID string) error {
	receipt, err := s.receipts.GetReceipt(ctx, id, userID)
	if err != nil {
		return err
	}

	if receipt.ImageKey != "" {
		if err := s.images.Delete(ctx, receipt.ImageKey); err != nil {
			log.Printf("[RECEIPT] failed to delete image %s: %v", receipt.ImageKey, err)
		}
	}

	return s.receipts.DeleteReceipt(ctx, id, userID)
}
