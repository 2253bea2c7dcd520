package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/receiptwise/backend/internal/domain"
)

// ReceiptRepo implements domain.ReceiptRepository and
// domain.UsageLogRepository on top of Postgres.
type ReceiptRepo struct {
	db *DB
}

// NewReceiptRepo creates a Postgres-backed receipt repository.
func NewReceiptRepo(db *DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// CreateReceipt inserts a new receipt record.
func (r *ReceiptRepo) CreateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO receipts (id, user_id, store_name, purchase_date, total_amount, image_key, raw_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, receipt.ID, receipt.UserID, receipt.StoreName, receipt.PurchaseDate,
		receipt.TotalAmount, receipt.ImageKey, receipt.RawText, receipt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID, scoped to its owner.
func (r *ReceiptRepo) GetReceipt(ctx context.Context, id, userID string) (*domain.Receipt, error) {
	receipt := &domain.Receipt{}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, store_name, purchase_date, total_amount, image_key, raw_text, created_at
		FROM receipts
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&receipt.ID, &receipt.UserID, &receipt.StoreName, &receipt.PurchaseDate,
		&receipt.TotalAmount, &receipt.ImageKey, &receipt.RawText, &receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, err
	}

	return receipt, nil
}

// DeleteReceipt removes a receipt; line items cascade.
func (r *ReceiptRepo) DeleteReceipt(ctx context.Context, id, userID string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM receipts WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReceiptNotFound
	}
	return nil
}

// UpdateParsed updates the receipt header after a successful parse.
func (r *ReceiptRepo) UpdateParsed(ctx context.Context, id, storeName, purchaseDate string, totalAmount float64, rawText string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE receipts
		SET store_name = $2, purchase_date = $3, total_amount = $4, raw_text = $5
		WHERE id = $1
	`, id, storeName, purchaseDate, totalAmount, rawText)
	if err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	return nil
}

// ReplaceItems discards all line items for the receipt and inserts the given
// ones in order, in a single transaction.
func (r *ReceiptRepo) ReplaceItems(ctx context.Context, receiptID string, items []domain.ParsedLineItem) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM receipt_items WHERE receipt_id = $1`, receiptID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(`
			INSERT INTO receipt_items
				(receipt_id, position, receipt_text, item_name, brand, generic_name, variant, size, unit,
				 quantity, unit_price, total_price, was_on_sale, category)
			VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''),
				$10, $11, $12, $13, $14)
		`, receiptID, i, item.ReceiptText, item.ItemName, item.Brand, item.GenericName,
			item.Variant, item.Size, item.Unit,
			item.Quantity, item.UnitPrice, item.TotalPrice, item.WasOnSale, item.Category)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return tx.Commit(ctx)
}

// RecentItems returns up to limit of the user's most recently stored line
// items with non-empty receipt text, newest first. This is the candidate
// pool for historical matching.
func (r *ReceiptRepo) RecentItems(ctx context.Context, userID string, limit int) ([]domain.MatchCandidate, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT COALESCE(i.generic_name, ''), COALESCE(i.brand, ''), COALESCE(i.variant, ''),
		       COALESCE(i.size, ''), COALESCE(i.unit, ''), COALESCE(i.category, '')
		FROM receipt_items i
		JOIN receipts r ON r.id = i.receipt_id
		WHERE r.user_id = $1 AND i.receipt_text IS NOT NULL
		ORDER BY i.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	var candidates []domain.MatchCandidate
	for rows.Next() {
		var c domain.MatchCandidate
		if err := rows.Scan(&c.GenericName, &c.Brand, &c.Variant, &c.Size, &c.Unit, &c.Category); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// InsertUsageLog appends a parse-attempt audit record.
func (r *ReceiptRepo) InsertUsageLog(ctx context.Context, entry *domain.UsageLog) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO api_logs
			(id, receipt_id, user_id, model, prompt_tokens, completion_tokens, total_tokens,
			 estimated_cost, finish_reason, was_truncated, item_count, enhanced_count,
			 parsing_successful, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, id, entry.ReceiptID, entry.UserID, entry.Model,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens,
		entry.EstimatedCost, entry.FinishReason, entry.WasTruncated,
		entry.ItemCount, entry.EnhancedCount, entry.ParsingSuccessful,
		entry.ErrorMessage, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}
