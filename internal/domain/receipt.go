package domain

import "time"

// Receipt is a stored receipt record, scoped to a single user.
type Receipt struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	StoreName    string    `json:"storeName"`
	PurchaseDate string    `json:"purchaseDate"` // YYYY-MM-DD
	TotalAmount  float64   `json:"totalAmount"`
	ImageKey     string    `json:"imageKey"` // object store key, empty if no image
	RawText      string    `json:"rawText"`  // raw parsed payload kept for audit
	CreatedAt    time.Time `json:"createdAt"`
}

// ParsedLineItem is one line item extracted from a receipt image.
// ReceiptText preserves the exact casing from the source document;
// Brand, GenericName and Variant are normalized to lowercase.
type ParsedLineItem struct {
	ReceiptText string  `json:"receipt_text"`
	ItemName    string  `json:"item_name"`
	Brand       string  `json:"brand,omitempty"`
	GenericName string  `json:"generic_name,omitempty"`
	Variant     string  `json:"variant,omitempty"`
	Size        string  `json:"size,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	WasOnSale   bool    `json:"was_on_sale"`
	Category    string  `json:"category"`
}

// ParsedReceipt is the validated output of response normalization.
// Truncated marks a salvaged partial result: the model output was cut off
// mid-structure and trailing items were discarded during repair.
type ParsedReceipt struct {
	StoreName    string           `json:"store_name"`
	PurchaseDate string           `json:"purchase_date"`
	TotalAmount  float64          `json:"total_amount"`
	Items        []ParsedLineItem `json:"items"`
	Truncated    bool             `json:"truncated,omitempty"`
}

// MatchCandidate is a historical line item consulted during enhancement.
type MatchCandidate struct {
	GenericName string `json:"generic_name"`
	Brand       string `json:"brand"`
	Variant     string `json:"variant"`
	Size        string `json:"size"`
	Unit        string `json:"unit"`
	Category    string `json:"category"`
}

// Finish reasons reported by the vision model.
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// VisionResult is the raw outcome of a vision model call.
type VisionResult struct {
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Truncated reports whether generation stopped due to the output-length
// limit rather than completing naturally.
func (r *VisionResult) Truncated() bool {
	return r.FinishReason == FinishReasonLength
}

// DefaultCategory is assigned when the model omits or invents a category.
const DefaultCategory = "other"

// Categories is the closed set of item categories the model is prompted with.
var Categories = []string{
	"bakery", "beverages", "bread", "cans", "dairy and eggs", "frozen",
	"household", "meat", "personal-care", "pet", "produce", "snacks", "other",
}
