package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/receiptwise/backend/internal/domain"
)

const (
	defaultStoreName      = "Unknown"
	placeholderItemName   = "Unknown Item"
	malformedExcerptLimit = 500
)

// Package-level compiled regex patterns for performance
var (
	lineCommentRegex   = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	itemsMarkerRegex   = regexp.MustCompile(`"items"\s*:\s*\[`)
)

// Normalizer converts an untrusted text blob from the vision model into a
// validated ParsedReceipt, or fails with one of the domain parse errors.
// The model is prompted for plain JSON, but in practice the output arrives
// wrapped in code fences, sprinkled with comments, or cut off mid-structure
// when generation hits the token limit.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a new response normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize cleans, optionally repairs, parses and coerces a raw model
// response. truncated reports whether the upstream generation stopped due to
// the output-length limit rather than completing naturally; it gates the
// structural repair path.
func (n *Normalizer) Normalize(raw string, truncated bool) (*domain.ParsedReceipt, error) {
	if raw == "" {
		return nil, domain.ErrEmptyResponse
	}

	cleaned := cleanResponse(raw)
	if truncated {
		cleaned = repairTruncated(cleaned)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		if itemsMarkerRegex.MatchString(cleaned) && !strings.HasSuffix(strings.TrimSpace(cleaned), "}") {
			// The caller should suggest a shorter or clearer receipt rather
			// than treat this as a generic model failure.
			return nil, domain.ErrTruncatedUnparsable
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedResponse, excerpt(raw))
	}

	rawItems, ok := payload["items"].([]any)
	if !ok {
		return nil, domain.ErrInvalidStructure
	}
	if len(rawItems) == 0 {
		return nil, domain.ErrNoItemsExtracted
	}

	receipt := &domain.ParsedReceipt{
		StoreName:    stringOr(payload["store_name"], defaultStoreName),
		PurchaseDate: stringOr(payload["purchase_date"], n.now().Format("2006-01-02")),
		TotalAmount:  numberOr(payload["total_amount"], 0),
		Items:        make([]domain.ParsedLineItem, 0, len(rawItems)),
		Truncated:    truncated,
	}

	for _, entry := range rawItems {
		fields, _ := entry.(map[string]any)
		receipt.Items = append(receipt.Items, coerceItem(fields))
	}

	return receipt, nil
}

// cleanResponse strips the formatting noise the model emits despite the
// prompt contract: markdown code fences, line and block comments, and
// trailing commas before a closing brace or bracket. Cleaning already-clean
// JSON is a no-op.
func cleanResponse(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = lineCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = blockCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
	return strings.TrimSpace(cleaned)
}

// repairTruncated salvages a length-limited response: cut the text at the
// last complete object-closing brace and close whatever the cut left open.
// Every item fully emitted before the cutoff survives; the dangling partial
// tail is discarded. The cut point is the last '}' anywhere in the string,
// a known approximation that does not track bracket nesting depth.
func repairTruncated(text string) string {
	if !itemsMarkerRegex.MatchString(text) {
		return text
	}

	last := strings.LastIndex(text, "}")
	if last == -1 {
		return text
	}
	text = text[:last+1]

	if strings.Count(text, "[") > strings.Count(text, "]") {
		text += "]"
	}
	if strings.Count(text, "{") > strings.Count(text, "}") {
		text += "}"
	}
	return text
}

// coerceItem applies every field default exactly once, at the normalizer
// boundary. Missing or non-numeric numeric fields fall back to their
// documented defaults rather than erroring: the model frequently omits or
// malforms individual fields and the intent is graceful degradation.
func coerceItem(fields map[string]any) domain.ParsedLineItem {
	return domain.ParsedLineItem{
		ReceiptText: stringOr(fields["receipt_text"], ""),
		ItemName:    stringOr(fields["item_name"], placeholderItemName),
		Brand:       lowerOr(fields["brand"]),
		GenericName: lowerOr(fields["generic_name"]),
		Variant:     lowerOr(fields["variant"]),
		Size:        textOr(fields["size"]),
		Unit:        stringOr(fields["unit"], ""),
		Quantity:    numberOr(fields["quantity"], 1),
		UnitPrice:   numberOr(fields["unit_price"], 0),
		TotalPrice:  numberOr(fields["total_price"], 0),
		WasOnSale:   boolOf(fields["was_on_sale"]),
		Category:    stringOr(fields["category"], domain.DefaultCategory),
	}
}

// stringOr returns the value as a string, or def when absent or empty.
func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// lowerOr normalizes a free-text classification field to lowercase.
func lowerOr(v any) string {
	return strings.ToLower(stringOr(v, ""))
}

// textOr renders a value that may arrive as either a string or a number
// (the model is inconsistent about size magnitudes).
func textOr(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// numberOr best-effort parses a numeric field, falling back to def.
func numberOr(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}

// excerpt bounds the diagnostic slice of a malformed response so the full
// raw text never reaches a user-facing error.
func excerpt(raw string) string {
	if len(raw) > malformedExcerptLimit {
		return raw[:malformedExcerptLimit]
	}
	return raw
}
