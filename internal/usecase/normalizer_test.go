package usecase

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/receiptwise/backend/internal/domain"
)

func newTestNormalizer() *Normalizer {
	n := NewNormalizer()
	n.now = func() time.Time {
		return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	}
	return n
}

func TestNormalize_FencedResponse(t *testing.T) {
	n := newTestNormalizer()

	raw := "```json\n{\"store_name\":\"Publix\",\"total_amount\":16.33,\"items\":[" +
		"{\"receipt_text\":\"HIKARI WHITE MISO\",\"item_name\":\"Hikari White Miso\"," +
		"\"brand\":\"hikari\",\"generic_name\":\"miso\",\"variant\":\"white\"," +
		"\"quantity\":1,\"unit_price\":10.49,\"total_price\":10.49," +
		"\"was_on_sale\":false,\"category\":\"other\"}]}\n```"

	parsed, err := n.Normalize(raw, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.StoreName != "Publix" {
		t.Errorf("StoreName = %q, want Publix", parsed.StoreName)
	}
	if parsed.TotalAmount != 16.33 {
		t.Errorf("TotalAmount = %v, want 16.33", parsed.TotalAmount)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(parsed.Items))
	}
	if parsed.Items[0].Brand != "hikari" {
		t.Errorf("Brand = %q, want hikari", parsed.Items[0].Brand)
	}
	if parsed.Items[0].ReceiptText != "HIKARI WHITE MISO" {
		t.Errorf("ReceiptText = %q, casing must be preserved", parsed.Items[0].ReceiptText)
	}
	if parsed.Truncated {
		t.Error("Truncated = true, want false")
	}
}

func TestNormalize_EmptyResponse(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize("", false)
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestNormalize_CommentsAndTrailingCommas(t *testing.T) {
	n := newTestNormalizer()

	raw := `{
		"store_name": "Aldi", // the store
		"total_amount": 4.50,
		/* model sometimes annotates */
		"items": [
			{"receipt_text": "BANANAS", "item_name": "Bananas", "total_price": 4.50,},
		],
	}`

	parsed, err := n.Normalize(raw, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.StoreName != "Aldi" {
		t.Errorf("StoreName = %q, want Aldi", parsed.StoreName)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(parsed.Items))
	}
}

func TestNormalize_TruncationRepair(t *testing.T) {
	n := newTestNormalizer()

	t.Run("salvages complete items and drops the partial tail", func(t *testing.T) {
		raw := `{"store_name":"Costco","items":[{"a":1},{"b":2},{"c"`

		parsed, err := n.Normalize(raw, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(parsed.Items) != 2 {
			t.Fatalf("len(Items) = %d, want 2 (the {\"c\" fragment must be discarded)", len(parsed.Items))
		}
		if !parsed.Truncated {
			t.Error("Truncated = false, want true for a salvaged partial result")
		}
	})

	t.Run("repaired items are fully coerced", func(t *testing.T) {
		raw := `{"items":[{"receipt_text":"EGGS","item_name":"Eggs","total_price":3.99},{"receipt_text":"MIL`

		parsed, err := n.Normalize(raw, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(parsed.Items) != 1 {
			t.Fatalf("len(Items) = %d, want 1", len(parsed.Items))
		}
		if parsed.Items[0].ReceiptText != "EGGS" {
			t.Errorf("ReceiptText = %q, want EGGS", parsed.Items[0].ReceiptText)
		}
		if parsed.Items[0].Quantity != 1 {
			t.Errorf("Quantity = %v, want default 1", parsed.Items[0].Quantity)
		}
	})

	t.Run("fails as truncated-unparsable when repair cannot help", func(t *testing.T) {
		raw := `{"items":[{"receipt_text"`

		_, err := n.Normalize(raw, true)
		if !errors.Is(err, domain.ErrTruncatedUnparsable) {
			t.Errorf("error = %v, want ErrTruncatedUnparsable", err)
		}
	})

	t.Run("repair is skipped without the items marker", func(t *testing.T) {
		raw := `{"store_name":"Aldi"`

		_, err := n.Normalize(raw, true)
		if !errors.Is(err, domain.ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestNormalize_MalformedResponse(t *testing.T) {
	n := newTestNormalizer()

	longGarbage := "I could not parse this receipt. " + strings.Repeat("x", 600)

	_, err := n.Normalize(longGarbage, false)
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	// The diagnostic excerpt is bounded so the full raw text never leaks
	if len(err.Error()) > len(domain.ErrMalformedResponse.Error())+2+malformedExcerptLimit {
		t.Errorf("error message too long (%d chars), excerpt must be bounded", len(err.Error()))
	}
}

func TestNormalize_InvalidStructure(t *testing.T) {
	n := newTestNormalizer()

	t.Run("missing items", func(t *testing.T) {
		_, err := n.Normalize(`{"store_name":"Publix"}`, false)
		if !errors.Is(err, domain.ErrInvalidStructure) {
			t.Errorf("error = %v, want ErrInvalidStructure", err)
		}
	})

	t.Run("items has wrong shape", func(t *testing.T) {
		_, err := n.Normalize(`{"items":"none"}`, false)
		if !errors.Is(err, domain.ErrInvalidStructure) {
			t.Errorf("error = %v, want ErrInvalidStructure", err)
		}
	})

	t.Run("zero items", func(t *testing.T) {
		_, err := n.Normalize(`{"items":[]}`, false)
		if !errors.Is(err, domain.ErrNoItemsExtracted) {
			t.Errorf("error = %v, want ErrNoItemsExtracted", err)
		}
	})
}

func TestNormalize_CoercionDefaults(t *testing.T) {
	n := newTestNormalizer()

	parsed, err := n.Normalize(`{"items":[{}]}`, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := parsed.Items[0]
	if item.Quantity != 1 {
		t.Errorf("Quantity = %v, want 1", item.Quantity)
	}
	if item.UnitPrice != 0 {
		t.Errorf("UnitPrice = %v, want 0", item.UnitPrice)
	}
	if item.TotalPrice != 0 {
		t.Errorf("TotalPrice = %v, want 0", item.TotalPrice)
	}
	if item.WasOnSale {
		t.Error("WasOnSale = true, want false")
	}
	if item.Category != "other" {
		t.Errorf("Category = %q, want other", item.Category)
	}
	if item.ItemName != "Unknown Item" {
		t.Errorf("ItemName = %q, want Unknown Item", item.ItemName)
	}

	if parsed.StoreName != "Unknown" {
		t.Errorf("StoreName = %q, want Unknown", parsed.StoreName)
	}
	if parsed.PurchaseDate != "2025-03-14" {
		t.Errorf("PurchaseDate = %q, want normalization date", parsed.PurchaseDate)
	}
	if parsed.TotalAmount != 0 {
		t.Errorf("TotalAmount = %v, want 0", parsed.TotalAmount)
	}
}

func TestNormalize_CoercionVariants(t *testing.T) {
	n := newTestNormalizer()

	raw := `{"items":[{
		"receipt_text": "NV PROTEIN BARS",
		"brand": "NV",
		"generic_name": "Protein Bar",
		"quantity": "2",
		"unit_price": "not a number",
		"size": 12,
		"was_on_sale": true
	}]}`

	parsed, err := n.Normalize(raw, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := parsed.Items[0]
	if item.Brand != "nv" {
		t.Errorf("Brand = %q, want lowercased nv", item.Brand)
	}
	if item.GenericName != "protein bar" {
		t.Errorf("GenericName = %q, want lowercased protein bar", item.GenericName)
	}
	if item.Quantity != 2 {
		t.Errorf("Quantity = %v, want 2 parsed from string", item.Quantity)
	}
	if item.UnitPrice != 0 {
		t.Errorf("UnitPrice = %v, want default 0 for non-numeric", item.UnitPrice)
	}
	if item.Size != "12" {
		t.Errorf("Size = %q, want numeric size rendered as text", item.Size)
	}
	if !item.WasOnSale {
		t.Error("WasOnSale = false, want true")
	}
}

func TestCleanResponse_Idempotent(t *testing.T) {
	clean := `{"store_name":"Publix","items":[{"receipt_text":"BANANAS"}]}`

	if got := cleanResponse(clean); got != clean {
		t.Errorf("cleanResponse() changed already-clean input:\n got: %s\nwant: %s", got, clean)
	}
	if got := cleanResponse(cleanResponse(clean)); got != clean {
		t.Errorf("cleanResponse() is not idempotent")
	}
}

func TestRepairTruncated(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "closes array and object after dropping partial item",
			in:   `{"items":[{"a":1},{"b":2},{"c"`,
			want: `{"items":[{"a":1},{"b":2}]}`,
		},
		{
			name: "already balanced input is preserved",
			in:   `{"items":[{"a":1}]}`,
			want: `{"items":[{"a":1}]}`,
		},
		{
			name: "no items marker skips repair",
			in:   `{"store_name":"Aldi"`,
			want: `{"store_name":"Aldi"`,
		},
		{
			name: "no closing brace anywhere skips repair",
			in:   `{"items":[{"a"`,
			want: `{"items":[{"a"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := repairTruncated(tc.in); got != tc.want {
				t.Errorf("repairTruncated(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
