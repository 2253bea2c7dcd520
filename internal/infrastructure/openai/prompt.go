package openai

// receiptPrompt is the structural contract sent with every receipt image.
// It enumerates the exact field names and the closed category set the
// normalizer and enhancer rely on. The model still violates it regularly
// (code fences, comments, trailing commas, truncation), which is what the
// normalizer exists to absorb.
const receiptPrompt = `Analyze this grocery receipt image and extract the following information in JSON format.

CRITICAL: Return ONLY valid JSON with NO comments, NO explanatory text, NO markdown formatting.

{
  "store_name": "name of the store",
  "purchase_date": "date in YYYY-MM-DD format or null if not visible",
  "total_amount": number,
  "items": [
    {
      "receipt_text": "EXACT text as it appears on the receipt",
      "item_name": "full descriptive name including size/package",
      "brand": "brand name or null",
      "generic_name": "generic product type",
      "variant": "specific variety/flavor or null",
      "size": "numeric size as text or null",
      "unit": "unit of measure or null",
      "quantity": number,
      "unit_price": number,
      "total_price": number,
      "was_on_sale": boolean,
      "category": "one of: bakery, beverages, bread, cans, dairy and eggs, frozen, household, meat, personal-care, pet, produce, snacks, other"
    }
  ]
}

PARSING GUIDELINES:

1. Receipt Text: exact text as shown on receipt (preserve caps, abbreviations)
2. Item Name: clean, readable version with size info expanded
3. Brand: brand name ONLY for branded products (null for produce)
4. Generic Name: broad category (singular): "miso", "protein bar", "mushroom"
5. Variant: specific type/flavor: "white", "chocolate peanut butter", "shiitake"
6. Prices: use the FINAL price paid after all discounts/promotions
7. Was On Sale: true if ANY discount indicator is present (SALE, *, promotion text)
8. Category: choose the most appropriate category from the list above

CRITICAL RULES:
- Return ONLY the JSON object, nothing else
- NO comments in the JSON (no // or /* */)
- NO explanatory text before or after
- NO markdown code fences
- Use null for missing string values
- Use 0 for missing numeric values
- Use false for missing boolean values
- All text fields (brand, generic_name, variant) should be lowercase
- receipt_text preserves original casing`
