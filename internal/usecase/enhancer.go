package usecase

import "github.com/receiptwise/backend/internal/domain"

// matchThreshold is the fixed acceptance score a candidate must strictly
// exceed to be used for enhancement. Contract, not configuration.
const matchThreshold = 0.7

// EnhanceWithHistory backfills missing classification fields on newly parsed
// items from the best-matching historical candidate. Fields the normalizer
// already populated are never overwritten. Returns a same-length, same-order
// slice and the number of items that received at least one new field value.
// Pure function: neither input slice is mutated.
func EnhanceWithHistory(items []domain.ParsedLineItem, candidates []domain.MatchCandidate) ([]domain.ParsedLineItem, int) {
	enhanced := make([]domain.ParsedLineItem, len(items))
	count := 0

	for i, item := range items {
		enhanced[i] = item

		complete := item.GenericName != "" && item.Brand != "" && item.Size != "" && item.Unit != ""
		if complete || item.ReceiptText == "" {
			continue
		}

		match := findBestMatch(item.ReceiptText, candidates)
		if match == nil {
			continue
		}

		merged, changed := mergeMatch(item, *match)
		if changed {
			count++
		}
		enhanced[i] = merged
	}

	return enhanced, count
}

// findBestMatch linearly scans the candidate pool for the entry most similar
// to the receipt text. A candidate is compared by its generic name, brand and
// variant, taking the best score among whichever are present; candidates with
// none of the three are skipped. A candidate only wins if its score strictly
// exceeds both the running best and the threshold, so ties keep the
// earliest-seen candidate.
func findBestMatch(receiptText string, candidates []domain.MatchCandidate) *domain.MatchCandidate {
	var best *domain.MatchCandidate
	bestScore := 0.0

	for i := range candidates {
		score := candidateScore(receiptText, &candidates[i])
		if score > bestScore && score > matchThreshold {
			bestScore = score
			best = &candidates[i]
		}
	}

	return best
}

func candidateScore(receiptText string, candidate *domain.MatchCandidate) float64 {
	score := 0.0
	for _, compare := range []string{candidate.GenericName, candidate.Brand, candidate.Variant} {
		if compare == "" {
			continue
		}
		if s := Similarity(receiptText, compare); s > score {
			score = s
		}
	}
	return score
}

// mergeMatch fills each absent classification field from the matched
// candidate and reports whether any field actually changed.
func mergeMatch(item domain.ParsedLineItem, match domain.MatchCandidate) (domain.ParsedLineItem, bool) {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}

	fill(&item.GenericName, match.GenericName)
	fill(&item.Brand, match.Brand)
	fill(&item.Variant, match.Variant)
	fill(&item.Size, match.Size)
	fill(&item.Unit, match.Unit)
	fill(&item.Category, match.Category)

	return item, changed
}
