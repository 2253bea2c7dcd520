package usecase

import "strings"

// Similarity scores how closely two strings match, in [0, 1].
// Comparison is case-insensitive and whitespace-trimmed. Rules apply in
// order, returning on the first that matches: exact match scores 1.0,
// substring containment in either direction scores 0.8, anything else
// scores by Levenshtein ratio against the longer string. The constants are
// contract for historical matching, not tunables.
func Similarity(a, b string) float64 {
	s1 := strings.ToLower(strings.TrimSpace(a))
	s2 := strings.ToLower(strings.TrimSpace(b))

	if s1 == s2 {
		return 1.0
	}

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.8
	}

	longer := len([]rune(s1))
	if n := len([]rune(s2)); n > longer {
		longer = n
	}
	if longer == 0 {
		return 1.0
	}

	return float64(longer-levenshteinDistance(s1, s2)) / float64(longer)
}

// levenshteinDistance calculates the edit distance between two strings
// using unit-cost insertions, deletions and substitutions.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len([]rune(s2))
	}
	if len(s2) == 0 {
		return len([]rune(s1))
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
