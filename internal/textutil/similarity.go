package textutil

import (
	"math"
	"regexp"
	"strings"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokenize lowercases NFKC-folded text and splits it on non-alphanumeric runs.
func Tokenize(text string) []string {
	lowered := strings.ToLower(NormalizeQuery(text))
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Similarity returns the cosine similarity of the term-frequency vectors of a
// and b, in [0, 1].
func Similarity(a, b string) float64 {
	ta, tb := termCounts(a), termCounts(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var dot, na, nb float64
	for token, count := range ta {
		na += count * count
		dot += count * tb[token]
	}
	for _, count := range tb {
		nb += count * count
	}
	if dot == 0 {
		return 0
	}
	return math.Min(1, dot/math.Sqrt(na*nb))
}

func termCounts(text string) map[string]float64 {
	tokens := Tokenize(text)
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

// BestMatch returns the index of the candidate most similar to query and its
// score. Each candidate may carry several titles; the best one counts. It
// returns -1 when candidates is empty.
func BestMatch(query string, candidates [][]string) (int, float64) {
	best, bestScore := -1, -1.0
	for i, titles := range candidates {
		for _, title := range titles {
			if score := Similarity(query, title); score > bestScore {
				best, bestScore = i, score
			}
		}
		if best == -1 {
			best, bestScore = i, 0
		}
	}
	if best == -1 {
		return -1, 0
	}
	return best, bestScore
}
