package vector

import (
	"cmp"
	"math"
	"slices"
)

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero magnitude or the lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Rank orders results by descending similarity, breaking ties by insertion
// sequence, drops repeated IDs and keeps at most k.
func Rank(results []Result, k int) []Result {
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})

	seen := make(map[string]struct{}, len(results))
	ranked := make([]Result, 0, min(k, len(results)))
	for _, r := range results {
		if len(ranked) == k {
			break
		}

		if _, ok := seen[r.ID]; ok {
			continue
		}

		seen[r.ID] = struct{}{}
		ranked = append(ranked, r)
	}

	return ranked
}
