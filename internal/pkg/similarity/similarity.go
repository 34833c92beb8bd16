// Package similarity scores how alike two normalized team names are.
package similarity

// Ratio returns a symmetric similarity score in [0,100]: 100 for identical
// strings, 0 for fully dissimilar. It is the classic fuzz.ratio formula,
// an edit-distance metric where substitutions cost two (one delete plus one
// insert), normalized by the combined length:
//
//	ratio = 100 * (1 - dist / (len(a)+len(b)))
//
// which reduces to 100 * 2*LCS(a,b) / (len(a)+len(b)). A ratio metric
// tolerates transliteration drift ("man united" vs "manchester united"
// still scores well) while staying O(len(a)*len(b)) and deterministic.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// LCS with two rolling rows.
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]

	// Round to nearest instead of truncating so e.g. 2*10/27 -> 74.
	return (400*lcs + total) / (2 * total)
}
