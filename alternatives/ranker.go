package alternatives

import "sort"

// Rank keeps the items scoring at least minScore, orders them by score
// descending with ties broken by ascending id, and truncates to maxResults.
func Rank(items []ScoredCandidate, minScore float64, maxResults int) []ScoredCandidate {
	ranked := make([]ScoredCandidate, 0, len(items))
	for _, item := range items {
		if item.Similarity.Score >= minScore {
			ranked = append(ranked, item)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Similarity.Score, ranked[j].Similarity.Score
		if si != sj {
			return si > sj
		}
		return ranked[i].Medicine.ID < ranked[j].Medicine.ID
	})

	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}
