package alternatives

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// DedupPolicy decides which of several same-product rows survives.
type DedupPolicy int

const (
	// DedupFirstSeen keeps the first row in retrieval order.
	DedupFirstSeen DedupPolicy = iota
	// DedupHighestScore keeps the best scoring row, first seen on ties.
	DedupHighestScore
)

func (p DedupPolicy) String() string {
	if p == DedupHighestScore {
		return "highest_score"
	}
	return "first_seen"
}

// ParseDedupPolicy parses "first_seen" or "highest_score". Empty means first_seen.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first_seen":
		return DedupFirstSeen, nil
	case "highest_score":
		return DedupHighestScore, nil
	default:
		return DedupFirstSeen, fmt.Errorf("unknown dedup policy %q", s)
	}
}

// DedupKey identifies a product independently of its catalog row:
// lowercase name, then the sorted lowercase ingredient list.
func DedupKey(m entities.Medicine) string {
	ingredients := make([]string, len(m.Ingredients))
	for i, ing := range m.Ingredients {
		ingredients[i] = strings.ToLower(strings.TrimSpace(ing))
	}
	sort.Strings(ingredients)

	return strings.ToLower(strings.TrimSpace(m.Name)) + "::" + strings.Join(ingredients, "|")
}

// Deduplicate collapses items sharing a DedupKey. Survivors keep the position of
// the first row seen for their key. It returns the survivors and the number of
// rows dropped.
func Deduplicate(items []ScoredCandidate, policy DedupPolicy) ([]ScoredCandidate, int) {
	kept := make([]ScoredCandidate, 0, len(items))
	index := make(map[string]int, len(items))

	for _, item := range items {
		key := DedupKey(item.Medicine)
		i, seen := index[key]
		if !seen {
			index[key] = len(kept)
			kept = append(kept, item)
			continue
		}
		if policy == DedupHighestScore && item.Similarity.Score > kept[i].Similarity.Score {
			kept[i] = item
		}
	}

	return kept, len(items) - len(kept)
}
