package alternatives

import (
	"math"
	"strings"

	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// PriceStatus classifies a candidate price against the target price.
type PriceStatus string

const (
	PriceCheaper   PriceStatus = "cheaper"
	PriceExpensive PriceStatus = "expensive"
	PriceSame      PriceStatus = "same"
)

// SimilarityView is the similarity as presented to clients, with rounded percentages.
type SimilarityView struct {
	SimilarityResult
	ScorePercent           int `json:"scorePercent"`
	IngredientMatchPercent int `json:"ingredientMatchPercent"`
}

// Comparison holds the side-by-side data shown next to an alternative.
// Price fields are absent unless both prices are known.
type Comparison struct {
	CommonIngredients      []string    `json:"commonIngredients"`
	PriceDifferencePercent *int        `json:"priceDifferencePercent,omitempty"`
	PriceStatus            PriceStatus `json:"priceStatus,omitempty"`
	Savings                *float64    `json:"savings,omitempty"`
	CommonInteractionDrugs []string    `json:"commonInteractionDrugs"`
}

// Alternative is one entry of a recommendation response.
type Alternative struct {
	Candidate
	Similarity SimilarityView `json:"similarity"`
	Comparison Comparison     `json:"comparison"`
}

// Enrich attaches comparison data to ranked candidates, preserving their order.
func Enrich(target entities.Medicine, ranked []ScoredCandidate) []Alternative {
	targetSet := IngredientSet(target.Ingredients)
	targetInteractions := target.Interactions()

	out := make([]Alternative, 0, len(ranked))
	for _, item := range ranked {
		candidate := item.Medicine

		comparison := Comparison{
			CommonIngredients:      CommonIngredients(targetSet, IngredientSet(candidate.Ingredients)),
			CommonInteractionDrugs: CommonInteractionDrugs(targetInteractions, candidate.Interactions()),
		}
		comparison.PriceDifferencePercent, comparison.PriceStatus, comparison.Savings = ComparePrices(target.Price, candidate.Price)

		out = append(out, Alternative{
			Candidate: Candidate{Medicine: project(candidate), Tier: item.Tier},
			Similarity: SimilarityView{
				SimilarityResult:       item.Similarity,
				ScorePercent:           int(math.Round(item.Similarity.Score * 100)),
				IngredientMatchPercent: int(math.Round(item.Similarity.IngredientMatch * 100)),
			},
			Comparison: comparison,
		})
	}
	return out
}

// CommonIngredients returns the sorted intersection of two normalized ingredient sets.
func CommonIngredients(a, b map[string]struct{}) []string {
	common := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			common[k] = struct{}{}
		}
	}
	return sortedKeys(common)
}

// ComparePrices computes the rounded percentage difference of candidate over
// target, the matching status and the signed savings (positive when the
// candidate is cheaper). All three are absent unless both prices are known.
func ComparePrices(targetPrice, candidatePrice float64) (*int, PriceStatus, *float64) {
	if targetPrice <= 0 || candidatePrice <= 0 {
		return nil, "", nil
	}

	percent := int(math.Round((candidatePrice - targetPrice) / targetPrice * 100))

	status := PriceSame
	switch {
	case percent < 0:
		status = PriceCheaper
	case percent > 0:
		status = PriceExpensive
	}

	savings := math.Round((targetPrice-candidatePrice)*100) / 100
	return &percent, status, &savings
}

// CommonInteractionDrugs returns the drugs of b that also appear, case-insensitively,
// in a. Names keep b's spelling; each drug is listed once.
func CommonInteractionDrugs(a, b entities.Interactions) []string {
	common := []string{}
	if len(a.Drugs) == 0 || len(b.Drugs) == 0 {
		return common
	}

	inA := make(map[string]struct{}, len(a.Drugs))
	for _, d := range a.Drugs {
		if key := strings.ToLower(strings.TrimSpace(d)); key != "" {
			inA[key] = struct{}{}
		}
	}

	listed := make(map[string]struct{})
	for _, d := range b.Drugs {
		key := strings.ToLower(strings.TrimSpace(d))
		if _, ok := inA[key]; !ok || key == "" {
			continue
		}
		if _, dup := listed[key]; dup {
			continue
		}
		listed[key] = struct{}{}
		common = append(common, strings.TrimSpace(d))
	}
	return common
}

// project keeps the fields a recommendation response exposes.
func project(m entities.Medicine) entities.Medicine {
	m.PackSize = ""
	m.Usage = ""
	return m
}
