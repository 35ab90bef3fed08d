package alternatives

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
	"github.com/panjf2000/ants/v2"
)

// scoreBatchSize is the number of candidates scored per pool task.
// Pools smaller than one batch are scored on the calling goroutine.
const scoreBatchSize = 256

// Weights are the coefficients of the composite similarity score.
type Weights struct {
	Ingredient   float64
	Category     float64
	Manufacturer float64
}

// DefaultWeights favors ingredient overlap, then category, then manufacturer diversity.
var DefaultWeights = Weights{Ingredient: 0.7, Category: 0.2, Manufacturer: 0.1}

// Validate checks the weights are non-negative and sum to 1, which keeps scores in [0,1].
func (w Weights) Validate() error {
	if w.Ingredient < 0 || w.Category < 0 || w.Manufacturer < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidInput)
	}
	if sum := w.Ingredient + w.Category + w.Manufacturer; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: weights must sum to 1, got %g", ErrInvalidInput, sum)
	}
	return nil
}

// SimilarityResult is the outcome of comparing a candidate with the target.
type SimilarityResult struct {
	Score           float64 `json:"score"`
	IngredientMatch float64 `json:"ingredientMatch"`
	CategoryMatch   bool    `json:"categoryMatch"`
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are a full match; exactly one
// empty set is no match.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// CalculateSimilarity scores candidate against target with DefaultWeights.
func CalculateSimilarity(target, candidate entities.Medicine) SimilarityResult {
	return DefaultWeights.similarity(IngredientSet(target.Ingredients), target, candidate)
}

func (w Weights) similarity(targetSet map[string]struct{}, target, candidate entities.Medicine) SimilarityResult {
	ingredientScore := Jaccard(targetSet, IngredientSet(candidate.Ingredients))

	categoryScore := 0.0
	if target.Category == candidate.Category {
		categoryScore = 1
	}

	// Diversity bonus for a different supplier.
	manufacturerScore := 0.0
	if target.Manufacturer != candidate.Manufacturer {
		manufacturerScore = 1
	}

	total := w.Ingredient*ingredientScore + w.Category*categoryScore + w.Manufacturer*manufacturerScore

	return SimilarityResult{
		Score:           math.Min(1, math.Max(0, total)),
		IngredientMatch: ingredientScore,
		CategoryMatch:   categoryScore == 1,
	}
}

// ScoredCandidate is a candidate annotated with its similarity to the target.
type ScoredCandidate struct {
	Candidate
	Similarity SimilarityResult
}

// Scorer computes similarities for whole candidate pools on a worker pool.
type Scorer struct {
	weights Weights
	pool    *ants.Pool
}

// NewScorer creates a scorer with the given weights and number of workers.
// workers < 1 defaults to runtime.NumCPU().
func NewScorer(weights Weights, workers int) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring pool: %w", err)
	}

	return &Scorer{weights: weights, pool: pool}, nil
}

// Release stops the scorer's workers.
func (s *Scorer) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// ScoreAll scores every candidate against target. The result is index aligned
// with candidates and complete when ScoreAll returns.
func (s *Scorer) ScoreAll(target entities.Medicine, candidates []Candidate) []ScoredCandidate {
	targetSet := IngredientSet(target.Ingredients)
	results := make([]ScoredCandidate, len(candidates))

	scoreRange := func(from, to int) {
		for i := from; i < to; i++ {
			results[i] = ScoredCandidate{
				Candidate:  candidates[i],
				Similarity: s.weights.similarity(targetSet, target, candidates[i].Medicine),
			}
		}
	}

	if len(candidates) <= scoreBatchSize || s.pool == nil {
		scoreRange(0, len(candidates))
		return results
	}

	var wg sync.WaitGroup
	for from := 0; from < len(candidates); from += scoreBatchSize {
		to := min(from+scoreBatchSize, len(candidates))

		wg.Add(1)
		task := func() {
			defer wg.Done()
			scoreRange(from, to)
		}
		if err := s.pool.Submit(task); err != nil {
			// Pool closed or overloaded: score on this goroutine.
			task()
		}
	}
	wg.Wait()

	return results
}
