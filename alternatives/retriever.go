package alternatives

import (
	"context"
	"fmt"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// DefaultStoreTimeout bounds every individual store call.
const DefaultStoreTimeout = 5 * time.Second

// Candidate is a medicine together with the tier that retrieved it.
// The tier is provenance for diagnostics and never affects scoring.
type Candidate struct {
	Medicine entities.Medicine `json:"medicine"`
	Tier     Tier              `json:"tier"`
}

// RetrieveOptions narrow the candidate pool.
type RetrieveOptions struct {
	Category entities.Category // overrides the target category for the category tier
	MaxPrice *float64
}

// Retriever issues the store queries of each tier. Every call excludes the
// target and runs under its own timeout.
type Retriever struct {
	store   interfaces.CatalogStore
	limits  Limits
	timeout time.Duration
}

// NewRetriever creates a retriever over store.
func NewRetriever(store interfaces.CatalogStore, limits Limits, timeout time.Duration) *Retriever {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Retriever{store: store, limits: limits, timeout: timeout}
}

// IngredientMatch returns medicines sharing at least one normalized ingredient
// term with target. A target without usable terms yields an empty pool without
// querying the store.
func (r *Retriever) IngredientMatch(ctx context.Context, target entities.Medicine, opts RetrieveOptions) ([]Candidate, error) {
	terms := SearchTerms(target.Ingredients)
	if len(terms) == 0 {
		return []Candidate{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	found, err := r.store.FindMany(callCtx, interfaces.Filter{
		ExcludeID:       target.ID,
		IngredientTerms: terms,
		MaxPrice:        opts.MaxPrice,
	}, r.limits.IngredientMatchLimit)
	if err != nil {
		return nil, fmt.Errorf("ingredient match query: %w", err)
	}

	return tagged(found, target.ID, TierIngredient), nil
}

// CategoryExpansion samples the target category (or the override) and appends
// the rows not already in pool, comparing ids only. It returns the merged pool
// and the number of rows added.
func (r *Retriever) CategoryExpansion(ctx context.Context, target entities.Medicine, opts RetrieveOptions, pool []Candidate) ([]Candidate, int, error) {
	category := opts.Category
	if category == "" {
		category = target.Category
	}
	if category == "" {
		category = entities.CategoryOther
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sample, err := r.store.RandomSample(callCtx, interfaces.Filter{
		ExcludeID: target.ID,
		Category:  category,
		MaxPrice:  opts.MaxPrice,
	}, r.limits.CategorySampleSize)
	if err != nil {
		return pool, 0, fmt.Errorf("category sample: %w", err)
	}

	seen := make(map[string]struct{}, len(pool))
	for _, c := range pool {
		seen[c.Medicine.ID] = struct{}{}
	}

	merged := make([]Candidate, len(pool), len(pool)+len(sample))
	copy(merged, pool)
	for _, c := range tagged(sample, target.ID, TierCategory) {
		if _, dup := seen[c.Medicine.ID]; dup {
			continue
		}
		seen[c.Medicine.ID] = struct{}{}
		merged = append(merged, c)
	}

	return merged, len(merged) - len(pool), nil
}

// GlobalFallback samples the whole catalog, ignoring category.
func (r *Retriever) GlobalFallback(ctx context.Context, target entities.Medicine, opts RetrieveOptions) ([]Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sample, err := r.store.RandomSample(callCtx, interfaces.Filter{
		ExcludeID: target.ID,
		MaxPrice:  opts.MaxPrice,
	}, r.limits.GlobalSampleSize)
	if err != nil {
		return nil, fmt.Errorf("global sample: %w", err)
	}

	return tagged(sample, target.ID, TierGlobal), nil
}

// tagged wraps medicines as candidates of tier, dropping the target should a
// store ignore the exclusion.
func tagged(medicines []entities.Medicine, targetID string, tier Tier) []Candidate {
	out := make([]Candidate, 0, len(medicines))
	for _, m := range medicines {
		if m.ID == targetID {
			continue
		}
		out = append(out, Candidate{Medicine: m, Tier: tier})
	}
	return out
}
