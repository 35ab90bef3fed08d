package alternatives

import "fmt"

// Tier identifies the retrieval step that produced a candidate.
type Tier int

const (
	TierIngredient Tier = iota + 1 // substring match on target ingredients
	TierCategory                   // random sample of the target category
	TierGlobal                     // random sample of the whole catalog
)

// Tiers lists the tiers in escalation order.
var Tiers = []Tier{TierIngredient, TierCategory, TierGlobal}

func (t Tier) String() string {
	switch t {
	case TierIngredient:
		return "ingredient"
	case TierCategory:
		return "category"
	case TierGlobal:
		return "global"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalText renders the tier by name in JSON payloads.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Limits bound the size of each retrieval tier and the guards between them.
type Limits struct {
	IngredientMatchLimit   int // max records from the ingredient match query
	CategoryExpansionBelow int // category expansion runs when the ingredient pool is smaller
	CategorySampleSize     int
	GlobalFallbackBelow    int // global fallback runs only when the scored pool is smaller
	GlobalSampleSize       int
}

// DefaultLimits are the production retrieval bounds.
var DefaultLimits = Limits{
	IngredientMatchLimit:   500,
	CategoryExpansionBelow: 100,
	CategorySampleSize:     1500,
	GlobalFallbackBelow:    2000,
	GlobalSampleSize:       3000,
}

// Validate rejects non-positive limits.
func (l Limits) Validate() error {
	for name, v := range map[string]int{
		"ingredient match limit":   l.IngredientMatchLimit,
		"category expansion bound": l.CategoryExpansionBelow,
		"category sample size":     l.CategorySampleSize,
		"global fallback bound":    l.GlobalFallbackBelow,
		"global sample size":       l.GlobalSampleSize,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidInput, name, v)
		}
	}
	return nil
}

// stage is a state of the retrieval state machine.
//
//	ingredientMatch ──pool < CategoryExpansionBelow──▶ categoryExpansion ──▶ scoring
//	ingredientMatch ──otherwise──────────────────────▶ scoring
//	scoring ──nothing qualifies, pool < GlobalFallbackBelow, not yet tried──▶ globalFallback
//	scoring ──otherwise──▶ done
//	globalFallback ──fetched──▶ scoring
//	globalFallback ──failed───▶ done
type stage int

const (
	stageIngredientMatch stage = iota
	stageCategoryExpansion
	stageScoring
	stageGlobalFallback
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageIngredientMatch:
		return "ingredient_match"
	case stageCategoryExpansion:
		return "category_expansion"
	case stageScoring:
		return "scoring"
	case stageGlobalFallback:
		return "global_fallback"
	case stageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// progress is what the transition guards observe after a stage ran.
type progress struct {
	poolSize    int  // candidates in the pool the next scoring pass works on
	qualifying  int  // alternatives that survived the last scoring pass, -1 before scoring
	globalTried bool // the global fallback has already been attempted
	stageFailed bool // the stage that just ran could not reach the store
}

// next returns the stage that follows current.
func (l Limits) next(current stage, p progress) stage {
	switch current {
	case stageIngredientMatch:
		if p.poolSize < l.CategoryExpansionBelow {
			return stageCategoryExpansion
		}
		return stageScoring

	case stageCategoryExpansion:
		// A failed expansion still scores the ingredient pool.
		return stageScoring

	case stageScoring:
		if !p.globalTried && p.qualifying == 0 && p.poolSize < l.GlobalFallbackBelow {
			return stageGlobalFallback
		}
		return stageDone

	case stageGlobalFallback:
		if p.stageFailed {
			return stageDone
		}
		return stageScoring
	}

	return stageDone
}
