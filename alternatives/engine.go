// Package alternatives finds and ranks alternative medicines for a target
// medicine: tiered candidate retrieval, weighted similarity scoring,
// deduplication, ranking and enrichment.
package alternatives

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

const (
	DefaultMinScore   = 0.3
	DefaultMaxResults = 10
)

// Request describes one recommendation. Nil pointers take the defaults.
type Request struct {
	TargetID        string
	MinScore        *float64
	MaxResults      *int
	Category        string
	MaxPrice        *float64
	ExcludeSameName *bool // defaults to true
}

// query is a validated Request with defaults applied.
type query struct {
	targetID        string
	minScore        float64
	maxResults      int
	excludeSameName bool
	retrieve        RetrieveOptions
}

func (r Request) validate() (query, error) {
	q := query{
		targetID:        strings.TrimSpace(r.TargetID),
		minScore:        DefaultMinScore,
		maxResults:      DefaultMaxResults,
		excludeSameName: true,
	}

	if q.targetID == "" {
		return q, fmt.Errorf("%w: medicine id is required", ErrInvalidInput)
	}
	if r.MinScore != nil {
		if *r.MinScore < 0 || *r.MinScore > 1 {
			return q, fmt.Errorf("%w: minScore must be between 0 and 1, got %g", ErrInvalidInput, *r.MinScore)
		}
		q.minScore = *r.MinScore
	}
	if r.MaxResults != nil {
		if *r.MaxResults < 1 {
			return q, fmt.Errorf("%w: maxResults must be a positive integer, got %d", ErrInvalidInput, *r.MaxResults)
		}
		q.maxResults = *r.MaxResults
	}
	if r.MaxPrice != nil {
		if *r.MaxPrice < 0 {
			return q, fmt.Errorf("%w: maxPrice must not be negative, got %g", ErrInvalidInput, *r.MaxPrice)
		}
		maxPrice := *r.MaxPrice
		q.retrieve.MaxPrice = &maxPrice
	}
	if r.Category != "" {
		category, ok := entities.ParseCategory(r.Category)
		if !ok {
			return q, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, r.Category)
		}
		q.retrieve.Category = category
	}
	if r.ExcludeSameName != nil {
		q.excludeSameName = *r.ExcludeSameName
	}

	return q, nil
}

// Diagnostics reports how a response was produced.
type Diagnostics struct {
	TierCandidates map[string]int `json:"tierCandidates"`
	DegradedTiers  []string       `json:"degradedTiers,omitempty"`
	ScoredPool     int            `json:"scoredPool"`
	DedupRemoved   int            `json:"dedupRemoved"`
	Qualifying     int            `json:"qualifying"`
}

// Response is the outcome of a recommendation. An empty Alternatives list is a
// success and carries an explanatory Message.
type Response struct {
	TargetMedicine entities.Medicine `json:"targetMedicine"`
	Alternatives   []Alternative     `json:"alternatives"`
	Count          int               `json:"count"`
	Message        string            `json:"message,omitempty"`
	Diagnostics    Diagnostics       `json:"diagnostics"`
}

// Recorder receives per-request counters. Implementations must be safe for
// concurrent use.
type Recorder interface {
	CandidatesRetrieved(tier Tier, n int)
	TierFailed(tier Tier)
	DuplicatesRemoved(n int)
	AlternativesReturned(n int)
}

type nopRecorder struct{}

func (nopRecorder) CandidatesRetrieved(Tier, int) {}
func (nopRecorder) TierFailed(Tier)               {}
func (nopRecorder) DuplicatesRemoved(int)         {}
func (nopRecorder) AlternativesReturned(int)      {}

// Engine answers recommendation requests. It keeps no per-request state and is
// safe for concurrent use.
type Engine struct {
	store        interfaces.CatalogStore
	limits       Limits
	weights      Weights
	workers      int
	storeTimeout time.Duration
	dedupPolicy  DedupPolicy
	recorder     Recorder
	logger       *slog.Logger

	retriever *Retriever
	scorer    *Scorer
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLimits overrides the retrieval bounds.
func WithLimits(limits Limits) Option {
	return func(e *Engine) error {
		if err := limits.Validate(); err != nil {
			return err
		}
		e.limits = limits
		return nil
	}
}

// WithWeights overrides the similarity weights.
func WithWeights(weights Weights) Option {
	return func(e *Engine) error {
		if err := weights.Validate(); err != nil {
			return err
		}
		e.weights = weights
		return nil
	}
}

// WithWorkers sets the scoring pool size. Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) error {
		e.workers = n
		return nil
	}
}

// WithStoreTimeout bounds each store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return fmt.Errorf("%w: store timeout must be positive", ErrInvalidInput)
		}
		e.storeTimeout = d
		return nil
	}
}

// WithDedupPolicy selects which duplicate row survives.
func WithDedupPolicy(p DedupPolicy) Option {
	return func(e *Engine) error {
		e.dedupPolicy = p
		return nil
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) error {
		if r == nil {
			r = nopRecorder{}
		}
		e.recorder = r
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates an engine over store.
func NewEngine(store interfaces.CatalogStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	e := &Engine{
		store:        store,
		limits:       DefaultLimits,
		weights:      DefaultWeights,
		storeTimeout: DefaultStoreTimeout,
		dedupPolicy:  DedupFirstSeen,
		recorder:     nopRecorder{},
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	scorer, err := NewScorer(e.weights, e.workers)
	if err != nil {
		return nil, err
	}
	e.scorer = scorer
	e.retriever = NewRetriever(store, e.limits, e.storeTimeout)

	return e, nil
}

// Close releases the scoring workers.
func (e *Engine) Close() {
	e.scorer.Release()
}

// Recommend finds, ranks and enriches alternatives for req.TargetID.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	q, err := req.validate()
	if err != nil {
		return nil, err
	}

	target, err := e.lookupTarget(ctx, q.targetID)
	if err != nil {
		return nil, err
	}

	diag := Diagnostics{TierCandidates: make(map[string]int)}
	var (
		pool      []Candidate
		qualified []ScoredCandidate
		p         = progress{qualifying: -1}
	)

	for s := stageIngredientMatch; s != stageDone; s = e.limits.next(s, p) {
		p.stageFailed = false

		switch s {
		case stageIngredientMatch:
			pool, err = e.retriever.IngredientMatch(ctx, *target, q.retrieve)
			if err != nil {
				e.recorder.TierFailed(TierIngredient)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			e.countTier(&diag, TierIngredient, len(pool))
			p.poolSize = len(pool)

		case stageCategoryExpansion:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			merged, added, err := e.retriever.CategoryExpansion(ctx, *target, q.retrieve, pool)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				e.degrade(&diag, TierCategory, err)
				p.stageFailed = true
				break
			}
			pool = merged
			e.countTier(&diag, TierCategory, added)
			p.poolSize = len(pool)

		case stageScoring:
			var removed int
			qualified, removed = e.evaluate(*target, pool, q)
			diag.ScoredPool = len(pool)
			diag.DedupRemoved += removed
			p.qualifying = len(qualified)

		case stageGlobalFallback:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p.globalTried = true
			global, err := e.retriever.GlobalFallback(ctx, *target, q.retrieve)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				e.degrade(&diag, TierGlobal, err)
				p.stageFailed = true
				break
			}
			pool = global
			e.countTier(&diag, TierGlobal, len(pool))
			p.poolSize = len(pool)
		}

		e.logger.Debug("Alternatives stage completed",
			"target_id", target.ID,
			"stage", s.String(),
			"pool", p.poolSize,
			"qualifying", p.qualifying,
		)
	}

	ranked := Rank(qualified, q.minScore, q.maxResults)
	diag.Qualifying = len(qualified)

	resp := &Response{
		TargetMedicine: project(*target),
		Alternatives:   Enrich(*target, ranked),
		Diagnostics:    diag,
	}
	resp.Count = len(resp.Alternatives)
	if resp.Count == 0 {
		resp.Message = fmt.Sprintf("No suitable alternatives found for %s with matching active ingredients.", target.Name)
	}

	e.recorder.DuplicatesRemoved(diag.DedupRemoved)
	e.recorder.AlternativesReturned(resp.Count)

	return resp, nil
}

// lookupTarget resolves the target under its own store timeout.
func (e *Engine) lookupTarget(ctx context.Context, id string) (*entities.Medicine, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	target, err := e.store.FindByID(callCtx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: target lookup: %v", ErrStoreUnavailable, err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return target, nil
}

// evaluate scores pool, keeps the qualifying candidates and collapses duplicates.
func (e *Engine) evaluate(target entities.Medicine, pool []Candidate, q query) ([]ScoredCandidate, int) {
	scored := e.scorer.ScoreAll(target, pool)

	qualifying := scored[:0:0]
	for _, c := range scored {
		if c.Medicine.ID == target.ID {
			continue
		}
		if q.excludeSameName && c.Medicine.Name == target.Name {
			continue
		}
		if c.Similarity.Score < q.minScore {
			continue
		}
		qualifying = append(qualifying, c)
	}

	return Deduplicate(qualifying, e.dedupPolicy)
}

func (e *Engine) countTier(diag *Diagnostics, tier Tier, n int) {
	diag.TierCandidates[tier.String()] += n
	e.recorder.CandidatesRetrieved(tier, n)
}

func (e *Engine) degrade(diag *Diagnostics, tier Tier, err error) {
	diag.DegradedTiers = append(diag.DegradedTiers, tier.String())
	e.recorder.TierFailed(tier)

	level := slog.LevelWarn
	if errors.Is(err, context.DeadlineExceeded) {
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, "Optional retrieval tier failed, continuing with earlier results",
		"tier", tier.String(),
		"error", err,
	)
}
