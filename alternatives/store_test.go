package alternatives

import (
	"context"
	"strings"
	"sync"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// fakeStore is an in-memory CatalogStore with failure injection. RandomSample
// returns the first matches in catalog order so tests stay deterministic.
type fakeStore struct {
	medicines []entities.Medicine

	findByIDErr error
	findManyErr error
	sampleErr   func(filter interfaces.Filter) error
	onFindMany  func()

	mu      sync.Mutex
	calls   map[string]int
	samples []interfaces.Filter
}

func newFakeStore(medicines ...entities.Medicine) *fakeStore {
	return &fakeStore{medicines: medicines, calls: make(map[string]int)}
}

func (s *fakeStore) record(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
}

func (s *fakeStore) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*entities.Medicine, error) {
	s.record("FindByID")
	if s.findByIDErr != nil {
		return nil, s.findByIDErr
	}
	for i := range s.medicines {
		if s.medicines[i].ID == id {
			m := s.medicines[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindMany(ctx context.Context, filter interfaces.Filter, limit int) ([]entities.Medicine, error) {
	s.record("FindMany")
	if s.onFindMany != nil {
		s.onFindMany()
	}
	if s.findManyErr != nil {
		return nil, s.findManyErr
	}
	return s.match(filter, limit), nil
}

func (s *fakeStore) RandomSample(ctx context.Context, filter interfaces.Filter, size int) ([]entities.Medicine, error) {
	s.record("RandomSample")
	s.mu.Lock()
	s.samples = append(s.samples, filter)
	s.mu.Unlock()
	if s.sampleErr != nil {
		if err := s.sampleErr(filter); err != nil {
			return nil, err
		}
	}
	return s.match(filter, size), nil
}

func (s *fakeStore) Search(ctx context.Context, query interfaces.SearchQuery) ([]entities.Medicine, error) {
	s.record("Search")
	return nil, nil
}

func (s *fakeStore) match(filter interfaces.Filter, limit int) []entities.Medicine {
	var out []entities.Medicine
	for _, m := range s.medicines {
		if len(out) >= limit {
			break
		}
		if m.ID == filter.ExcludeID {
			continue
		}
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if filter.MaxPrice != nil && m.Price > *filter.MaxPrice {
			continue
		}
		if len(filter.IngredientTerms) > 0 {
			text := strings.ToLower(strings.Join(m.Ingredients, " "))
			hit := false
			for _, term := range filter.IngredientTerms {
				if strings.Contains(text, term) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

// countingRecorder captures Recorder calls.
type countingRecorder struct {
	mu        sync.Mutex
	retrieved map[Tier]int
	failed    map[Tier]int
	removed   int
	returned  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{retrieved: make(map[Tier]int), failed: make(map[Tier]int)}
}

func (r *countingRecorder) CandidatesRetrieved(tier Tier, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrieved[tier] += n
}

func (r *countingRecorder) TierFailed(tier Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[tier]++
}

func (r *countingRecorder) DuplicatesRemoved(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed += n
}

func (r *countingRecorder) AlternativesReturned(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returned += n
}
