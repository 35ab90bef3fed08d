// Package data provides the in-memory medicine catalog. The catalog is held in an
// immutable snapshot that is swapped atomically on refresh, so readers never
// block and never observe a half-loaded catalog.
package data

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// Compile-time check to ensure DataContainer implements Catalog
var _ interfaces.Catalog = (*DataContainer)(nil)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100

	// ctxCheckInterval is how many rows a scan covers between context checks.
	ctxCheckInterval = 1024
)

// snapshot is one immutable generation of the catalog.
type snapshot struct {
	medicines      []entities.Medicine
	byID           map[string]int
	ingredientText []string // lowercase ingredients joined with "|"
	searchText     []string // lowercase name, composition and ingredients
}

// newSnapshot indexes medicines. Only the first row of a duplicated id is
// kept so scans and lookups agree.
func newSnapshot(medicines []entities.Medicine) *snapshot {
	byID := make(map[string]int, len(medicines))
	kept := make([]entities.Medicine, 0, len(medicines))
	for _, m := range medicines {
		if _, dup := byID[m.ID]; dup {
			continue
		}
		byID[m.ID] = len(kept)
		kept = append(kept, m)
	}

	s := &snapshot{
		medicines:      kept,
		byID:           byID,
		ingredientText: make([]string, len(kept)),
		searchText:     make([]string, len(kept)),
	}

	for i, m := range kept {
		ingredients := strings.ToLower(strings.Join(m.Ingredients, "|"))
		s.ingredientText[i] = ingredients
		s.searchText[i] = strings.ToLower(m.Name) + "\n" + strings.ToLower(m.Composition) + "\n" + ingredients
	}

	return s
}

// matches reports whether row i satisfies filter.
func (s *snapshot) matches(i int, filter interfaces.Filter) bool {
	m := &s.medicines[i]

	if filter.ExcludeID != "" && m.ID == filter.ExcludeID {
		return false
	}
	if filter.Category != "" && m.Category != filter.Category {
		return false
	}
	if filter.MaxPrice != nil && m.Price > *filter.MaxPrice {
		return false
	}
	if len(filter.IngredientTerms) == 0 {
		return true
	}

	for _, term := range filter.IngredientTerms {
		if strings.Contains(s.ingredientText[i], strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// DataContainer is the in-memory catalog store.
type DataContainer struct {
	catalog     atomic.Value // *snapshot
	report      atomic.Value // *interfaces.DataQualityReport
	lastUpdated atomic.Value // time.Time
	updating    atomic.Bool
}

// NewDataContainer creates an empty catalog
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.catalog.Store(newSnapshot(nil))
	dc.report.Store(&interfaces.DataQualityReport{})
	dc.lastUpdated.Store(time.Time{})
	return dc
}

func (dc *DataContainer) current() *snapshot {
	if v := dc.catalog.Load(); v != nil {
		if s, ok := v.(*snapshot); ok {
			return s
		}
	}

	logging.Warn("Catalog snapshot is empty or invalid")
	return newSnapshot(nil)
}

// FindByID returns the medicine with the given id, or nil when it is unknown.
func (dc *DataContainer) FindByID(ctx context.Context, id string) (*entities.Medicine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := dc.current()
	i, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	m := s.medicines[i]
	return &m, nil
}

// FindMany returns up to limit medicines matching filter, in catalog order.
func (dc *DataContainer) FindMany(ctx context.Context, filter interfaces.Filter, limit int) ([]entities.Medicine, error) {
	if limit <= 0 {
		return []entities.Medicine{}, nil
	}

	s := dc.current()
	out := make([]entities.Medicine, 0, min(limit, 64))

	for i := range s.medicines {
		if len(out) >= limit {
			break
		}
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if s.matches(i, filter) {
			out = append(out, s.medicines[i])
		}
	}

	return out, nil
}

// RandomSample draws up to size matching medicines uniformly without
// replacement, using reservoir sampling over a single scan.
func (dc *DataContainer) RandomSample(ctx context.Context, filter interfaces.Filter, size int) ([]entities.Medicine, error) {
	if size <= 0 {
		return []entities.Medicine{}, nil
	}

	s := dc.current()
	reservoir := make([]int, 0, min(size, len(s.medicines)))
	seen := 0

	for i := range s.medicines {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !s.matches(i, filter) {
			continue
		}

		seen++
		if len(reservoir) < size {
			reservoir = append(reservoir, i)
			continue
		}
		if j := rand.IntN(seen); j < size {
			reservoir[j] = i
		}
	}

	out := make([]entities.Medicine, len(reservoir))
	for k, i := range reservoir {
		out[k] = s.medicines[i]
	}
	return out, nil
}

// Search returns medicines whose name, composition or ingredients contain the
// query text, case-insensitively. An empty text matches every row.
func (dc *DataContainer) Search(ctx context.Context, query interfaces.SearchQuery) ([]entities.Medicine, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	text := strings.ToLower(strings.TrimSpace(query.Text))
	filter := interfaces.Filter{Category: query.Category, MaxPrice: query.MaxPrice}

	s := dc.current()
	out := make([]entities.Medicine, 0, limit)

	for i := range s.medicines {
		if len(out) >= limit {
			break
		}
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !s.matches(i, filter) {
			continue
		}
		if text != "" && !strings.Contains(s.searchText[i], text) {
			continue
		}
		out = append(out, s.medicines[i])
	}

	return out, nil
}

// ReplaceAll atomically swaps in a new catalog generation.
func (dc *DataContainer) ReplaceAll(ctx context.Context, medicines []entities.Medicine, report *interfaces.DataQualityReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := newSnapshot(medicines)
	if report == nil {
		report = &interfaces.DataQualityReport{TotalMedicines: len(next.medicines)}
	}

	// Atomic swap (zero downtime replacement)
	dc.catalog.Store(next)
	dc.report.Store(report)
	dc.lastUpdated.Store(time.Now())

	logging.Info("Catalog replaced", "rows", len(medicines), "medicines", len(next.medicines))
	return nil
}

// Count returns the number of medicines in the current catalog
func (dc *DataContainer) Count() int {
	return len(dc.current().medicines)
}

// GetDataQualityReport returns the report of the last import
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	if v := dc.report.Load(); v != nil {
		if report, ok := v.(*interfaces.DataQualityReport); ok {
			return report
		}
	}
	return &interfaces.DataQualityReport{}
}

// GetLastUpdated returns the timestamp of the last catalog replacement
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a catalog refresh is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// BeginUpdate marks the start of a refresh.
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
