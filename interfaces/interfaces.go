// Package interfaces defines core abstractions for the PharmaTrack API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// DataQualityReport provides a summary of data quality issues found in a catalog import
type DataQualityReport struct {
	TotalMedicines               int
	DuplicateIDs                 []string
	MedicinesWithoutIngredients  int
	MedicinesWithoutPrice        int
	MedicinesWithBadInteractions int      // drug interaction payloads that fail to parse
	DuplicateProductKeys         int      // rows sharing name + ingredient set
	InvalidCategories            []string // distinct category values outside the enumeration
}

// Filter narrows a catalog query. Zero values mean "no constraint".
type Filter struct {
	ExcludeID string
	// IngredientTerms matches medicines whose ingredient text contains any of the
	// terms as a case-insensitive substring.
	IngredientTerms []string
	Category        entities.Category
	MaxPrice        *float64
}

// SearchQuery is a free-text lookup on name, composition and ingredients.
type SearchQuery struct {
	Text     string
	Category entities.Category
	MaxPrice *float64
	Limit    int
}

// CatalogStore defines the read contract the recommendation engine and the
// HTTP handlers rely on.
type CatalogStore interface {
	// FindByID returns nil and no error when the id is unknown.
	FindByID(ctx context.Context, id string) (*entities.Medicine, error)
	// FindMany returns at most limit medicines matching filter, in catalog order.
	FindMany(ctx context.Context, filter Filter, limit int) ([]entities.Medicine, error)
	// RandomSample returns an approximately uniform sample without replacement
	// of at most size medicines matching filter.
	RandomSample(ctx context.Context, filter Filter, size int) ([]entities.Medicine, error)
	// Search performs the substring search used to locate target medicines.
	Search(ctx context.Context, query SearchQuery) ([]entities.Medicine, error)
}

// CatalogWriter defines the contract for replacing the catalog contents.
// Replacement is atomic from the readers' point of view.
type CatalogWriter interface {
	ReplaceAll(ctx context.Context, medicines []entities.Medicine, report *DataQualityReport) error
	BeginUpdate() bool
	EndUpdate()
}

// CatalogStats exposes catalog state to health checks.
type CatalogStats interface {
	Count() int
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetDataQualityReport() *DataQualityReport
}

// Catalog is the full contract implemented by both store backends.
type Catalog interface {
	CatalogStore
	CatalogWriter
	CatalogStats
}

// Parser defines the contract for loading the medicine catalog from an external source.
type Parser interface {
	ParseAllMedicines(ctx context.Context) ([]entities.Medicine, error)
}

// Scheduler defines the contract for job scheduling.
// It manages automated catalog refreshes.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the status label, its details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog refresh
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ValidateMedicine checks if a medicine record is valid
	ValidateMedicine(m *entities.Medicine) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(medicines []entities.Medicine) *DataQualityReport

	// ValidateInput validates free text user input
	ValidateInput(input string) error

	// ValidateID validates a medicine identifier
	ValidateID(input string) error
}
