// Package validation provides data validation for imported catalog records and user input.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Search input: letters (any script), digits, spaces and the punctuation found in medicine names
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'%(),/&]+$`)

	// Medicine ids: UUIDs, hex object ids or short catalog codes
	idRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}
)

const (
	maxNameLength       = 200
	maxIngredientLength = 200
	maxInputLength      = 80
	minInputLength      = 2
	maxInputWords       = 8
	reportSampleSize    = 10
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateMedicine checks if a medicine record is valid
func (v *DataValidatorImpl) ValidateMedicine(m *entities.Medicine) error {
	if m == nil {
		return fmt.Errorf("medicine is nil")
	}

	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("missing id for medicine %q", m.Name)
	}

	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("empty name for medicine %s", m.ID)
	}

	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name too long for medicine %s: %d characters", m.ID, len(m.Name))
	}

	if strings.TrimSpace(m.Composition) == "" {
		return fmt.Errorf("empty composition for medicine %s", m.ID)
	}

	for _, ing := range m.Ingredients {
		if len(ing) > maxIngredientLength {
			return fmt.Errorf("ingredient too long for medicine %s: %d characters", m.ID, len(ing))
		}
	}

	if m.Price < 0 || math.IsNaN(m.Price) || math.IsInf(m.Price, 0) {
		return fmt.Errorf("invalid price for medicine %s: %v", m.ID, m.Price)
	}

	if _, ok := entities.ParseCategory(string(m.Category)); !ok {
		return fmt.Errorf("invalid category for medicine %s: %q", m.ID, m.Category)
	}

	return nil
}

// ReportDataQuality lists the data issues of an imported catalog. Issues are
// reported, not fixed: the catalog is served as imported.
func (v *DataValidatorImpl) ReportDataQuality(medicines []entities.Medicine) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalMedicines:    len(medicines),
		DuplicateIDs:      []string{},
		InvalidCategories: []string{},
	}

	ids := make(map[string]bool, len(medicines))
	productKeys := make(map[string]bool, len(medicines))
	invalidCategories := make(map[string]bool)

	for i := range medicines {
		m := &medicines[i]

		// Check 1: duplicate ids (store first 10)
		if ids[m.ID] && len(report.DuplicateIDs) < reportSampleSize {
			report.DuplicateIDs = append(report.DuplicateIDs, m.ID)
		}
		ids[m.ID] = true

		// Check 2: rows describing the same product
		key := alternatives.DedupKey(*m)
		if productKeys[key] {
			report.DuplicateProductKeys++
		}
		productKeys[key] = true

		// Check 3: missing ingredients, which only ever match through the category tiers
		if len(alternatives.IngredientSet(m.Ingredients)) == 0 {
			report.MedicinesWithoutIngredients++
		}

		// Check 4: unknown price
		if !m.HasPrice() {
			report.MedicinesWithoutPrice++
		}

		// Check 5: unparseable interaction payloads
		if _, err := entities.ParseInteractions(m.DrugInteractions); err != nil {
			report.MedicinesWithBadInteractions++
		}

		// Check 6: categories outside the enumeration
		if _, ok := entities.ParseCategory(string(m.Category)); !ok {
			invalidCategories[string(m.Category)] = true
		}
	}

	for c := range invalidCategories {
		report.InvalidCategories = append(report.InvalidCategories, c)
	}
	sort.Strings(report.InvalidCategories)

	return report
}

// LogReport writes a data quality report to the log
func LogReport(report *interfaces.DataQualityReport) {
	if report == nil {
		return
	}

	logging.Info("Catalog data quality report",
		"total_medicines", report.TotalMedicines,
		"duplicate_ids", len(report.DuplicateIDs),
		"duplicate_products", report.DuplicateProductKeys,
		"without_ingredients", report.MedicinesWithoutIngredients,
		"without_price", report.MedicinesWithoutPrice,
		"bad_interactions", report.MedicinesWithBadInteractions,
	)

	if len(report.DuplicateIDs) > 0 {
		logging.Warn("Duplicate medicine ids detected", "sample", report.DuplicateIDs)
	}
	if len(report.InvalidCategories) > 0 {
		logging.Warn("Invalid categories detected", "categories", report.InvalidCategories)
	}
}

// ValidateInput validates free text search input
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < minInputLength {
		return fmt.Errorf("input too short: minimum %d characters", minInputLength)
	}

	if len(input) > maxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", maxInputLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if words := strings.Fields(input); len(words) > maxInputWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxInputWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and - . + ' %% ( ) , / & are allowed")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateID validates a medicine identifier
func (v *DataValidatorImpl) ValidateID(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("id cannot be empty")
	}

	if !idRegex.MatchString(input) {
		return fmt.Errorf("id contains invalid characters. Only letters, numbers, '-' and '_' are allowed")
	}

	return nil
}

// hasExcessiveRepetition checks for the same character repeated more than 10 times consecutively
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
