package medicineparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// Column aliases, in order of preference. Exports from different sources
// name the same field differently.
var columnAliases = map[string][]string{
	"id":           {"id", "_id"},
	"name":         {"product_name", "name"},
	"composition":  {"salt_composition", "composition"},
	"manufacturer": {"product_manufactured", "manufacturer"},
	"price":        {"product_price", "price"},
	"usage":        {"medicine_desc", "usage"},
	"sideEffects":  {"side_effects"},
	"interactions": {"drug_interactions"},
	"subCategory":  {"sub_category"},
	"packSize":     {"pack_size", "pack_size_label"},
}

const defaultManufacturer = "Unknown"

// header maps a logical field to the column indexes carrying it.
type header map[string][]int

func parseHeader(columns []string) header {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.ToLower(strings.TrimSpace(c))
		if _, seen := index[c]; !seen {
			index[c] = i
		}
	}

	h := make(header, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				h[field] = append(h[field], i)
			}
		}
	}
	return h
}

// get returns the first non empty value among the columns of field.
func (h header) get(record []string, field string) string {
	for _, i := range h[field] {
		if i < len(record) {
			if v := strings.TrimSpace(record[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// readMedicines converts a catalog CSV export into medicines. Rows without a
// name or a composition are skipped.
func readMedicines(r io.Reader) ([]entities.Medicine, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	columns, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	h := parseHeader(columns)
	if len(h["name"]) == 0 || len(h["composition"]) == 0 {
		return nil, fmt.Errorf("catalog header is missing the name or composition column: %v", columns)
	}

	var medicines []entities.Medicine
	lineCount := 0
	skippedEmptyLines := 0
	skippedMissingFields := 0
	skippedFormatErrors := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineCount++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read catalog line %d: %w", lineCount, err)
			}
			skippedFormatErrors++
			continue
		}

		if isEmptyRecord(record) {
			skippedEmptyLines++
			continue
		}

		name := h.get(record, "name")
		composition := h.get(record, "composition")
		if name == "" || composition == "" {
			skippedMissingFields++
			continue
		}

		manufacturer := h.get(record, "manufacturer")
		if manufacturer == "" {
			manufacturer = defaultManufacturer
		}

		usage := h.get(record, "usage")
		subCategory := h.get(record, "subCategory")

		m := entities.Medicine{
			ID:                   h.get(record, "id"),
			Name:                 name,
			Composition:          composition,
			Ingredients:          ExtractIngredients(composition),
			Manufacturer:         manufacturer,
			PackSize:             h.get(record, "packSize"),
			Price:                ExtractPrice(h.get(record, "price")),
			Category:             MapCategory(subCategory),
			PrescriptionRequired: IsPrescriptionRequired(usage, subCategory),
			SubCategory:          subCategory,
			Usage:                usage,
			SideEffects:          h.get(record, "sideEffects"),
			DrugInteractions:     h.get(record, "interactions"),
		}
		if m.ID == "" {
			m.ID = StableID(m)
		}

		medicines = append(medicines, m)
	}

	// Log skip statistics if any lines were skipped
	if skippedEmptyLines > 0 || skippedMissingFields > 0 || skippedFormatErrors > 0 {
		logging.Info("Catalog CSV skip statistics",
			"empty_lines", skippedEmptyLines,
			"missing_fields", skippedMissingFields,
			"format_errors", skippedFormatErrors,
			"total_lines", lineCount,
			"records_parsed", len(medicines))
	}

	return medicines, nil
}

func isEmptyRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
