package medicineparser

import (
	"context"
	"fmt"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

// Compile-time check to ensure CSVParser implements Parser interface
var _ interfaces.Parser = (*CSVParser)(nil)

// CSVParser loads the catalog from a CSV export
type CSVParser struct {
	source    string
	validator interfaces.DataValidator
}

// NewCSVParser creates a parser reading source, a file path or an http(s) URL.
// Records rejected by validator are skipped; a nil validator accepts everything.
func NewCSVParser(source string, validator interfaces.DataValidator) *CSVParser {
	return &CSVParser{
		source:    source,
		validator: validator,
	}
}

// ParseAllMedicines implements the Parser interface
func (p *CSVParser) ParseAllMedicines(ctx context.Context) ([]entities.Medicine, error) {
	if p.source == "" {
		return nil, fmt.Errorf("no catalog source configured")
	}

	start := time.Now()

	body, err := fetchSource(ctx, p.source)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	medicines, err := readMedicines(decodeBody(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", p.source, err)
	}

	if p.validator != nil {
		medicines = p.validate(medicines)
	}

	if len(medicines) == 0 {
		return nil, fmt.Errorf("catalog %s contains no valid medicines", p.source)
	}

	logging.Info("Catalog parsed",
		"source", p.source,
		"medicines", len(medicines),
		"duration", time.Since(start))

	return medicines, nil
}

func (p *CSVParser) validate(medicines []entities.Medicine) []entities.Medicine {
	valid := medicines[:0]
	skipped := 0

	for i := range medicines {
		if err := p.validator.ValidateMedicine(&medicines[i]); err != nil {
			skipped++
			logging.Warn("Skipping invalid medicine", "error", err)
			continue
		}
		valid = append(valid, medicines[i])
	}

	if skipped > 0 {
		logging.Info("Catalog validation skip statistics",
			"skipped", skipped,
			"records_kept", len(valid))
	}
	return valid
}
