package entities

import "strings"

// Category is the coarse therapeutic class of a medicine.
type Category string

const (
	CategoryAntibiotics Category = "Antibiotics"
	CategoryAntimalaria Category = "Antimalaria"
	CategoryAnalgesics  Category = "Analgestics" // spelling matches the catalog data
	CategorySupplements Category = "Supplements"
	CategorySteroids    Category = "Steroids"
	CategoryOther       Category = "Other"
)

// Categories lists every accepted category value.
var Categories = []Category{
	CategoryAntibiotics,
	CategoryAntimalaria,
	CategoryAnalgesics,
	CategorySupplements,
	CategorySteroids,
	CategoryOther,
}

// ParseCategory returns the category matching s exactly, or false.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Medicine is one catalog row.
type Medicine struct {
	ID                   string   `json:"_id" db:"id"`
	Name                 string   `json:"name" db:"name"`
	Composition          string   `json:"composition" db:"composition"`
	Ingredients          []string `json:"ingredients" db:"-"`
	Manufacturer         string   `json:"manufacturer" db:"manufacturer"`
	PackSize             string   `json:"packSize,omitempty" db:"pack_size"`
	Price                float64  `json:"price" db:"price"` // 0 when unavailable
	Category             Category `json:"category" db:"category"`
	PrescriptionRequired bool     `json:"prescriptionRequired" db:"prescription_required"`
	SubCategory          string   `json:"subCategory,omitempty" db:"sub_category"`
	Usage                string   `json:"usage,omitempty" db:"usage"`
	SideEffects          string   `json:"sideEffects,omitempty" db:"side_effects"`
	DrugInteractions     string   `json:"drugInteractions,omitempty" db:"drug_interactions"`
}

// HasPrice reports whether the catalog knows a price for the medicine.
func (m Medicine) HasPrice() bool {
	return m.Price > 0
}

// SideEffectsList splits the comma separated side effects text.
func (m Medicine) SideEffectsList() []string {
	if m.SideEffects == "" {
		return nil
	}

	parts := strings.Split(m.SideEffects, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

// Interactions parses the raw interaction payload. Malformed payloads yield empty interactions.
func (m Medicine) Interactions() Interactions {
	parsed, err := ParseInteractions(m.DrugInteractions)
	if err != nil {
		return Interactions{}
	}
	return parsed
}
