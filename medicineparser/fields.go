package medicineparser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/NandaniSingh69/PharmaTrack/medicineparser/entities"
)

var (
	// Parenthesized dosages such as "(500mg)", "(40IU/ml)" or "(30mg/5ml)"
	dosageAnnotation   = regexp.MustCompile(`\([^()]*\d[^()]*\)`)
	ingredientSplitter = regexp.MustCompile(`[+/,]`)
	priceNoise         = strings.NewReplacer("₹", "", "$", "", "€", "", "Rs.", "", ",", "", " ", "", "\u00a0", "")
)

// medicineNamespace scopes the name-based ids of imported rows.
var medicineNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://pharmatrack/medicines"))

// ExtractIngredients splits a salt composition into its ingredients:
// "Amoxycillin (500mg) + Clavulanic Acid (125mg)" gives [Amoxycillin, Clavulanic Acid].
func ExtractIngredients(composition string) []string {
	if strings.TrimSpace(composition) == "" {
		return []string{}
	}

	cleaned := dosageAnnotation.ReplaceAllString(composition, "")

	parts := ingredientSplitter.Split(cleaned, -1)
	ingredients := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ingredients = append(ingredients, p)
		}
	}
	return ingredients
}

// ExtractPrice parses a listed price such as "₹1,133.93". Unparseable or
// negative prices yield 0, meaning unknown.
func ExtractPrice(raw string) float64 {
	cleaned := priceNoise.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return price
}

// categoryKeywords is checked in order; the first matching category wins.
var categoryKeywords = []struct {
	category entities.Category
	keywords []string
}{
	{entities.CategoryAntibiotics, []string{"antibiotic", "anti-bacterial"}},
	{entities.CategoryAntimalaria, []string{"malaria", "anti-malarial"}},
	{entities.CategoryAnalgesics, []string{"analgesic", "pain", "paracetamol"}},
	{entities.CategorySupplements, []string{"vitamin", "supplement", "calcium", "mineral"}},
	{entities.CategorySteroids, []string{"steroid", "corticosteroid"}},
}

// MapCategory derives the category from the free text sub category.
func MapCategory(subCategory string) entities.Category {
	sub := strings.ToLower(subCategory)
	if strings.TrimSpace(sub) == "" {
		return entities.CategoryOther
	}

	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(sub, kw) {
				return ck.category
			}
		}
	}
	return entities.CategoryOther
}

var prescriptionKeywords = []string{"prescription", "antibiotic", "steroid", "insulin"}

// IsPrescriptionRequired guesses whether a medicine is sold on prescription from
// its description and sub category.
func IsPrescriptionRequired(description, subCategory string) bool {
	text := strings.ToLower(description + " " + subCategory)
	for _, kw := range prescriptionKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// StableID derives a deterministic id for a row without one, so that
// re-importing the same catalog keeps ids stable.
func StableID(m entities.Medicine) string {
	key := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(m.Name)),
		strings.ToLower(strings.TrimSpace(m.Composition)),
		strings.ToLower(strings.TrimSpace(m.Manufacturer)),
		strings.ToLower(strings.TrimSpace(m.PackSize)),
	}, "\x1f")
	return uuid.NewSHA1(medicineNamespace, []byte(key)).String()
}
