package alternatives

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	quantity = `\d+(?:[.,]\d+)?`
	unit     = `(?:mcg|mg|ml|iu|g)\b`

	// danglingSeparators are left at the edges once a dosage is removed.
	danglingSeparators = " /+,"
)

var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	// Strengths such as "500mg", "0.05% w/w" and per-volume "2mg/5ml" or "100 IU/ml".
	dosagePattern     = regexp.MustCompile(`(?i)` + quantity + `\s*(?:` + unit + `(?:\s*/\s*(?:` + quantity + `\s*)?` + unit + `)?|%\s*(?:w/w|v/v)?|w/w|v/v)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// minSearchTermLength is the shortest normalized ingredient used as a substring query.
// Shorter fragments match almost every row.
const minSearchTermLength = 3

// NormalizeIngredient lowercases an ingredient and strips dosage annotations:
// "Paracetamol (500mg)", "paracetamol 500 mg" and "Paracetamol 125mg/5ml" all
// become "paracetamol".
func NormalizeIngredient(ingredient string) string {
	s := strings.ToLower(strings.TrimSpace(ingredient))
	s = parentheticalPattern.ReplaceAllString(s, "")
	s = dosagePattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, danglingSeparators)
}

// IngredientSet normalizes ingredients into a set. Entries that normalize to
// the empty string are dropped.
func IngredientSet(ingredients []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		if n := NormalizeIngredient(ing); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// SearchTerms returns the distinct normalized ingredients long enough to be used
// as ingredient match queries, in their original order.
func SearchTerms(ingredients []string) []string {
	seen := make(map[string]struct{}, len(ingredients))
	terms := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		n := NormalizeIngredient(ing)
		if utf8.RuneCountInString(n) < minSearchTermLength {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		terms = append(terms, n)
	}
	return terms
}

// sortedKeys returns the set members in ascending order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
