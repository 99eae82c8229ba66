package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"null": {},
	"nat":  {},
	"<na>": {},
}

// IsNullToken reports whether s is empty or one of the null-like placeholders that
// tabular exports produce for missing values.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CleanText trims, collapses internal whitespace runs to a single space and maps
// null-like placeholders to the empty string.
func CleanText(s string) string {
	if IsNullToken(s) {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// Fold produces a comparison key: cleaned, accent-stripped and case-folded.
// "  Sala de   Vacina " and "SALA DE VACÍNA" fold to the same key.
func Fold(s string) string {
	cleaned := CleanText(s)
	if cleaned == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, cleaned)
	if err != nil {
		stripped = cleaned
	}
	return cases.Fold().String(stripped)
}

// FoldSet builds a lookup set of folded keys.
func FoldSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k := Fold(v); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
