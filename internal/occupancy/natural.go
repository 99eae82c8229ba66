package occupancy

import (
	"sort"
	"strings"
	"unicode"
)

// NaturalLess orders strings with embedded numbers numerically, so "Sala 2" sorts before
// "Sala 10". Text segments compare case-insensitively.
func NaturalLess(a, b string) bool {
	return naturalCompare(a, b) < 0
}

// SortNatural sorts values in place using NaturalLess.
func SortNatural(values []string) {
	sort.SliceStable(values, func(i, j int) bool { return NaturalLess(values[i], values[j]) })
}

func naturalCompare(a, b string) int {
	sa, sb := splitNatural(a), splitNatural(b)
	for i := 0; i < len(sa) && i < len(sb); i++ {
		var c int
		if i%2 == 1 {
			c = compareDigits(sa[i], sb[i])
		} else {
			c = strings.Compare(strings.ToLower(sa[i]), strings.ToLower(sb[i]))
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(sa) < len(sb):
		return -1
	case len(sa) > len(sb):
		return 1
	}
	return strings.Compare(a, b)
}

// splitNatural returns alternating text and digit segments, always starting with a
// (possibly empty) text segment.
func splitNatural(s string) []string {
	parts := []string{""}
	digits := false
	for _, r := range s {
		isDigit := r < unicode.MaxASCII && unicode.IsDigit(r)
		if isDigit != digits {
			parts = append(parts, "")
			digits = isDigit
		}
		parts[len(parts)-1] += string(r)
	}
	return parts
}

// compareDigits compares two digit runs as integers of arbitrary length.
func compareDigits(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	return strings.Compare(ta, tb)
}
