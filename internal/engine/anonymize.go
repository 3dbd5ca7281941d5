package engine

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Placeholder markers for protected time spans. The index between prefix
// and suffix must stay digit-free so the token can never look like a
// numeric literal.
const (
	timePlaceholderPrefix = "§§§TIME"
	timePlaceholderSuffix = "PROTECTED§§§"
)

// timePlaceholderIndex encodes a placeholder ordinal without digits for the
// first 26 spans, then falls back to an X-prefixed decimal.
func timePlaceholderIndex(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "X" + strconv.Itoa(i)
}

// Apply substitutes every mapping key in text with its pseudonym and
// returns the anonymized text. Bytes outside a match are returned
// unchanged.
//
// Three phases, in strict order:
//  1. Every time value is swapped for a unique placeholder token so its
//     digits are invisible to substitution.
//  2. Mapping keys are substituted longest-first, each pass operating on
//     the output of the previous one. Longest-first ordering prevents a
//     shorter key from corrupting a longer key that contains it.
//  3. Placeholders are swapped back for the recorded time values.
func (e *Engine) Apply(text string, m *Mapping) string {
	var protectedTimes []string
	result := timePattern.ReplaceAllStringFunc(text, func(match string) string {
		idx := len(protectedTimes)
		protectedTimes = append(protectedTimes, match)
		return timePlaceholderPrefix + timePlaceholderIndex(idx) + timePlaceholderSuffix
	})

	entries := make([]*Entry, len(m.entries))
	copy(entries, m.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Original) > len(entries[j].Original)
	})

	for _, entry := range entries {
		if e.config.CaseInsensitive {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(entry.Original))
			result = re.ReplaceAllLiteralString(result, entry.Pseudonym)
		} else {
			result = strings.ReplaceAll(result, entry.Original, entry.Pseudonym)
		}
	}

	for i, original := range protectedTimes {
		placeholder := timePlaceholderPrefix + timePlaceholderIndex(i) + timePlaceholderSuffix
		result = strings.ReplaceAll(result, placeholder, original)
	}

	return result
}
