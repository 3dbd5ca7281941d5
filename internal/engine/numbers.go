package engine

import "regexp"

// timePattern matches clock values like "9:30" or "14:05". Offsets covered
// by a time value are protected: never extracted as numbers and never
// altered by substitution.
var timePattern = regexp.MustCompile(`\d{1,2}:\d{2}`)

// numberPattern matches numeric literals with optional thousands separators
// and an optional decimal fraction. The \b anchors are equivalent to the
// letter/digit/underscore non-adjacency rule here because every match starts
// and ends with a digit, so "v2" and "room101" produce no match.
var numberPattern = regexp.MustCompile(`\b(?:\d{1,3}(?:,\d{3})*|\d+)(?:\.\d+)?\b`)

// protectedOffsets returns the set of byte offsets covered by a time value.
func protectedOffsets(text string) map[int]struct{} {
	offsets := make(map[int]struct{})
	for _, span := range timePattern.FindAllStringIndex(text, -1) {
		for i := span[0]; i < span[1]; i++ {
			offsets[i] = struct{}{}
		}
	}
	return offsets
}

// ExtractNumbers scans text for numeric literals in document order.
// Literals overlapping a time value are discarded entirely, so "12:30"
// yields neither "12" nor "30". Duplicate literal texts are all returned;
// deduplication happens when the mapping is built.
func ExtractNumbers(text string) []NumberSpan {
	protected := protectedOffsets(text)

	var spans []NumberSpan
	for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
		overlaps := false
		for i := loc[0]; i < loc[1]; i++ {
			if _, ok := protected[i]; ok {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		spans = append(spans, NumberSpan{
			Literal: text[loc[0]:loc[1]],
			Start:   loc[0],
			End:     loc[1],
		})
	}
	return spans
}
