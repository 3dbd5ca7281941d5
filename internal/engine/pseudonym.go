package engine

import "strconv"

// Pseudonym generates the replacement label for a zero-based index.
//
// With a prefix the label is the prefix followed by the 1-based index
// ("NUM_1", "NUM_2", ...). Without a prefix the label is a bijective
// base-26 uppercase sequence: 0→"A", 25→"Z", 26→"AA", 51→"AZ", 52→"BA",
// 701→"ZZ", 702→"AAA". A negative index is a caller bug, not a runtime
// condition, so there is no error return.
func Pseudonym(index int, prefix string) string {
	if prefix != "" {
		return prefix + strconv.Itoa(index+1)
	}

	// Bijective base-26: after each carry the remaining index is
	// decremented by one so every label has exactly one spelling.
	var buf []byte
	for {
		buf = append([]byte{byte('A' + index%26)}, buf...)
		index /= 26
		if index == 0 {
			break
		}
		index--
	}
	return string(buf)
}
