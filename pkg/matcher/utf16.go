package matcher

import "unicode/utf8"

// UTF16Offsets maps every byte offset of text to the UTF-16 code unit
// offset a browser editor uses for the same position. The result has
// len(text)+1 elements, so both ends of a Span can be looked up. An invalid
// byte counts as one unit, the U+FFFD it decodes to.
func UTF16Offsets(text string) []int {
	offs := make([]int, len(text)+1)
	n := 0
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		for j := 0; j < w; j++ {
			offs[i+j] = n
		}
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		i += w
	}
	offs[len(text)] = n
	return offs
}
