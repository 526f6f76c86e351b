package document

import "golang.org/x/text/width"

// DisplayWidth returns the terminal column width of s: 1 per narrow or
// ambiguous rune, 2 per East Asian wide or fullwidth rune. This is what
// a terminal-hosted editor needs to place the cursor correctly on a
// line mixing ASCII and CJK text, which RLEGroup's byte-width RLE alone
// does not tell it (a 3-byte UTF-8 rune can be narrow or wide).
func DisplayWidth(s string) int {
	total := 0
	for _, r := range s {
		total += runeWidth(r)
	}
	return total
}

func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}
