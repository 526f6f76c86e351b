package document

import "github.com/clipperhouse/uax29/graphemes"

// VisualColumn returns the number of grapheme clusters (user-perceived
// characters) in line before charOffset, a rune offset into line. This
// is the column an editor should place the cursor at, since a sequence
// of combining marks or a multi-rune emoji counts as one character on
// screen even though it spans several runes and RLEGroup counts it as
// several.
func VisualColumn(line string, charOffset int) int {
	runes := []rune(line)
	if charOffset > len(runes) {
		charOffset = len(runes)
	}
	if charOffset < 0 {
		charOffset = 0
	}
	prefix := string(runes[:charOffset])
	return len(graphemes.SegmentAllString(prefix))
}

// GraphemeCount returns the number of grapheme clusters in line.
func GraphemeCount(line string) int {
	return len(graphemes.SegmentAllString(line))
}
