package sumrope

import "unicode/utf8"

// widthRun is one run of the RLE: run consecutive code points, each
// byteWidth bytes wide.
type widthRun struct {
	byteWidth int
	run       int
}

// RLEGroup represents one line of text as a run-length encoding of the
// UTF-8 byte width of each code point, plus cached totals. It never
// stores the line's text directly: the RLE is enough to translate between
// character and byte offsets within the line without rescanning the
// original bytes.
//
// The zero value is the empty line (charlen = bytelen = 0).
type RLEGroup struct {
	rle     []widthRun
	charlen int
	bytelen int
}

// EmptyGroup is the RLEGroup for a zero-length line.
var EmptyGroup = RLEGroup{}

// NewRLEGroup scans text and builds its coalesced run-length encoding.
// Fails with ErrInvalidEncoding if text is not valid UTF-8.
func NewRLEGroup(text string) (RLEGroup, error) {
	if text == "" {
		return EmptyGroup, nil
	}
	if !utf8.ValidString(text) {
		return RLEGroup{}, invalidEncodingf("text is not valid UTF-8")
	}

	var g RLEGroup
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			return RLEGroup{}, invalidEncodingf("invalid UTF-8 byte at offset %d", i)
		}
		g.appendWidth(size)
		g.charlen++
		g.bytelen += size
		i += size
	}
	return g, nil
}

// appendWidth extends the RLE by one code point of the given byte width,
// coalescing into the previous run when the width matches.
func (g *RLEGroup) appendWidth(width int) {
	n := len(g.rle)
	if n > 0 && g.rle[n-1].byteWidth == width {
		g.rle[n-1].run++
		return
	}
	g.rle = append(g.rle, widthRun{byteWidth: width, run: 1})
}

// CharLen returns the number of characters (code points) in the line.
func (g RLEGroup) CharLen() int { return g.charlen }

// ByteLen returns the number of UTF-8 bytes in the line.
func (g RLEGroup) ByteLen() int { return g.bytelen }

// Sum returns the line's totals as a LenPair.
func (g RLEGroup) Sum() LenPair { return LenPair{Char: g.charlen, Byte: g.bytelen} }

// ByteToChar returns the largest character offset c such that
// CharToByte(c) <= b, for 0 <= b <= ByteLen(). Fails with ErrOutOfRange
// otherwise. At an exact run boundary the boundary belongs to the
// preceding run, per spec: the byte offset is not attributed to any
// character of the following run.
func (g RLEGroup) ByteToChar(b int) (int, error) {
	if b < 0 || b > g.bytelen {
		return 0, outOfRangef("byte offset %d out of [0,%d]", b, g.bytelen)
	}
	chars, bytes := 0, 0
	for _, run := range g.rle {
		runBytes := run.byteWidth * run.run
		if bytes+runBytes <= b {
			chars += run.run
			bytes += runBytes
			continue
		}
		// b falls inside this run; take as many whole characters as fit.
		remaining := b - bytes
		whole := remaining / run.byteWidth
		return chars + whole, nil
	}
	return chars, nil
}

// CharToByte returns the byte offset at the start of character c, for
// 0 <= c <= CharLen(). Fails with ErrOutOfRange otherwise.
// CharToByte(0) == 0 and CharToByte(CharLen()) == ByteLen().
func (g RLEGroup) CharToByte(c int) (int, error) {
	if c < 0 || c > g.charlen {
		return 0, outOfRangef("char offset %d out of [0,%d]", c, g.charlen)
	}
	chars, bytes := 0, 0
	for _, run := range g.rle {
		if chars+run.run <= c {
			chars += run.run
			bytes += run.byteWidth * run.run
			continue
		}
		remaining := c - chars
		return bytes + remaining*run.byteWidth, nil
	}
	return bytes, nil
}

// ByteToPair returns LenPair{ByteToChar(b), b}.
func (g RLEGroup) ByteToPair(b int) (LenPair, error) {
	c, err := g.ByteToChar(b)
	if err != nil {
		return LenPair{}, err
	}
	return LenPair{Char: c, Byte: b}, nil
}

// CharToPair returns LenPair{c, CharToByte(c)}.
func (g RLEGroup) CharToPair(c int) (LenPair, error) {
	b, err := g.CharToByte(c)
	if err != nil {
		return LenPair{}, err
	}
	return LenPair{Char: c, Byte: b}, nil
}
