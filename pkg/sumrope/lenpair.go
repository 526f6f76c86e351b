package sumrope

// Dimension selects which component of a LenPair a query or sum operates
// on: characters or bytes.
type Dimension int

const (
	// DimChar selects the character-count component.
	DimChar Dimension = 0
	// DimByte selects the byte-count component.
	DimByte Dimension = 1
)

// LenPair is the cumulative-sum monoid element tracked by the rope: a
// non-negative pair (character count, byte count). The zero value is the
// identity element.
type LenPair struct {
	Char int
	Byte int
}

// At returns the component of the pair selected by dim. It panics-free
// callers should prefer this over direct field access when the dimension
// is chosen dynamically; Get returns an error instead for dim outside
// {DimChar, DimByte}.
func (p LenPair) At(dim Dimension) int {
	if dim == DimChar {
		return p.Char
	}
	return p.Byte
}

// Get returns the component at index idx (0 = char, 1 = byte), failing
// with ErrInvalidArgument if idx is not 0 or 1.
func (p LenPair) Get(idx int) (int, error) {
	switch idx {
	case 0:
		return p.Char, nil
	case 1:
		return p.Byte, nil
	default:
		return 0, invalidArgf("lenpair index %d out of {0,1}", idx)
	}
}

// Add returns the pointwise sum p + q.
func (p LenPair) Add(q LenPair) LenPair {
	return LenPair{Char: p.Char + q.Char, Byte: p.Byte + q.Byte}
}

// Sub returns the pointwise difference p - q. Callers are responsible for
// only subtracting pairs where the result's components remain
// non-negative; Sub does not itself validate this.
func (p LenPair) Sub(q LenPair) LenPair {
	return LenPair{Char: p.Char - q.Char, Byte: p.Byte - q.Byte}
}

// Less reports whether p is strictly less than v in dimension dim.
func (p LenPair) Less(v int, dim Dimension) bool {
	return p.At(dim) < v
}
