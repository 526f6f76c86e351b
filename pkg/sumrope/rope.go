package sumrope

// SumRope is an immutable, line-atomic sequence with cached character and
// byte counts at every prefix. Lines are stored as RLEGroups, never as
// their original text; operations work by line index or by cumulative
// offset in one of the two dimensions (DimChar, DimByte).
//
// Every mutating method returns a new SumRope; the receiver is left
// untouched. This mirrors a persistent tree: old roots remain valid and
// cheap to keep around, which is what Transaction and Savepoint build on.
type SumRope struct {
	root node
	cfg  Config
}

// Empty is the zero-length SumRope under DefaultChunkSize/DefaultBalanceRatio.
var Empty = SumRope{cfg: Config{}.normalized()}

// NewSumRope returns an empty SumRope configured with cfg.
func NewSumRope(cfg Config) SumRope {
	return SumRope{cfg: cfg.normalized()}
}

// FromText builds a SumRope from text. Each line keeps its trailing '\n'
// as part of the line's own RLEGroup, except the last line, which only
// carries one if text itself ended with '\n' and had content after the
// previous one; a text ending exactly on a newline does not produce a
// trailing empty line. "a\nb\nc" is the three lines "a\n", "b\n", "c".
// An empty string produces zero lines (an absent root), same as
// Construct(nil).
func FromText(text string, cfg Config) (SumRope, error) {
	lines := splitKeepingNewlines(text)

	groups := make([]RLEGroup, len(lines))
	for i, line := range lines {
		g, err := NewRLEGroup(line)
		if err != nil {
			return SumRope{}, err
		}
		groups[i] = g
	}

	cfg = cfg.normalized()
	return SumRope{root: buildBalanced(groups, cfg), cfg: cfg}, nil
}

// Construct builds a SumRope directly from a slice of RLEGroups, useful
// when lines are already encoded (e.g. restored from a snapshot).
func Construct(groups []RLEGroup, cfg Config) SumRope {
	cfg = cfg.normalized()
	return SumRope{root: buildBalanced(append([]RLEGroup(nil), groups...), cfg), cfg: cfg}
}

// Len returns the number of lines.
func (r SumRope) Len() int { return nodeLen(r.root) }

// TotalSum returns the LenPair sum over every line.
func (r SumRope) TotalSum() LenPair { return nodeSum(r.root) }

// IsEmpty reports whether the rope has no lines at all.
func (r SumRope) IsEmpty() bool { return r.Len() == 0 }

// SplitLines splits text into lines using FromText's convention (each
// line keeps its trailing '\n'), for callers that need the same line
// boundaries FromText would use without building a rope from them.
func SplitLines(text string) []string { return splitKeepingNewlines(text) }

// splitKeepingNewlines splits text into lines, keeping each line's
// trailing '\n' attached, per FromText's convention.
func splitKeepingNewlines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// Get returns the RLEGroup at line index i. Fails with ErrOutOfRange if
// i is not in [0, Len()).
func (r SumRope) Get(i int) (RLEGroup, error) {
	if i < 0 || i >= r.Len() {
		return RLEGroup{}, outOfRangef("line index %d out of [0,%d)", i, r.Len())
	}
	// A direct Get does not need the positional-query machinery; splitting
	// at i and i+1 reuses the same tree-descent logic split already has.
	_, rest := splitNode(r.root, i)
	only, _ := splitNode(rest, 1)
	return nodeFlatten(only)[0], nil
}

// Set returns a copy of r with line i replaced by text, re-encoded as an
// RLEGroup. Fails with ErrOutOfRange if i is not in [0, Len()), or with
// ErrInvalidEncoding if text is not valid UTF-8.
func (r SumRope) Set(i int, text string) (SumRope, error) {
	g, err := NewRLEGroup(text)
	if err != nil {
		return SumRope{}, err
	}
	return r.SetGroup(i, g)
}

// SetGroup is Set taking an already-encoded RLEGroup.
func (r SumRope) SetGroup(i int, g RLEGroup) (SumRope, error) {
	if i < 0 || i >= r.Len() {
		return SumRope{}, outOfRangef("line index %d out of [0,%d)", i, r.Len())
	}
	return r.ReplaceGroups(i, i+1, []RLEGroup{g})
}

// Slice returns the RLEGroups for lines [from, to). Fails with
// ErrOutOfRange if the range is not within [0, Len()] or from > to.
func (r SumRope) Slice(from, to int) ([]RLEGroup, error) {
	if err := r.checkRange(from, to); err != nil {
		return nil, err
	}
	_, rest := splitNode(r.root, from)
	mid, _ := splitNode(rest, to-from)
	return nodeFlatten(mid), nil
}

// ToList returns every line's RLEGroup, in order.
func (r SumRope) ToList() []RLEGroup { return nodeFlatten(r.root) }

// Replace returns a copy of r with lines [from, to) replaced by the lines
// of text, split per FromText's convention. Fails with ErrOutOfRange if
// the range is invalid, ErrInvalidEncoding if text is not valid UTF-8.
func (r SumRope) Replace(from, to int, text string) (SumRope, error) {
	lines := splitKeepingNewlines(text)
	groups := make([]RLEGroup, len(lines))
	for i, line := range lines {
		g, err := NewRLEGroup(line)
		if err != nil {
			return SumRope{}, err
		}
		groups[i] = g
	}
	return r.ReplaceGroups(from, to, groups)
}

// ReplaceGroups is Replace taking already-encoded RLEGroups directly,
// with no implicit newline splitting: replacement is exactly the slice
// given, including zero groups (a pure deletion) or many.
func (r SumRope) ReplaceGroups(from, to int, groups []RLEGroup) (SumRope, error) {
	if err := r.checkRange(from, to); err != nil {
		return SumRope{}, err
	}

	left, rest := splitNode(r.root, from)
	_, right := splitNode(rest, to-from)

	mid := buildBalanced(groups, r.cfg)

	joined := newBranch(newBranch(left, mid), right)
	return SumRope{root: rebalanceWith(joined, r.cfg), cfg: r.cfg}, nil
}

// Insert returns a copy of r with the lines of text inserted before line
// index at. Insert(Len(), text) appends.
func (r SumRope) Insert(at int, text string) (SumRope, error) {
	return r.Replace(at, at, text)
}

// Delete returns a copy of r with lines [from, to) removed.
func (r SumRope) Delete(from, to int) (SumRope, error) {
	return r.ReplaceGroups(from, to, nil)
}

func (r SumRope) checkRange(from, to int) error {
	if from < 0 || to > r.Len() || from > to {
		return outOfRangef("range [%d,%d) out of [0,%d]", from, to, r.Len())
	}
	return nil
}

// PrefixSum returns the LenPair sum of lines [0, i). PrefixSum(0) is
// always the zero LenPair; PrefixSum(Len()) always equals TotalSum().
// Fails with ErrOutOfRange if i is not in [0, Len()].
func (r SumRope) PrefixSum(i int) (LenPair, error) {
	if i < 0 || i > r.Len() {
		return LenPair{}, outOfRangef("line index %d out of [0,%d]", i, r.Len())
	}
	left, _ := splitNode(r.root, i)
	return nodeSum(left), nil
}

// RangeSum returns the LenPair sum of lines [from, to).
func (r SumRope) RangeSum(from, to int) (LenPair, error) {
	if err := r.checkRange(from, to); err != nil {
		return LenPair{}, err
	}
	pFrom, _ := r.PrefixSum(from)
	pTo, _ := r.PrefixSum(to)
	return pTo.Sub(pFrom), nil
}

// QueryResult is the resolved position of a query: the line it falls in,
// the LenPair sum of every line before it, the line's own RLEGroup, and
// the LenPair offset within that line.
type QueryResult struct {
	LineIndex int
	LineStart LenPair
	Line      RLEGroup
	Offset    LenPair
}

// Query resolves value (a cumulative offset in dimension dim, 0-based)
// to the line containing it and the offset within that line, in O(log n).
// value is clamped into [0, TotalSum().At(dim)]; querying an empty rope
// returns the zero QueryResult with Line == EmptyGroup.
func (r SumRope) Query(value int, dim Dimension) QueryResult {
	if value < 0 {
		value = 0
	}
	if max := r.TotalSum().At(dim); value > max {
		value = max
	}
	if r.root == nil {
		return QueryResult{Line: EmptyGroup}
	}
	var hist []node
	q := r.root.query(value, dim, &hist)
	return QueryResult{LineIndex: q.idx, LineStart: q.start, Line: q.group, Offset: q.offset}
}

// QueryChar is Query(value, DimChar).
func (r SumRope) QueryChar(value int) QueryResult { return r.Query(value, DimChar) }

// QueryByte is Query(value, DimByte).
func (r SumRope) QueryByte(value int) QueryResult { return r.Query(value, DimByte) }
