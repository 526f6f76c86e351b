package sumrope

// LineIterator walks a SumRope's lines in order over a slice of every
// line that SumRope.Lines flattens once, when the iterator is created.
// Its zero value is not usable; obtain one from SumRope.Lines.
type LineIterator struct {
	groups []RLEGroup
	pos    int
	offset LenPair
}

// Lines returns a LineIterator over r's lines, starting before index 0.
func (r SumRope) Lines() *LineIterator {
	return &LineIterator{groups: nodeFlatten(r.root), pos: -1}
}

// Next advances the iterator and reports whether a line is available.
func (it *LineIterator) Next() bool {
	if it.pos >= 0 && it.pos < len(it.groups) {
		it.offset = it.offset.Add(it.groups[it.pos].Sum())
	}
	it.pos++
	return it.pos < len(it.groups)
}

// Current returns the line at the iterator's current position. Current
// is only valid after a call to Next that returned true.
func (it *LineIterator) Current() RLEGroup { return it.groups[it.pos] }

// Index returns the current line's index.
func (it *LineIterator) Index() int { return it.pos }

// Start returns the LenPair sum of every line before the current one.
func (it *LineIterator) Start() LenPair { return it.offset }
