package document

import (
	"strings"

	"github.com/coreseekdev/lnrope/pkg/ot"
	"github.com/coreseekdev/lnrope/pkg/sumrope"
)

// Adapter implements ot.Document over a slice of line texts, keeping a
// sumrope.SumRope of the same lines' RLEGroups in lockstep so that
// line/offset queries run in O(log n) instead of rescanning the text.
type Adapter struct {
	lines []string
	rope  sumrope.SumRope
	cfg   sumrope.Config
}

var _ ot.Document = (*Adapter)(nil)

// NewAdapter builds an Adapter from text, using cfg to configure the
// underlying rope.
func NewAdapter(text string, cfg sumrope.Config) (*Adapter, error) {
	rope, err := sumrope.FromText(text, cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{lines: sumrope.SplitLines(text), rope: rope, cfg: cfg}, nil
}

// Length returns the document length in bytes, matching ot.Document's
// contract.
func (a *Adapter) Length() int { return a.rope.TotalSum().Byte }

// String returns the full document text.
func (a *Adapter) String() string { return strings.Join(a.lines, "") }

// Slice returns the substring of the document's bytes in [start, end).
func (a *Adapter) Slice(start, end int) string {
	return a.String()[start:end]
}

// Bytes returns the document's content as a byte slice.
func (a *Adapter) Bytes() []byte { return []byte(a.String()) }

// Clone returns a deep copy of a. The rope itself is a persistent value
// type and is cheap to copy; the line slice is copied explicitly so the
// clone shares no backing array with a.
func (a *Adapter) Clone() ot.Document {
	lines := make([]string, len(a.lines))
	copy(lines, a.lines)
	return &Adapter{lines: lines, rope: a.rope, cfg: a.cfg}
}

// Rope returns the adapter's current line-metrics rope.
func (a *Adapter) Rope() sumrope.SumRope { return a.rope }

// CharToLine returns the index of the line containing char offset
// charPos.
func (a *Adapter) CharToLine(charPos int) int {
	return a.rope.Query(charPos, sumrope.DimChar).LineIndex
}

// ByteToLine returns the index of the line containing byte offset
// bytePos.
func (a *Adapter) ByteToLine(bytePos int) int {
	return a.rope.Query(bytePos, sumrope.DimByte).LineIndex
}

// LineToChar returns the char offset of the start of line.
func (a *Adapter) LineToChar(line int) (int, error) {
	sum, err := a.rope.PrefixSum(line)
	if err != nil {
		return 0, err
	}
	return sum.Char, nil
}

// LineToByte returns the byte offset of the start of line.
func (a *Adapter) LineToByte(line int) (int, error) {
	sum, err := a.rope.PrefixSum(line)
	if err != nil {
		return 0, err
	}
	return sum.Byte, nil
}

// CharToByte converts a char offset into the equivalent byte offset.
func (a *Adapter) CharToByte(charPos int) int {
	q := a.rope.Query(charPos, sumrope.DimChar)
	return q.LineStart.Byte + q.Offset.Byte
}

// ByteToChar converts a byte offset into the equivalent char offset.
func (a *Adapter) ByteToChar(bytePos int) int {
	q := a.rope.Query(bytePos, sumrope.DimByte)
	return q.LineStart.Char + q.Offset.Char
}

// LineCount implements Host, so an Adapter can stand in as its own
// source of line text in tests and single-process callers that have no
// separate widget to mirror.
func (a *Adapter) LineCount() int { return len(a.lines) }

// LineText implements Host.
func (a *Adapter) LineText(i int) (string, error) {
	if i < 0 || i >= len(a.lines) {
		return "", sumrope.ErrOutOfRange
	}
	return a.lines[i], nil
}

// OnEdit re-derives RLEGroups for the lines a host-reported edit touched
// and folds them into the rope, following the rope's embedding protocol:
// locate the line via Query(charPos, DimChar), work out how many old
// lines the edit spans from charsRemoved, rebuild those lines from host,
// and replace them in one rope.ReplaceGroups call.
func (a *Adapter) OnEdit(charPos, charsRemoved, charsAdded int, host Host) error {
	startLine := a.rope.Query(charPos, sumrope.DimChar).LineIndex

	oldEndCharPos := charPos + charsRemoved
	endLine := a.rope.Query(oldEndCharPos, sumrope.DimChar).LineIndex + 1
	if endLine > a.rope.Len() {
		endLine = a.rope.Len()
	}

	newLineCount := host.LineCount()
	newEnd := endLine + newLineCount - len(a.lines)
	var newLines []string
	for i := startLine; i < newLineCount && i < newEnd; i++ {
		text, err := host.LineText(i)
		if err != nil {
			break
		}
		newLines = append(newLines, text)
	}

	groups := make([]sumrope.RLEGroup, len(newLines))
	for i, text := range newLines {
		g, err := sumrope.NewRLEGroup(text)
		if err != nil {
			return err
		}
		groups[i] = g
	}

	rope2, err := a.rope.ReplaceGroups(startLine, endLine, groups)
	if err != nil {
		return err
	}

	lines2 := make([]string, 0, len(a.lines)-(endLine-startLine)+len(newLines))
	lines2 = append(lines2, a.lines[:startLine]...)
	lines2 = append(lines2, newLines...)
	lines2 = append(lines2, a.lines[endLine:]...)

	a.rope = rope2
	a.lines = lines2
	return nil
}

// ReplaceText returns a copy of a with the document text in the byte
// range [start, end) replaced by text.
func (a *Adapter) ReplaceText(start, end int, text string) (*Adapter, error) {
	full := a.String()
	updated := full[:start] + text + full[end:]
	return NewAdapter(updated, a.cfg)
}

// SyncFromDocument rebuilds an Adapter, with cfg carried over from a,
// from the text of result. It exists because ot.Operation.ApplyToDocument
// always materializes its result as a *StringDocument regardless of the
// input document's type, so applying an operation to an Adapter and
// keeping its rope up to date takes this explicit second step.
func SyncFromDocument(a *Adapter, result ot.Document) (*Adapter, error) {
	return NewAdapter(result.String(), a.cfg)
}
