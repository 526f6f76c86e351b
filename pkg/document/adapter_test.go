package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/lnrope/pkg/ot"
	"github.com/coreseekdev/lnrope/pkg/sumrope"
)

func TestAdapter_ImplementsDocument(t *testing.T) {
	a, err := NewAdapter("hello\nworld\n", sumrope.Config{})
	require.NoError(t, err)
	assert.Implements(t, (*ot.Document)(nil), a)
}

func TestAdapter_LengthMatchesByteCount(t *testing.T) {
	a, err := NewAdapter("a\nb世\n", sumrope.Config{})
	require.NoError(t, err)
	assert.Equal(t, len("a\nb世\n"), a.Length())
	assert.Equal(t, a.Rope().TotalSum().Byte, a.Length())
}

func TestAdapter_StringRoundTrips(t *testing.T) {
	text := "one\ntwo\nthree"
	a, err := NewAdapter(text, sumrope.Config{})
	require.NoError(t, err)
	assert.Equal(t, text, a.String())
}

func TestAdapter_Slice(t *testing.T) {
	a, err := NewAdapter("hello world", sumrope.Config{})
	require.NoError(t, err)
	assert.Equal(t, "hello", a.Slice(0, 5))
	assert.Equal(t, "world", a.Slice(6, 11))
}

type fakeHost struct{ lines []string }

func (h fakeHost) LineCount() int { return len(h.lines) }
func (h fakeHost) LineText(i int) (string, error) {
	if i < 0 || i >= len(h.lines) {
		return "", sumrope.ErrOutOfRange
	}
	return h.lines[i], nil
}

func TestAdapter_Clone_IsIndependent(t *testing.T) {
	a, err := NewAdapter("a\nb\n", sumrope.Config{})
	require.NoError(t, err)
	clone := a.Clone().(*Adapter)

	host := fakeHost{lines: []string{"a\n", "bbb\n"}}
	require.NoError(t, clone.OnEdit(2, 1, 3, host))

	assert.Equal(t, "a\nbbb\n", clone.String())
	assert.Equal(t, "a\nb\n", a.String())
}

func TestAdapter_DerivedQueries(t *testing.T) {
	a, err := NewAdapter("a\nb世\nccc\n", sumrope.Config{})
	require.NoError(t, err)

	assert.Equal(t, 1, a.CharToLine(3))
	assert.Equal(t, 1, a.ByteToLine(4))

	charStart, err := a.LineToChar(1)
	require.NoError(t, err)
	assert.Equal(t, 2, charStart)

	byteStart, err := a.LineToByte(1)
	require.NoError(t, err)
	assert.Equal(t, 2, byteStart)

	assert.Equal(t, a.CharToByte(3), 3)
	assert.Equal(t, a.ByteToChar(3), 3)
}

func TestAdapter_LineTextAndCount(t *testing.T) {
	a, err := NewAdapter("a\nbb\nccc\n", sumrope.Config{})
	require.NoError(t, err)
	assert.Equal(t, 3, a.LineCount())

	l1, err := a.LineText(1)
	require.NoError(t, err)
	assert.Equal(t, "bb\n", l1)

	_, err = a.LineText(10)
	assert.ErrorIs(t, err, sumrope.ErrOutOfRange)
}

func TestAdapter_ReplaceText(t *testing.T) {
	a, err := NewAdapter("hello world", sumrope.Config{})
	require.NoError(t, err)

	a2, err := a.ReplaceText(6, 11, "there")
	require.NoError(t, err)
	assert.Equal(t, "hello there", a2.String())
	assert.Equal(t, "hello world", a.String())
}

func TestAdapter_OperationAppliesThroughSync(t *testing.T) {
	a, err := NewAdapter("Hello World", sumrope.Config{})
	require.NoError(t, err)

	op := ot.NewBuilder().Retain(6).Insert("Go ").Delete(5).Build()
	result, err := op.ApplyToDocument(a)
	require.NoError(t, err)

	a2, err := SyncFromDocument(a, result)
	require.NoError(t, err)
	assert.Equal(t, "Hello Go ", a2.String())
	assert.Equal(t, LenSum(a2), a2.Rope().TotalSum())
}

func LenSum(a *Adapter) sumrope.LenPair { return a.Rope().TotalSum() }
