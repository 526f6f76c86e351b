package sumrope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRLEGroup_NewRLEGroup_Empty(t *testing.T) {
	g, err := NewRLEGroup("")
	require.NoError(t, err)
	assert.Equal(t, 0, g.CharLen())
	assert.Equal(t, 0, g.ByteLen())
	assert.Equal(t, EmptyGroup, g)
}

func TestRLEGroup_NewRLEGroup_ASCII(t *testing.T) {
	g, err := NewRLEGroup("hello")
	require.NoError(t, err)
	assert.Equal(t, 5, g.CharLen())
	assert.Equal(t, 5, g.ByteLen())
}

func TestRLEGroup_NewRLEGroup_Mixed(t *testing.T) {
	// "a" (1 byte) + "世" (3 bytes) + "界" (3 bytes) + "b" (1 byte)
	g, err := NewRLEGroup("a世界b")
	require.NoError(t, err)
	assert.Equal(t, 4, g.CharLen())
	assert.Equal(t, 8, g.ByteLen())
}

func TestRLEGroup_NewRLEGroup_InvalidUTF8(t *testing.T) {
	_, err := NewRLEGroup(string([]byte{0xff, 0xfe}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestRLEGroup_ByteToChar_RoundTrip(t *testing.T) {
	g, err := NewRLEGroup("a世界b")
	require.NoError(t, err)

	for c := 0; c <= g.CharLen(); c++ {
		b, err := g.CharToByte(c)
		require.NoError(t, err)
		back, err := g.ByteToChar(b)
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
}

func TestRLEGroup_ByteToChar_BoundaryBelongsToPrecedingRun(t *testing.T) {
	g, err := NewRLEGroup("世a")
	require.NoError(t, err)
	// byte offset 3 is exactly the boundary between "世" (3 bytes) and "a".
	c, err := g.ByteToChar(3)
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestRLEGroup_ByteToChar_MidRune(t *testing.T) {
	g, err := NewRLEGroup("世界")
	require.NoError(t, err)
	// byte offset 1 falls inside the first 3-byte rune; it contributes no
	// whole characters yet.
	c, err := g.ByteToChar(1)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestRLEGroup_ByteToChar_OutOfRange(t *testing.T) {
	g, _ := NewRLEGroup("abc")
	_, err := g.ByteToChar(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = g.ByteToChar(100)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRLEGroup_CharToByte_Ends(t *testing.T) {
	g, err := NewRLEGroup("a世界b")
	require.NoError(t, err)
	b0, err := g.CharToByte(0)
	require.NoError(t, err)
	assert.Equal(t, 0, b0)
	bEnd, err := g.CharToByte(g.CharLen())
	require.NoError(t, err)
	assert.Equal(t, g.ByteLen(), bEnd)
}

func TestRLEGroup_Sum(t *testing.T) {
	g, _ := NewRLEGroup("a世")
	assert.Equal(t, LenPair{Char: 2, Byte: 4}, g.Sum())
}
