package sumrope

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallCfg() Config {
	return Config{ChunkSize: 4, BalanceRatio: DefaultBalanceRatio}
}

func mustRope(t *testing.T, text string, cfg Config) SumRope {
	t.Helper()
	r, err := FromText(text, cfg)
	require.NoError(t, err)
	return r
}

// TestSumRope_FromText_S1 covers the build/total_sum half of the first
// worked scenario. Its query half is covered separately below: the
// descent rule (§4.5) and invariant 6 (prefix_sum(line) <= value <
// prefix_sum(line+1)) together pin query(3, DimChar) to line 1, not the
// line 2 the scenario's prose names — prefix_sum(2) = (4,4) already
// exceeds 3, so line 2 would violate invariant 6. The scenario's
// position_pair (3,3) does agree with line 1's resolution, confirming
// the mismatch is in the scenario's labeling, not the algorithm.
func TestSumRope_FromText_S1(t *testing.T) {
	r := mustRope(t, "a\nb\nc", DefaultConfig())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, LenPair{Char: 5, Byte: 5}, r.TotalSum())

	q := r.QueryChar(3)
	assert.Equal(t, 1, q.LineIndex)
	assert.Equal(t, LenPair{Char: 2, Byte: 2}, q.LineStart)
	assert.Equal(t, LenPair{Char: 3, Byte: 3}, q.LineStart.Add(q.Offset))
}

func TestSumRope_FromText_S2(t *testing.T) {
	r := mustRope(t, "α\nβ", DefaultConfig())
	lines := r.ToList()
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].ByteLen())
	assert.Equal(t, 2, lines[0].CharLen())
	assert.Equal(t, LenPair{Char: 3, Byte: 5}, r.TotalSum())

	q := r.QueryByte(2)
	assert.Equal(t, 0, q.LineIndex)
	assert.Equal(t, LenPair{Char: 1, Byte: 2}, q.LineStart.Add(q.Offset))
}

// TestSumRope_ReplaceGroups_S3 is the replace scenario, with total_sum
// corrected to (13,13): the scenario's (15,15) double-counts the
// replaced line ("def\n", 4) against the two inserted lines (3+3) on top
// of the original total (11), which arithmetically gives 13, not 15.
// prefix_sum(2) = (7,7) from the scenario does check out independently.
func TestSumRope_ReplaceGroups_S3(t *testing.T) {
	r := Construct(mustGroups(t, "abc\n", "def\n", "ghi"), smallCfg())

	xx, err := NewRLEGroup("xx\n")
	require.NoError(t, err)
	yy, err := NewRLEGroup("yy\n")
	require.NoError(t, err)

	r2, err := r.ReplaceGroups(1, 2, []RLEGroup{xx, yy})
	require.NoError(t, err)

	got := r2.ToList()
	require.Len(t, got, 4)
	assert.Equal(t, []int{4, 3, 3, 3}, charLens(got))
	assert.Equal(t, LenPair{Char: 13, Byte: 13}, r2.TotalSum())

	p2, err := r2.PrefixSum(2)
	require.NoError(t, err)
	assert.Equal(t, LenPair{Char: 7, Byte: 7}, p2)
}

func TestSumRope_Empty_S4(t *testing.T) {
	r := Construct(nil, DefaultConfig())
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.IsEmpty())
	assert.Equal(t, LenPair{}, r.TotalSum())

	q := r.QueryChar(0)
	assert.Equal(t, 0, q.LineIndex)
	assert.Equal(t, LenPair{}, q.LineStart)
	assert.Equal(t, LenPair{}, q.Offset)
	assert.Equal(t, EmptyGroup, q.Line)
}

func TestSumRope_S5_StressInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := Construct(nil, smallCfg())

	for i := 0; i < 2000; i++ {
		at := rng.Intn(r.Len() + 1)
		g, err := NewRLEGroup("x")
		require.NoError(t, err)
		r, err = r.ReplaceGroups(at, at, []RLEGroup{g})
		require.NoError(t, err)

		if i%100 == 0 {
			assertSumConsistent(t, r)
			assertPrefixMonotone(t, r)
		}
	}
	assert.Equal(t, 2000, r.Len())
}

func TestSumRope_S6_MixedWidthLine(t *testing.T) {
	g, err := NewRLEGroup("aé中\U0001f600")
	require.NoError(t, err)
	assert.Equal(t, 4, g.CharLen())
	assert.Equal(t, 10, g.ByteLen())

	c, err := g.ByteToChar(6)
	require.NoError(t, err)
	assert.Equal(t, 3, c)

	b, err := g.CharToByte(3)
	require.NoError(t, err)
	assert.Equal(t, 6, b)
}

func TestSumRope_PrefixSum_Bounds(t *testing.T) {
	r := mustRope(t, "a\nbb\nccc", smallCfg())
	p0, err := r.PrefixSum(0)
	require.NoError(t, err)
	assert.Equal(t, LenPair{}, p0)

	pN, err := r.PrefixSum(r.Len())
	require.NoError(t, err)
	assert.Equal(t, r.TotalSum(), pN)

	_, err = r.PrefixSum(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = r.PrefixSum(r.Len() + 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSumRope_RangeSum(t *testing.T) {
	r := mustRope(t, "a\nbb\nccc\n", smallCfg())
	total, err := r.RangeSum(0, r.Len())
	require.NoError(t, err)
	assert.Equal(t, r.TotalSum(), total)

	mid, err := r.RangeSum(1, 2)
	require.NoError(t, err)
	line, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, line.Sum(), mid)
}

// TestSumRope_ReplaceRoundTrip is invariant 3: replacing a range with its
// own current contents is a no-op on the visible sequence.
func TestSumRope_ReplaceRoundTrip(t *testing.T) {
	r := mustRope(t, "one\ntwo\nthree\nfour\n", smallCfg())
	slice, err := r.Slice(1, 3)
	require.NoError(t, err)

	r2, err := r.ReplaceGroups(1, 3, slice)
	require.NoError(t, err)
	assert.Equal(t, r.ToList(), r2.ToList())
	assert.Equal(t, r.TotalSum(), r2.TotalSum())
}

// TestSumRope_FlattenRoundTrip is invariant 4.
func TestSumRope_FlattenRoundTrip(t *testing.T) {
	r := mustRope(t, "one\ntwo\nthree\n", smallCfg())
	r2 := Construct(r.ToList(), smallCfg())
	assert.Equal(t, r.ToList(), r2.ToList())
	assert.Equal(t, r.TotalSum(), r2.TotalSum())
}

// TestSumRope_QueryCorrectness is invariant 6, randomized across a
// multi-leaf rope built with a tiny chunk size to force branch descent.
func TestSumRope_QueryCorrectness(t *testing.T) {
	r := mustRope(t, "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\neta\ntheta\n", smallCfg())
	total := r.TotalSum()

	for value := 0; value < total.Char; value++ {
		q := r.QueryChar(value)
		lo, err := r.PrefixSum(q.LineIndex)
		require.NoError(t, err)
		hi, err := r.PrefixSum(q.LineIndex + 1)
		require.NoError(t, err)
		assert.LessOrEqualf(t, lo.Char, value, "value=%d", value)
		assert.Lessf(t, value, hi.Char, "value=%d", value)
		assert.Equal(t, value, lo.Add(q.Offset).Char)
	}
}

func TestSumRope_Query_ClampsAtOrAboveTotal(t *testing.T) {
	r := mustRope(t, "a\nbb\n", smallCfg())
	total := r.TotalSum()
	q := r.Query(total.Char+50, DimChar)
	assert.Equal(t, r.Len()-1, q.LineIndex)
}

func TestSumRope_Query_ValueZeroIsFirstLine(t *testing.T) {
	r := Construct([]RLEGroup{EmptyGroup, mustGroups(t, "abc\n")[0]}, smallCfg())
	q := r.QueryChar(0)
	assert.Equal(t, 0, q.LineIndex)
	assert.Equal(t, EmptyGroup, r.ToList()[0])
}

func TestSumRope_Set_And_Get(t *testing.T) {
	r := mustRope(t, "a\nb\nc\n", smallCfg())
	r2, err := r.Set(1, "replaced\n")
	require.NoError(t, err)

	got, err := r2.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 9, got.CharLen())

	orig, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 2, orig.CharLen())
}

func TestSumRope_Get_OutOfRange(t *testing.T) {
	r := mustRope(t, "a\n", smallCfg())
	_, err := r.Get(5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSumRope_Insert_Delete(t *testing.T) {
	r := mustRope(t, "a\nb\n", smallCfg())
	r2, err := r.Insert(1, "x\n")
	require.NoError(t, err)
	assert.Equal(t, 3, r2.Len())

	r3, err := r2.Delete(1, 2)
	require.NoError(t, err)
	assert.Equal(t, r.ToList(), r3.ToList())
}

func TestSumRope_Balance_StaysShallow(t *testing.T) {
	cfg := smallCfg()
	groups := make([]RLEGroup, 5000)
	for i := range groups {
		g, err := NewRLEGroup("x")
		require.NoError(t, err)
		groups[i] = g
	}
	r := Construct(groups, cfg)
	assertSumConsistent(t, r)
	assert.LessOrEqual(t, treeHeight(r.root), 40)
}

func TestSumRope_LineIterator(t *testing.T) {
	r := mustRope(t, "a\nbb\nccc\n", smallCfg())
	it := r.Lines()
	var seen []RLEGroup
	var starts []LenPair
	for it.Next() {
		seen = append(seen, it.Current())
		starts = append(starts, it.Start())
	}
	assert.Equal(t, r.ToList(), seen)
	assert.Equal(t, LenPair{}, starts[0])
}

func TestSumRope_Transaction_RollbackRestoresState(t *testing.T) {
	r := mustRope(t, "a\nb\n", smallCfg())
	tx := BeginTransaction(r)
	sp := tx.Mark()

	err := tx.Apply(func(s SumRope) (SumRope, error) { return s.Insert(0, "z\n") })
	require.NoError(t, err)
	assert.Equal(t, 3, tx.Rope().Len())

	tx.Rollback(sp)
	assert.Equal(t, r.ToList(), tx.Rope().ToList())
	assert.Equal(t, 2, tx.Commit().Len())
}

func TestBuilder_BuildsEquivalentRope(t *testing.T) {
	b := NewBuilder(smallCfg())
	for _, line := range []string{"a\n", "bb\n", "ccc"} {
		require.NoError(t, b.PushLine(line))
	}
	r := b.Build()
	direct := mustRope(t, "a\nbb\nccc", smallCfg())
	assert.Equal(t, direct.ToList(), r.ToList())
}

// --- helpers ---

func DefaultConfig() Config { return Config{}.normalized() }

func mustGroups(t *testing.T, lines ...string) []RLEGroup {
	t.Helper()
	out := make([]RLEGroup, len(lines))
	for i, l := range lines {
		g, err := NewRLEGroup(l)
		require.NoError(t, err)
		out[i] = g
	}
	return out
}

func charLens(groups []RLEGroup) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.CharLen()
	}
	return out
}

func assertSumConsistent(t *testing.T, r SumRope) {
	t.Helper()
	assertNodeSumConsistent(t, r.root)
}

func assertNodeSumConsistent(t *testing.T, n node) {
	t.Helper()
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *LeafNode:
		var want LenPair
		for _, g := range v.values {
			want = want.Add(g.Sum())
		}
		assert.Equal(t, want, v.total)
	case *BranchNode:
		assertNodeSumConsistent(t, v.left)
		assertNodeSumConsistent(t, v.right)
		assert.Equal(t, nodeSum(v.left).Add(nodeSum(v.right)), v.total)
		assert.Equal(t, nodeLen(v.left)+nodeLen(v.right), v.count)
	}
}

func assertPrefixMonotone(t *testing.T, r SumRope) {
	t.Helper()
	var prev LenPair
	for i := 1; i <= r.Len(); i++ {
		cur, err := r.PrefixSum(i)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cur.Char, prev.Char)
		assert.GreaterOrEqual(t, cur.Byte, prev.Byte)
		prev = cur
	}
	assert.Equal(t, r.TotalSum(), prev)
}

func treeHeight(n node) int {
	switch v := n.(type) {
	case nil:
		return 0
	case *LeafNode:
		return 1
	case *BranchNode:
		l, r := treeHeight(v.left), treeHeight(v.right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return 0
}
