// Package sumrope implements a dynamic indexed sequence of lines with
// cumulative character and byte sums — a "sum rope".
//
// Each element of the sequence is one line of text, represented not as a
// string but as an RLEGroup: a run-length encoding of the UTF-8 byte width
// of every code point in the line, plus cached character and byte totals.
// The sequence itself is a weight-balanced binary tree of LeafNode buckets
// (BranchNode internal nodes), so random access, range replacement, and
// prefix/range sums over either dimension are all O(log n).
//
// # Why two dimensions
//
// A text editor routinely needs to translate between a cumulative character
// offset and a cumulative byte offset into a document, and between either
// of those and a line number. Storing both totals at every node, kept in
// lockstep as LenPair values, makes all three translations an O(log n)
// tree descent (see Query) instead of an O(n) rescan.
//
// # What this is not
//
// SumRope is not a general-purpose, character-addressable text rope: it
// stores whole lines as atomic elements and does not support splitting a
// line in place. Character-level editing within a line is the caller's
// job — typically by replacing the whole line with a freshly constructed
// RLEGroup. SumRope does not persist to disk and is not safe for
// concurrent mutation; see pkg/document for the host-editor adapter that
// drives it from live edit notifications.
//
// # Basic usage
//
//	r, _ := sumrope.FromText("a\nb\nc", sumrope.Config{})
//	r.Len()                         // 3
//	r.TotalSum()                    // LenPair{Char: 5, Byte: 5}
//	q := r.Query(3, sumrope.DimChar) // q.LineIndex == 1, q.LineStart == LenPair{Char: 2, Byte: 2}
package sumrope
