package document

import (
	"fmt"

	"github.com/coreseekdev/lnrope/pkg/concordia"
	"github.com/coreseekdev/lnrope/pkg/ot"
	"github.com/coreseekdev/lnrope/pkg/sumrope"
)

// RopeDocument pairs an Adapter with a concordia.History, giving a
// sumrope-backed document the same undo/redo contract
// ot.StringDocument's callers expect from a plain in-memory document.
//
// Example:
//
//	doc, _ := NewRopeDocument("hello", sumrope.Config{}, 100)
//	op := ot.NewBuilder().Retain(5).Insert(" world").Build()
//	updated, _ := doc.ApplyOperationWithHistory(op)
//	updated.Undo()
type RopeDocument struct {
	adapter *Adapter
	history *concordia.History
}

var _ ot.UndoableDocument = (*RopeDocument)(nil)

// NewRopeDocument builds a RopeDocument from text, using cfg to
// configure the underlying rope and maxHistory to bound undo depth (0 or
// less keeps concordia.NewHistory's default bound of 1000 revisions).
func NewRopeDocument(text string, cfg sumrope.Config, maxHistory int) (*RopeDocument, error) {
	adapter, err := NewAdapter(text, cfg)
	if err != nil {
		return nil, err
	}
	history := concordia.NewHistory()
	if maxHistory > 0 {
		history.SetMaxSize(maxHistory)
	}
	return &RopeDocument{adapter: adapter, history: history}, nil
}

func (d *RopeDocument) Length() int              { return d.adapter.Length() }
func (d *RopeDocument) String() string           { return d.adapter.String() }
func (d *RopeDocument) Slice(start, end int) string { return d.adapter.Slice(start, end) }
func (d *RopeDocument) Bytes() []byte            { return d.adapter.Bytes() }

// Rope exposes the current line-metrics rope, for callers that need
// positional queries alongside undo/redo.
func (d *RopeDocument) Rope() sumrope.SumRope { return d.adapter.Rope() }

// Clone deep-copies both the adapter and the history, so undoing on the
// clone never mutates the original's timeline.
func (d *RopeDocument) Clone() ot.Document {
	return &RopeDocument{
		adapter: d.adapter.Clone().(*Adapter),
		history: d.history.Clone(),
	}
}

// ApplyOperationWithHistory applies op to the document and commits it to
// the undo history, recording its inverse against the pre-apply text.
func (d *RopeDocument) ApplyOperationWithHistory(op *ot.Operation) (ot.UndoableDocument, error) {
	before := ot.NewStringDocument(d.adapter.String())

	result, err := op.ApplyToDocument(d.adapter)
	if err != nil {
		return nil, fmt.Errorf("apply operation: %w", err)
	}
	next, err := SyncFromDocument(d.adapter, result)
	if err != nil {
		return nil, err
	}

	d.history.CommitRevision(op, before)
	d.adapter = next
	return d, nil
}

// CanUndo reports whether an earlier revision exists to undo to.
func (d *RopeDocument) CanUndo() bool { return d.history.CanUndo() }

// CanRedo reports whether a later revision exists to redo to.
func (d *RopeDocument) CanRedo() bool { return d.history.CanRedo() }

// Undo reverses the last committed operation.
func (d *RopeDocument) Undo() error {
	op := d.history.Undo()
	if op == nil {
		return fmt.Errorf("nothing to undo")
	}
	return d.applyInverse(op)
}

// Redo reapplies the most recently undone operation.
func (d *RopeDocument) Redo() error {
	op := d.history.Redo()
	if op == nil {
		return fmt.Errorf("nothing to redo")
	}
	return d.applyInverse(op)
}

func (d *RopeDocument) applyInverse(op *ot.Operation) error {
	result, err := op.ApplyToDocument(d.adapter)
	if err != nil {
		return fmt.Errorf("apply inverse: %w", err)
	}
	next, err := SyncFromDocument(d.adapter, result)
	if err != nil {
		return err
	}
	d.adapter = next
	return nil
}
