package ot

// UndoableStringDocument wires a StringDocument to an UndoManager,
// following the Add/PerformUndo/PerformRedo pattern documented on
// UndoManager itself, so that a plain in-memory document satisfies
// UndoableDocument without needing a branching revision history.
type UndoableStringDocument struct {
	doc *StringDocument
	um  *UndoManager
}

var _ UndoableDocument = (*UndoableStringDocument)(nil)

// NewUndoableStringDocument creates an UndoableStringDocument with the
// given content, keeping up to maxItems undo steps (0 for the
// UndoManager's default).
func NewUndoableStringDocument(content string, maxItems int) *UndoableStringDocument {
	return &UndoableStringDocument{
		doc: NewStringDocument(content),
		um:  NewUndoManager(maxItems),
	}
}

func (d *UndoableStringDocument) Length() int              { return d.doc.Length() }
func (d *UndoableStringDocument) String() string           { return d.doc.String() }
func (d *UndoableStringDocument) Slice(start, end int) string { return d.doc.Slice(start, end) }
func (d *UndoableStringDocument) Bytes() []byte            { return d.doc.Bytes() }

// Clone copies the document text but starts the clone with an empty
// undo history, matching StringDocument.Clone's shallow-snapshot intent.
func (d *UndoableStringDocument) Clone() Document {
	return &UndoableStringDocument{
		doc: d.doc.Clone().(*StringDocument),
		um:  NewUndoManager(d.um.maxItems),
	}
}

// ApplyOperationWithHistory applies op and pushes its inverse onto the
// undo stack, composing with the previous entry when possible.
func (d *UndoableStringDocument) ApplyOperationWithHistory(op *Operation) (UndoableDocument, error) {
	before := d.doc.String()
	result, err := op.ApplyToDocument(d.doc)
	if err != nil {
		return nil, err
	}
	inverse := op.Invert(before)
	d.doc = NewStringDocument(result.String())
	d.um.Add(inverse, true)
	return d, nil
}

// CanUndo reports whether the undo stack is non-empty.
func (d *UndoableStringDocument) CanUndo() bool { return d.um.CanUndo() }

// CanRedo reports whether the redo stack is non-empty.
func (d *UndoableStringDocument) CanRedo() bool { return d.um.CanRedo() }

// Undo pops and applies the top of the undo stack, then pushes its
// inverse onto the redo stack.
func (d *UndoableStringDocument) Undo() error {
	return d.um.PerformUndo(func(op *Operation) {
		before := d.doc.String()
		result, err := op.ApplyToDocument(d.doc)
		if err != nil {
			return
		}
		d.doc = NewStringDocument(result.String())
		d.um.Add(op.Invert(before), false)
	})
}

// Redo pops and applies the top of the redo stack, then pushes its
// inverse back onto the undo stack.
func (d *UndoableStringDocument) Redo() error {
	return d.um.PerformRedo(func(op *Operation) {
		before := d.doc.String()
		result, err := op.ApplyToDocument(d.doc)
		if err != nil {
			return
		}
		d.doc = NewStringDocument(result.String())
		d.um.Add(op.Invert(before), false)
	})
}
