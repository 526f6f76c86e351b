package sumrope

// Builder accumulates lines and produces a balanced SumRope in one shot,
// cheaper than repeated Insert calls when the whole content is known up
// front (e.g. reading a file line by line).
type Builder struct {
	cfg    Config
	groups []RLEGroup
}

// NewBuilder returns a Builder configured with cfg.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg.normalized()}
}

// PushLine appends one line, encoding it as an RLEGroup. Fails with
// ErrInvalidEncoding if text is not valid UTF-8.
func (b *Builder) PushLine(text string) error {
	g, err := NewRLEGroup(text)
	if err != nil {
		return err
	}
	b.groups = append(b.groups, g)
	return nil
}

// PushGroup appends an already-encoded line.
func (b *Builder) PushGroup(g RLEGroup) {
	b.groups = append(b.groups, g)
}

// Len returns the number of lines pushed so far.
func (b *Builder) Len() int { return len(b.groups) }

// Build returns the SumRope over every pushed line. The Builder remains
// usable afterwards; Build does not consume its buffer.
func (b *Builder) Build() SumRope {
	return Construct(b.groups, b.cfg)
}
