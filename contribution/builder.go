package contribution

// Builder accumulates the contacts of one streamline and freezes them into a
// List. A Builder is not safe for concurrent use; give each worker its own and
// Reset it between streamlines.
type Builder struct {
	scale   Scale
	records []Record
	// latest maps a fixel to the position of its most recent record.
	latest            map[uint32]int
	totalContribution float32
	totalLength       float32
	splits            int
}

// NewBuilder returns an empty Builder using scale s.
func NewBuilder(s Scale) *Builder {
	if !s.Valid() {
		panic("contribution: NewBuilder with uninitialised Scale")
	}
	return &Builder{
		scale:  s,
		latest: make(map[uint32]int),
	}
}

// Scale returns the scale the builder encodes with.
func (b *Builder) Scale() Scale { return b.scale }

// Add records a traversal of the given length. The length always counts toward
// the total streamline length. It is attributed to fixel only when fixel is
// not the invalid index 0 and the length is at least Scale.MinLength.
func (b *Builder) Add(fixel uint32, length float32) {
	if length <= 0 {
		return
	}
	b.totalLength += length
	if fixel == 0 || length < b.scale.minLength {
		return
	}
	b.totalContribution += length

	if pos, ok := b.latest[fixel]; ok {
		if b.records[pos].Add(b.scale, length) {
			return
		}
		b.splits++
	}
	b.latest[fixel] = len(b.records)
	b.records = append(b.records, NewRecord(b.scale, fixel, length))
}

// Len returns the number of records accumulated so far.
func (b *Builder) Len() int { return len(b.records) }

// Splits returns how many contacts were kept as separate records because
// merging them would have overflowed.
func (b *Builder) Splits() int { return b.splits }

// Build freezes the accumulated contacts. The builder keeps its state until
// Reset is called.
func (b *Builder) Build() List {
	return NewList(b.records, b.totalContribution, b.totalLength)
}

// Reset clears the builder for the next streamline, keeping its buffers.
func (b *Builder) Reset() {
	b.records = b.records[:0]
	clear(b.latest)
	b.totalContribution = 0
	b.totalLength = 0
	b.splits = 0
}
