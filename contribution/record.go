package contribution

const (
	fixelBits = 24
	fixelMask = 1<<fixelBits - 1

	// MaxQuantized is the largest storable quantized length.
	MaxQuantized = 255

	// MaxFixelIndex is the largest fixel index a Record can address.
	MaxFixelIndex = fixelMask
)

// Record packs one streamline/fixel contact into 32 bits.
type Record uint32

// NewRecord encodes a contact of the given length with fixel. Lengths beyond
// the representable range saturate at MaxQuantized. Only the low 24 bits of
// fixel are kept.
func NewRecord(s Scale, fixel uint32, length float32) Record {
	q := min(s.quantize(length), MaxQuantized)
	return Record(fixel&fixelMask | q<<fixelBits)
}

// FixelIndex returns the fixel the contact refers to.
func (r Record) FixelIndex() uint32 {
	return uint32(r) & fixelMask
}

// Quantized returns the stored length in quantized units.
func (r Record) Quantized() uint8 {
	return uint8(uint32(r) >> fixelBits)
}

// Length decodes the stored length in millimetres.
func (r Record) Length(s Scale) float32 {
	return float32(r.Quantized()) * s.fromStorage
}

// Add merges another contact with the same fixel into r. It returns false and
// leaves r unchanged when the summed quantized length would exceed
// MaxQuantized; the caller then keeps the contact as a separate record.
func (r *Record) Add(s Scale, length float32) bool {
	increment := s.quantize(length)
	existing := uint32(*r) >> fixelBits
	if increment > MaxQuantized || existing+increment > MaxQuantized {
		return false
	}
	*r = Record(uint32(*r)&fixelMask | (existing+increment)<<fixelBits)
	return true
}
