package contribution

import (
	"iter"
	"unsafe"
)

// List is the frozen contribution summary of one streamline.
//
// The record slice is allocated to exactly its final length and is never
// exposed for mutation.
type List struct {
	records           []Record
	totalContribution float32
	totalLength       float32
}

// NewList copies records into an exact-length list.
func NewList(records []Record, totalContribution, totalLength float32) List {
	var frozen []Record
	if len(records) > 0 {
		frozen = make([]Record, len(records))
		copy(frozen, records)
	}
	return List{
		records:           frozen,
		totalContribution: totalContribution,
		totalLength:       totalLength,
	}
}

// Len returns the number of records.
func (l List) Len() int { return len(l.records) }

// Empty reports whether the streamline contributes to no fixel.
func (l List) Empty() bool { return len(l.records) == 0 }

// At returns record i. It panics if i is out of range.
func (l List) At(i int) Record { return l.records[i] }

// All yields the records in insertion order.
func (l List) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range l.records {
			if !yield(r) {
				return
			}
		}
	}
}

// TotalContribution is the unquantized sum of lengths attributed to fixels.
func (l List) TotalContribution() float32 { return l.totalContribution }

// TotalLength is the unquantized length of the whole streamline, including
// parts that were not attributed to any fixel.
func (l List) TotalLength() float32 { return l.totalLength }

// SizeBytes estimates the heap and header footprint of the list.
func (l List) SizeBytes() int64 {
	return int64(unsafe.Sizeof(l)) + int64(len(l.records))*int64(unsafe.Sizeof(Record(0)))
}
