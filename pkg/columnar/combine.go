package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// CombineBatches concatenates a list of same-schema record batches into one.
// spec.md §1 names batch concatenation an external collaborator; this is
// that collaborator's concrete implementation, built directly on
// arrow-go's array.Concatenate rather than hand-rolled copying.
func CombineBatches(mem memory.Allocator, schema *arrow.Schema, batches []arrow.Record) (arrow.Record, error) {
	if len(batches) == 0 {
		return NullRecord(mem, schema, 0)
	}
	if len(batches) == 1 {
		batches[0].Retain()
		return batches[0], nil
	}

	numRows := int64(0)
	for _, b := range batches {
		numRows += b.NumRows()
	}

	cols := make([]arrow.Array, schema.NumFields())
	for i := range cols {
		parts := make([]arrow.Array, len(batches))
		for j, b := range batches {
			parts[j] = b.Column(i)
		}
		combined, err := array.Concatenate(parts, mem)
		if err != nil {
			return nil, err
		}
		cols[i] = combined
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(schema, cols, numRows), nil
}
