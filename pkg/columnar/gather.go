// Package columnar provides the record-batch and typed-array plumbing the
// sort-merge join operator needs: gathering rows by index, building
// null-padded batches for outer joins, and combining staged batches into one
// flushed output batch. It wraps github.com/apache/arrow-go/v18, the Go
// counterpart of the Apache Arrow columnar model this join was originally
// built against.
package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
)

// NullIndex marks a gathered row as "no source row" — the gathered column
// value at that position is null regardless of the source column's own
// validity.
const NullIndex int64 = -1

// Gather builds a new record by copying the rows at indices (row i of the
// result is source row indices[i], or an all-null row when indices[i] ==
// NullIndex) out of rec. It is the columnar equivalent of a vectorized
// "take" and backs every materialization step in the output builder (§4.4).
func Gather(mem memory.Allocator, rec arrow.Record, indices []int64) (arrow.Record, error) {
	schema := rec.Schema()
	cols := make([]arrow.Array, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		col, err := gatherColumn(mem, rec.Column(i), indices)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(schema, cols, int64(len(indices))), nil
}

// NullRecord builds a record of n rows, every column entirely null,
// matching schema. Used to pad the non-matching side of an outer join.
func NullRecord(mem memory.Allocator, schema *arrow.Schema, n int) (arrow.Record, error) {
	indices := make([]int64, n)
	for i := range indices {
		indices[i] = NullIndex
	}
	cols := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		b := array.NewBuilder(mem, f.Type)
		defer b.Release()
		for range indices {
			b.AppendNull()
		}
		cols[i] = b.NewArray()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(schema, cols, int64(n)), nil
}

func gatherColumn(mem memory.Allocator, src arrow.Array, indices []int64) (arrow.Array, error) {
	b := array.NewBuilder(mem, src.DataType())
	defer b.Release()

	switch s := src.(type) {
	case *array.Boolean:
		bb := b.(*array.BooleanBuilder)
		for _, idx := range indices {
			if idx == NullIndex || s.IsNull(int(idx)) {
				bb.AppendNull()
				continue
			}
			bb.Append(s.Value(int(idx)))
		}
	case *array.Int8:
		bb := b.(*array.Int8Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Int16:
		bb := b.(*array.Int16Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Int32:
		bb := b.(*array.Int32Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Int64:
		bb := b.(*array.Int64Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Uint8:
		bb := b.(*array.Uint8Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Uint16:
		bb := b.(*array.Uint16Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Uint32:
		bb := b.(*array.Uint32Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Uint64:
		bb := b.(*array.Uint64Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Float32:
		bb := b.(*array.Float32Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Float64:
		bb := b.(*array.Float64Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.String:
		bb := b.(*array.StringBuilder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.LargeString:
		bb := b.(*array.LargeStringBuilder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Decimal128:
		bb := b.(*array.Decimal128Builder)
		appendInt(bb, indices, s.IsNull, s.Value)
	case *array.Timestamp:
		bb := b.(*array.TimestampBuilder)
		appendInt(bb, indices, s.IsNull, s.Value)
	default:
		return nil, joinerr.NewTypeSupportError(fmt.Sprintf("%T", src))
	}

	return b.NewArray(), nil
}

// appender is satisfied by every typed Arrow builder used above; the
// generic helper below keeps the per-type gather loop to one line per case.
type appender[T any] interface {
	Append(T)
	AppendNull()
}

func appendInt[T any](b appender[T], indices []int64, isNull func(int) bool, value func(int) T) {
	for _, idx := range indices {
		if idx == NullIndex || isNull(int(idx)) {
			b.AppendNull()
			continue
		}
		b.Append(value(int(idx)))
	}
}
