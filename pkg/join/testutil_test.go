package join

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rosscartlidge/sortmergejoin/pkg/stream"
)

// keyValSchema returns a two-column (key int64, val string) schema with the
// given field names, used throughout this package's tests to build small
// sorted inputs by hand.
func keyValSchema(keyName, valName string) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: keyName, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: valName, Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

// keyValBatch builds one record batch from parallel (key, val) slices. A
// nil key at position i produces a null in the key column.
func keyValBatch(schema *arrow.Schema, keys []*int64, vals []string) arrow.Record {
	mem := memory.DefaultAllocator
	kb := array.NewInt64Builder(mem)
	defer kb.Release()
	for _, k := range keys {
		if k == nil {
			kb.AppendNull()
			continue
		}
		kb.Append(*k)
	}
	vb := array.NewStringBuilder(mem)
	defer vb.Release()
	for _, v := range vals {
		vb.Append(v)
	}
	kArr := kb.NewArray()
	defer kArr.Release()
	vArr := vb.NewArray()
	defer vArr.Release()
	return array.NewRecord(schema, []arrow.Array{kArr, vArr}, int64(len(keys)))
}

func k(v int64) *int64 { return &v }

// threeInt64Schema returns a three int64-column schema, used by tests that
// drive a multi-column join key plus one value column.
func threeInt64Schema(names ...string) *arrow.Schema {
	fields := make([]arrow.Field, len(names))
	for i, n := range names {
		fields[i] = arrow.Field{Name: n, Type: arrow.PrimitiveTypes.Int64, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// threeInt64Batch builds one record batch from three parallel int64 columns.
func threeInt64Batch(schema *arrow.Schema, c0, c1, c2 []int64) arrow.Record {
	mem := memory.DefaultAllocator
	cols := [][]int64{c0, c1, c2}
	arrs := make([]arrow.Array, 3)
	for i, vals := range cols {
		b := array.NewInt64Builder(mem)
		b.AppendValues(vals, nil)
		arrs[i] = b.NewArray()
		b.Release()
	}
	defer func() {
		for _, a := range arrs {
			a.Release()
		}
	}()
	return array.NewRecord(schema, arrs, int64(len(c0)))
}

// streamOf turns a fixed slice of record batches into a one-shot RecordStream.
func streamOf(batches ...arrow.Record) RecordStream {
	i := 0
	return func() (arrow.Record, error) {
		if i >= len(batches) {
			return nil, stream.EOS
		}
		b := batches[i]
		i++
		return b, nil
	}
}

// stringColumn reads every value of a string column, using "" for nulls.
func stringColumn(rec arrow.Record, idx int) []string {
	col := rec.Column(idx).(*array.String)
	out := make([]string, col.Len())
	for i := range out {
		if col.IsNull(i) {
			out[i] = ""
			continue
		}
		out[i] = col.Value(i)
	}
	return out
}

// int64Column reads every value of an int64 column, using nil for nulls.
func int64Column(rec arrow.Record, idx int) []*int64 {
	col := rec.Column(idx).(*array.Int64)
	out := make([]*int64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		v := col.Value(i)
		out[i] = &v
	}
	return out
}
