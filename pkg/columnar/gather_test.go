package columnar

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func buildInt64Record(mem memory.Allocator, schema *arrow.Schema, values []int64, nulls []bool) arrow.Record {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	for i, v := range values {
		if nulls != nil && nulls[i] {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	arr := b.NewArray()
	defer arr.Release()
	return array.NewRecord(schema, []arrow.Array{arr}, int64(len(values)))
}

func int64Schema(name string) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, nil)
}

func TestGatherReordersAndPadsNulls(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := int64Schema("v")
	rec := buildInt64Record(mem, schema, []int64{10, 20, 30}, nil)
	defer rec.Release()

	out, err := Gather(mem, rec, []int64{2, NullIndex, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()

	col := out.Column(0).(*array.Int64)
	if col.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", col.Len())
	}
	if col.Value(0) != 30 {
		t.Fatalf("expected row 0 to be 30, got %d", col.Value(0))
	}
	if !col.IsNull(1) {
		t.Fatalf("expected row 1 to be null")
	}
	if col.Value(2) != 10 {
		t.Fatalf("expected row 2 to be 10, got %d", col.Value(2))
	}
}

func TestGatherPreservesSourceNulls(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := int64Schema("v")
	rec := buildInt64Record(mem, schema, []int64{10, 0, 30}, []bool{false, true, false})
	defer rec.Release()

	out, err := Gather(mem, rec, []int64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()

	col := out.Column(0).(*array.Int64)
	if !col.IsNull(0) {
		t.Fatalf("expected gathered row to preserve source null")
	}
}

func TestNullRecordAllNull(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := int64Schema("v")

	out, err := NullRecord(mem, schema, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()

	if out.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", out.NumRows())
	}
	col := out.Column(0).(*array.Int64)
	for i := 0; i < col.Len(); i++ {
		if !col.IsNull(i) {
			t.Fatalf("expected row %d to be null", i)
		}
	}
}
