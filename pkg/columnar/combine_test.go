package columnar

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func TestCombineBatchesEmpty(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := int64Schema("v")

	out, err := CombineBatches(mem, schema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()
	if out.NumRows() != 0 {
		t.Fatalf("expected 0 rows, got %d", out.NumRows())
	}
}

func TestCombineBatchesSingle(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := int64Schema("v")
	rec := buildInt64Record(mem, schema, []int64{1, 2}, nil)
	defer rec.Release()

	out, err := CombineBatches(mem, schema, []arrow.Record{rec})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()
	if out.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", out.NumRows())
	}
}

func TestCombineBatchesConcatenatesMultiple(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := int64Schema("v")
	a := buildInt64Record(mem, schema, []int64{1, 2}, nil)
	defer a.Release()
	b := buildInt64Record(mem, schema, []int64{3, 4, 5}, nil)
	defer b.Release()

	out, err := CombineBatches(mem, schema, []arrow.Record{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()

	if out.NumRows() != 5 {
		t.Fatalf("expected 5 rows, got %d", out.NumRows())
	}
	col := out.Column(0).(*array.Int64)
	want := []int64{1, 2, 3, 4, 5}
	for i, w := range want {
		if col.Value(i) != w {
			t.Fatalf("row %d: expected %d, got %d", i, w, col.Value(i))
		}
	}
}
