package join

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
)

// Ordering is the result of comparing two key tuples.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Equal:
		return "Equal"
	case Greater:
		return "Greater"
	default:
		return "Invalid"
	}
}

func (o Ordering) reverse() Ordering {
	switch o {
	case Less:
		return Greater
	case Greater:
		return Less
	default:
		return Equal
	}
}

// SortOption describes the physical ordering of one key column, matching
// the sort order the upstream producers already guarantee (spec.md §3).
type SortOption struct {
	Descending bool
	NullsFirst bool
}

// CompareRows implements the key comparator's `compare` entry point
// (spec.md §4.5): a full ordering over the join key tuple at leftRow in
// leftCols against rightRow in rightCols, honoring per-column sort
// direction, null placement, and null-equality mode.
func CompareRows(leftCols, rightCols []arrow.Array, leftRow, rightRow int, opts []SortOption, nullEqualsNull bool) (Ordering, error) {
	for i := range leftCols {
		ord, err := compareColumn(leftCols[i], rightCols[i], leftRow, rightRow, opts[i], nullEqualsNull)
		if err != nil {
			return Equal, err
		}
		if ord != Equal {
			return ord, nil
		}
	}
	return Equal, nil
}

// IsEqualRows implements the key comparator's `is_equal` entry point: a
// cheap, strict equality used by the buffered accumulator to detect run
// boundaries. Both valid and equal is a match; every other combination,
// including both-null, is not. This is intentionally stricter than
// CompareRows(...) == Equal with nullEqualsNull = true — see spec.md §9
// ("Run-equality vs. join-equality"). Implementers must not collapse this
// distinction: it bounds the size of a buffered run independently of how
// the join itself treats null keys.
func IsEqualRows(leftCols, rightCols []arrow.Array, leftRow, rightRow int) (bool, error) {
	for i := range leftCols {
		// A column typed Null carries no values at all (every row is a
		// null of the Null type, not merely a nullable column that
		// happens to be null here); it is always treated as a match.
		if leftCols[i].DataType().ID() == arrow.NULL || rightCols[i].DataType().ID() == arrow.NULL {
			continue
		}
		lNull := leftCols[i].IsNull(leftRow)
		rNull := rightCols[i].IsNull(rightRow)
		if lNull || rNull {
			return false, nil
		}
		eq, err := valuesEqual(leftCols[i], rightCols[i], leftRow, rightRow)
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

func compareColumn(left, right arrow.Array, leftRow, rightRow int, opt SortOption, nullEqualsNull bool) (Ordering, error) {
	// A Null-typed column is always equal, independent of nullEqualsNull
	// (spec.md §4.5 point 4; mirrors original_source's DataType::Null
	// match arm in compare_join_arrays, which leaves the result untouched).
	if left.DataType().ID() == arrow.NULL || right.DataType().ID() == arrow.NULL {
		return Equal, nil
	}

	lNull := left.IsNull(leftRow)
	rNull := right.IsNull(rightRow)

	switch {
	case lNull && rNull:
		if nullEqualsNull {
			return Equal, nil
		}
		return Less, nil
	case lNull:
		if opt.NullsFirst {
			return Less, nil
		}
		return Greater, nil
	case rNull:
		if opt.NullsFirst {
			return Greater, nil
		}
		return Less, nil
	}

	ord, err := compareValues(left, right, leftRow, rightRow)
	if err != nil {
		return Equal, err
	}
	if opt.Descending {
		ord = ord.reverse()
	}
	return ord, nil
}

func cmpOrdered[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | string](a, b T) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareValues(left, right arrow.Array, leftRow, rightRow int) (Ordering, error) {
	switch l := left.(type) {
	case *array.Boolean:
		r := right.(*array.Boolean)
		lv, rv := l.Value(leftRow), r.Value(rightRow)
		if lv == rv {
			return Equal, nil
		}
		if !lv {
			return Less, nil
		}
		return Greater, nil
	case *array.Int8:
		r := right.(*array.Int8)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Int16:
		r := right.(*array.Int16)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Int32:
		r := right.(*array.Int32)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Int64:
		r := right.(*array.Int64)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Uint8:
		r := right.(*array.Uint8)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Uint16:
		r := right.(*array.Uint16)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Uint32:
		r := right.(*array.Uint32)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Uint64:
		r := right.(*array.Uint64)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Float32:
		r := right.(*array.Float32)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Float64:
		r := right.(*array.Float64)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.String:
		r := right.(*array.String)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.LargeString:
		r := right.(*array.LargeString)
		return cmpOrdered(l.Value(leftRow), r.Value(rightRow)), nil
	case *array.Decimal128:
		r := right.(*array.Decimal128)
		lv, rv := l.Value(leftRow), r.Value(rightRow)
		return Ordering(lv.BigInt().Cmp(rv.BigInt())), nil
	case *array.Timestamp:
		r := right.(*array.Timestamp)
		return cmpOrdered(int64(l.Value(leftRow)), int64(r.Value(rightRow))), nil
	default:
		return Equal, joinerr.NewTypeSupportError(fmt.Sprintf("%T", left))
	}
}

func valuesEqual(left, right arrow.Array, leftRow, rightRow int) (bool, error) {
	ord, err := compareValues(left, right, leftRow, rightRow)
	if err != nil {
		return false, err
	}
	return ord == Equal, nil
}
