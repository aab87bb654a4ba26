package join

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
)

// BuildJoinSchema computes the output schema for joining left against right
// under joinType. spec.md §1 names schema construction and join-key
// validation an external collaborator; this is that collaborator's concrete
// implementation — every standalone build of this operator needs one, and
// this follows original_source's `build_join_schema` (column order:
// left-then-right for every join type except Semi/Anti, which project only
// the left side; spec.md §4.4 "Column Order" explains why Right's physical
// buffered/streamed swap never leaks into the schema).
func BuildJoinSchema(left, right *arrow.Schema, joinType JoinType) (*arrow.Schema, error) {
	switch joinType {
	case Semi, Anti:
		return arrow.NewSchema(left.Fields(), nil), nil
	default:
		fields := make([]arrow.Field, 0, left.NumFields()+right.NumFields())
		fields = append(fields, left.Fields()...)
		fields = append(fields, right.Fields()...)
		return arrow.NewSchema(fields, nil), nil
	}
}

// resolveKeyIndices maps each ColumnPair's left/right column name to its
// positional index in the respective schema, and validates that paired
// columns share a compatible element type. This is the "join-key
// validation" half of the same external collaborator named in spec.md §1.
func resolveKeyIndices(left, right *arrow.Schema, on []ColumnPair) (leftIdx, rightIdx []int, err error) {
	if len(on) == 0 {
		return nil, nil, joinerr.NewConfigurationError("invalid join specification", "on must be non-empty")
	}
	leftIdx = make([]int, len(on))
	rightIdx = make([]int, len(on))
	for i, pair := range on {
		li := left.FieldIndices(pair.Left)
		if len(li) == 0 {
			return nil, nil, joinerr.NewConfigurationError("invalid join specification",
				fmt.Sprintf("left column %q not found", pair.Left))
		}
		ri := right.FieldIndices(pair.Right)
		if len(ri) == 0 {
			return nil, nil, joinerr.NewConfigurationError("invalid join specification",
				fmt.Sprintf("right column %q not found", pair.Right))
		}
		lt := left.Field(li[0]).Type
		rt := right.Field(ri[0]).Type
		if !arrow.TypeEqual(lt, rt) {
			return nil, nil, joinerr.NewConfigurationError("invalid join specification",
				fmt.Sprintf("join columns %q and %q have incompatible types %s and %s", pair.Left, pair.Right, lt, rt))
		}
		leftIdx[i] = li[0]
		rightIdx[i] = ri[0]
	}
	return leftIdx, rightIdx, nil
}
