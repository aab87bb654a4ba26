package join

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"github.com/rosscartlidge/sortmergejoin/pkg/stream"
)

// Partition bundles one partition's already-sorted left and right inputs
// along with their schemas (spec.md §5: each partition runs the single-
// threaded cooperative state machine independently of the others).
type Partition struct {
	Left, Right             RecordStream
	LeftSchema, RightSchema *arrow.Schema
}

// ExecuteAll builds one SortMergeJoin per partition and runs them
// concurrently via errgroup: partitions share no state, so there is
// nothing to coordinate beyond waiting for all to finish or cancelling
// the rest on the first failure.
func ExecuteAll(ctx context.Context, on []ColumnPair, joinType JoinType, batchSize int, partitions []Partition, opts ...Option) ([][]arrow.Record, error) {
	results := make([][]arrow.Record, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range partitions {
		i, p := i, p
		g.Go(func() error {
			smj, err := New(p.Left, p.Right, p.LeftSchema, p.RightSchema, on, joinType, opts...)
			if err != nil {
				return err
			}
			out, err := smj.Execute(gctx, batchSize)
			if err != nil {
				return err
			}
			recs, err := drainAll(out)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// drainAll pulls a RecordStream to completion, collecting every batch it
// yields before EOS.
func drainAll(s RecordStream) ([]arrow.Record, error) {
	var out []arrow.Record
	for {
		rec, err := s()
		if err == stream.EOS {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
