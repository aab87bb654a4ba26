package join

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rosscartlidge/sortmergejoin/pkg/columnar"
)

// outputIndex is one row of the eventual output batch: a streamed-side row
// index, a buffered-side (batch, row) pair, or both (spec.md §4.4). A
// missing side is padded with nulls at materialization time.
type outputIndex struct {
	hasStreamed bool
	streamedIdx int

	hasBuffered    bool
	bufferedBatch  int
	bufferedRow    int
}

// produceOutputs runs one JoinOutput cycle (spec.md §4.1/§4.4): given the
// current key ordering and join type, it appends zero or more outputIndex
// entries to j.pendingIndices, bounded by the remaining batch_size capacity.
// It returns true once the current (streamed_row, buffered_run) pairing is
// fully resolved — either nothing needed emitting, a single pad row was
// emitted, or the buffered run's scan reached its end — and false if it
// stopped early because staging reached batch_size, in which case the next
// JoinOutput cycle resumes the same pairing via the buffered scan cursors.
func (j *SortMergeJoin) produceOutputs() bool {
	switch j.ordering {
	case Less:
		if j.padsStreamedOnLess() && !j.streamedJoined {
			j.pendingIndices = append(j.pendingIndices, outputIndex{hasStreamed: true, streamedIdx: j.streamed.idx})
			j.streamedJoined = true
		}
		return true

	case Equal:
		switch j.effectiveType {
		case Semi:
			if !j.streamedJoined {
				j.pendingIndices = append(j.pendingIndices, outputIndex{hasStreamed: true, streamedIdx: j.streamed.idx})
				j.streamedJoined = true
			}
			return true
		case Anti:
			return true
		default:
			for !j.buffered.scanDone() && len(j.pendingIndices) < j.batchSize {
				j.pendingIndices = append(j.pendingIndices, outputIndex{
					hasStreamed:   true,
					streamedIdx:   j.streamed.idx,
					hasBuffered:   true,
					bufferedBatch: j.buffered.scanBatchIdx,
					bufferedRow:   j.buffered.scanRowOffset,
				})
				j.buffered.scanAdvance()
			}
			if j.buffered.scanDone() {
				j.streamedJoined = true
				j.bufferedJoined = true
				j.buffered.resetScan()
				return true
			}
			return false
		}

	case Greater:
		if j.effectiveType != FullOuter {
			return true
		}
		if j.bufferedJoined {
			// This run was already matched against an earlier streamed
			// row (or streamed simply ran out); it must not be padded
			// again now that the comparison has moved past it.
			return true
		}
		for !j.buffered.scanDone() && len(j.pendingIndices) < j.batchSize {
			j.pendingIndices = append(j.pendingIndices, outputIndex{
				hasBuffered:   true,
				bufferedBatch: j.buffered.scanBatchIdx,
				bufferedRow:   j.buffered.scanRowOffset,
			})
			j.buffered.scanAdvance()
		}
		if j.buffered.scanDone() {
			j.bufferedJoined = true
			j.buffered.resetScan()
			return true
		}
		return false
	}
	return true
}

// padsStreamedOnLess reports whether, for the configured effective join
// type, a streamed row with no buffered match (ordering Less) produces a
// null-padded output row. Matches spec.md §4.4's decision matrix row for
// "Less": every type except Inner and Semi pads.
func (j *SortMergeJoin) padsStreamedOnLess() bool {
	switch j.effectiveType {
	case Inner, Semi:
		return false
	default:
		return true
	}
}

// flush materializes every pending index into one output record, appends
// it to staging, combines staging into a single batch via the external
// concatenation helper, and clears both. It is called once staging reaches
// batch_size (spec.md §4.1 JoinOutput) or once at Exhausted to drain any
// partial remainder (spec.md §4.1 Exhausted).
func (j *SortMergeJoin) flush() (arrow.Record, error) {
	rec, err := j.materialize(j.pendingIndices)
	j.pendingIndices = nil
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec, nil
}

// materialize implements spec.md §4.4 "Materialization": indices are split,
// in their original order, into contiguous runs of one class (both sides
// present with the same buffered batch, streamed only, or buffered only),
// each run gathered and null-padded, then concatenated side by side in
// join-type-dictated column order and stacked row-wise via the external
// combine helper. Output row order is the order of indices.
func (j *SortMergeJoin) materialize(indices []outputIndex) (arrow.Record, error) {
	if len(indices) == 0 {
		return nil, nil
	}

	mem := j.mem
	var parts []arrow.Record

	flushGroup := func(streamedIdxs []int64, bufferedBatchIdx int, bufferedIdxs []int64) error {
		rec, err := j.materializeGroup(mem, streamedIdxs, bufferedBatchIdx, bufferedIdxs)
		if err != nil {
			return err
		}
		parts = append(parts, rec)
		return nil
	}

	i := 0
	for i < len(indices) {
		entry := indices[i]
		switch {
		case entry.hasStreamed && entry.hasBuffered:
			bufBatchIdx := entry.bufferedBatch
			var streamedIdxs, bufferedIdxs []int64
			for i < len(indices) && indices[i].hasStreamed && indices[i].hasBuffered && indices[i].bufferedBatch == bufBatchIdx {
				streamedIdxs = append(streamedIdxs, int64(indices[i].streamedIdx))
				bufferedIdxs = append(bufferedIdxs, int64(indices[i].bufferedRow))
				i++
			}
			if err := flushGroup(streamedIdxs, bufBatchIdx, bufferedIdxs); err != nil {
				return nil, err
			}
		case entry.hasStreamed:
			var streamedIdxs []int64
			for i < len(indices) && indices[i].hasStreamed && !indices[i].hasBuffered {
				streamedIdxs = append(streamedIdxs, int64(indices[i].streamedIdx))
				i++
			}
			if err := flushGroup(streamedIdxs, -1, nil); err != nil {
				return nil, err
			}
		default: // buffered only
			bufBatchIdx := entry.bufferedBatch
			var bufferedIdxs []int64
			for i < len(indices) && !indices[i].hasStreamed && indices[i].hasBuffered && indices[i].bufferedBatch == bufBatchIdx {
				bufferedIdxs = append(bufferedIdxs, int64(indices[i].bufferedRow))
				i++
			}
			if err := flushGroup(nil, bufBatchIdx, bufferedIdxs); err != nil {
				return nil, err
			}
		}
	}

	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()
	return columnar.CombineBatches(mem, j.outputSchema, parts)
}

func (j *SortMergeJoin) materializeGroup(mem memory.Allocator, streamedIdxs []int64, bufferedBatchIdx int, bufferedIdxs []int64) (arrow.Record, error) {
	n := len(streamedIdxs)
	if n == 0 {
		n = len(bufferedIdxs)
	}

	var streamedRec, bufferedRec arrow.Record
	var err error

	if len(streamedIdxs) > 0 {
		streamedRec, err = columnar.Gather(mem, j.streamed.batch, streamedIdxs)
	} else {
		streamedRec, err = columnar.NullRecord(mem, j.streamedSchema, n)
	}
	if err != nil {
		return nil, err
	}
	defer streamedRec.Release()

	if len(bufferedIdxs) > 0 {
		bufferedRec, err = columnar.Gather(mem, j.buffered.batches[bufferedBatchIdx].batch, bufferedIdxs)
	} else {
		bufferedRec, err = columnar.NullRecord(mem, j.bufferedSchema, n)
	}
	if err != nil {
		return nil, err
	}
	defer bufferedRec.Release()

	return j.combineSides(streamedRec, bufferedRec)
}

// combineSides concatenates the streamed and buffered column groups in the
// order the join type dictates (spec.md §4.4 "Column Order"): physical
// streamed||buffered for every join type except logical Right, where the
// operator swapped inputs at the top and must swap the columns back so the
// output is always logical left||right; Semi/Anti project only the
// (logical left / physical streamed-or-buffered, whichever is logical
// left) side.
func (j *SortMergeJoin) combineSides(streamedRec, bufferedRec arrow.Record) (arrow.Record, error) {
	switch j.joinType {
	case Semi, Anti:
		return cloneRecord(streamedRec), nil
	case RightOuter:
		return hstack(j.outputSchema, bufferedRec, streamedRec), nil
	default:
		return hstack(j.outputSchema, streamedRec, bufferedRec), nil
	}
}

func cloneRecord(rec arrow.Record) arrow.Record {
	rec.Retain()
	return rec
}

func hstack(schema *arrow.Schema, left, right arrow.Record) arrow.Record {
	cols := make([]arrow.Array, 0, int(left.NumCols())+int(right.NumCols()))
	cols = append(cols, columnsOf(left)...)
	cols = append(cols, columnsOf(right)...)
	return array.NewRecord(schema, cols, left.NumRows())
}

func columnsOf(rec arrow.Record) []arrow.Array {
	cols := make([]arrow.Array, rec.NumCols())
	for i := range cols {
		cols[i] = rec.Column(i)
	}
	return cols
}
