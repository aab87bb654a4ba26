// Package join implements the Sort-Merge Join operator: a single-partition
// streaming merge over two already-sorted record-batch streams, producing
// joined output under Inner/Left/Right/Full/Semi/Anti semantics in bounded
// memory proportional to the largest same-key run on the buffered side.
package join

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
	"github.com/rosscartlidge/sortmergejoin/pkg/stream"
)

type outerState int

const (
	outerInit outerState = iota
	outerPolling
	outerJoinOutput
	outerExhausted
)

// SortMergeJoin is a single-partition sort-merge join plan node. It is
// constructed once per partition (spec.md §3 "Lifecycle") and its
// Execute stream must be consumed exactly once.
type SortMergeJoin struct {
	left, right           RecordStream
	leftSchema, rightSchema *arrow.Schema
	outputSchema          *arrow.Schema
	on                    []ColumnPair
	joinType              JoinType
	cfg                   *config

	swapped       bool
	effectiveType JoinType

	streamed        *streamedCursor
	buffered        *bufferedAccumulator
	streamedSchema  *arrow.Schema
	bufferedSchema  *arrow.Schema

	state           outerState
	firstCycle      bool
	ordering        Ordering
	advanceStreamed bool
	advanceBuffered bool
	streamedJoined  bool
	bufferedJoined  bool

	pendingIndices []outputIndex
	batchSize      int
	mem            memory.Allocator
	log            *logrus.Entry

	err error
}

// New validates the join specification and builds a SortMergeJoin plan
// node. Validation happens entirely here (spec.md §6, §7 KindConfiguration):
// sort_options must have one entry per join key, on must be non-empty, and
// every paired column must exist with a compatible type.
func New(left, right RecordStream, leftSchema, rightSchema *arrow.Schema, on []ColumnPair, joinType JoinType, opts ...Option) (*SortMergeJoin, error) {
	cfg := defaultConfig(len(on))
	for _, opt := range opts {
		opt(cfg)
	}

	if len(on) == 0 {
		return nil, joinerr.NewConfigurationError("invalid join specification", "on must be non-empty")
	}
	if len(cfg.sortOptions) != len(on) {
		return nil, joinerr.NewConfigurationError("invalid join specification",
			fmt.Sprintf("sort_options length %d does not match on length %d", len(cfg.sortOptions), len(on)))
	}

	leftKeyIdx, rightKeyIdx, err := resolveKeyIndices(leftSchema, rightSchema, on)
	if err != nil {
		return nil, err
	}

	outputSchema, err := BuildJoinSchema(leftSchema, rightSchema, joinType)
	if err != nil {
		return nil, err
	}

	j := &SortMergeJoin{
		left:         left,
		right:        right,
		leftSchema:   leftSchema,
		rightSchema:  rightSchema,
		outputSchema: outputSchema,
		on:           on,
		joinType:     joinType,
		cfg:          cfg,
		firstCycle:   true,
		mem:          cfg.allocator,
		log:          cfg.logger.WithFields(logrus.Fields{"join_type": joinType.String()}),
	}

	if joinType == RightOuter {
		j.swapped = true
		j.effectiveType = LeftOuter
		j.streamed = newStreamedCursor(right, rightKeyIdx)
		j.buffered = newBufferedAccumulator(left, leftKeyIdx)
		j.streamedSchema = rightSchema
		j.bufferedSchema = leftSchema
	} else {
		j.swapped = false
		j.effectiveType = joinType
		j.streamed = newStreamedCursor(left, leftKeyIdx)
		j.buffered = newBufferedAccumulator(right, rightKeyIdx)
		j.streamedSchema = leftSchema
		j.bufferedSchema = rightSchema
	}

	return j, nil
}

// Schema returns the joined output schema (spec.md §6, `schema()`).
func (j *SortMergeJoin) Schema() *arrow.Schema {
	return j.outputSchema
}

// OutputPartitioning mirrors the right child's partitioning, same as
// original_source (spec.md §6).
func (j *SortMergeJoin) OutputPartitioning() RecordStream {
	return j.right
}

// OutputOrdering mirrors the right child's ordering unconditionally. This
// is correct for Right joins but, per spec.md §9's "do not guess" note, is
// a known source-behavior quirk for every other join type (the output is
// actually ordered by the streamed side, which for non-Right joins is the
// left child). The behavior is preserved here as-is rather than silently
// fixed.
func (j *SortMergeJoin) OutputOrdering() RecordStream {
	return j.right
}

// Children returns the two input streams in (left, right) order.
func (j *SortMergeJoin) Children() []RecordStream {
	return []RecordStream{j.left, j.right}
}

// WithNewChildren rebuilds this plan node with replacement children,
// preserving its join specification and options. It is an error
// (KindInvariant, spec.md §7) to pass any number of children other than
// two.
func (j *SortMergeJoin) WithNewChildren(children []RecordStream) (*SortMergeJoin, error) {
	if len(children) != 2 {
		return nil, joinerr.NewInvariantError(fmt.Sprintf("with_new_children: expected 2 children, got %d", len(children)))
	}
	return New(children[0], children[1], j.leftSchema, j.rightSchema, j.on, j.joinType, optionsFromConfig(j.cfg)...)
}

func optionsFromConfig(cfg *config) []Option {
	return []Option{
		WithSortOptions(cfg.sortOptions...),
		WithNullEqualsNull(cfg.nullEqualsNull),
		WithLogger(cfg.logger),
		WithAllocator(cfg.allocator),
	}
}

// Execute returns the single-shot output stream for this partition
// (spec.md §6, `execute(partition, context)`). batchSize is the target row
// count per output batch and must be positive; ctx is checked before every
// pull and cancels the stream. The returned stream must only be consumed
// once.
func (j *SortMergeJoin) Execute(ctx context.Context, batchSize int) (RecordStream, error) {
	if batchSize <= 0 {
		return nil, joinerr.NewConfigurationError("invalid execution context", "batch_size must be positive")
	}
	j.batchSize = batchSize
	j.log = j.log.WithField("batch_size", batchSize)

	return func() (arrow.Record, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return j.next()
	}, nil
}

func (j *SortMergeJoin) next() (arrow.Record, error) {
	if j.err != nil {
		// The error was already returned once; the stream has ended.
		return nil, stream.EOS
	}

	for {
		switch j.state {
		case outerExhausted:
			if len(j.pendingIndices) > 0 {
				rec, err := j.flush()
				if err != nil {
					j.err = err
					return nil, err
				}
				if rec != nil {
					return rec, nil
				}
			}
			j.log.Debug("sort-merge join exhausted")
			return nil, stream.EOS

		case outerInit:
			j.doInit()
			j.state = outerPolling

		case outerPolling:
			done, err := j.doPolling()
			if err != nil {
				j.err = err
				return nil, err
			}
			if done {
				j.state = outerExhausted
				continue
			}
			j.state = outerJoinOutput

		case outerJoinOutput:
			pairingDone := j.produceOutputs()
			if len(j.pendingIndices) >= j.batchSize {
				rec, err := j.flush()
				if err != nil {
					j.err = err
					return nil, err
				}
				if pairingDone {
					j.state = outerInit
				}
				if rec != nil {
					return rec, nil
				}
				continue
			}
			if pairingDone {
				j.state = outerInit
			}
		}
	}
}

// doInit implements spec.md §4.1's Init state: based on the ordering
// computed by the previous cycle, it marks whichever side needs to
// advance on the next Polling phase. Less/Equal means the streamed row
// was fully resolved against the current buffered run, so the streamed
// cursor moves on while the run is kept in case the next streamed row
// shares its key. Greater means the buffered run was exhausted against
// the streamed row, so it starts a fresh run.
func (j *SortMergeJoin) doInit() {
	if j.firstCycle {
		return
	}
	switch j.ordering {
	case Less, Equal:
		j.advanceStreamed = true
	case Greater:
		j.advanceBuffered = true
		j.buffered.reset()
	}
}

// doPolling implements spec.md §4.2's Polling state: advance whichever
// side Init marked (or, on the very first cycle, both sides from their
// own Init state), then compute the ordering between the streamed row
// and the head of the buffered run. Returns done=true once both sides
// are Exhausted.
func (j *SortMergeJoin) doPolling() (bool, error) {
	needStreamed := j.streamed.state == cursorInit || j.advanceStreamed
	needBuffered := j.buffered.state == bufInit || j.advanceBuffered

	if needStreamed && needBuffered {
		// Only reachable on the very first cycle (doInit only ever sets
		// one of these flags on later cycles): prime both cursors'
		// first batch concurrently via errgroup rather than serially.
		g := new(errgroup.Group)
		g.Go(func() error {
			_, err := j.streamed.poll()
			return err
		})
		g.Go(func() error {
			_, err := j.buffered.poll()
			return err
		})
		if err := g.Wait(); err != nil {
			return false, err
		}
		j.advanceStreamed = false
		j.streamedJoined = false
		j.advanceBuffered = false
		j.bufferedJoined = false
	} else {
		if needStreamed {
			if _, err := j.streamed.poll(); err != nil {
				return false, err
			}
			j.advanceStreamed = false
			j.streamedJoined = false
		}
		if needBuffered {
			if _, err := j.buffered.poll(); err != nil {
				return false, err
			}
			j.advanceBuffered = false
			j.bufferedJoined = false
		}
	}

	streamedDone := j.streamed.state == cursorExhausted
	bufferedDone := j.buffered.state == bufExhausted
	if streamedDone && bufferedDone {
		return true, nil
	}

	ord, err := j.computeOrdering(streamedDone, bufferedDone)
	if err != nil {
		return false, err
	}
	j.ordering = ord
	j.firstCycle = false
	j.log.WithField("ordering", ord.String()).Trace("computed ordering")
	return false, nil
}

// computeOrdering handles the steady-state row/run comparison (spec.md
// §4.5) plus the two drain cases the distilled spec leaves implicit but
// original_source's poll_next handles explicitly: once one side is
// exhausted, the other side's
// remaining rows are treated as perpetually ahead so outer/full padding
// keeps draining until it exhausts too.
func (j *SortMergeJoin) computeOrdering(streamedDone, bufferedDone bool) (Ordering, error) {
	switch {
	case streamedDone:
		return Greater, nil
	case bufferedDone:
		return Less, nil
	default:
		return CompareRows(j.streamed.keyCols, j.buffered.headKeyCols(), j.streamed.idx, j.buffered.headRow(), j.cfg.sortOptions, j.cfg.nullEqualsNull)
	}
}
