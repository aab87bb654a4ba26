package join

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
	"github.com/rosscartlidge/sortmergejoin/pkg/stream"
)

type bufState int

const (
	bufInit bufState = iota
	bufPollingFirst
	bufPollingRest
	bufReady
	bufExhausted
)

// bufferedBatch is one record batch contributing rows to the current key
// run, plus the half-open row range [start, end) of that batch belonging
// to the run and a cached projection of its key columns (spec.md §3,
// `BufferedBatch`).
type bufferedBatch struct {
	batch   arrow.Record
	start   int
	end     int
	keyCols []arrow.Array
}

// bufferedAccumulator implements the buffered side of the merge (spec.md
// §4.3): it collects a maximal run of rows sharing one join key, possibly
// spanning several input batches, and exposes two scan cursors the output
// builder walks while emitting join output (spec.md §3, `BufferedData`).
type bufferedAccumulator struct {
	input         RecordStream
	keyIdx        []int
	state         bufState
	batches       []*bufferedBatch
	scanBatchIdx  int
	scanRowOffset int
}

func newBufferedAccumulator(input RecordStream, keyIdx []int) *bufferedAccumulator {
	return &bufferedAccumulator{input: input, keyIdx: keyIdx, state: bufInit}
}

// poll advances the accumulator until it holds a ready run, is exhausted,
// or hits an upstream error. Unlike the streamed cursor, a single poll()
// call may loop through several of the source's sub-states internally
// (Init → PollingFirst/PollingRest → Ready) because the teacher's Stream[T]
// pull is synchronous — there is no intermediate "pending" to return to
// the caller between those transitions.
func (b *bufferedAccumulator) poll() (bool, error) {
	for {
		switch b.state {
		case bufExhausted:
			return false, nil
		case bufReady:
			return true, nil

		case bufInit:
			for len(b.batches) > 0 {
				head := b.batches[0]
				if head.end == int(head.batch.NumRows()) {
					head.batch.Release()
					b.batches = b.batches[1:]
					continue
				}
				break
			}
			if len(b.batches) == 0 {
				b.state = bufPollingFirst
				continue
			}
			tail := b.batches[len(b.batches)-1]
			tail.start = tail.end
			tail.end++
			b.state = bufPollingRest

		case bufPollingFirst:
			next, err := b.input()
			if err != nil {
				if err == stream.EOS {
					b.state = bufExhausted
					return false, nil
				}
				return false, joinerr.NewUpstreamError(err)
			}
			if next.NumRows() == 0 {
				continue
			}
			b.batches = append(b.batches, &bufferedBatch{
				batch:   next,
				start:   0,
				end:     1,
				keyCols: projectColumns(next, b.keyIdx),
			})
			b.state = bufPollingRest

		case bufPollingRest:
			head := b.batches[0]
			tail := b.batches[len(b.batches)-1]

			if tail.end < int(tail.batch.NumRows()) {
				eq, err := IsEqualRows(tail.keyCols, head.keyCols, tail.end, head.start)
				if err != nil {
					return false, err
				}
				if eq {
					tail.end++
					continue
				}
				b.resetScan()
				b.state = bufReady
				continue
			}

			next, err := b.input()
			if err != nil {
				if err == stream.EOS {
					b.resetScan()
					b.state = bufReady
					continue
				}
				return false, joinerr.NewUpstreamError(err)
			}
			if next.NumRows() == 0 {
				continue
			}
			b.batches = append(b.batches, &bufferedBatch{
				batch:   next,
				start:   0,
				end:     0,
				keyCols: projectColumns(next, b.keyIdx),
			})
		}
	}
}

// headKeyCols and headRow expose the first row of the current run — the
// key the streamed side is compared against (spec.md §4.1, "compute
// current_ordering via the key comparator").
func (b *bufferedAccumulator) headKeyCols() []arrow.Array {
	return b.batches[0].keyCols
}

func (b *bufferedAccumulator) headRow() int {
	return b.batches[0].start
}

// resetScan rewinds the output builder's scan cursors to the start of the
// run, called once a pairing has been fully materialized (spec.md §4.1,
// JoinOutput "reset scan cursors and return to Init") and whenever a new
// run becomes ready.
func (b *bufferedAccumulator) resetScan() {
	b.scanBatchIdx = 0
	if len(b.batches) > 0 {
		b.scanRowOffset = b.batches[0].start
	} else {
		b.scanRowOffset = 0
	}
}

// scanDone reports whether the output builder's scan has walked every row
// of the current run.
func (b *bufferedAccumulator) scanDone() bool {
	return b.scanBatchIdx >= len(b.batches)
}

// scanAdvance moves the scan cursor to the next row in the run, crossing a
// batch boundary when the current batch's range is exhausted.
func (b *bufferedAccumulator) scanAdvance() {
	b.scanRowOffset++
	if b.scanBatchIdx < len(b.batches) && b.scanRowOffset >= b.batches[b.scanBatchIdx].end {
		b.scanBatchIdx++
		if b.scanBatchIdx < len(b.batches) {
			b.scanRowOffset = b.batches[b.scanBatchIdx].start
		}
	}
}

// reset prepares the accumulator for a new run once the previous one has
// been fully scanned and consumed (spec.md §4.1, Init transition).
func (b *bufferedAccumulator) reset() {
	b.state = bufInit
}

func (b *bufferedAccumulator) release() {
	for _, bb := range b.batches {
		bb.batch.Release()
	}
	b.batches = nil
}
