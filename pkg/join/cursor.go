package join

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
	"github.com/rosscartlidge/sortmergejoin/pkg/stream"
)

// RecordStream is a lazy, finite pull-sequence of record batches — the
// teacher's generic Stream[T] instantiated for arrow.Record rather than
// reinvented for this columnar domain.
type RecordStream = stream.Stream[arrow.Record]

type cursorState int

const (
	cursorInit cursorState = iota
	cursorReady
	cursorExhausted
)

// streamedCursor implements the streamed side of the merge (spec.md §4.2):
// it advances one row at a time through the streamed input, lazily pulling
// a new batch only once the current one is exhausted. The teacher's
// Stream[T] is a synchronous blocking pull (func() (T, error)) rather than
// an async poll, so the source's separate Init/Polling states collapse
// here into a single poll() call that either settles immediately or
// propagates the upstream error — there is no Go-level "pending" to bubble.
type streamedCursor struct {
	input   RecordStream
	keyIdx  []int
	state   cursorState
	batch   arrow.Record
	idx     int
	keyCols []arrow.Array
}

func newStreamedCursor(input RecordStream, keyIdx []int) *streamedCursor {
	return &streamedCursor{input: input, keyIdx: keyIdx, state: cursorInit}
}

// poll advances the cursor to the next row. It returns (true, nil) once a
// row is ready, (false, nil) once the streamed side is exhausted, or a
// non-nil error on upstream failure.
func (c *streamedCursor) poll() (bool, error) {
	switch c.state {
	case cursorExhausted:
		return false, nil
	case cursorReady:
		c.idx++
	}

	for {
		if c.batch != nil && c.idx < int(c.batch.NumRows()) {
			c.state = cursorReady
			return true, nil
		}

		next, err := c.input()
		if err != nil {
			if err == stream.EOS {
				c.state = cursorExhausted
				c.releaseBatch()
				return false, nil
			}
			return false, joinerr.NewUpstreamError(err)
		}
		if next.NumRows() == 0 {
			continue
		}

		c.releaseBatch()
		c.batch = next
		c.idx = 0
		c.keyCols = projectColumns(next, c.keyIdx)
	}
}

func (c *streamedCursor) releaseBatch() {
	if c.batch != nil {
		c.batch.Release()
		c.batch = nil
	}
}

func projectColumns(rec arrow.Record, idx []int) []arrow.Array {
	cols := make([]arrow.Array, len(idx))
	for i, colIdx := range idx {
		cols[i] = rec.Column(colIdx)
	}
	return cols
}
