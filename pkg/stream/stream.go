package stream

import "errors"

// ============================================================================
// STREAM - minimal pull-based sequence abstraction
// ============================================================================

// EOS signals end of stream
var EOS = errors.New("end of stream")

// Stream represents a generic data stream: calling it pulls the next
// element, returning EOS once exhausted or any other error on failure.
type Stream[T any] func() (T, error)
