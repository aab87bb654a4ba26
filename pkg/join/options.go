package join

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/sirupsen/logrus"
)

// Option configures a SortMergeJoin at construction time, in the style of
// the teacher package's ProcessorOption functional-options pattern.
type Option func(*config)

type config struct {
	sortOptions    []SortOption
	nullEqualsNull bool
	logger         *logrus.Entry
	allocator      memory.Allocator
}

func defaultConfig(numKeys int) *config {
	opts := make([]SortOption, numKeys)
	for i := range opts {
		opts[i] = SortOption{Descending: false, NullsFirst: true}
	}
	return &config{
		sortOptions:    opts,
		nullEqualsNull: false,
		logger:         logrus.NewEntry(logrus.StandardLogger()),
		allocator:      memory.DefaultAllocator,
	}
}

// WithSortOptions sets the per-key-column sort direction and null placement
// that both inputs are already physically ordered by (spec.md §3,
// `sort_options`). Its length must equal the number of join keys.
func WithSortOptions(opts ...SortOption) Option {
	return func(c *config) {
		c.sortOptions = opts
	}
}

// WithNullEqualsNull sets whether two null keys compare Equal (spec.md §3).
func WithNullEqualsNull(v bool) Option {
	return func(c *config) {
		c.nullEqualsNull = v
	}
}

// WithLogger overrides the structured logger used for state-transition and
// per-batch tracing.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithAllocator overrides the Arrow memory allocator used for every
// gathered, null-padded, and combined output batch.
func WithAllocator(alloc memory.Allocator) Option {
	return func(c *config) {
		c.allocator = alloc
	}
}
