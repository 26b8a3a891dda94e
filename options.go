package fhircrawler

import (
	"github.com/gofhir/crawler/schema"
)

// DefaultMaxDepth bounds recursive descent. Schema graphs are shallow
// in practice; hitting the bound means a self-referential schema the
// provider did not truncate.
const DefaultMaxDepth = 32

// Option configures a single crawl.
type Option func(*options)

type options struct {
	schema      *schema.TypeSchema
	initialPath string
	maxDepth    int
	metrics     *Metrics
}

func newOptions(opts ...Option) *options {
	o := &options{
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSchema overrides the root schema instead of resolving it from the
// provider. Useful for crawling against a profile rather than the base
// type definition.
func WithSchema(s *schema.TypeSchema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithInitialPath overrides the path label of the root node. It
// defaults to the root value's type name.
func WithInitialPath(path string) Option {
	return func(o *options) {
		o.initialPath = path
	}
}

// WithMaxDepth bounds recursive descent; values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithMetrics attaches a Metrics collector to the crawl. The same
// collector may be shared by concurrent crawls.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
