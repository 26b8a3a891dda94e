package fhircrawler

import (
	"context"

	"github.com/gofhir/crawler/schema"
)

// PathValue is one collected value together with the dotted path of the
// property it was resolved from.
type PathValue struct {
	Path  string
	Value schema.TypedValue
}

// CollectByType crawls a resource and returns every populated value
// whose resolved type matches typeName, in traversal order.
func CollectByType(ctx context.Context, resource map[string]any, p schema.Provider, typeName string, opts ...Option) ([]PathValue, error) {
	var found []PathValue

	visitor := &Visitor{
		VisitProperty: func(parent schema.TypedValue, key, path string, values []schema.TypedValue, sch *schema.TypeSchema) error {
			for _, v := range values {
				if v.IsEmpty() || v.Type != typeName {
					continue
				}
				found = append(found, PathValue{Path: path, Value: v})
			}
			return nil
		},
	}

	if err := Crawl(ctx, resource, p, visitor, opts...); err != nil {
		return nil, err
	}
	return found, nil
}

// CollectReferences returns every populated Reference value in the
// resource with its path. Callers typically use this to gather the
// identities a resource points at.
func CollectReferences(ctx context.Context, resource map[string]any, p schema.Provider, opts ...Option) ([]PathValue, error) {
	return CollectByType(ctx, resource, p, "Reference", opts...)
}

// CollectAttachments returns every populated Attachment value in the
// resource with its path.
func CollectAttachments(ctx context.Context, resource map[string]any, p schema.Provider, opts ...Option) ([]PathValue, error) {
	return CollectByType(ctx, resource, p, "Attachment", opts...)
}
