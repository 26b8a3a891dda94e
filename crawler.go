package fhircrawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofhir/crawler/schema"
)

// ErrNoResourceType is returned when the root value of a crawl carries
// no resourceType discriminator and no declared type.
var ErrNoResourceType = errors.New("fhircrawler: resource has no resourceType")

// ErrMaxDepthExceeded is returned when traversal descends past the
// configured depth bound, which indicates a schema cycle the provider
// did not terminate.
var ErrMaxDepthExceeded = errors.New("fhircrawler: max depth exceeded")

// Crawl walks a resource instance, invoking the visitor's callbacks.
// The resource's declared type is taken from its resourceType
// discriminator and its schema is looked up through the provider unless
// overridden with WithSchema.
func Crawl(ctx context.Context, resource map[string]any, p schema.Provider, v *Visitor, opts ...Option) error {
	if resource == nil || v == nil {
		return nil
	}
	rt := schema.ResourceType(resource)
	if rt == "" {
		return ErrNoResourceType
	}
	return CrawlTyped(ctx, schema.TypedValue{Type: rt, Value: resource}, p, v, opts...)
}

// CrawlTyped walks an already-typed value. Use it to crawl a fragment
// of a resource (a single HumanName, an extension) or to supply a type
// name the value itself does not carry.
func CrawlTyped(ctx context.Context, root schema.TypedValue, p schema.Provider, v *Visitor, opts ...Option) error {
	if root.IsEmpty() || v == nil {
		return nil
	}
	if root.Type == "" {
		return ErrNoResourceType
	}
	if p == nil {
		p = schema.NullProvider{}
	}

	o := newOptions(opts...)

	sch := o.schema
	if sch == nil {
		var err error
		sch, err = p.Schema(ctx, root.Type)
		if err != nil {
			return err
		}
	}

	path := o.initialPath
	if path == "" {
		path = root.Type
	}

	c := &crawl{
		provider: p,
		visitor:  v,
		maxDepth: o.maxDepth,
		metrics:  o.metrics,
	}
	return c.object(ctx, path, root, sch, 0)
}

// crawl carries the fixed parameters of one traversal. It holds no
// state of its own; everything else lives on the call stack.
type crawl struct {
	provider schema.Provider
	visitor  *Visitor
	maxDepth int
	metrics  *Metrics
}

// object visits one composite node: resource/object entry callbacks,
// every declared property in order, then the exit callbacks.
func (c *crawl) object(ctx context.Context, path string, tv schema.TypedValue, sch *schema.TypeSchema, depth int) error {
	if depth > c.maxDepth {
		return fmt.Errorf("%w: %s (depth %d)", ErrMaxDepthExceeded, path, depth)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.metrics.recordObject(depth)

	isResource := tv.IsResource()
	if isResource {
		c.metrics.recordResource()
		if err := c.visitor.enterResource(path, tv, sch); err != nil {
			return err
		}
	}
	if err := c.visitor.enterObject(path, tv, sch); err != nil {
		return err
	}

	for _, key := range sch.Keys() {
		el := sch.Get(key)
		if el.IsForbidden() {
			continue
		}
		if err := c.property(ctx, path, tv, key, sch, depth); err != nil {
			return err
		}
	}

	if err := c.visitor.exitObject(path, tv, sch); err != nil {
		return err
	}
	if isResource {
		return c.visitor.exitResource(path, tv, sch)
	}
	return nil
}

// property resolves one property key, reports it to the visitor, and
// descends into each non-empty composite value.
func (c *crawl) property(ctx context.Context, path string, parent schema.TypedValue, key string, sch *schema.TypeSchema, depth int) error {
	var resolveOpts []schema.ResolveOption
	if sch.URL != "" {
		resolveOpts = append(resolveOpts, schema.WithProfileURL(sch.URL))
	}

	values, err := c.provider.ResolveProperty(ctx, parent, key, resolveOpts...)
	if err != nil {
		return err
	}

	propPath := path + "." + key
	c.metrics.recordProperty(len(values))

	if err := c.visitor.visitProperty(parent, key, propPath, values, sch); err != nil {
		return err
	}

	for _, value := range values {
		if value.IsEmpty() {
			continue
		}
		value = concreteResourceType(value)
		if value.Kind() != schema.KindComposite {
			continue
		}
		childSchema, err := c.provider.Schema(ctx, value.Type)
		if err != nil {
			return fmt.Errorf("descend into %s: %w", propPath, err)
		}
		if err := c.object(ctx, propPath, value, childSchema, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// concreteResourceType narrows abstractly-typed values (contained
// resources declared as Resource or DomainResource) to the concrete
// type named by their resourceType discriminator.
func concreteResourceType(tv schema.TypedValue) schema.TypedValue {
	if tv.Type != "Resource" && tv.Type != "DomainResource" {
		return tv
	}
	if rt := schema.ResourceType(tv.Value); rt != "" {
		tv.Type = rt
	}
	return tv
}
