package fhircrawler

import (
	"github.com/gofhir/crawler/schema"
)

// Visitor holds the lifecycle callbacks invoked during a crawl. Every
// callback is optional; nil callbacks are skipped. Callbacks run
// synchronously on the crawling goroutine and must not mutate the
// schema they receive. Returning a non-nil error aborts the entire
// crawl; the error reaches the Crawl caller unchanged.
type Visitor struct {
	// EnterResource fires when entering an object node that carries a
	// resourceType discriminator, before EnterObject for the same node.
	EnterResource func(path string, tv schema.TypedValue, sch *schema.TypeSchema) error

	// ExitResource fires after ExitObject for the same resource node.
	ExitResource func(path string, tv schema.TypedValue, sch *schema.TypeSchema) error

	// EnterObject fires when entering any composite object node.
	EnterObject func(path string, tv schema.TypedValue, sch *schema.TypeSchema) error

	// ExitObject fires after all of the node's properties have been
	// visited and all descendant nodes have completed enter/exit.
	ExitObject func(path string, tv schema.TypedValue, sch *schema.TypeSchema) error

	// VisitProperty fires once per declared property key, in schema
	// order, with the full resolved value sequence. The sequence may be
	// empty (property not populated), hold one value (scalar), or many
	// (array); interpreting arity is the visitor's responsibility.
	VisitProperty func(parent schema.TypedValue, key, path string, values []schema.TypedValue, sch *schema.TypeSchema) error
}

func (v *Visitor) enterResource(path string, tv schema.TypedValue, sch *schema.TypeSchema) error {
	if v.EnterResource == nil {
		return nil
	}
	return v.EnterResource(path, tv, sch)
}

func (v *Visitor) exitResource(path string, tv schema.TypedValue, sch *schema.TypeSchema) error {
	if v.ExitResource == nil {
		return nil
	}
	return v.ExitResource(path, tv, sch)
}

func (v *Visitor) enterObject(path string, tv schema.TypedValue, sch *schema.TypeSchema) error {
	if v.EnterObject == nil {
		return nil
	}
	return v.EnterObject(path, tv, sch)
}

func (v *Visitor) exitObject(path string, tv schema.TypedValue, sch *schema.TypeSchema) error {
	if v.ExitObject == nil {
		return nil
	}
	return v.ExitObject(path, tv, sch)
}

func (v *Visitor) visitProperty(parent schema.TypedValue, key, path string, values []schema.TypedValue, sch *schema.TypeSchema) error {
	if v.VisitProperty == nil {
		return nil
	}
	return v.VisitProperty(parent, key, path, values, sch)
}
