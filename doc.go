// Package fhircrawler walks typed FHIR resource instances according to
// their structural schemas.
//
// A crawl pairs an in-memory, already-parsed resource value with the
// schema of its declared type and descends depth-first, invoking a
// visitor's lifecycle callbacks in a fixed order. Each property is
// resolved to zero, one, or many typed values, so polymorphic elements
// (value[x] choice types) always carry their concrete type alongside
// the raw value.
//
// # Callback order
//
// For every composite object node the crawler guarantees:
//
//  1. EnterResource (only when the node carries a resourceType
//     discriminator), then EnterObject.
//  2. VisitProperty once per schema property key, in the schema's
//     declared order, with the full resolved value sequence.
//  3. Recursive descent into each non-empty composite value.
//  4. ExitObject, then ExitResource (when applicable).
//
// Primitive-typed values are leaves: VisitProperty reports them but the
// crawler never descends into them.
//
// # Usage
//
//	reg := schema.NewRegistry()
//	reg.Register(patientSchema)
//	reg.Register(humanNameSchema)
//
//	err := fhircrawler.Crawl(ctx, resource, reg, &fhircrawler.Visitor{
//	    VisitProperty: func(parent schema.TypedValue, key, path string, values []schema.TypedValue, sch *schema.TypeSchema) error {
//	        // accumulate whatever the caller needs
//	        return nil
//	    },
//	})
//
// All results are side effects recorded by the visitor; Crawl itself
// returns only an error. An error from any callback aborts the crawl
// immediately and is returned to the caller unchanged.
//
// # Thread safety
//
// The crawler holds no state beyond the single call stack: one Crawl
// invocation is one traversal. A schema Provider that is safe for
// concurrent read-only lookups can serve many simultaneous crawls.
package fhircrawler
