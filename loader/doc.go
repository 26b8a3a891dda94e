// Package loader reads FHIR R4 StructureDefinitions and builds the
// structural schemas the crawler traverses with.
//
// The loader bridges the full R4 models and the compact schema types:
// a StructureDefinition snapshot becomes one schema for the root type
// plus one per nested backbone element, with choice elements, content
// references, and slicing carried over.
//
// Key components:
//   - Converter: converts r4.StructureDefinition snapshots to
//     schema.TypeSchema sets
//   - Loader: loads definitions from JSON, Bundles, files, and
//     directories into a schema.Registry
//
// Example usage:
//
//	ld := loader.New()
//	if _, err := ld.LoadFromDirectory("./profiles"); err != nil {
//		return err
//	}
//
//	// The loader is a schema.Provider.
//	err := fhircrawler.Crawl(ctx, resource, ld, visitor)
package loader
