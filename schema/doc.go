// Package schema defines the structural type model the crawler walks
// against and the property resolution that interprets values through it.
//
// A TypeSchema is an ordered map of property keys to Element
// descriptors: declared types, cardinality bounds, and optional slicing.
// A Provider serves schemas by type name and resolves property keys
// against TypedValues; Registry is the in-memory implementation and
// Chain composes several providers in order.
//
// Property resolution understands the polymorphic property forms of
// FHIR: the "$this" identity key, choice elements in both base
// ("value[x]") and concrete ("valueString") spellings, dotted compound
// keys that flatten intermediate collections, and profile-URL-scoped
// slices selected by FHIRPath filters.
package schema
