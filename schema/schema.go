package schema

// Unbounded is the Max value for elements with cardinality 0..* or 1..*.
const Unbounded = -1

// TypeRef is one entry in an element's declared type choice list.
type TypeRef struct {
	// Code is the FHIR type code, normalized from system type URLs
	// ("string", "CodeableConcept").
	Code string

	// Kind is the classification of Code, resolved when the schema is
	// built so traversal never re-infers it from string casing.
	Kind TypeKind

	// Profile lists profile URLs constraining this type, if any.
	Profile []string

	// TargetProfile lists allowed target profiles for Reference types.
	TargetProfile []string
}

// Element describes a single property of a type: its dotted definition
// path, the types it may hold, and its cardinality bounds.
type Element struct {
	// Path is the dotted definition path ("Patient.name"). It is a
	// caller-facing label and is never used for lookups.
	Path string

	// Types lists the declared type choices. A single entry for normal
	// elements, several for choice (value[x]) elements.
	Types []TypeRef

	// Min is the minimum cardinality (>= 0).
	Min int

	// Max is the maximum cardinality: 0 forbids the property on this
	// type, 1 means scalar, Unbounded means 0..*.
	Max int

	// Slicing describes how a repeating element is partitioned into
	// named slices, when the defining profile declares any.
	Slicing *Slicing
}

// IsArray returns true if the element may carry more than one value.
func (e *Element) IsArray() bool {
	return e.Max == Unbounded || e.Max > 1
}

// IsForbidden returns true if the property must never be present
// (max cardinality 0). Forbidden properties are never traversed.
func (e *Element) IsForbidden() bool {
	return e.Max == 0
}

// IsChoice returns true if the element declares more than one type.
func (e *Element) IsChoice() bool {
	return len(e.Types) > 1
}

// Slicing describes the partitioning of a repeating element.
type Slicing struct {
	Discriminator []Discriminator
	Ordered       bool
	Rules         string
	Slices        []Slice
}

// Slice is one named partition of a sliced element.
type Slice struct {
	// Name is the slice name from the defining profile.
	Name string

	// Profile is the profile URL that scopes this slice. Property
	// resolution with a matching profile URL restricts results to
	// members of this slice.
	Profile string

	// Filter is a FHIRPath predicate that selects members of this
	// slice. Evaluated against each candidate value.
	Filter string

	Min int
	Max int
}

// Discriminator defines how slice membership is decided.
type Discriminator struct {
	Type string // value, exists, pattern, type, profile
	Path string
}

// TypeSchema is the structural schema of one FHIR type: an ordered
// mapping from property key to Element descriptor. Keys iterate in the
// schema's declared order; callers rely on that for deterministic
// output ordering.
type TypeSchema struct {
	// Name is the type name ("Patient", "HumanName").
	Name string

	// URL is the canonical URL of the defining StructureDefinition,
	// empty for hand-built schemas.
	URL string

	// Kind classifies values of this type.
	Kind TypeKind

	keys  []string
	byKey map[string]*Element
}

// NewTypeSchema creates an empty schema for the named type.
func NewTypeSchema(name string) *TypeSchema {
	return &TypeSchema{
		Name:  name,
		Kind:  KindOf(name),
		byKey: make(map[string]*Element, 16),
	}
}

// Add appends a property descriptor. Re-adding an existing key replaces
// the descriptor without changing its position in the declared order.
func (s *TypeSchema) Add(key string, el *Element) {
	if el == nil {
		return
	}
	if _, ok := s.byKey[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.byKey[key] = el
}

// Get returns the descriptor for a property key, or nil if the key is
// not declared on this type.
func (s *TypeSchema) Get(key string) *Element {
	if s == nil {
		return nil
	}
	return s.byKey[key]
}

// Keys returns the property keys in declared order. The returned slice
// is shared; callers must not modify it.
func (s *TypeSchema) Keys() []string {
	if s == nil {
		return nil
	}
	return s.keys
}

// Len returns the number of declared properties.
func (s *TypeSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
