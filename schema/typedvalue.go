package schema

// TypeKind classifies a FHIR type by how the crawler treats it.
// The kind is resolved once when a schema is built, so traversal never
// has to re-derive it from the spelling of the type name.
type TypeKind uint8

const (
	// KindUnknown means the type could not be classified.
	KindUnknown TypeKind = iota
	// KindPrimitive is a FHIR primitive type ("string", "boolean", ...).
	// Primitive values are leaves; the crawler never descends into them.
	KindPrimitive
	// KindComposite is a complex datatype, backbone element, or resource
	// type ("Patient", "Address", ...). Composite values are traversed.
	KindComposite
)

// String returns the kind name for diagnostics.
func (k TypeKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// TypedValue pairs a runtime value with its declared FHIR type name.
// Every value flowing through the crawler is wrapped as a TypedValue so
// that polymorphic properties (value[x] choice types) carry their resolved
// concrete type alongside the raw value.
type TypedValue struct {
	// Type is the FHIR type name. Primitives start with a lower-case
	// letter ("string", "dateTime"), composites with an upper-case one
	// ("Patient", "HumanName").
	Type string

	// Value is the raw in-memory value: string/bool/float64 for
	// primitives, map[string]any for composites, []any for arrays.
	Value any
}

// Kind returns the TypeKind of the value's declared type.
func (tv TypedValue) Kind() TypeKind {
	return KindOf(tv.Type)
}

// IsEmpty returns true if the value carries no data.
func (tv TypedValue) IsEmpty() bool {
	return tv.Value == nil
}

// AsObject returns the value as a map, or nil if it is not an object.
func (tv TypedValue) AsObject() map[string]any {
	if m, ok := tv.Value.(map[string]any); ok {
		return m
	}
	return nil
}

// IsResource returns true if the value carries a resource type
// discriminator, i.e. it is a top-level (or contained) resource instance.
func (tv TypedValue) IsResource() bool {
	return ResourceType(tv.Value) != ""
}

// ResourceType returns the resourceType discriminator of a raw value,
// or "" if the value is not a resource object.
func ResourceType(value any) string {
	obj, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	rt, _ := obj["resourceType"].(string)
	return rt
}

// KindOf classifies a type name. Known primitive and complex type names
// are looked up in the type tables; anything else falls back to the FHIR
// naming convention: a lower-case first letter means primitive, an
// upper-case one means composite (backbone types, profiles, resources).
func KindOf(typeName string) TypeKind {
	if typeName == "" {
		return KindUnknown
	}
	if IsPrimitiveType(typeName) {
		return KindPrimitive
	}
	if IsComplexType(typeName) {
		return KindComposite
	}
	c := typeName[0]
	if c >= 'a' && c <= 'z' {
		return KindPrimitive
	}
	if c >= 'A' && c <= 'Z' {
		return KindComposite
	}
	return KindUnknown
}
