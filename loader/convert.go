package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/crawler/schema"
)

// Converter builds crawler schemas from R4 StructureDefinitions.
//
// A single StructureDefinition yields one schema per type it defines:
// the root type plus one for every backbone element nested under it.
// Nested types are named by their path segments ("Patient.contact"
// becomes "PatientContact"), matching how FHIR tooling labels them.
type Converter struct{}

// NewConverter creates a new converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert converts an R4 StructureDefinition snapshot into schemas.
// The first schema in the result is the root type; the rest are nested
// backbone element types in snapshot order.
func (c *Converter) Convert(sd *r4.StructureDefinition) ([]*schema.TypeSchema, error) {
	if sd == nil {
		return nil, fmt.Errorf("structure definition is nil")
	}
	rootType := derefString(sd.Type)
	if rootType == "" {
		return nil, fmt.Errorf("structure definition has no type")
	}
	if sd.Snapshot == nil || len(sd.Snapshot.Element) == 0 {
		return nil, fmt.Errorf("structure definition %s has no snapshot", rootType)
	}

	b := &schemaBuilder{
		rootType: rootType,
		url:      derefString(sd.Url),
		name:     derefString(sd.Name),
		elements: sd.Snapshot.Element,
		byID:     make(map[string]*r4.ElementDefinition, len(sd.Snapshot.Element)),
		byPath:   make(map[string]*schema.Element, len(sd.Snapshot.Element)),
		schemas:  make(map[string]*schema.TypeSchema, 4),
	}
	for i := range sd.Snapshot.Element {
		ed := &sd.Snapshot.Element[i]
		if id := derefString(ed.Id); id != "" {
			b.byID[id] = ed
		}
	}
	return b.build()
}

// schemaBuilder accumulates the schemas produced from one snapshot.
type schemaBuilder struct {
	rootType string
	url      string
	name     string
	elements []r4.ElementDefinition

	byID    map[string]*r4.ElementDefinition
	byPath  map[string]*schema.Element
	schemas map[string]*schema.TypeSchema
	order   []string
}

func (b *schemaBuilder) build() ([]*schema.TypeSchema, error) {
	b.ensure(b.rootType)

	for i := range b.elements {
		ed := &b.elements[i]
		path := derefString(ed.Path)
		if path == "" || path == b.rootType {
			continue
		}

		if derefString(ed.SliceName) != "" {
			b.addSlice(ed, path)
			continue
		}
		// Children of a named slice re-constrain the base elements; the
		// base definitions already carry the structural shape.
		if strings.Contains(derefString(ed.Id), ":") {
			continue
		}

		parentPath := parentPath(path)
		parent := b.schemaFor(parentPath)
		if parent == nil {
			continue
		}

		el := &schema.Element{
			Path:    path,
			Types:   b.convertTypes(ed, path),
			Min:     convertMin(ed.Min),
			Max:     convertMax(ed.Max),
			Slicing: convertSlicing(ed.Slicing),
		}
		parent.Add(lastSegment(path), el)
		b.byPath[path] = el
	}

	result := make([]*schema.TypeSchema, 0, len(b.order))
	for _, name := range b.order {
		result = append(result, b.schemas[name])
	}
	return result, nil
}

// schemaFor returns the schema owning properties at the given parent
// path, or nil for deeper descendants of non-backbone elements.
func (b *schemaBuilder) schemaFor(parentPath string) *schema.TypeSchema {
	if parentPath == b.rootType {
		return b.schemas[b.typeName(b.rootType)]
	}
	return b.schemas[nestedTypeName(parentPath)]
}

// ensure creates and records the schema for a path if missing.
func (b *schemaBuilder) ensure(path string) *schema.TypeSchema {
	name := b.typeName(path)
	if s, ok := b.schemas[name]; ok {
		return s
	}
	s := schema.NewTypeSchema(name)
	if path == b.rootType {
		s.URL = b.url
	} else {
		// Backbone types always hold objects, whatever their name
		// casing suggests.
		s.Kind = schema.KindComposite
	}
	b.schemas[name] = s
	b.order = append(b.order, name)
	return s
}

// typeName names the schema built for a path. The root type keeps its
// own name for base definitions; profiles take the definition's name so
// they never shadow the base type, and stay reachable by URL.
func (b *schemaBuilder) typeName(path string) string {
	if path != b.rootType {
		return nestedTypeName(path)
	}
	if b.url == "" || b.url == "http://hl7.org/fhir/StructureDefinition/"+b.rootType {
		return b.rootType
	}
	if b.name != "" {
		return b.name
	}
	return b.rootType
}

// convertTypes maps an element's declared types, normalizing system
// type URLs and redirecting backbone elements to their nested schemas.
func (b *schemaBuilder) convertTypes(ed *r4.ElementDefinition, path string) []schema.TypeRef {
	if ref := derefString(ed.ContentReference); ref != "" {
		target := strings.TrimPrefix(ref, "#")
		return []schema.TypeRef{{
			Code: nestedTypeName(target),
			Kind: schema.KindComposite,
		}}
	}

	if len(ed.Type) == 0 {
		return nil
	}
	result := make([]schema.TypeRef, 0, len(ed.Type))
	for i := range ed.Type {
		t := &ed.Type[i]
		code := schema.NormalizeSystemType(derefString(t.Code))
		if code == "BackboneElement" || code == "Element" {
			b.ensure(path)
			code = nestedTypeName(path)
		}
		result = append(result, schema.TypeRef{
			Code:          code,
			Kind:          schema.KindOf(code),
			Profile:       t.Profile,
			TargetProfile: t.TargetProfile,
		})
	}
	return result
}

// addSlice attaches a named slice to the already-seen sliced element.
func (b *schemaBuilder) addSlice(ed *r4.ElementDefinition, path string) {
	el, ok := b.byPath[path]
	if !ok {
		return
	}
	if el.Slicing == nil {
		el.Slicing = &schema.Slicing{}
	}

	slice := schema.Slice{
		Name:   derefString(ed.SliceName),
		Filter: b.sliceFilter(ed, el.Slicing),
		Min:    convertMin(ed.Min),
		Max:    convertMax(ed.Max),
	}
	if len(ed.Type) > 0 && len(ed.Type[0].Profile) > 0 {
		slice.Profile = ed.Type[0].Profile[0]
	}
	el.Slicing.Slices = append(el.Slicing.Slices, slice)
}

// sliceFilter derives a FHIRPath membership predicate for a slice from
// its discriminators and the fixed or pattern values the slice pins on
// the discriminated children. Slices without a derivable predicate get
// an empty filter and pass all values through.
func (b *schemaBuilder) sliceFilter(ed *r4.ElementDefinition, slicing *schema.Slicing) string {
	sliceID := derefString(ed.Id)
	if sliceID == "" {
		return ""
	}

	var clauses []string
	for _, d := range slicing.Discriminator {
		if d.Type != "value" && d.Type != "pattern" {
			continue
		}

		target := ed
		if d.Path != "$this" {
			target = b.byID[sliceID+"."+d.Path]
			if target == nil {
				continue
			}
		}
		value, ok := pinnedValue(target)
		if !ok {
			continue
		}
		clauses = append(clauses, d.Path+" = "+value)
	}
	return strings.Join(clauses, " and ")
}

// pinnedValue extracts a primitive fixed[x] or pattern[x] value as a
// FHIRPath literal.
func pinnedValue(ed *r4.ElementDefinition) (string, bool) {
	for _, s := range []*string{
		ed.FixedUri, ed.FixedCode, ed.FixedString, ed.FixedCanonical,
		ed.PatternUri, ed.PatternCode, ed.PatternString, ed.PatternCanonical,
	} {
		if s != nil {
			return "'" + strings.ReplaceAll(*s, "'", "\\'") + "'", true
		}
	}
	for _, v := range []*bool{ed.FixedBoolean, ed.PatternBoolean} {
		if v != nil {
			return strconv.FormatBool(*v), true
		}
	}
	return "", false
}

// nestedTypeName names the anonymous type of a backbone element:
// "Patient.contact" -> "PatientContact", "Bundle.entry.search" ->
// "BundleEntrySearch".
func nestedTypeName(path string) string {
	segments := strings.Split(path, ".")
	var sb strings.Builder
	sb.WriteString(segments[0])
	for _, seg := range segments[1:] {
		if seg == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(seg[:1]))
		sb.WriteString(seg[1:])
	}
	return sb.String()
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parentPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return ""
}

func convertMin(minVal *uint32) int {
	if minVal == nil {
		return 0
	}
	return int(*minVal)
}

// convertMax parses a FHIR max cardinality string. "*" is unbounded,
// "0" forbids the element, and a missing max defaults to 1.
func convertMax(maxVal *string) int {
	if maxVal == nil || *maxVal == "" {
		return 1
	}
	if *maxVal == "*" {
		return schema.Unbounded
	}
	n, err := strconv.Atoi(*maxVal)
	if err != nil {
		return 1
	}
	return n
}

func convertSlicing(slicing *r4.ElementDefinitionSlicing) *schema.Slicing {
	if slicing == nil {
		return nil
	}
	result := &schema.Slicing{
		Ordered: derefBool(slicing.Ordered),
	}
	if slicing.Rules != nil {
		result.Rules = string(*slicing.Rules)
	}
	for i := range slicing.Discriminator {
		d := &slicing.Discriminator[i]
		disc := schema.Discriminator{Path: derefString(d.Path)}
		if d.Type != nil {
			disc.Type = string(*d.Type)
		}
		result.Discriminator = append(result.Discriminator, disc)
	}
	return result
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
