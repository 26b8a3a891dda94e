package schema

import "strings"

// SystemTypeMapping maps FHIRPath system types to FHIR primitive types.
// StructureDefinitions use these URLs as element types for primitive
// elements like id, string, and instant.
var SystemTypeMapping = map[string]string{
	"http://hl7.org/fhirpath/System.String":   "string",
	"http://hl7.org/fhirpath/System.Boolean":  "boolean",
	"http://hl7.org/fhirpath/System.Integer":  "integer",
	"http://hl7.org/fhirpath/System.Decimal":  "decimal",
	"http://hl7.org/fhirpath/System.DateTime": "dateTime",
	"http://hl7.org/fhirpath/System.Time":     "time",
	"http://hl7.org/fhirpath/System.Date":     "date",
}

// PrimitiveTypes contains all FHIR primitive type codes.
var PrimitiveTypes = map[string]bool{
	"boolean":      true,
	"integer":      true,
	"integer64":    true,
	"string":       true,
	"decimal":      true,
	"uri":          true,
	"url":          true,
	"canonical":    true,
	"base64Binary": true,
	"instant":      true,
	"date":         true,
	"dateTime":     true,
	"time":         true,
	"code":         true,
	"oid":          true,
	"id":           true,
	"markdown":     true,
	"unsignedInt":  true,
	"positiveInt":  true,
	"uuid":         true,
	"xhtml":        true,
}

// ComplexTypes contains the FHIR complex data types (not resources).
var ComplexTypes = map[string]bool{
	"Address":             true,
	"Age":                 true,
	"Annotation":          true,
	"Attachment":          true,
	"BackboneElement":     true,
	"CodeableConcept":     true,
	"CodeableReference":   true,
	"Coding":              true,
	"ContactDetail":       true,
	"ContactPoint":        true,
	"Contributor":         true,
	"Count":               true,
	"DataRequirement":     true,
	"Distance":            true,
	"Dosage":              true,
	"Duration":            true,
	"Element":             true,
	"ElementDefinition":   true,
	"Expression":          true,
	"Extension":           true,
	"HumanName":           true,
	"Identifier":          true,
	"MarketingStatus":     true,
	"Meta":                true,
	"Money":               true,
	"MoneyQuantity":       true,
	"Narrative":           true,
	"ParameterDefinition": true,
	"Period":              true,
	"Population":          true,
	"Quantity":            true,
	"Range":               true,
	"Ratio":               true,
	"RatioRange":          true,
	"Reference":           true,
	"RelatedArtifact":     true,
	"SampledData":         true,
	"Signature":           true,
	"SimpleQuantity":      true,
	"Timing":              true,
	"TriggerDefinition":   true,
	"UsageContext":        true,
}

// IsPrimitiveType returns true if the type code is a FHIR primitive type.
func IsPrimitiveType(typeCode string) bool {
	return PrimitiveTypes[typeCode]
}

// IsComplexType returns true if the type code is a FHIR complex type.
func IsComplexType(typeCode string) bool {
	return ComplexTypes[typeCode]
}

// NormalizeSystemType converts a FHIRPath system type URL to its FHIR
// primitive type. Other type codes are returned unchanged.
func NormalizeSystemType(typeCode string) string {
	if normalized, ok := SystemTypeMapping[typeCode]; ok {
		return normalized
	}
	return typeCode
}

// upperFirst capitalizes the first letter of a string.
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// lowerFirst lowercases the first letter of a string.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
