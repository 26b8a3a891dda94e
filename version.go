package fhircrawler

// Version is the crawler library version.
const Version = "0.1.0"

// FHIRVersion identifies a FHIR specification release.
type FHIRVersion string

// Supported FHIR versions. Schema loading currently targets R4; R4B
// StructureDefinitions share the R4 element model and load unchanged.
const (
	// R4 is FHIR Release 4 (4.0.1)
	R4 FHIRVersion = "R4"
	// R4B is FHIR Release 4B (4.3.0)
	R4B FHIRVersion = "R4B"
)

// String returns the version string.
func (v FHIRVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported FHIR version.
func (v FHIRVersion) IsValid() bool {
	switch v {
	case R4, R4B:
		return true
	default:
		return false
	}
}
