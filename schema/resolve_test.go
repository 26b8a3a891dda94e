package schema

import (
	"context"
	"errors"
	"testing"
)

func testRegistry() *Registry {
	reg := NewRegistry()

	patient := NewTypeSchema("Patient")
	patient.Add("id", &Element{
		Path:  "Patient.id",
		Types: []TypeRef{{Code: "id", Kind: KindPrimitive}},
		Max:   1,
	})
	patient.Add("name", &Element{
		Path:  "Patient.name",
		Types: []TypeRef{{Code: "HumanName", Kind: KindComposite}},
		Max:   Unbounded,
	})
	patient.Add("deceased[x]", &Element{
		Path: "Patient.deceased[x]",
		Types: []TypeRef{
			{Code: "boolean", Kind: KindPrimitive},
			{Code: "dateTime", Kind: KindPrimitive},
		},
		Max: 1,
	})
	patient.Add("photo", &Element{
		Path:  "Patient.photo",
		Types: []TypeRef{{Code: "Attachment", Kind: KindComposite}},
		Max:   0,
	})
	reg.Register(patient)

	humanName := NewTypeSchema("HumanName")
	humanName.Add("family", &Element{
		Path:  "HumanName.family",
		Types: []TypeRef{{Code: "string", Kind: KindPrimitive}},
		Max:   1,
	})
	humanName.Add("given", &Element{
		Path:  "HumanName.given",
		Types: []TypeRef{{Code: "string", Kind: KindPrimitive}},
		Max:   Unbounded,
	})
	reg.Register(humanName)

	return reg
}

func patientValue() TypedValue {
	return TypedValue{
		Type: "Patient",
		Value: map[string]any{
			"resourceType": "Patient",
			"id":           "example",
			"name": []any{
				map[string]any{"family": "Chalmers", "given": []any{"Peter", "James"}},
				map[string]any{"family": "Windsor"},
			},
			"deceasedBoolean": false,
		},
	}
}

func TestResolveProperty_This(t *testing.T) {
	reg := testRegistry()
	tv := patientValue()

	values, err := reg.ResolveProperty(context.Background(), tv, This)
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("$this resolved to %d values, want 1", len(values))
	}
	if values[0].Type != tv.Type {
		t.Errorf("$this type = %s, want %s", values[0].Type, tv.Type)
	}
	// Identity: the exact same underlying map, not a copy.
	got, ok := values[0].Value.(map[string]any)
	if !ok {
		t.Fatalf("$this value has wrong dynamic type %T", values[0].Value)
	}
	got["marker"] = true
	if tv.Value.(map[string]any)["marker"] != true {
		t.Errorf("$this did not return the input value unchanged")
	}
}

func TestResolveProperty_Scalar(t *testing.T) {
	values, err := testRegistry().ResolveProperty(context.Background(), patientValue(), "id")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 1 || values[0].Type != "id" || values[0].Value != "example" {
		t.Errorf("id = %v, want one {id example}", values)
	}
}

func TestResolveProperty_Array(t *testing.T) {
	values, err := testRegistry().ResolveProperty(context.Background(), patientValue(), "name")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("name resolved to %d values, want 2", len(values))
	}
	for i, v := range values {
		if v.Type != "HumanName" {
			t.Errorf("name[%d].Type = %s, want HumanName", i, v.Type)
		}
	}
}

func TestResolveProperty_ChoiceBaseKey(t *testing.T) {
	values, err := testRegistry().ResolveProperty(context.Background(), patientValue(), "deceased[x]")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 1 || values[0].Type != "boolean" || values[0].Value != false {
		t.Errorf("deceased[x] = %v, want one {boolean false}", values)
	}
}

func TestResolveProperty_ChoiceConcreteKey(t *testing.T) {
	values, err := testRegistry().ResolveProperty(context.Background(), patientValue(), "deceasedBoolean")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 1 || values[0].Type != "boolean" {
		t.Errorf("deceasedBoolean = %v, want one boolean", values)
	}
}

func TestResolveProperty_Missing(t *testing.T) {
	reg := testRegistry()
	tv := TypedValue{Type: "Patient", Value: map[string]any{"resourceType": "Patient"}}

	values, err := reg.ResolveProperty(context.Background(), tv, "name")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("missing property resolved to %v, want empty", values)
	}
}

func TestResolveProperty_Forbidden(t *testing.T) {
	reg := testRegistry()
	tv := patientValue()
	tv.Value.(map[string]any)["photo"] = []any{map[string]any{"url": "x"}}

	values, err := reg.ResolveProperty(context.Background(), tv, "photo")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("forbidden property resolved to %v, want empty", values)
	}
}

func TestResolveProperty_DottedKey(t *testing.T) {
	values, err := testRegistry().ResolveProperty(context.Background(), patientValue(), "name.family")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("name.family resolved to %d values, want 2", len(values))
	}
	if values[0].Value != "Chalmers" || values[1].Value != "Windsor" {
		t.Errorf("name.family = %v, want [Chalmers Windsor]", values)
	}
}

func TestResolveProperty_DottedKeyFlattensArrays(t *testing.T) {
	// Two name entries; only one has given values. Absent intermediates
	// are dropped, present leaves accumulate in order.
	values, err := testRegistry().ResolveProperty(context.Background(), patientValue(), "name.given")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("name.given resolved to %d values, want 2", len(values))
	}
	if values[0].Value != "Peter" || values[1].Value != "James" {
		t.Errorf("name.given = %v, want [Peter James]", values)
	}
}

func TestResolveProperty_DottedKeyMissingIntermediate(t *testing.T) {
	reg := testRegistry()
	tv := TypedValue{Type: "Patient", Value: map[string]any{"resourceType": "Patient", "id": "x"}}

	values, err := reg.ResolveProperty(context.Background(), tv, "name.family")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("missing intermediate resolved to %v, want empty", values)
	}
}

func TestResolveProperty_UnknownType(t *testing.T) {
	reg := testRegistry()
	tv := TypedValue{Type: "Unregistered", Value: map[string]any{}}

	_, err := reg.ResolveProperty(context.Background(), tv, "anything")
	if !errors.Is(err, ErrTypeNotFound) {
		t.Fatalf("err = %v, want ErrTypeNotFound", err)
	}
}

func TestResolveProperty_NonObjectValue(t *testing.T) {
	reg := testRegistry()
	tv := TypedValue{Type: "Patient", Value: "not an object"}

	values, err := reg.ResolveProperty(context.Background(), tv, "id")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("non-object value resolved to %v, want empty", values)
	}
}

func TestResolveProperty_ScalarWhereArrayDeclared(t *testing.T) {
	reg := testRegistry()
	tv := TypedValue{
		Type: "Patient",
		Value: map[string]any{
			"resourceType": "Patient",
			"name":         map[string]any{"family": "Solo"},
		},
	}

	values, err := reg.ResolveProperty(context.Background(), tv, "name")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	// Arity is the caller's problem; the value still comes through.
	if len(values) != 1 || values[0].Type != "HumanName" {
		t.Errorf("name = %v, want one HumanName", values)
	}
}
