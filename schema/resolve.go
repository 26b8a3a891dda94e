package schema

import (
	"context"
	"strings"
)

// This resolves to a one-element sequence containing the input value
// unchanged. Slicing logic uses it to address the raw parent value.
const This = "$this"

// resolve is the property path resolution entry point shared by the
// providers. It handles the three key forms:
//
//   - This ("$this"): the input value itself, untouched.
//   - a simple key: resolved against the element descriptor in sch.
//   - a dotted compound key ("a.b.c"): resolved iteratively left to
//     right, flattening one level of array nesting per segment and
//     silently dropping absent intermediates.
//
// An unknown composite type name reached mid-path is an error; a
// property that is simply not populated is not.
func resolve(ctx context.Context, p Provider, sch *TypeSchema, tv TypedValue, key string, ro *ResolveOptions, ev *sliceEvaluator) ([]TypedValue, error) {
	if key == This {
		return []TypedValue{tv}, nil
	}

	if !strings.Contains(key, ".") {
		return resolveElement(sch, tv, key, ro, ev)
	}

	current := []TypedValue{tv}
	// The supplied schema is authoritative for the first segment: it may
	// be a profile schema whose name differs from the value's base type.
	// Subsequent segments re-resolve per value type.
	currentSchema := sch
	for _, segment := range strings.Split(key, ".") {
		var next []TypedValue
		for _, v := range current {
			if v.IsEmpty() || v.Kind() == KindPrimitive {
				continue
			}
			segSchema := currentSchema
			if segSchema == nil {
				resolved, err := p.Schema(ctx, v.Type)
				if err != nil {
					return nil, err
				}
				segSchema = resolved
			}
			values, err := resolveElement(segSchema, v, segment, ro, ev)
			if err != nil {
				return nil, err
			}
			next = append(next, values...)
		}
		current = next
		currentSchema = nil
		if len(current) == 0 {
			return nil, nil
		}
	}
	return current, nil
}

// resolveElement resolves a single (undotted) property key against one
// typed value using its element descriptor. It covers direct field
// access, choice type selection, array vs scalar cardinality, and
// profile-scoped slice filtering.
func resolveElement(sch *TypeSchema, tv TypedValue, key string, ro *ResolveOptions, ev *sliceEvaluator) ([]TypedValue, error) {
	obj := tv.AsObject()
	if obj == nil {
		return nil, nil
	}

	el := sch.Get(key)
	if el == nil {
		// The key may be a concrete choice variant ("valueString")
		// declared as "value[x]" in the schema.
		choiceEl, variant := concreteChoice(sch, key)
		if choiceEl == nil {
			return nil, nil
		}
		return choiceValues(obj, key, variant), nil
	}

	if el.IsForbidden() {
		return nil, nil
	}

	if el.IsChoice() || strings.HasSuffix(key, "[x]") {
		fieldBase := strings.TrimSuffix(key, "[x]")
		for _, tr := range el.Types {
			field := fieldBase + upperFirst(tr.Code)
			if raw, ok := obj[field]; ok {
				return typedValues(raw, tr.Code, el), nil
			}
		}
		return nil, nil
	}

	raw, ok := obj[key]
	if !ok {
		return nil, nil
	}

	typeCode := ""
	if len(el.Types) > 0 {
		typeCode = el.Types[0].Code
	}
	values := typedValues(raw, typeCode, el)

	if ro != nil && ro.ProfileURL != "" && el.Slicing != nil {
		return filterSlice(el, values, ro.ProfileURL, ev)
	}
	return values, nil
}

// typedValues wraps a raw property value per the element's cardinality:
// array elements each yield one typed value, scalars yield exactly one.
// The declared type kind rides along with each value.
func typedValues(raw any, typeCode string, el *Element) []TypedValue {
	if raw == nil {
		return nil
	}
	if el.IsArray() {
		arr, ok := raw.([]any)
		if !ok {
			// Malformed instance: scalar where an array is declared.
			// Treat as a single value; arity is the visitor's problem.
			return []TypedValue{{Type: typeCode, Value: raw}}
		}
		values := make([]TypedValue, 0, len(arr))
		for _, item := range arr {
			if item == nil {
				continue
			}
			values = append(values, TypedValue{Type: typeCode, Value: item})
		}
		return values
	}
	return []TypedValue{{Type: typeCode, Value: raw}}
}

// concreteChoice matches a concrete choice key like "valueString"
// against a declared "value[x]" element. It returns the element and the
// matched TypeRef, or nil when the key is not a declared choice variant.
func concreteChoice(sch *TypeSchema, key string) (*Element, *TypeRef) {
	for _, declared := range sch.Keys() {
		if !strings.HasSuffix(declared, "[x]") {
			continue
		}
		base := strings.TrimSuffix(declared, "[x]")
		if !strings.HasPrefix(key, base) || len(key) <= len(base) {
			continue
		}
		suffix := key[len(base):]
		el := sch.Get(declared)
		for i := range el.Types {
			tr := &el.Types[i]
			if upperFirst(tr.Code) == suffix || tr.Code == lowerFirst(suffix) {
				return el, tr
			}
		}
	}
	return nil, nil
}

// choiceValues extracts the populated value for a concrete choice field,
// typed as the matched variant.
func choiceValues(obj map[string]any, field string, tr *TypeRef) []TypedValue {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return nil
	}
	return []TypedValue{{Type: tr.Code, Value: raw}}
}
