package schema

import (
	"encoding/json"
	"fmt"

	"github.com/gofhir/fhirpath"
	fptypes "github.com/gofhir/fhirpath/types"

	"github.com/gofhir/crawler/cache"
)

// sliceEvaluator decides slice membership by evaluating a slice's
// FHIRPath filter against candidate values. Compiled expressions are
// cached since the same profile filters run for every resolved value.
type sliceEvaluator struct {
	exprs *cache.Cache[string, *fhirpath.Expression]
}

func newSliceEvaluator() *sliceEvaluator {
	return &sliceEvaluator{
		exprs: cache.New[string, *fhirpath.Expression](256),
	}
}

// filterSlice restricts resolved values to the members of the slice
// scoped by profileURL. When no slice is declared under that URL, or
// the matching slice has no filter, the values pass through unchanged.
func filterSlice(el *Element, values []TypedValue, profileURL string, ev *sliceEvaluator) ([]TypedValue, error) {
	var slice *Slice
	for i := range el.Slicing.Slices {
		if el.Slicing.Slices[i].Profile == profileURL {
			slice = &el.Slicing.Slices[i]
			break
		}
	}
	if slice == nil || slice.Filter == "" || ev == nil {
		return values, nil
	}

	matched := values[:0:0]
	for _, v := range values {
		ok, err := ev.matches(slice.Filter, v.Value)
		if err != nil {
			return nil, fmt.Errorf("slice %s at %s: %w", slice.Name, el.Path, err)
		}
		if ok {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// matches evaluates a FHIRPath predicate against a value using FHIRPath
// truthiness rules: empty is false, a lone boolean is itself, any other
// non-empty collection is true.
func (ev *sliceEvaluator) matches(expression string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode candidate: %w", err)
	}

	compiled, err := ev.compile(expression)
	if err != nil {
		return false, err
	}

	result, err := compiled.Evaluate(data)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return collectionTruth(result), nil
}

func (ev *sliceEvaluator) compile(expression string) (*fhirpath.Expression, error) {
	if compiled, ok := ev.exprs.Get(expression); ok {
		return compiled, nil
	}
	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	ev.exprs.Set(expression, compiled)
	return compiled, nil
}

func collectionTruth(result fptypes.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(fptypes.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}
