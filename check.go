package fhircrawler

import (
	"context"
	"fmt"

	"github.com/gofhir/crawler/schema"
)

// CheckCardinality crawls a resource and reports violations of the
// schema's min/max cardinality bounds: required properties that are not
// populated and repeating properties with more values than allowed.
//
// The returned error covers crawl failures (unknown types, depth bound);
// schema violations are findings in the Report, not errors.
func CheckCardinality(ctx context.Context, resource map[string]any, p schema.Provider, opts ...Option) (*Report, error) {
	report := NewReport()

	visitor := &Visitor{
		VisitProperty: func(parent schema.TypedValue, key, path string, values []schema.TypedValue, sch *schema.TypeSchema) error {
			el := sch.Get(key)
			if el == nil {
				return nil
			}

			if el.Min > 0 && len(values) < el.Min {
				report.Add(Issue{
					Severity:    SeverityError,
					Code:        CodeRequired,
					Diagnostics: fmt.Sprintf("%s: minimum cardinality is %d, found %d", path, el.Min, len(values)),
					Expression:  []string{path},
				})
			}

			if el.Max > 0 && len(values) > el.Max {
				report.Add(Issue{
					Severity:    SeverityError,
					Code:        CodeStructure,
					Diagnostics: fmt.Sprintf("%s: maximum cardinality is %d, found %d", path, el.Max, len(values)),
					Expression:  []string{path},
				})
			}
			return nil
		},
	}

	if err := Crawl(ctx, resource, p, visitor, opts...); err != nil {
		return nil, err
	}
	return report, nil
}
