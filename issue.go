package fhircrawler

import (
	"fmt"
	"strings"
)

// IssueSeverity classifies an issue found by a crawl-based check.
// Values map to OperationOutcome.issue.severity in FHIR.
type IssueSeverity string

const (
	// SeverityError indicates the instance violates its schema.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a potential problem worth reviewing.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueCode identifies the kind of issue. Values map to
// OperationOutcome.issue.code.
type IssueCode string

const (
	// CodeRequired indicates a required element is missing.
	CodeRequired IssueCode = "required"
	// CodeStructure indicates a structural violation, e.g. more
	// repetitions than the element's max cardinality allows.
	CodeStructure IssueCode = "structure"
)

// Issue is one finding produced by a checker built on the crawler.
type Issue struct {
	Severity    IssueSeverity `json:"severity"`
	Code        IssueCode     `json:"code"`
	Diagnostics string        `json:"diagnostics,omitempty"`
	Expression  []string      `json:"expression,omitempty"`
}

// IsError returns true for error-severity issues.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(": ")
	b.WriteString(i.Diagnostics)
	if len(i.Expression) > 0 {
		fmt.Fprintf(&b, " (at %s)", strings.Join(i.Expression, ", "))
	}
	return b.String()
}

// Report aggregates the issues of one check run.
type Report struct {
	// OK is true when no error-severity issues were recorded.
	OK bool `json:"ok"`

	// Issues holds all findings, in discovery order.
	Issues []Issue `json:"issues,omitempty"`
}

// NewReport creates an empty, passing report.
func NewReport() *Report {
	return &Report{OK: true}
}

// Add records an issue, flipping OK on errors.
func (r *Report) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.IsError() {
		r.OK = false
	}
}

// ErrorCount returns the number of error-severity issues.
func (r *Report) ErrorCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.IsError() {
			n++
		}
	}
	return n
}
