package worker

import (
	fhircrawler "github.com/gofhir/crawler"
)

// Job is one resource to crawl.
type Job struct {
	// ID identifies this job in its results.
	ID string

	// Resource is the FHIR resource to crawl, as JSON bytes.
	Resource []byte
}

// JobResult is the outcome of one crawl job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Report holds what the crawl produced, when the crawl function
	// produces reports.
	Report *fhircrawler.Report

	// Error is any error the crawl returned.
	Error error

	// Duration is the crawl time in nanoseconds.
	Duration int64
}

// BatchResult aggregates the results of a batch of jobs.
type BatchResult struct {
	// Results contains all job results.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs completed, including failures.
	CompletedJobs int

	// FailedJobs is the number of jobs that returned an error.
	FailedJobs int

	// TotalDuration is the summed crawl time in nanoseconds.
	TotalDuration int64
}

// HasErrors returns true if any job failed or produced error issues.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			return true
		}
		if r.Report != nil && !r.Report.OK {
			return true
		}
	}
	return false
}

// ErrorCount returns the total number of error issues across all reports.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Report != nil {
			count += r.Report.ErrorCount()
		}
	}
	return count
}
