package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	fhircrawler "github.com/gofhir/crawler"
)

// BatchCrawler crawls batches of resources with bounded parallelism.
type BatchCrawler struct {
	fn      CrawlFunc
	workers int
}

// NewBatchCrawler creates a batch crawler. If workers <= 0, it defaults
// to runtime.NumCPU().
func NewBatchCrawler(fn CrawlFunc, workers int) *BatchCrawler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchCrawler{fn: fn, workers: workers}
}

// CrawlBatch crawls multiple resources and returns their results in
// submission order. Small batches run sequentially.
func (bc *BatchCrawler) CrawlBatch(ctx context.Context, resources [][]byte) *BatchResult {
	if len(resources) == 0 {
		return &BatchResult{Results: make([]*JobResult, 0)}
	}
	if len(resources) <= 2 {
		return bc.crawlSequential(ctx, resources)
	}
	return bc.crawlParallel(ctx, resources)
}

func (bc *BatchCrawler) crawlSequential(ctx context.Context, resources [][]byte) *BatchResult {
	results := make([]*JobResult, 0, len(resources))
	failed := 0
	var total int64

	for i, resource := range resources {
		select {
		case <-ctx.Done():
			return &BatchResult{
				Results:       results,
				TotalJobs:     len(resources),
				CompletedJobs: len(results),
				FailedJobs:    failed,
				TotalDuration: total,
			}
		default:
		}

		start := time.Now()
		report, err := bc.fn(ctx, resource)
		duration := time.Since(start).Nanoseconds()
		total += duration
		if err != nil {
			failed++
		}
		results = append(results, &JobResult{
			ID:       strconv.Itoa(i),
			Report:   report,
			Error:    err,
			Duration: duration,
		})
	}

	return &BatchResult{
		Results:       results,
		TotalJobs:     len(resources),
		CompletedJobs: len(results),
		FailedJobs:    failed,
		TotalDuration: total,
	}
}

func (bc *BatchCrawler) crawlParallel(ctx context.Context, resources [][]byte) *BatchResult {
	numWorkers := bc.workers
	if numWorkers > len(resources) {
		numWorkers = len(resources)
	}

	jobs := make(chan indexedResource, len(resources))
	resultsChan := make(chan *indexedResult, len(resources))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				start := time.Now()
				report, err := bc.fn(ctx, job.resource)
				resultsChan <- &indexedResult{
					index:    job.index,
					report:   report,
					err:      err,
					duration: time.Since(start).Nanoseconds(),
				}
			}
		}()
	}

	for i, resource := range resources {
		jobs <- indexedResource{index: i, resource: resource}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]*JobResult, len(resources))
	completed := 0
	failed := 0
	var total int64

	for ir := range resultsChan {
		results[ir.index] = &JobResult{
			ID:       strconv.Itoa(ir.index),
			Report:   ir.report,
			Error:    ir.err,
			Duration: ir.duration,
		}
		completed++
		total += ir.duration
		if ir.err != nil {
			failed++
		}
	}

	return &BatchResult{
		Results:       results,
		TotalJobs:     len(resources),
		CompletedJobs: completed,
		FailedJobs:    failed,
		TotalDuration: total,
	}
}

type indexedResource struct {
	index    int
	resource []byte
}

type indexedResult struct {
	index    int
	report   *fhircrawler.Report
	err      error
	duration int64
}

// CrawlBatchSimple is a convenience function for one-off batches.
func CrawlBatchSimple(ctx context.Context, fn CrawlFunc, resources [][]byte) *BatchResult {
	bc := NewBatchCrawler(fn, runtime.NumCPU())
	return bc.CrawlBatch(ctx, resources)
}
