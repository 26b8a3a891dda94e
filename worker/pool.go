package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	fhircrawler "github.com/gofhir/crawler"
	"github.com/gofhir/crawler/schema"
)

// CrawlFunc processes one resource and optionally produces a report.
type CrawlFunc func(ctx context.Context, resource []byte) (*fhircrawler.Report, error)

// ErrNoCrawlFunc is returned when the pool has no crawl function configured.
var ErrNoCrawlFunc = poolError("no crawl function configured")

type poolError string

func (e poolError) Error() string {
	return string(e)
}

// CardinalityFunc builds a CrawlFunc that parses each resource and runs
// a cardinality check against the given provider.
func CardinalityFunc(p schema.Provider) CrawlFunc {
	return func(ctx context.Context, resource []byte) (*fhircrawler.Report, error) {
		var parsed map[string]any
		if err := json.Unmarshal(resource, &parsed); err != nil {
			return nil, fmt.Errorf("parse resource: %w", err)
		}
		return fhircrawler.CheckCardinality(ctx, parsed, p)
	}
}

// Pool manages a pool of worker goroutines for parallel crawling.
type Pool struct {
	workers    int
	jobsChan   chan Job
	resultChan chan *JobResult
	fn         CrawlFunc
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool

	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool creates a worker pool with the specified number of workers.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewPool(fn CrawlFunc, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		workers:    workers,
		jobsChan:   make(chan Job, workers*2),
		resultChan: make(chan *JobResult, workers*2),
		fn:         fn,
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit submits a job to the pool, blocking while the queue is full.
// It returns false once the pool is closed.
func (p *Pool) Submit(job Job) bool {
	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	}
}

// SubmitAsync submits a job without blocking. It returns false if the
// queue is full or the pool is closed.
func (p *Pool) SubmitAsync(job Job) bool {
	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	default:
		return false
	}
}

// Results returns the channel for receiving job results.
func (p *Pool) Results() <-chan *JobResult {
	return p.resultChan
}

// Close shuts down the pool and waits for workers to finish, discarding
// any pending results. Use CloseAndWait to collect them instead.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}

	p.cancel()
	close(p.jobsChan)

	done := make(chan struct{})
	go func() {
		for range p.resultChan {
		}
		close(done)
	}()

	p.wg.Wait()
	close(p.resultChan)
	<-done
}

// CloseAndWait closes the pool and collects all pending results.
func (p *Pool) CloseAndWait() *BatchResult {
	if p.closed.Swap(true) {
		return &BatchResult{}
	}

	close(p.jobsChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(p.resultChan)
		close(done)
	}()

	results := make([]*JobResult, 0)
	failed := 0
	for result := range p.resultChan {
		results = append(results, result)
		if result.Error != nil {
			failed++
		}
	}
	<-done

	return &BatchResult{
		Results:       results,
		TotalJobs:     int(p.jobsSubmitted.Load()),
		CompletedJobs: int(p.jobsCompleted.Load()),
		FailedJobs:    failed,
		TotalDuration: int64(p.totalDuration.Load()),
	}
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsCompleted: p.jobsCompleted.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	AvgDuration   time.Duration
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.processJob(job)
		p.jobsCompleted.Add(1)
		p.totalDuration.Add(uint64(result.Duration))

		select {
		case <-p.ctx.Done():
			return
		case p.resultChan <- result:
		}
	}
}

func (p *Pool) processJob(job Job) *JobResult {
	start := time.Now()

	result := &JobResult{ID: job.ID}
	if p.fn == nil {
		result.Error = ErrNoCrawlFunc
		result.Duration = time.Since(start).Nanoseconds()
		return result
	}

	report, err := p.fn(p.ctx, job.Resource)
	result.Report = report
	result.Error = err
	result.Duration = time.Since(start).Nanoseconds()
	return result
}

func (p *Pool) averageDuration() time.Duration {
	completed := p.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}
