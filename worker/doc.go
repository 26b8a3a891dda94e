// Package worker provides a worker pool for crawling batches of FHIR
// resources in parallel.
//
// Example usage:
//
//	// Crawl with a cardinality check on each resource.
//	pool := worker.NewPool(worker.CardinalityFunc(provider), 4)
//
//	for i, resource := range resources {
//	    pool.Submit(worker.Job{
//	        ID:       strconv.Itoa(i),
//	        Resource: resource,
//	    })
//	}
//
//	batch := pool.CloseAndWait()
//	if batch.HasErrors() {
//	    // Inspect batch.Results
//	}
package worker
