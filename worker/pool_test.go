package worker

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	fhircrawler "github.com/gofhir/crawler"
	"github.com/gofhir/crawler/schema"
)

func countingFunc(calls *atomic.Int64) CrawlFunc {
	return func(ctx context.Context, resource []byte) (*fhircrawler.Report, error) {
		calls.Add(1)
		return fhircrawler.NewReport(), nil
	}
}

func TestPool_SubmitAndCollect(t *testing.T) {
	var calls atomic.Int64
	pool := NewPool(countingFunc(&calls), 4)

	const jobs = 20
	for i := 0; i < jobs; i++ {
		if !pool.Submit(Job{ID: strconv.Itoa(i), Resource: []byte(`{}`)}) {
			t.Fatalf("Submit(%d) returned false", i)
		}
	}

	batch := pool.CloseAndWait()

	if calls.Load() != jobs {
		t.Errorf("crawl func called %d times; want %d", calls.Load(), jobs)
	}
	if batch.TotalJobs != jobs {
		t.Errorf("TotalJobs = %d; want %d", batch.TotalJobs, jobs)
	}
	if batch.CompletedJobs != jobs {
		t.Errorf("CompletedJobs = %d; want %d", batch.CompletedJobs, jobs)
	}
	if batch.FailedJobs != 0 {
		t.Errorf("FailedJobs = %d; want 0", batch.FailedJobs)
	}
	if batch.HasErrors() {
		t.Error("HasErrors() = true; want false")
	}
}

func TestPool_NoCrawlFunc(t *testing.T) {
	pool := NewPool(nil, 1)
	pool.Submit(Job{ID: "a", Resource: []byte(`{}`)})

	batch := pool.CloseAndWait()
	if len(batch.Results) != 1 {
		t.Fatalf("len(Results) = %d; want 1", len(batch.Results))
	}
	if !errors.Is(batch.Results[0].Error, ErrNoCrawlFunc) {
		t.Errorf("Error = %v; want ErrNoCrawlFunc", batch.Results[0].Error)
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	var calls atomic.Int64
	pool := NewPool(countingFunc(&calls), 1)
	pool.Close()

	if pool.Submit(Job{ID: "late"}) {
		t.Error("Submit after Close returned true")
	}
	if pool.SubmitAsync(Job{ID: "late"}) {
		t.Error("SubmitAsync after Close returned true")
	}
}

func TestPool_Stats(t *testing.T) {
	var calls atomic.Int64
	pool := NewPool(countingFunc(&calls), 3)
	pool.Submit(Job{ID: "a", Resource: []byte(`{}`)})
	pool.Submit(Job{ID: "b", Resource: []byte(`{}`)})
	pool.CloseAndWait()

	stats := pool.Stats()
	if stats.Workers != 3 {
		t.Errorf("Workers = %d; want 3", stats.Workers)
	}
	if stats.JobsSubmitted != 2 {
		t.Errorf("JobsSubmitted = %d; want 2", stats.JobsSubmitted)
	}
	if stats.JobsCompleted != 2 {
		t.Errorf("JobsCompleted = %d; want 2", stats.JobsCompleted)
	}
}

func TestBatchCrawler(t *testing.T) {
	failOn := func(target string) CrawlFunc {
		return func(ctx context.Context, resource []byte) (*fhircrawler.Report, error) {
			if string(resource) == target {
				return nil, errors.New("boom")
			}
			return fhircrawler.NewReport(), nil
		}
	}

	t.Run("empty", func(t *testing.T) {
		bc := NewBatchCrawler(failOn(""), 2)
		batch := bc.CrawlBatch(context.Background(), nil)
		if batch.TotalJobs != 0 || len(batch.Results) != 0 {
			t.Errorf("empty batch = %+v", batch)
		}
	})

	t.Run("sequential", func(t *testing.T) {
		bc := NewBatchCrawler(failOn("bad"), 2)
		batch := bc.CrawlBatch(context.Background(), [][]byte{[]byte("ok"), []byte("bad")})
		if batch.CompletedJobs != 2 {
			t.Errorf("CompletedJobs = %d; want 2", batch.CompletedJobs)
		}
		if batch.FailedJobs != 1 {
			t.Errorf("FailedJobs = %d; want 1", batch.FailedJobs)
		}
		if !batch.HasErrors() {
			t.Error("HasErrors() = false; want true")
		}
	})

	t.Run("parallel preserves order", func(t *testing.T) {
		resources := make([][]byte, 10)
		for i := range resources {
			resources[i] = []byte(strconv.Itoa(i))
		}

		bc := NewBatchCrawler(failOn("7"), 4)
		batch := bc.CrawlBatch(context.Background(), resources)

		if batch.CompletedJobs != 10 {
			t.Fatalf("CompletedJobs = %d; want 10", batch.CompletedJobs)
		}
		for i, r := range batch.Results {
			if r == nil {
				t.Fatalf("Results[%d] is nil", i)
			}
			if r.ID != strconv.Itoa(i) {
				t.Errorf("Results[%d].ID = %q; want %q", i, r.ID, strconv.Itoa(i))
			}
		}
		if batch.Results[7].Error == nil {
			t.Error("Results[7].Error = nil; want boom")
		}
	})
}

func TestCardinalityFunc(t *testing.T) {
	reg := schema.NewRegistry()
	patient := schema.NewTypeSchema("Patient")
	patient.Add("name", &schema.Element{
		Path:  "Patient.name",
		Types: []schema.TypeRef{{Code: "string", Kind: schema.KindPrimitive}},
		Min:   1,
		Max:   schema.Unbounded,
	})
	reg.Register(patient)

	fn := CardinalityFunc(reg)

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := fn(context.Background(), []byte("{nope")); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})

	t.Run("missing required property", func(t *testing.T) {
		report, err := fn(context.Background(), []byte(`{"resourceType": "Patient"}`))
		if err != nil {
			t.Fatalf("fn: %v", err)
		}
		if report.OK {
			t.Error("report.OK = true; want false for missing required name")
		}
	})

	t.Run("valid resource", func(t *testing.T) {
		report, err := fn(context.Background(), []byte(`{"resourceType": "Patient", "name": ["Chalmers"]}`))
		if err != nil {
			t.Fatalf("fn: %v", err)
		}
		if !report.OK {
			t.Errorf("report.OK = false; issues: %v", report.Issues)
		}
	})
}
