/*
 * DNSMigrate Copyright 2026 The DNSMigrate Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy
 * of the License at http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
 * implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

package compare

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/model"
)

const DefaultThreads = 10

// BulkOptions configure a bulk comparison.
type BulkOptions struct {
	Options
	Threads   int
	Threshold float64
	// OnResult is called once per completed comparison, never concurrently.
	OnResult func(*Result)
}

// NewBulkOptions returns BulkOptions with default values.
func NewBulkOptions() BulkOptions {
	return BulkOptions{Threads: DefaultThreads, Threshold: DefaultThreshold}
}

func (o BulkOptions) Validate() error {
	if o.Threads < 1 {
		return &model.ValidationError{Field: "threads", Value: o.Threads, Reason: "must be at least 1"}
	}
	return model.CheckUnitInterval("threshold", o.Threshold)
}

// Bulk compares every query using a fixed pool of workers and scores the results. The results are in completion
// order. A failed comparison never stops the run; if ctx is cancelled the remaining queries are still counted, as
// errors.
func (c *Comparator) Bulk(ctx context.Context, queries []model.Query, opts BulkOptions) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	threads := opts.Threads
	if threads > len(queries) {
		threads = len(queries)
	}
	start := time.Now()

	inChan := make(chan model.Query)
	outChan := make(chan *Result, threads)
	var lookupWG sync.WaitGroup
	lookupWG.Add(threads)
	for i := 0; i < threads; i++ {
		go c.compareWorker(ctx, opts.Options, inChan, outChan, &lookupWG)
	}
	go func() {
		defer close(inChan)
		for _, q := range queries {
			inChan <- q
		}
	}()
	go func() {
		lookupWG.Wait()
		close(outChan)
	}()

	// the only writer of agg and results
	var agg Aggregate
	results := make([]*Result, 0, len(queries))
	for res := range outChan {
		agg.Add(res)
		results = append(results, res)
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
	}
	report := NewReport(agg, results, opts.Threshold)
	log.Infof("compared %d queries in %s: %d matches, %d mismatches, %d errors, confidence %.4f",
		report.Tested, time.Since(start).Round(time.Millisecond), report.Matches, report.Mismatches, report.Errors, report.ConfidenceScore)
	return report, nil
}

// compareWorker compares queries from input until it is closed. It calls wg.Done when it is finished.
func (c *Comparator) compareWorker(ctx context.Context, opts Options, input <-chan model.Query, output chan<- *Result, wg *sync.WaitGroup) {
	defer wg.Done()
	for q := range input {
		output <- c.Compare(ctx, q, opts)
	}
}
