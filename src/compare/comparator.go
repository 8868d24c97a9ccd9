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

// Package compare queries two resolvers with the same questions and scores how often they agree.
package compare

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/lookup"
	"github.com/dnsscience/dnsmigrate/src/model"
)

// Result is the outcome of asking both resolvers one Query.
type Result struct {
	Query  model.Query     `json:"query" groups:"short,normal,long"`
	Source *model.Response `json:"source_response" groups:"normal,long"`
	Target *model.Response `json:"target_response" groups:"normal,long"`
	Match  bool            `json:"match" groups:"short,normal,long"`
	// Errored is set when either side got no answer.
	Errored bool `json:"errored" groups:"short,normal,long"`
	// TimingDiff is target query time minus source query time.
	TimingDiff    time.Duration `json:"timing_diff" groups:"normal,long"`
	Differences   []Difference  `json:"differences" groups:"short,normal,long"`
	Informational []Difference  `json:"informational,omitempty" groups:"long"`
}

// NewResult diffs two responses to the same query.
func NewResult(q model.Query, source, target *model.Response, opts Options) *Result {
	diffs, info := Diff(source, target, opts)
	errored := source.Rcode == model.StatusError || target.Rcode == model.StatusError
	return &Result{
		Query:         q,
		Source:        source,
		Target:        target,
		Match:         len(diffs) == 0 && !errored && source.Rcode == target.Rcode,
		Errored:       errored,
		TimingDiff:    target.QueryTime - source.QueryTime,
		Differences:   diffs,
		Informational: info,
	}
}

// Config holds the two endpoints a Comparator queries.
type Config struct {
	Source *lookup.ResolverConfig
	Target *lookup.ResolverConfig
}

// Validate checks both resolver configs.
func (c *Config) Validate() error {
	if c.Source == nil || c.Target == nil {
		return &model.ValidationError{Field: "resolvers", Value: nil, Reason: "source and target must both be set"}
	}
	if err := c.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	return errors.Wrap(c.Target.Validate(), "target")
}

// Comparator sends each query to a source and a target resolver.
type Comparator struct {
	source lookup.Lookuper
	target lookup.Lookuper
}

// NewComparator compares answers from source against answers from target.
func NewComparator(source, target lookup.Lookuper) *Comparator {
	return &Comparator{source: source, target: target}
}

// New builds a Comparator with wire resolvers for both endpoints of config.
func New(config *Config) (*Comparator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	source, err := lookup.InitResolver(config.Source)
	if err != nil {
		return nil, errors.Wrap(err, "source")
	}
	target, err := lookup.InitResolver(config.Target)
	if err != nil {
		return nil, errors.Wrap(err, "target")
	}
	return NewComparator(source, target), nil
}

func (c *Comparator) Source() lookup.Lookuper {
	return c.source
}

func (c *Comparator) Target() lookup.Lookuper {
	return c.target
}

// Compare queries both resolvers concurrently and diffs the answers once both have completed or timed out.
func (c *Comparator) Compare(ctx context.Context, q model.Query, opts Options) *Result {
	var wg sync.WaitGroup
	var source, target *model.Response
	wg.Add(2)
	go func() {
		defer wg.Done()
		source = c.source.Lookup(ctx, q)
	}()
	go func() {
		defer wg.Done()
		target = c.target.Lookup(ctx, q)
	}()
	wg.Wait()

	res := NewResult(q, source, target, opts)
	if !res.Match {
		log.Debugf("%s: %s answered %s, %s answered %s, %d differences", q, c.source, source.Rcode, c.target, target.Rcode, len(res.Differences))
	}
	return res
}

// CompareName validates a domain and record type and compares them.
func (c *Comparator) CompareName(ctx context.Context, name, qtype string, opts Options) (*Result, error) {
	q, err := model.NewQuery(name, qtype)
	if err != nil {
		return nil, err
	}
	return c.Compare(ctx, q, opts), nil
}
