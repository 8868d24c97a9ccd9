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

package migrate

import (
	"context"

	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/model"
)

// DefaultQueries is the query set used by Validate when the caller supplies none.
func DefaultQueries() []model.Query {
	return []model.Query{
		{Name: "google.com", Type: "A"},
		{Name: "google.com", Type: "AAAA"},
		{Name: "cloudflare.com", Type: "A"},
		{Name: "amazon.com", Type: "A"},
		{Name: "microsoft.com", Type: "A"},
		{Name: "github.com", Type: "A"},
		{Name: "example.com", Type: "A"},
		{Name: "example.com", Type: "MX"},
		{Name: "example.com", Type: "TXT"},
	}
}

type ValidateOptions struct {
	// Queries defaults to DefaultQueries.
	Queries []model.Query
	compare.BulkOptions
}

func NewValidateOptions() ValidateOptions {
	return ValidateOptions{BulkOptions: compare.NewBulkOptions()}
}

// Validation pairs a plan with the comparison of the resolvers running the source and target configurations.
type Validation struct {
	Plan   *Plan           `json:"plan" groups:"short,normal,long"`
	Report *compare.Report `json:"comparison" groups:"short,normal,long"`
}

// Validate plans the migration and then bulk compares the two resolvers. The comparator's source is expected to run
// the source configuration and its target the generated one. A failed plan aborts before any query is sent.
func Validate(ctx context.Context, text, source, target string, c *compare.Comparator, opts ValidateOptions) (*Validation, error) {
	if err := opts.BulkOptions.Validate(); err != nil {
		return nil, err
	}
	plan, err := NewPlan(text, source, target)
	if err != nil {
		return nil, err
	}
	queries := opts.Queries
	if len(queries) == 0 {
		queries = DefaultQueries()
	}
	report, err := c.Bulk(ctx, queries, opts.BulkOptions)
	if err != nil {
		return nil, err
	}
	return &Validation{Plan: plan, Report: report}, nil
}
