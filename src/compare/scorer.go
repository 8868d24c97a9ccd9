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
	"github.com/dnsscience/dnsmigrate/src/model"
)

const DefaultThreshold = 0.99

type Recommendation string

const (
	SafeToProceed  Recommendation = "safe to proceed"
	NotRecommended Recommendation = "not recommended"
)

// Aggregate holds the running counts of a set of comparisons. Errored comparisons count as mismatches and also as
// errors, so Errors <= Mismatches.
type Aggregate struct {
	Tested     int `json:"tested" groups:"short,normal,long"`
	Matches    int `json:"matches" groups:"short,normal,long"`
	Mismatches int `json:"mismatches" groups:"short,normal,long"`
	Errors     int `json:"errors" groups:"short,normal,long"`
}

// Add folds one result into the counts.
func (a *Aggregate) Add(r *Result) {
	a.Tested++
	if r.Match {
		a.Matches++
	} else {
		a.Mismatches++
	}
	if r.Errored {
		a.Errors++
	}
}

// Confidence is matches / tested, and 0 when nothing was tested.
func (a Aggregate) Confidence() float64 {
	if a.Tested == 0 {
		return 0
	}
	return float64(a.Matches) / float64(a.Tested)
}

// MismatchRate is mismatches / tested, and 0 when nothing was tested.
func (a Aggregate) MismatchRate() float64 {
	if a.Tested == 0 {
		return 0
	}
	return float64(a.Mismatches) / float64(a.Tested)
}

// Report is the scored outcome of a set of comparisons. Results need not be in submission order.
type Report struct {
	Results         []*Result      `json:"results" groups:"normal,long"`
	Tested          int            `json:"tested" groups:"short,normal,long"`
	Matches         int            `json:"matches" groups:"short,normal,long"`
	Mismatches      int            `json:"mismatches" groups:"short,normal,long"`
	Errors          int            `json:"errors" groups:"short,normal,long"`
	ConfidenceScore float64        `json:"confidence_score" groups:"short,normal,long"`
	Threshold       float64        `json:"threshold" groups:"short,normal,long"`
	Recommendation  Recommendation `json:"recommendation" groups:"short,normal,long"`
	Tier            string         `json:"tier" groups:"short,normal,long"`
}

// NewReport scores counts already aggregated elsewhere.
func NewReport(agg Aggregate, results []*Result, threshold float64) *Report {
	if results == nil {
		results = []*Result{}
	}
	score := agg.Confidence()
	return &Report{
		Results:         results,
		Tested:          agg.Tested,
		Matches:         agg.Matches,
		Mismatches:      agg.Mismatches,
		Errors:          agg.Errors,
		ConfidenceScore: score,
		Threshold:       threshold,
		Recommendation:  Recommend(score, threshold, agg.Tested),
		Tier:            ReadinessTier(score),
	}
}

// Counts returns the report's aggregate counts.
func (r *Report) Counts() Aggregate {
	return Aggregate{Tested: r.Tested, Matches: r.Matches, Mismatches: r.Mismatches, Errors: r.Errors}
}

// Score aggregates results and scores them against threshold.
func Score(results []*Result, threshold float64) (*Report, error) {
	if err := model.CheckUnitInterval("threshold", threshold); err != nil {
		return nil, err
	}
	var agg Aggregate
	for _, r := range results {
		agg.Add(r)
	}
	return NewReport(agg, results, threshold), nil
}

// Recommend is SafeToProceed iff something was tested and score >= threshold.
func Recommend(score, threshold float64, tested int) Recommendation {
	if tested > 0 && score >= threshold {
		return SafeToProceed
	}
	return NotRecommended
}

// ReadinessTier describes a confidence score for operators.
func ReadinessTier(score float64) string {
	switch {
	case score >= 0.99:
		return "EXCELLENT: ready for migration"
	case score >= 0.95:
		return "GOOD: review the differences before migrating"
	case score >= 0.90:
		return "FAIR: investigate the differences"
	case score >= 0.80:
		return "CAUTION: significant differences found"
	default:
		return "NOT READY: major differences found"
	}
}
