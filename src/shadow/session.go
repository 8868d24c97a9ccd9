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

// Package shadow runs two resolvers side by side on sampled live traffic for a bounded window and alerts when they
// start to disagree.
package shadow

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/internal/cachehash"
	"github.com/dnsscience/dnsmigrate/src/model"
)

const (
	DefaultSampleRate     = 1.0
	DefaultDuration       = time.Hour
	DefaultAlertThreshold = 0.01
	DefaultMaxSamples     = 100
)

type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateExpired State = "expired"
)

// Terminal reports whether the session can no longer change.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateExpired
}

// Options configure a shadow session.
type Options struct {
	SampleRate      float64
	Duration        time.Duration
	AlertOnMismatch bool
	AlertThreshold  float64
	// Threshold is the confidence a session must reach to recommend the migration.
	Threshold float64
	// MaxSamples bounds the number of recent mismatching results kept for the report.
	MaxSamples int
	Compare    compare.Options
	// OnAlert is called from the session loop after every threshold crossing.
	OnAlert func(Alert)
	// Sampler returns a number in [0, 1); a query is compared when it is below SampleRate. Defaults to rand.Float64.
	Sampler func() float64
}

func NewOptions() Options {
	return Options{
		SampleRate:      DefaultSampleRate,
		Duration:        DefaultDuration,
		AlertOnMismatch: true,
		AlertThreshold:  DefaultAlertThreshold,
		Threshold:       compare.DefaultThreshold,
		MaxSamples:      DefaultMaxSamples,
	}
}

func (o Options) Validate() error {
	if err := model.CheckUnitInterval("sample_rate", o.SampleRate); err != nil {
		return err
	}
	if err := model.CheckUnitInterval("alert_threshold", o.AlertThreshold); err != nil {
		return err
	}
	if err := model.CheckUnitInterval("threshold", o.Threshold); err != nil {
		return err
	}
	if o.Duration <= 0 {
		return &model.ValidationError{Field: "duration", Value: o.Duration, Reason: "must be positive"}
	}
	if o.MaxSamples < 1 {
		return &model.ValidationError{Field: "max_samples", Value: o.MaxSamples, Reason: "must be at least 1"}
	}
	return nil
}

// Alert is raised when the mismatch rate rises above the alert threshold.
type Alert struct {
	Session      string      `json:"session"`
	Sample       int         `json:"sample"`
	MismatchRate float64     `json:"mismatch_rate"`
	Threshold    float64     `json:"threshold"`
	Query        model.Query `json:"query"`
	At           time.Time   `json:"at"`
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID              string                 `json:"id" groups:"short,normal,long"`
	State           State                  `json:"state" groups:"short,normal,long"`
	Source          string                 `json:"source" groups:"normal,long"`
	Target          string                 `json:"target" groups:"normal,long"`
	Query           string                 `json:"query_source" groups:"normal,long"`
	StartedAt       time.Time              `json:"started_at" groups:"normal,long"`
	EndsAt          time.Time              `json:"ends_at" groups:"normal,long"`
	EndedAt         time.Time              `json:"ended_at,omitempty" groups:"normal,long"`
	SampleRate      float64                `json:"sample_rate" groups:"normal,long"`
	AlertOnMismatch bool                   `json:"alert_on_mismatch" groups:"long"`
	AlertThreshold  float64                `json:"alert_threshold" groups:"normal,long"`
	Seen            int                    `json:"seen" groups:"short,normal,long"`
	Sampled         int                    `json:"sampled" groups:"short,normal,long"`
	Tested          int                    `json:"tested" groups:"short,normal,long"`
	Matches         int                    `json:"matches" groups:"short,normal,long"`
	Mismatches      int                    `json:"mismatches" groups:"short,normal,long"`
	Errors          int                    `json:"errors" groups:"short,normal,long"`
	ConfidenceScore float64                `json:"confidence_score" groups:"short,normal,long"`
	Threshold       float64                `json:"threshold" groups:"short,normal,long"`
	MismatchRate    float64                `json:"mismatch_rate" groups:"short,normal,long"`
	Recommendation  compare.Recommendation `json:"recommendation" groups:"short,normal,long"`
	Alerts          int                    `json:"alerts" groups:"short,normal,long"`
	Alerting        bool                   `json:"alerting" groups:"normal,long"`
	// RecentMismatches holds the latest mismatching result per query, most recent first.
	RecentMismatches []*compare.Result `json:"recent_mismatches" groups:"long"`
}

// Session is one shadow comparison window. Only its loop goroutine writes the running counts; readers take
// snapshots.
type Session struct {
	id         string
	comparator *compare.Comparator
	source     Source
	opts       Options
	metrics    *Metrics

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu       sync.RWMutex
	state    State
	started  time.Time
	ended    time.Time
	seen     int
	agg      compare.Aggregate
	alerting bool
	alerts   int
	recent   *cachehash.CacheHash[model.Query, *compare.Result]
}

func newSession(id string, c *compare.Comparator, src Source, opts Options, metrics *Metrics) *Session {
	if opts.Sampler == nil {
		opts.Sampler = rand.Float64
	}
	return &Session{
		id:         id,
		comparator: c,
		source:     src,
		opts:       opts,
		metrics:    metrics,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		state:      StateRunning,
		started:    time.Now(),
		recent:     cachehash.New[model.Query, *compare.Result](opts.MaxSamples),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session has reached a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop asks the loop to end and waits for it. A comparison already in flight completes first. Stopping a finished
// session does nothing.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

// run samples queries until stopped, expired or the source ends.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	srcCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	queries := s.source.Queries(srcCtx)

	timer := time.NewTimer(s.opts.Duration)
	defer timer.Stop()
	for {
		// a pending stop wins over queued queries
		select {
		case <-s.stopCh:
			s.finish(StateStopped)
			return
		default:
		}
		select {
		case <-s.stopCh:
			s.finish(StateStopped)
			return
		case <-timer.C:
			s.finish(StateExpired)
			return
		case <-ctx.Done():
			s.finish(StateStopped)
			return
		case q, ok := <-queries:
			if !ok {
				log.Infof("shadow session %s: query source %s ended", s.id, s.source)
				s.finish(StateStopped)
				return
			}
			s.observe(q)
		}
	}
}

func (s *Session) observe(q model.Query) {
	s.mu.Lock()
	s.seen++
	s.mu.Unlock()
	s.metrics.seen(s.id)
	if s.opts.Sampler() >= s.opts.SampleRate {
		return
	}
	// lookups carry their own deadlines, so a comparison is never abandoned by the stop signal
	res := s.comparator.Compare(context.Background(), q, s.opts.Compare)
	s.fold(res)
}

// fold adds one result to the running counts in O(1).
func (s *Session) fold(res *compare.Result) {
	var alert *Alert
	s.mu.Lock()
	s.agg.Add(res)
	if !res.Match {
		s.recent.Upsert(res.Query, res)
	}
	rate := s.agg.MismatchRate()
	if s.opts.AlertOnMismatch {
		above := rate > s.opts.AlertThreshold
		if above && !s.alerting {
			s.alerts++
			alert = &Alert{Session: s.id, Sample: s.agg.Tested, MismatchRate: rate, Threshold: s.opts.AlertThreshold,
				Query: res.Query, At: time.Now()}
		}
		s.alerting = above
	}
	confidence := s.agg.Confidence()
	s.mu.Unlock()

	s.metrics.observe(s.id, res, confidence, rate)
	if alert == nil {
		return
	}
	s.metrics.alert(s.id)
	log.WithFields(log.Fields{
		"session":   s.id,
		"rate":      alert.MismatchRate,
		"threshold": alert.Threshold,
		"sample":    alert.Sample,
		"query":     alert.Query.String(),
	}).Warn("shadow mismatch rate above threshold")
	if s.opts.OnAlert != nil {
		s.opts.OnAlert(*alert)
	}
}

func (s *Session) finish(state State) {
	s.mu.Lock()
	s.state = state
	s.ended = time.Now()
	s.mu.Unlock()
	log.Infof("shadow session %s %s after %d samples", s.id, state, s.sampledCount())
}

func (s *Session) sampledCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agg.Tested
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot copies the session's counters and recent mismatches.
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score := s.agg.Confidence()
	return &Snapshot{
		ID:               s.id,
		State:            s.state,
		Source:           s.comparator.Source().String(),
		Target:           s.comparator.Target().String(),
		Query:            s.source.String(),
		StartedAt:        s.started,
		EndsAt:           s.started.Add(s.opts.Duration),
		EndedAt:          s.ended,
		SampleRate:       s.opts.SampleRate,
		AlertOnMismatch:  s.opts.AlertOnMismatch,
		AlertThreshold:   s.opts.AlertThreshold,
		Seen:             s.seen,
		Sampled:          s.agg.Tested,
		Tested:           s.agg.Tested,
		Matches:          s.agg.Matches,
		Mismatches:       s.agg.Mismatches,
		Errors:           s.agg.Errors,
		ConfidenceScore:  score,
		Threshold:        s.opts.Threshold,
		MismatchRate:     s.agg.MismatchRate(),
		Recommendation:   compare.Recommend(score, s.opts.Threshold, s.agg.Tested),
		Alerts:           s.alerts,
		Alerting:         s.alerting,
		RecentMismatches: s.recent.Values(),
	}
}
