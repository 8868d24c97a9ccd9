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

package shadow

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dnsscience/dnsmigrate/src/compare"
)

const (
	metricsNamespace = "dnsmigrate"
	metricsSubsystem = "shadow"

	outcomeMatch    = "match"
	outcomeMismatch = "mismatch"
	outcomeError    = "error"
)

// Metrics exports per-session shadow counters. A nil *Metrics records nothing.
type Metrics struct {
	seenTotal    *prometheus.CounterVec
	samplesTotal *prometheus.CounterVec
	alertsTotal  *prometheus.CounterVec
	confidence   *prometheus.GaugeVec
	mismatchRate *prometheus.GaugeVec
}

// NewMetrics registers the shadow metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		seenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: "queries_seen_total",
			Help: "Queries offered to the session by its query source.",
		}, []string{"session"}),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: "samples_total",
			Help: "Sampled queries compared on both resolvers, by outcome.",
		}, []string{"session", "outcome"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: "alerts_total",
			Help: "Times the mismatch rate rose above the alert threshold.",
		}, []string{"session"}),
		confidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: "confidence_score",
			Help: "Fraction of sampled queries both resolvers answered identically.",
		}, []string{"session"}),
		mismatchRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem, Name: "mismatch_rate",
			Help: "Fraction of sampled queries the resolvers disagreed on.",
		}, []string{"session"}),
	}
	for _, c := range []prometheus.Collector{m.seenTotal, m.samplesTotal, m.alertsTotal, m.confidence, m.mismatchRate} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering shadow metrics")
		}
	}
	return m, nil
}

func (m *Metrics) seen(session string) {
	if m == nil {
		return
	}
	m.seenTotal.WithLabelValues(session).Inc()
}

func (m *Metrics) observe(session string, res *compare.Result, confidence, rate float64) {
	if m == nil {
		return
	}
	outcome := outcomeMatch
	switch {
	case res.Errored:
		outcome = outcomeError
	case !res.Match:
		outcome = outcomeMismatch
	}
	m.samplesTotal.WithLabelValues(session, outcome).Inc()
	m.confidence.WithLabelValues(session).Set(confidence)
	m.mismatchRate.WithLabelValues(session).Set(rate)
}

func (m *Metrics) alert(session string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(session).Inc()
}

// forget drops every series of a discarded session.
func (m *Metrics) forget(session string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"session": session}
	m.seenTotal.DeletePartialMatch(labels)
	m.samplesTotal.DeletePartialMatch(labels)
	m.alertsTotal.DeletePartialMatch(labels)
	m.confidence.DeletePartialMatch(labels)
	m.mismatchRate.DeletePartialMatch(labels)
}
