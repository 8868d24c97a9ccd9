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
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/compare"
)

var (
	ErrNotFound = errors.New("shadow session not found")
	ErrRunning  = errors.New("shadow session is still running")
)

// Manager owns independent shadow sessions. Sessions share nothing but the comparator, which is stateless.
type Manager struct {
	comparator *compare.Comparator
	metrics    *Metrics
	ctx        context.Context
	cancel     context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	order    map[string]int
	seq      int
}

// NewManager returns a Manager whose sessions compare with c. metrics may be nil.
func NewManager(c *compare.Comparator, metrics *Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		comparator: c,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[string]*Session),
		order:      make(map[string]int),
	}
}

// Start validates opts and starts a session reading from src. It returns as soon as the session loop is running.
func (m *Manager) Start(src Source, opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("shadow session needs a query source")
	}
	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("shadow-%d", m.seq)
	s := newSession(id, m.comparator, src, opts, m.metrics)
	m.sessions[id] = s
	m.order[id] = m.seq
	m.mu.Unlock()

	go s.run(m.ctx)
	log.Infof("started shadow session %s: %s vs %s, sampling %.2f of %s for %s", id, m.comparator.Source(),
		m.comparator.Target(), opts.SampleRate, src, opts.Duration)
	return s, nil
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "id %q", id)
	}
	return s, nil
}

// Stop ends a session, waiting for any in-flight comparison, and returns its final snapshot.
func (m *Manager) Stop(id string) (*Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.Stop()
	return s.Snapshot(), nil
}

// Report snapshots a session without disturbing it.
func (m *Manager) Report(id string) (*Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Discard forgets a finished session.
func (m *Manager) Discard(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if !s.State().Terminal() {
		return errors.Wrapf(ErrRunning, "id %q", id)
	}
	m.mu.Lock()
	delete(m.sessions, id)
	delete(m.order, id)
	m.mu.Unlock()
	m.metrics.forget(id)
	return nil
}

// List snapshots every session in start order.
func (m *Manager) List() []*Snapshot {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	order := make(map[string]int, len(m.order))
	for id, n := range m.order {
		order[id] = n
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return order[sessions[i].id] < order[sessions[j].id] })
	out := make([]*Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Close stops every running session.
func (m *Manager) Close() {
	m.cancel()
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()
	for _, s := range sessions {
		<-s.Done()
	}
}
