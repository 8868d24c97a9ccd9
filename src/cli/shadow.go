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
package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/cli/iohandlers"
	"github.com/dnsscience/dnsmigrate/src/internal/safeblacklist"
	"github.com/dnsscience/dnsmigrate/src/migrate"
	"github.com/dnsscience/dnsmigrate/src/shadow"
)

// runShadow runs one shadow session in the foreground until it expires, its query source ends or the command is
// interrupted, then writes the final session report.
func runShadow(ctx context.Context, gc *CLIConf) error {
	opts, err := populateShadowOptions(gc)
	if err != nil {
		return err
	}
	c, err := newComparator(gc)
	if err != nil {
		return err
	}
	exclude, err := loadExclusions(gc)
	if err != nil {
		return err
	}
	src, closeSource, err := newShadowSource(gc, exclude)
	if err != nil {
		return err
	}
	defer closeSource()

	var metrics *shadow.Metrics
	if gc.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if metrics, err = shadow.NewMetrics(reg); err != nil {
			return err
		}
		srv, err := serveMetrics(gc.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	m := shadow.NewManager(c, metrics)
	defer m.Close()
	session, err := m.Start(src, opts)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		if err := iohandlers.NewStatusHandler(gc.StatusFilePath).LogPeriodicUpdates(session, &wg); err != nil {
			log.Errorf("could not write shadow status: %v", err)
		}
	}()
	select {
	case <-session.Done():
	case <-ctx.Done():
		log.Infof("stopping shadow session %s", session.ID())
	}
	snap, err := m.Stop(session.ID())
	wg.Wait()
	if err != nil {
		return err
	}
	return writeResult(gc, snap)
}

// loadExclusions reads --exclude-clients, either a file of networks or a comma separated list of them.
func loadExclusions(gc *CLIConf) (*safeblacklist.SafeBlacklist, error) {
	if gc.ExcludeClients == "" {
		return nil, nil
	}
	exclude := safeblacklist.New()
	if info, err := os.Stat(gc.ExcludeClients); err == nil && !info.IsDir() {
		if err := exclude.ParseFromFile(gc.ExcludeClients); err != nil {
			return nil, errors.Wrap(err, "could not read --exclude-clients")
		}
		return exclude, nil
	}
	for _, cidr := range strings.Split(gc.ExcludeClients, ",") {
		if strings.TrimSpace(cidr) == "" {
			continue
		}
		if err := exclude.AddEntry(cidr); err != nil {
			return nil, errors.Wrapf(err, "invalid argument for --exclude-clients (%s): not a file or a list of networks", gc.ExcludeClients)
		}
	}
	return exclude, nil
}

// newShadowSource picks the query source: a dnstap socket, a query log, or else a synthetic replay of
// --input-file (the default validation queries when no file is given).
func newShadowSource(gc *CLIConf, exclude *safeblacklist.SafeBlacklist) (shadow.Source, func(), error) {
	if gc.DnstapSocket != "" && gc.QueryLogPath != "" {
		return nil, nil, errors.New("--dnstap-socket and --query-log cannot both be specified")
	}
	switch {
	case gc.DnstapSocket != "":
		tap, err := shadow.ListenDnstap(gc.DnstapSocket, shadow.DefaultDnstapBuffer)
		if err != nil {
			return nil, nil, err
		}
		tap.Exclude = exclude
		return tap, func() {}, nil
	case gc.QueryLogPath != "":
		format := shadow.LogFormat(strings.ToLower(gc.QueryLogFormat))
		if format != shadow.CoreDNSLog && format != shadow.UnboundLog {
			return nil, nil, errors.Errorf("invalid argument for --log-format (%s). Options: coredns, unbound", gc.QueryLogFormat)
		}
		var r io.ReadCloser = io.NopCloser(os.Stdin)
		if gc.QueryLogPath != "-" {
			f, err := os.Open(gc.QueryLogPath)
			if err != nil {
				return nil, nil, errors.Wrap(err, "unable to open query log")
			}
			r = f
		}
		return &shadow.LogTap{Reader: r, Format: format, Name: gc.QueryLogPath, Exclude: exclude}, func() { _ = r.Close() }, nil
	}

	if exclude != nil {
		log.Warn("--exclude-clients has no effect on synthetic queries")
	}
	interval, err := time.ParseDuration(gc.SyntheticInterval)
	if err != nil || interval <= 0 {
		return nil, nil, errors.Errorf("invalid argument for --synthetic-interval (%s). Must be a positive duration", gc.SyntheticInterval)
	}
	queries := migrate.DefaultQueries()
	if len(gc.Args) > 0 || (gc.InputFilePath != "" && gc.InputFilePath != "-") {
		if queries, err = readQueries(gc); err != nil {
			return nil, nil, errors.Wrap(err, "could not read queries")
		}
		if len(queries) == 0 {
			return nil, nil, errors.New("no queries to replay")
		}
	}
	return &shadow.SyntheticSource{List: queries, Interval: interval}, func() {}, nil
}

// serveMetrics serves reg on /metrics at addr until the returned server is closed.
func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on --metrics-addr %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	log.Infof("serving metrics on %s/metrics", l.Addr())
	return srv, nil
}
