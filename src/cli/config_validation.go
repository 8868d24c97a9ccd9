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
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/dialect"
	"github.com/dnsscience/dnsmigrate/src/lookup"
	"github.com/dnsscience/dnsmigrate/src/shadow"
)

// populateResolverConfigs builds the comparator config from --source and --target.
func populateResolverConfigs(gc *CLIConf) (*compare.Config, error) {
	if gc.SourceResolver == "" || gc.TargetResolver == "" {
		return nil, errors.New("--source and --target resolvers must both be specified")
	}
	if gc.Timeout <= 0 {
		return nil, fmt.Errorf("invalid argument for --timeout (%d). Must be a positive number of seconds", gc.Timeout)
	}
	config := &compare.Config{}
	for _, r := range []struct {
		flag string
		addr string
		out  **lookup.ResolverConfig
	}{
		{"--source", gc.SourceResolver, &config.Source},
		{"--target", gc.TargetResolver, &config.Target},
	} {
		endpoint, err := lookup.ParseEndpoint(r.addr)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid argument for %s", r.flag)
		}
		rc := lookup.NewResolverConfig(endpoint)
		rc.Timeout = time.Duration(gc.Timeout) * time.Second
		rc.Retries = gc.Retries
		*r.out = rc
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "resolvers did not pass validation")
	}
	if isSameEndpoint(config.Source.Endpoint, config.Target.Endpoint) {
		log.Warnf("source and target are both %s; every comparison will match", config.Source.Endpoint)
	}
	return config, nil
}

func compareOptions(gc *CLIConf) compare.Options {
	return compare.Options{IgnoreTTL: gc.IgnoreTTL, IgnoreOrder: gc.IgnoreOrder}
}

func populateBulkOptions(gc *CLIConf) (compare.BulkOptions, error) {
	opts := compare.NewBulkOptions()
	opts.Options = compareOptions(gc)
	opts.Threads = gc.Threads
	opts.Threshold = gc.Threshold
	if err := opts.Validate(); err != nil {
		return opts, errors.Wrap(err, "bulk options did not pass validation")
	}
	return opts, nil
}

func validateDialects(gc *CLIConf) error {
	for _, d := range []struct{ flag, name string }{{"--from", gc.FromDialect}, {"--to", gc.ToDialect}} {
		if _, err := dialect.Get(d.name); err != nil {
			return errors.Wrapf(err, "invalid argument for %s", d.flag)
		}
	}
	if strings.EqualFold(gc.FromDialect, gc.ToDialect) {
		return fmt.Errorf("--from and --to are both %s", gc.FromDialect)
	}
	return nil
}

func populateShadowOptions(gc *CLIConf) (shadow.Options, error) {
	opts := shadow.NewOptions()
	duration, err := time.ParseDuration(gc.Duration)
	if err != nil {
		return opts, errors.Wrapf(err, "invalid argument for --duration (%s)", gc.Duration)
	}
	opts.Duration = duration
	opts.SampleRate = gc.SampleRate
	opts.AlertOnMismatch = !gc.NoAlert
	opts.AlertThreshold = gc.AlertThreshold
	opts.Threshold = gc.Threshold
	opts.MaxSamples = gc.MaxSamples
	opts.Compare = compareOptions(gc)
	if err := opts.Validate(); err != nil {
		return opts, errors.Wrap(err, "shadow options did not pass validation")
	}
	return opts, nil
}

// populateOutputGroups checks --result-verbosity and returns the sheriff groups it selects.
func populateOutputGroups(gc *CLIConf) ([]string, error) {
	switch gc.ResultVerbosity {
	case "short", "normal", "long":
		return []string{gc.ResultVerbosity}, nil
	default:
		return nil, fmt.Errorf("invalid result verbosity (%s). Options: short, normal, long", gc.ResultVerbosity)
	}
}

// isSameEndpoint reports whether two endpoints address the same service. Host names are compared as written.
func isSameEndpoint(a, b lookup.Endpoint) bool {
	if a.Port != b.Port || a.Transport != b.Transport {
		return false
	}
	aAddr, aErr := netip.ParseAddr(a.Host)
	bAddr, bErr := netip.ParseAddr(b.Host)
	if aErr == nil && bErr == nil {
		return aAddr.Unmap() == bAddr.Unmap()
	}
	return strings.EqualFold(a.Host, b.Host)
}
