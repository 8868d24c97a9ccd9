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
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsmigrate/src/lookup"
	"github.com/dnsscience/dnsmigrate/src/shadow"
)

func TestPopulateResolverConfigs(t *testing.T) {
	t.Run("Both resolvers with defaults", func(t *testing.T) {
		gc := &CLIConf{GeneralOptions: GeneralOptions{
			SourceResolver: "10.0.0.53",
			TargetResolver: "tcp://[2001:db8::53]:5353",
			Timeout:        3,
			Retries:        2,
		}}
		config, err := populateResolverConfigs(gc)
		require.NoError(t, err)
		assert.Equal(t, "udp://10.0.0.53:53", config.Source.Endpoint.String())
		assert.Equal(t, "tcp://[2001:db8::53]:5353", config.Target.Endpoint.String())
		assert.Equal(t, 3*time.Second, config.Target.Timeout)
		assert.Equal(t, 2, config.Source.Retries)
	})
	t.Run("Missing target", func(t *testing.T) {
		gc := &CLIConf{GeneralOptions: GeneralOptions{SourceResolver: "10.0.0.53", Timeout: 5}}
		_, err := populateResolverConfigs(gc)
		require.Error(t, err)
	})
	t.Run("Bad transport", func(t *testing.T) {
		gc := &CLIConf{GeneralOptions: GeneralOptions{SourceResolver: "tls://10.0.0.53", TargetResolver: "10.0.0.54", Timeout: 5}}
		_, err := populateResolverConfigs(gc)
		require.Error(t, err)
	})
	t.Run("Zero timeout", func(t *testing.T) {
		gc := &CLIConf{GeneralOptions: GeneralOptions{SourceResolver: "10.0.0.53", TargetResolver: "10.0.0.54"}}
		_, err := populateResolverConfigs(gc)
		require.Error(t, err)
	})
	t.Run("Negative retries", func(t *testing.T) {
		gc := &CLIConf{GeneralOptions: GeneralOptions{SourceResolver: "10.0.0.53", TargetResolver: "10.0.0.54", Timeout: 5, Retries: -1}}
		_, err := populateResolverConfigs(gc)
		require.Error(t, err)
	})
}

func TestIsSameEndpoint(t *testing.T) {
	parse := func(s string) lookup.Endpoint {
		e, err := lookup.ParseEndpoint(s)
		require.NoError(t, err)
		return e
	}
	assert.True(t, isSameEndpoint(parse("10.0.0.53"), parse("udp://10.0.0.53:53")))
	assert.True(t, isSameEndpoint(parse("[::ffff:10.0.0.53]"), parse("10.0.0.53")))
	assert.True(t, isSameEndpoint(parse("NS1.example.com"), parse("ns1.example.com")))
	assert.False(t, isSameEndpoint(parse("10.0.0.53"), parse("tcp://10.0.0.53")))
	assert.False(t, isSameEndpoint(parse("10.0.0.53"), parse("10.0.0.53:5353")))
	assert.False(t, isSameEndpoint(parse("10.0.0.53"), parse("10.0.0.54")))
}

func TestPopulateShadowOptions(t *testing.T) {
	gc, _ := testConf()
	gc.Duration = "90m"
	gc.SampleRate = 0.25
	gc.NoAlert = true
	gc.IgnoreTTL = true
	gc.Threshold = 0.9
	opts, err := populateShadowOptions(gc)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, opts.Duration)
	assert.Equal(t, 0.25, opts.SampleRate)
	assert.False(t, opts.AlertOnMismatch)
	assert.Equal(t, 0.9, opts.Threshold)
	assert.True(t, opts.Compare.IgnoreTTL)

	for name, mutate := range map[string]func(*CLIConf){
		"bad duration":           func(gc *CLIConf) { gc.Duration = "soon" },
		"negative duration":      func(gc *CLIConf) { gc.Duration = "-1m" },
		"sample rate above one":  func(gc *CLIConf) { gc.SampleRate = 1.5 },
		"negative threshold":     func(gc *CLIConf) { gc.AlertThreshold = -0.5 },
		"threshold above one":    func(gc *CLIConf) { gc.Threshold = 1.2 },
		"no retained mismatches": func(gc *CLIConf) { gc.MaxSamples = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			gc, _ := testConf()
			mutate(gc)
			_, err := populateShadowOptions(gc)
			require.Error(t, err)
		})
	}
}

func TestPopulateBulkOptions(t *testing.T) {
	gc, _ := testConf()
	gc.IgnoreOrder = true
	opts, err := populateBulkOptions(gc)
	require.NoError(t, err)
	assert.Equal(t, 4, opts.Threads)
	assert.True(t, opts.IgnoreOrder)

	gc.Threshold = 1.01
	_, err = populateBulkOptions(gc)
	require.Error(t, err)
}

func TestValidateDialects(t *testing.T) {
	gc, _ := testConf()
	require.NoError(t, validateDialects(gc))
	gc.FromDialect, gc.ToDialect = "unbound", "coredns"
	require.NoError(t, validateDialects(gc))
	gc.ToDialect = "Unbound"
	require.Error(t, validateDialects(gc))
	gc.ToDialect = "knot"
	require.Error(t, validateDialects(gc))
}

func TestPopulateOutputGroups(t *testing.T) {
	for _, verbosity := range []string{"short", "normal", "long"} {
		groups, err := populateOutputGroups(&CLIConf{ApplicationOptions: ApplicationOptions{ResultVerbosity: verbosity}})
		require.NoError(t, err)
		assert.Equal(t, []string{verbosity}, groups)
	}
	_, err := populateOutputGroups(&CLIConf{ApplicationOptions: ApplicationOptions{ResultVerbosity: "trace"}})
	require.Error(t, err)
}

func TestLoadExclusions(t *testing.T) {
	gc, _ := testConf()
	exclude, err := loadExclusions(gc)
	require.NoError(t, err)
	assert.Nil(t, exclude, "no exclusions without --exclude-clients")

	gc.ExcludeClients = "10.0.0.0/8, 192.0.2.7"
	exclude, err = loadExclusions(gc)
	require.NoError(t, err)
	assert.True(t, exclude.Contains(net.ParseIP("10.9.8.7")))
	assert.True(t, exclude.Contains(net.ParseIP("192.0.2.7")))
	assert.False(t, exclude.Contains(net.ParseIP("192.0.2.8")))

	path := filepath.Join(t.TempDir(), "clients.txt")
	require.NoError(t, os.WriteFile(path, []byte("172.16.0.0/12\n"), 0o644))
	gc.ExcludeClients = path
	exclude, err = loadExclusions(gc)
	require.NoError(t, err)
	assert.True(t, exclude.Contains(net.ParseIP("172.20.0.1")))
	assert.False(t, exclude.Contains(net.ParseIP("10.9.8.7")))

	gc.ExcludeClients = filepath.Join(t.TempDir(), "missing.txt")
	_, err = loadExclusions(gc)
	assert.ErrorContains(t, err, "--exclude-clients")
}

func TestNewShadowSource(t *testing.T) {
	t.Run("Default synthetic queries", func(t *testing.T) {
		gc, _ := testConf()
		src, closeSource, err := newShadowSource(gc, nil)
		require.NoError(t, err)
		defer closeSource()
		synthetic, ok := src.(*shadow.SyntheticSource)
		require.True(t, ok)
		assert.Len(t, synthetic.List, 9)
		assert.Equal(t, time.Second, synthetic.Interval)
	})
	t.Run("Conflicting sources", func(t *testing.T) {
		gc, _ := testConf()
		gc.DnstapSocket = filepath.Join(t.TempDir(), "tap.sock")
		gc.QueryLogPath = "-"
		_, _, err := newShadowSource(gc, nil)
		require.Error(t, err)
	})
	t.Run("Unknown log format", func(t *testing.T) {
		gc, _ := testConf()
		gc.QueryLogPath = "-"
		gc.QueryLogFormat = "bind"
		_, _, err := newShadowSource(gc, nil)
		require.Error(t, err)
	})
	t.Run("Dnstap socket", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "dnstap")
		require.NoError(t, err)
		defer os.RemoveAll(dir)
		gc, _ := testConf()
		gc.DnstapSocket = filepath.Join(dir, "tap.sock")
		src, closeSource, err := newShadowSource(gc, nil)
		require.NoError(t, err)
		defer closeSource()
		assert.Equal(t, "dnstap "+gc.DnstapSocket, src.String())
	})
	t.Run("Bad interval", func(t *testing.T) {
		gc, _ := testConf()
		gc.SyntheticInterval = "0s"
		_, _, err := newShadowSource(gc, nil)
		require.Error(t, err)
	})
}
