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
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/dialect"
	"github.com/dnsscience/dnsmigrate/src/model"
)

const corefile = `.:53 {
    forward . 8.8.8.8 1.1.1.1
    cache 30
    errors
    log
    health
    kubernetes cluster.local in-addr.arpa ip6.arpa
}
`

const unboundConf = `server:
    port: 5353
    local-data: "router.lan. A 192.168.1.1"
    access-control: 10.0.0.0/8 allow
    local-data: "nas.lan. 3600 IN AAAA fd00::2"
    msg-cache-size: 64m
    do-ip6: yes
`

func countContaining(list []string, s string) int {
	n := 0
	for _, l := range list {
		if strings.Contains(l, s) {
			n++
		}
	}
	return n
}

func TestCoreDNSToUnbound(t *testing.T) {
	p, err := NewPlan(corefile, "coredns", "unbound")
	require.NoError(t, err)

	assert.Equal(t, `server:
    port: 53

forward-zone:
    name: "."
    forward-addr: 8.8.8.8
    forward-addr: 1.1.1.1

server:
    cache-max-ttl: 30
    log-servfail: yes
    log-queries: yes
`, p.TargetText)

	assert.Equal(t, []Step{
		{Order: 1, Description: "parse coredns configuration", Automated: true},
		{Order: 2, Description: "configure forwarding", Automated: true},
		{Order: 3, Description: "configure cache policy", Automated: true},
		{Order: 4, Description: "configure logging", Automated: true},
		{Order: 5, Description: `manually migrate "health": no equivalent; use an external health check such as unbound-control status`},
		{Order: 6, Description: "generate unbound configuration", Automated: true},
	}, p.Steps)

	require.Len(t, p.Warnings, 2)
	assert.Equal(t, `coredns directive "health" in zone .:53 needs manual migration: no equivalent; use an external health check such as unbound-control status`, p.Warnings[0])
	assert.Equal(t, 1, countContaining(p.Warnings, `"kubernetes"`))
	assert.Equal(t, `coredns directive "kubernetes" in zone .:53 has no known unbound equivalent and was not migrated`, p.Warnings[1])
	assert.NotContains(t, p.TargetText, "kubernetes")
	assert.NotContains(t, p.TargetText, "cluster.local")

	assert.Equal(t, []string{"kubernetes"}, p.Unsupported)
	assert.Equal(t, []string{"health"}, p.Manual)
	assert.Equal(t, RiskMedium, p.Risk)
}

func TestUnboundToCoreDNS(t *testing.T) {
	p, err := NewPlan(unboundConf, "unbound", "coredns")
	require.NoError(t, err)

	assert.Equal(t, `.:5353 {
    hosts {
        192.168.1.1 router.lan
        fd00::2 nas.lan
    }
    acl {
        allow net 10.0.0.0/8
    }
}
`, p.TargetText, "local-data and access-control lines are coalesced into one block each")

	descriptions := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		descriptions = append(descriptions, s.Description)
	}
	assert.Equal(t, []string{
		"parse unbound configuration",
		"configure static host records",
		"configure access control",
		`manually migrate "msg-cache-size": CoreDNS sizes its cache in entries, not bytes; pick a capacity by hand`,
		"generate coredns configuration",
	}, descriptions)
	require.Len(t, p.Warnings, 2)
	assert.Contains(t, p.Warnings[0], "(closest coredns option: cache)")
	assert.Contains(t, p.Warnings[1], `"do-ip6"`)
}

func TestPlanIsDeterministic(t *testing.T) {
	for _, test := range []struct{ text, src, tgt string }{
		{corefile, "coredns", "unbound"},
		{unboundConf, "unbound", "coredns"},
	} {
		first, err := NewPlan(test.text, test.src, test.tgt)
		require.NoError(t, err)
		second, err := NewPlan(test.text, test.src, test.tgt)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestPlanDoesNotModifyInput(t *testing.T) {
	cfg, err := dialectParse(t, "unbound", unboundConf)
	require.NoError(t, err)
	before := cfg.Clone()
	_, err = PlanConfig(cfg, "unbound", "coredns")
	require.NoError(t, err)
	assert.True(t, ast.Equal(before, cfg))
}

func dialectParse(t *testing.T, name, text string) (*ast.Config, error) {
	t.Helper()
	d, err := dialect.Get(name)
	require.NoError(t, err)
	return d.Parse(text)
}

func TestPlanWarnsOnFailedTransform(t *testing.T) {
	p, err := NewPlan(". {\n    forward . /etc/resolv.conf\n    log\n}\n", "coredns", "unbound")
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], `could not translate coredns directive "forward"`)
	assert.Contains(t, p.Warnings[0], "/etc/resolv.conf")
	assert.NotContains(t, p.TargetText, "forward-zone")
	assert.Equal(t, []string{"forward"}, p.Manual)
	assert.Equal(t, "server:\n    log-queries: yes\n", p.TargetText)
}

func TestPlanWarnsOnDroppedOptions(t *testing.T) {
	text := `.:53 {
    forward . 8.8.8.8 1.1.1.1 {
        except internal.example
        policy sequential
        force_tcp
    }
    cache 30 {
        success 9984 300
        prefetch 10
    }
    hosts {
        10.0.0.1 a.local
        ttl 60
    }
}
`
	p, err := NewPlan(text, "coredns", "unbound")
	require.NoError(t, err)
	assert.Equal(t, []string{
		`coredns directive "forward" in zone .:53: option forward/except has no unbound equivalent and was dropped`,
		`coredns directive "forward" in zone .:53: option forward/policy has no unbound equivalent and was dropped`,
		`coredns directive "cache" in zone .:53: option cache/success has no unbound equivalent and was dropped`,
		`coredns directive "cache" in zone .:53: option cache/prefetch has no unbound equivalent and was dropped`,
		`coredns directive "hosts" in zone .:53: option hosts/ttl has no unbound equivalent and was dropped`,
	}, p.Warnings)
	assert.Contains(t, p.TargetText, "forward-tcp-upstream: yes")
	assert.Contains(t, p.TargetText, "cache-max-ttl: 30")
	assert.Contains(t, p.TargetText, `local-data: "a.local. A 10.0.0.1"`)

	text = `forward-zone:
    name: "."
    forward-addr: 9.9.9.9
    forward-first: yes
    forward-no-cache: yes
`
	p, err = NewPlan(text, "unbound", "coredns")
	require.NoError(t, err)
	assert.Equal(t, []string{
		`unbound directive "forward-zone" in zone .: option forward-zone/forward-first has no coredns equivalent and was dropped`,
		`unbound directive "forward-zone" in zone .: option forward-zone/forward-no-cache has no coredns equivalent and was dropped`,
	}, p.Warnings)
	assert.Equal(t, ". {\n    forward . 9.9.9.9\n}\n", p.TargetText)
}

func TestPlanWarnsOnConflicts(t *testing.T) {
	text := `.:53 {
    forward . 8.8.8.8
    cache 30
    log
}

.:5353 {
    forward . 9.9.9.9
    cache 60
    log
}
`
	p, err := NewPlan(text, "coredns", "unbound")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(p.TargetText, "forward-zone:"))
	assert.Contains(t, p.TargetText, "forward-addr: 8.8.8.8")
	assert.NotContains(t, p.TargetText, "9.9.9.9")
	assert.Contains(t, p.TargetText, "cache-max-ttl: 30")
	assert.NotContains(t, p.TargetText, "cache-max-ttl: 60")
	assert.Equal(t, 1, strings.Count(p.TargetText, "log-queries"), "identical directives are not a conflict")
	assert.Equal(t, []string{
		"coredns configuration listens on ports 53, 5353; the unbound configuration only listens on 53",
		`coredns directive "forward" in zone .:5353 conflicts with an earlier unbound forward-zone for "." and was dropped`,
		`coredns directive "cache" in zone .:5353 conflicts with an earlier unbound cache-max-ttl and was dropped`,
	}, p.Warnings)

	text = `forward-zone:
    name: "corp.example"
    forward-addr: 10.0.0.53

forward-zone:
    name: "."
    forward-addr: 9.9.9.9
`
	p, err = NewPlan(text, "unbound", "coredns")
	require.NoError(t, err)
	assert.Equal(t, ". {\n    forward corp.example 10.0.0.53\n}\n", p.TargetText, "a server block holds one forward")
	assert.Equal(t, []string{
		`unbound directive "forward-zone" in zone . conflicts with an earlier coredns forward and was dropped`,
	}, p.Warnings)
}

func TestPlanWarnsOnIncludes(t *testing.T) {
	p, err := NewPlan("import common/*.conf\n\n.:53 {\n    log\n}\n", "coredns", "unbound")
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, `coredns configuration includes "import common/*.conf"; included files are not read and were not migrated`, p.Warnings[0])
	assert.Equal(t, []string{"import common/*.conf"}, p.Manual)
	assert.NotContains(t, p.TargetText, "import")

	p, err = NewPlan("include: \"/etc/unbound/unbound.conf.d/*.conf\"\nserver:\n    log-queries: yes\n", "unbound", "coredns")
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], `includes "include /etc/unbound/unbound.conf.d/*.conf"`)
	assert.Equal(t, ". {\n    log\n}\n", p.TargetText)
}

func TestPlanMergesZones(t *testing.T) {
	text := `example.org:53 {
    forward . 192.0.2.1
    log
}

.:5353 {
    forward . 192.0.2.53:5300
    log
}
`
	p, err := NewPlan(text, "coredns", "unbound")
	require.NoError(t, err)
	assert.Equal(t, `server:
    port: 53

forward-zone:
    name: "example.org"
    forward-addr: 192.0.2.1

server:
    log-queries: yes

forward-zone:
    name: "."
    forward-addr: 192.0.2.53@5300
`, p.TargetText)
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, "coredns configuration listens on ports 53, 5353; the unbound configuration only listens on 53", p.Warnings[0])
	assert.Equal(t, 1, strings.Count(p.TargetText, "log-queries"), "identical directives are emitted once")
}

func TestPlanErrors(t *testing.T) {
	var verr *model.ValidationError
	_, err := NewPlan(corefile, "coredns", "CoreDNS")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "target", verr.Field)

	_, err = NewPlan(corefile, "bind", "unbound")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "source", verr.Field)

	p, err := NewPlan(". {\n    forward . 8.8.8.8 {\n}\n", "coredns", "unbound")
	assert.Nil(t, p, "no partial plan on a syntax error")
	var serr *dialect.SyntaxError
	require.True(t, errors.As(err, &serr))
}

func TestEstimateRisk(t *testing.T) {
	tests := []struct {
		unsupported, manual, steps int
		risk                       Risk
	}{
		{0, 0, 3, RiskLow},
		{0, 1, 11, RiskMedium},
		{1, 0, 3, RiskMedium},
		{0, 2, 4, RiskMedium},
		{1, 2, 6, RiskHigh},
		{3, 0, 2, RiskHigh},
	}
	for _, test := range tests {
		assert.Equal(t, test.risk, EstimateRisk(test.unsupported, test.manual, test.steps), "%+v", test)
	}
}

type MockLookuper struct {
	calls atomic.Int32
}

func (ml *MockLookuper) Lookup(_ context.Context, q model.Query) *model.Response {
	ml.calls.Add(1)
	return &model.Response{Rcode: model.StatusNoError, Records: []model.Record{model.NewRecord(q.Name, q.Type, 60, "192.0.2.1")}}
}

func (ml *MockLookuper) String() string {
	return "mock"
}

func TestValidate(t *testing.T) {
	source, target := &MockLookuper{}, &MockLookuper{}
	c := compare.NewComparator(source, target)

	v, err := Validate(context.Background(), corefile, "coredns", "unbound", c, NewValidateOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, v.Plan.TargetText)
	assert.Equal(t, len(DefaultQueries()), v.Report.Tested)
	assert.Equal(t, 1.0, v.Report.ConfidenceScore)
	assert.Equal(t, compare.SafeToProceed, v.Report.Recommendation)

	opts := NewValidateOptions()
	opts.Queries = []model.Query{{Name: "example.net", Type: "A"}}
	v, err = Validate(context.Background(), corefile, "coredns", "unbound", c, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Report.Tested)

	before := source.calls.Load()
	_, err = Validate(context.Background(), "server:\n  \"bad\"\n", "unbound", "coredns", c, NewValidateOptions())
	require.Error(t, err)
	assert.Equal(t, before, source.calls.Load(), "a failed plan sends no queries")
}
