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
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsmigrate/src/compare"
	"github.com/dnsscience/dnsmigrate/src/model"
)

type stringInput struct {
	text    string
	queries []model.Query
}

func (s stringInput) ReadAll() (string, error) {
	return s.text, nil
}

func (s stringInput) ReadQueries() ([]model.Query, error) {
	return s.queries, nil
}

type captureOutput struct {
	lines []string
}

func (c *captureOutput) WriteResults(results <-chan string, wg *sync.WaitGroup) error {
	defer wg.Done()
	for line := range results {
		c.lines = append(c.lines, line)
	}
	return nil
}

type MockLookuper struct {
	name string
	// data overrides the answer for a query name
	data map[string]string
}

func (ml MockLookuper) Lookup(_ context.Context, q model.Query) *model.Response {
	data, ok := ml.data[q.Name]
	if !ok {
		data = "192.0.2.1"
	}
	return &model.Response{Rcode: model.StatusNoError, Records: []model.Record{model.NewRecord(q.Name, "A", 300, data)}}
}

func (ml MockLookuper) String() string {
	return ml.name
}

const corefile = `.:53 {
    forward . 8.8.8.8
    kubernetes cluster.local
}
`

func testConf(groups ...string) (*CLIConf, *captureOutput) {
	if len(groups) == 0 {
		groups = []string{"normal"}
	}
	out := &captureOutput{}
	gc := &CLIConf{
		GeneralOptions:   GeneralOptions{Threads: 4, Threshold: 0.99},
		MigrationOptions: MigrationOptions{FromDialect: "coredns", ToDialect: "unbound"},
		ShadowOptions: ShadowOptions{
			SampleRate:        1,
			Duration:          "1h",
			AlertThreshold:    0.01,
			MaxSamples:        10,
			QueryLogFormat:    "coredns",
			SyntheticInterval: "1s",
		},
		OutputGroups:  groups,
		ConfigHandler: stringInput{text: corefile},
		InputHandler:  stringInput{},
		OutputHandler: out,
		Comparator: compare.NewComparator(MockLookuper{name: "source"},
			MockLookuper{name: "target", data: map[string]string{"changed.example.com": "198.51.100.7"}}),
	}
	return gc, out
}

func decode(t *testing.T, out *captureOutput) map[string]interface{} {
	t.Helper()
	require.Len(t, out.lines, 1)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out.lines[0]), &res))
	return res
}

func TestCommands(t *testing.T) {
	assert.Equal(t, []string{"bulk", "compare", "convert", "plan", "shadow", "validate"}, Commands())
}

func TestRunPlan(t *testing.T) {
	gc, out := testConf()
	require.NoError(t, runPlan(context.Background(), gc))
	res := decode(t, out)
	assert.Equal(t, "coredns", res["source_dialect"])
	assert.Equal(t, "unbound", res["target_dialect"])
	assert.Equal(t, "medium", res["estimated_risk"])
	assert.Contains(t, res["target_text"], "forward-addr: 8.8.8.8")
	require.Len(t, res["warnings"], 1)
	assert.Contains(t, res["warnings"].([]interface{})[0], `"kubernetes"`)
	assert.NotContains(t, res, "unsupported", "unsupported is only in long output")

	gc, out = testConf("short")
	require.NoError(t, runPlan(context.Background(), gc))
	assert.NotContains(t, decode(t, out), "target_text")
}

func TestRunPlanErrors(t *testing.T) {
	gc, out := testConf()
	gc.ConfigHandler = stringInput{text: ".:53 {\n    forward . 8.8.8.8\n"}
	require.Error(t, runPlan(context.Background(), gc))
	assert.Empty(t, out.lines, "a failed parse writes no partial plan")

	gc, _ = testConf()
	gc.ToDialect = "coredns"
	require.Error(t, runPlan(context.Background(), gc))

	gc, _ = testConf()
	gc.ToDialect = "bind"
	require.Error(t, runPlan(context.Background(), gc))
}

func TestRunConvert(t *testing.T) {
	gc, out := testConf()
	require.NoError(t, runConvert(context.Background(), gc))
	require.Len(t, out.lines, 1)
	assert.Equal(t, "server:\n    port: 53\n\nforward-zone:\n    name: \".\"\n    forward-addr: 8.8.8.8", out.lines[0])
}

func TestRunCompare(t *testing.T) {
	gc, out := testConf()
	gc.Args = []string{"Changed.Example.com."}
	require.NoError(t, runCompare(context.Background(), gc))
	res := decode(t, out)
	assert.Equal(t, false, res["match"])
	assert.Equal(t, map[string]interface{}{"name": "changed.example.com", "type": "A"}, res["query"])
	require.Len(t, res["differences"], 1)

	gc, out = testConf()
	gc.Args = []string{"example.com", "MX"}
	require.NoError(t, runCompare(context.Background(), gc))
	assert.Equal(t, true, decode(t, out)["match"])

	for _, args := range [][]string{nil, {"example.com", "HTTPS"}, {"a.example.com", "A", "extra"}} {
		gc, out = testConf()
		gc.Args = args
		assert.Error(t, runCompare(context.Background(), gc), "%v", args)
		assert.Empty(t, out.lines)
	}
}

func TestRunBulk(t *testing.T) {
	gc, out := testConf("short")
	gc.Args = []string{"a.example.com", "changed.example.com", "b.example.com/AAAA", "c.example.com"}
	require.NoError(t, runBulk(context.Background(), gc))
	res := decode(t, out)
	assert.Equal(t, 4.0, res["tested"])
	assert.Equal(t, 3.0, res["matches"])
	assert.Equal(t, 1.0, res["mismatches"])
	assert.Equal(t, 0.75, res["confidence_score"])
	assert.Equal(t, string(compare.NotRecommended), res["recommendation"])
	assert.NotContains(t, res, "results")

	gc, out = testConf()
	gc.InputHandler = stringInput{queries: []model.Query{{Name: "a.example.com", Type: "A"}}}
	gc.Threshold = 0.5
	require.NoError(t, runBulk(context.Background(), gc))
	res = decode(t, out)
	assert.Equal(t, string(compare.SafeToProceed), res["recommendation"])
	assert.Len(t, res["results"], 1)

	gc, _ = testConf()
	gc.Threads = 0
	assert.Error(t, runBulk(context.Background(), gc))
}

func TestRunValidate(t *testing.T) {
	gc, out := testConf("short")
	require.NoError(t, runValidate(context.Background(), gc))
	res := decode(t, out)
	comparison := res["comparison"].(map[string]interface{})
	assert.Equal(t, 9.0, comparison["tested"], "the default queries are used without an input file")
	assert.Equal(t, 1.0, comparison["confidence_score"])
	plan := res["plan"].(map[string]interface{})
	assert.Equal(t, "unbound", plan["target_dialect"])

	gc, out = testConf("short")
	gc.Args = []string{"changed.example.com"}
	require.NoError(t, runValidate(context.Background(), gc))
	comparison = decode(t, out)["comparison"].(map[string]interface{})
	assert.Equal(t, 1.0, comparison["tested"])
	assert.Equal(t, 0.0, comparison["confidence_score"])

	gc, out = testConf()
	gc.ConfigHandler = stringInput{text: "server:\n  \"unterminated\n"}
	gc.FromDialect, gc.ToDialect = "unbound", "coredns"
	require.Error(t, runValidate(context.Background(), gc))
	assert.Empty(t, out.lines)
}

func TestRunShadow(t *testing.T) {
	gc, out := testConf()
	gc.Args = []string{"a.example.com", "changed.example.com"}
	gc.Duration = "200ms"
	gc.SyntheticInterval = "5ms"
	gc.StatusFilePath = filepath.Join(t.TempDir(), "status")
	require.NoError(t, runShadow(context.Background(), gc))
	res := decode(t, out)
	assert.Equal(t, "expired", res["state"])
	assert.Greater(t, res["tested"], 0.0)
	assert.Greater(t, res["mismatches"], 0.0)
	assert.Equal(t, 1.0, res["alerts"], "the rate never falls back under the threshold")

	gc, out = testConf()
	gc.SampleRate = 2
	assert.Error(t, runShadow(context.Background(), gc))
	assert.Empty(t, out.lines)
}

func TestRunShadowQueryLog(t *testing.T) {
	gc, out := testConf("long")
	gc.QueryLogPath = filepath.Join("testdata", "coredns.log")
	gc.StatusFilePath = filepath.Join(t.TempDir(), "status")
	require.NoError(t, runShadow(context.Background(), gc))
	res := decode(t, out)
	assert.Equal(t, "stopped", res["state"], "the session stops at the end of the log")
	assert.Equal(t, 3.0, res["seen"])
	assert.Equal(t, 1.0, res["mismatches"])
	require.Len(t, res["recent_mismatches"], 1)
}

func TestFailNotRecommended(t *testing.T) {
	gc, out := testConf("short")
	gc.FailBelow = true
	gc.Args = []string{"a.example.com", "changed.example.com"}
	err := runBulk(context.Background(), gc)
	assert.ErrorIs(t, err, errNotRecommended)
	assert.Equal(t, 0.5, decode(t, out)["confidence_score"], "the report is written before failing")

	gc, out = testConf("short")
	gc.FailBelow = true
	require.NoError(t, runValidate(context.Background(), gc))
	require.Len(t, out.lines, 1)
}
