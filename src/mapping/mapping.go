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

// Package mapping is the static translation table between resolver dialects.
//
// The table is built once at process start and never written afterwards. Every lookup is keyed by
// (source dialect, target dialect, directive name); a directive with no entry is unsupported.
package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/internal/util"
)

// Category groups target directives for migration steps.
type Category string

const (
	CategoryForwarding    Category = "forwarding"
	CategoryCache         Category = "cache policy"
	CategoryLogging       Category = "logging"
	CategoryHosts         Category = "static host records"
	CategoryZones         Category = "authoritative zone files"
	CategoryRewrite       Category = "rewrite and local override rules"
	CategoryHealth        Category = "health and readiness"
	CategoryListen        Category = "listen addresses"
	CategoryAccessControl Category = "access control"
	CategoryDNSSEC        Category = "dnssec"
	CategoryLoadBalance   Category = "load balancing"
	CategoryMetrics       Category = "metrics"
	CategoryOperations    Category = "operations"
)

// Transform maps the params of one source directive in the named zone to the params of zero or more target
// directive instances. It also returns the names of the source directive's options it could not carry over. It must
// not modify params.
type Transform func(zone string, params []ast.Param) ([][]ast.Param, []string, error)

// Entry describes how one source directive translates.
type Entry struct {
	Source string
	// Target is the target directive name, empty when the target dialect has no equivalent.
	Target    string
	Transform Transform
	// Automated entries are applied by the planner, the rest become manual steps.
	Automated bool
	Category  Category
	// Coalesce folds every instance emitted in a zone into a single target directive.
	Coalesce bool
	// Single target directives may appear only once in a scope.
	Single bool
	Note   string
}

// Apply runs the transform and returns the target directives together with the names of the dropped options.
func (e Entry) Apply(zone string, params []ast.Param) ([]ast.Directive, []string, error) {
	if e.Transform == nil || e.Target == "" {
		return nil, nil, nil
	}
	instances, dropped, err := e.Transform(zone, params)
	if err != nil {
		return nil, nil, err
	}
	out := make([]ast.Directive, 0, len(instances))
	for _, p := range instances {
		if len(p) == 0 {
			p = nil
		}
		out = append(out, ast.Directive{Name: e.Target, Params: p})
	}
	return out, dropped, nil
}

type pair struct {
	source, target string
}

var table = make(map[pair]map[string]Entry)

func register(source, target string, entries ...Entry) {
	p := pair{source, target}
	if table[p] == nil {
		table[p] = make(map[string]Entry, len(entries))
	}
	for _, e := range entries {
		if _, ok := table[p][e.Source]; ok {
			panic(fmt.Sprintf("mapping %s -> %s: duplicate entry for %s", source, target, e.Source))
		}
		table[p][e.Source] = e
	}
}

// Lookup returns the entry for a directive of the source dialect translated to the target dialect.
func Lookup(source, target, directive string) (Entry, bool) {
	entries, ok := table[pair{strings.ToLower(source), strings.ToLower(target)}]
	if !ok {
		return Entry{}, false
	}
	e, ok := entries[directive]
	return e, ok
}

// Supports reports whether the table has any entries from source to target.
func Supports(source, target string) bool {
	_, ok := table[pair{strings.ToLower(source), strings.ToLower(target)}]
	return ok
}

// Entries lists the entries from source to target sorted by source directive.
func Entries(source, target string) []Entry {
	entries := table[pair{strings.ToLower(source), strings.ToLower(target)}]
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Merge folds the params of another instance of a coalescing directive into dst. Plain values are appended after
// the existing values and block entries are appended to the existing block.
func Merge(dst *ast.Directive, params []ast.Param) {
	var vals []ast.Param
	var block []ast.Directive
	hasBlock := false
	for _, p := range params {
		if p.IsBlock() {
			hasBlock = true
			for _, d := range p.Block {
				block = append(block, d.Clone())
			}
			continue
		}
		vals = append(vals, p)
	}

	blockAt := -1
	for i, p := range dst.Params {
		if p.IsBlock() {
			blockAt = i
			break
		}
	}
	if blockAt < 0 {
		dst.Params = append(dst.Params, vals...)
		if hasBlock {
			dst.Params = append(dst.Params, ast.Block(block...))
		}
		return
	}
	merged := make([]ast.Param, 0, len(dst.Params)+len(vals))
	merged = append(merged, dst.Params[:blockAt]...)
	merged = append(merged, vals...)
	merged = append(merged, dst.Params[blockAt:]...)
	merged[blockAt+len(vals)].Block = append(merged[blockAt+len(vals)].Block, block...)
	dst.Params = merged
}

// UnsupportedDirective is a source directive with no entry in the table. It is reported as a plan warning and never
// aborts a migration.
type UnsupportedDirective struct {
	Directive string
	Zone      string
	Source    string
	Target    string
}

func (e *UnsupportedDirective) Error() string {
	return fmt.Sprintf("%s directive %q in zone %s has no known %s equivalent and was not migrated", e.Source, e.Directive, e.Zone, e.Target)
}

func values(vs ...string) [][]ast.Param {
	return [][]ast.Param{ast.Values(vs...)}
}

// constant emits fixed values. Options in the source block have no counterpart and are reported.
func constant(vs ...string) Transform {
	return func(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
		return values(vs...), unknownOptions(ast.Directive{Params: params}.Body()), nil
	}
}

// unknownOptions returns the names of the block options not listed in known, in order and without repeats.
func unknownOptions(body []ast.Directive, known ...string) []string {
	var out []string
	for _, opt := range body {
		if util.Contains(known, opt.Name) || util.Contains(out, opt.Name) {
			continue
		}
		out = append(out, opt.Name)
	}
	return out
}
