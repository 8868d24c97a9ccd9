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

// Package migrate turns a configuration written for one resolver into the configuration of another, together with
// the steps an operator has to take and the warnings they have to read.
package migrate

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/dialect"
	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/mapping"
	"github.com/dnsscience/dnsmigrate/src/model"

	// the supported dialects register themselves
	_ "github.com/dnsscience/dnsmigrate/src/dialect/corefile"
	_ "github.com/dnsscience/dnsmigrate/src/dialect/unbound"
)

// targetZone is the single zone every generated configuration is built in.
const targetZone = "."

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Step is one numbered action of a migration.
type Step struct {
	Order       int    `json:"order" groups:"short,normal,long"`
	Description string `json:"description" groups:"short,normal,long"`
	// Automated steps are carried out by the generated configuration, the rest are left to the operator.
	Automated bool `json:"automated" groups:"short,normal,long"`
}

// Plan is the read-only result of translating one configuration.
type Plan struct {
	Source      string   `json:"source_dialect" groups:"short,normal,long"`
	Target      string   `json:"target_dialect" groups:"short,normal,long"`
	Steps       []Step   `json:"steps" groups:"short,normal,long"`
	Warnings    []string `json:"warnings" groups:"short,normal,long"`
	TargetText  string   `json:"target_text" groups:"normal,long"`
	Risk        Risk     `json:"estimated_risk" groups:"short,normal,long"`
	Unsupported []string `json:"unsupported,omitempty" groups:"long"`
	Manual      []string `json:"manual,omitempty" groups:"long"`
}

// NewPlan parses text written in the source dialect and translates it to the target dialect. A syntax error or a
// target configuration that cannot be rendered aborts the call; unsupported directives only produce warnings.
func NewPlan(text, source, target string) (*Plan, error) {
	src, _, err := dialects(source, target)
	if err != nil {
		return nil, err
	}
	cfg, err := src.Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s configuration", src.Name())
	}
	return PlanConfig(cfg, source, target)
}

// PlanConfig translates an already parsed configuration. cfg is not modified.
func PlanConfig(cfg *ast.Config, source, target string) (*Plan, error) {
	src, tgt, err := dialects(source, target)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s configuration", src.Name())
	}

	b := newBuilder(src.Name(), tgt.Name())
	b.automated("parse " + src.Name() + " configuration")
	b.listen(cfg)
	for _, inc := range cfg.Includes {
		b.include(inc)
	}
	for _, z := range cfg.Zones {
		for _, d := range z.Directives {
			b.translate(z, d)
		}
	}

	text, err := tgt.Generate(&ast.Config{Zones: []ast.Zone{*b.zone}})
	if err != nil {
		return nil, errors.Wrapf(err, "generating %s configuration", tgt.Name())
	}
	b.automated("generate " + tgt.Name() + " configuration")

	p := &Plan{
		Source:      src.Name(),
		Target:      tgt.Name(),
		Steps:       b.steps,
		Warnings:    b.warnings,
		TargetText:  text,
		Unsupported: b.unsupported,
		Manual:      b.manual,
	}
	p.Risk = EstimateRisk(len(p.Unsupported), len(p.Manual), len(p.Steps))
	log.Debugf("planned %s to %s migration: %d steps, %d warnings, %s risk", p.Source, p.Target, len(p.Steps), len(p.Warnings), p.Risk)
	return p, nil
}

func dialects(source, target string) (dialect.Dialect, dialect.Dialect, error) {
	if strings.EqualFold(source, target) {
		return nil, nil, &model.ValidationError{Field: "target", Value: target, Reason: "must differ from the source dialect"}
	}
	src, err := dialect.Get(source)
	if err != nil {
		return nil, nil, &model.ValidationError{Field: "source", Value: source, Reason: err.Error()}
	}
	tgt, err := dialect.Get(target)
	if err != nil {
		return nil, nil, &model.ValidationError{Field: "target", Value: target, Reason: err.Error()}
	}
	if !mapping.Supports(src.Name(), tgt.Name()) {
		return nil, nil, &model.ValidationError{Field: "target", Value: target,
			Reason: fmt.Sprintf("no translation from %s is known", src.Name())}
	}
	return src, tgt, nil
}

// EstimateRisk scores a plan: each unsupported directive weighs 2, each manual one 1.5 and a plan of more than ten
// steps one more.
func EstimateRisk(unsupported, manual, steps int) Risk {
	score := 2*float64(unsupported) + 1.5*float64(manual)
	if steps > 10 {
		score++
	}
	switch {
	case score >= 5:
		return RiskHigh
	case score >= 2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// builder accumulates a plan while the source zones are walked.
type builder struct {
	source, target string
	zone           *ast.Zone
	steps          []Step
	warnings       []string
	categories     map[mapping.Category]struct{}
	unsupported    []string
	manual         []string
}

func newBuilder(source, target string) *builder {
	return &builder{
		source:     source,
		target:     target,
		zone:       &ast.Zone{Name: targetZone, Directives: []ast.Directive{}},
		steps:      []Step{},
		warnings:   []string{},
		categories: make(map[mapping.Category]struct{}),
	}
}

func (b *builder) step(description string, automated bool) {
	b.steps = append(b.steps, Step{Order: len(b.steps) + 1, Description: description, Automated: automated})
}

func (b *builder) automated(description string) {
	b.step(description, true)
}

func (b *builder) warn(format string, args ...interface{}) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// listen takes the first listen port of the source. The generated configuration has a single scope, so any other
// port is lost.
func (b *builder) listen(cfg *ast.Config) {
	var ports []string
	for _, z := range cfg.Zones {
		if z.Listen != "" {
			ports = append(ports, z.Listen)
		}
	}
	ports = util.RemoveDuplicates(ports)
	if len(ports) == 0 {
		return
	}
	b.zone.Listen = ports[0]
	if len(ports) > 1 {
		b.warn("%s configuration listens on ports %s; the %s configuration only listens on %s",
			b.source, strings.Join(ports, ", "), b.target, ports[0])
	}
}

func (b *builder) translate(z ast.Zone, d ast.Directive) {
	e, ok := mapping.Lookup(b.source, b.target, d.Name)
	if !ok {
		err := &mapping.UnsupportedDirective{Directive: d.Name, Zone: z.String(), Source: b.source, Target: b.target}
		b.warn("%s", err.Error())
		if !util.Contains(b.unsupported, d.Name) {
			b.unsupported = append(b.unsupported, d.Name)
		}
		return
	}
	if !e.Automated {
		msg := fmt.Sprintf("%s directive %q in zone %s needs manual migration: %s", b.source, d.Name, z.String(), e.Note)
		if e.Target != "" {
			msg += fmt.Sprintf(" (closest %s option: %s)", b.target, e.Target)
		}
		b.warn("%s", msg)
		b.manualStep(d.Name, e.Note)
		return
	}
	out, dropped, err := e.Apply(z.Name, d.Params)
	if err != nil {
		b.warn("could not translate %s directive %q in zone %s: %v", b.source, d.Name, z.String(), err)
		b.manualStep(d.Name, err.Error())
		return
	}
	for _, opt := range util.RemoveDuplicates(dropped) {
		b.warn("%s directive %q in zone %s: option %s/%s has no %s equivalent and was dropped",
			b.source, d.Name, z.String(), d.Name, opt, b.target)
	}
	for _, td := range out {
		b.emit(z, d, e, td)
	}
	if len(out) > 0 {
		b.category(e.Category)
	}
}

// include reports a top-level include. The included files are never read, so their contents are not migrated.
func (b *builder) include(d ast.Directive) {
	line := strings.TrimSpace(d.Name + " " + strings.Join(d.Args(), " "))
	b.warn("%s configuration includes %q; included files are not read and were not migrated", b.source, line)
	b.manualStep(line, "translate the included files separately")
}

func (b *builder) manualStep(name, note string) {
	if util.Contains(b.manual, name) {
		return
	}
	b.manual = append(b.manual, name)
	b.step(fmt.Sprintf("manually migrate %q: %s", name, note), false)
}

func (b *builder) category(c mapping.Category) {
	if _, ok := b.categories[c]; ok {
		return
	}
	b.categories[c] = struct{}{}
	b.automated("configure " + string(c))
}

// emit adds a target directive. Coalescing directives are merged and repeats are skipped. A second, different
// instance of a single directive, or of a clause with the same name, is dropped with a warning and the first kept.
func (b *builder) emit(z ast.Zone, d ast.Directive, e mapping.Entry, td ast.Directive) {
	for i := range b.zone.Directives {
		existing := &b.zone.Directives[i]
		if existing.Name != td.Name {
			continue
		}
		if e.Coalesce {
			mapping.Merge(existing, td.Params)
			return
		}
		if existing.Equal(td) {
			return
		}
		if e.Single {
			b.warn("%s directive %q in zone %s conflicts with an earlier %s %s and was dropped",
				b.source, d.Name, z.String(), b.target, td.Name)
			return
		}
		if name := clauseName(td); name != "" && name == clauseName(*existing) {
			b.warn("%s directive %q in zone %s conflicts with an earlier %s %s for %q and was dropped",
				b.source, d.Name, z.String(), b.target, td.Name, name)
			return
		}
	}
	b.zone.Directives = append(b.zone.Directives, td)
}

// clauseName returns the value of the name option of a block directive such as forward-zone or auth-zone.
func clauseName(d ast.Directive) string {
	for _, opt := range d.Body() {
		if args := opt.Args(); opt.Name == "name" && len(args) == 1 {
			return args[0]
		}
	}
	return ""
}
