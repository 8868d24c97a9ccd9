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

// Package ast holds the resolver-agnostic configuration tree shared by every dialect.
//
// A Config is produced once per parse and treated as immutable afterwards. Code that needs a modified tree builds a
// new one (see Clone) rather than editing the input.
package ast

import (
	"strings"

	"github.com/pkg/errors"
)

// Config is a parsed resolver configuration.
type Config struct {
	// Includes are the file inclusions written outside any zone, such as a Corefile's top-level import or unbound's
	// include:, in source order. The included files are not read.
	Includes []Directive `json:"includes,omitempty"`
	Zones    []Zone      `json:"zones"`
}

// Zone is a server block: the names it serves, where it listens, and its directives in source order.
type Zone struct {
	Name       string      `json:"name"`
	Listen     string      `json:"listen,omitempty"`
	Directives []Directive `json:"directives"`
}

// Directive is a named instruction with ordered parameters.
type Directive struct {
	Name   string  `json:"name"`
	Params []Param `json:"params,omitempty"`
}

// Param is either a plain string value or a nested block of directives. Block is non-nil exactly when the param is a
// block, an empty block being a non-nil empty slice.
type Param struct {
	Value string      `json:"value,omitempty"`
	Block []Directive `json:"block,omitempty"`
}

// Value returns a plain string parameter.
func Value(v string) Param {
	return Param{Value: v}
}

// Values returns plain string parameters in order.
func Values(vs ...string) []Param {
	params := make([]Param, 0, len(vs))
	for _, v := range vs {
		params = append(params, Param{Value: v})
	}
	return params
}

// Block returns a block parameter holding the given directives.
func Block(ds ...Directive) Param {
	if ds == nil {
		ds = []Directive{}
	}
	return Param{Block: ds}
}

// IsBlock reports whether the param is a nested block.
func (p Param) IsBlock() bool {
	return p.Block != nil
}

// Args returns the plain values of the directive, skipping blocks.
func (d Directive) Args() []string {
	args := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		if !p.IsBlock() {
			args = append(args, p.Value)
		}
	}
	return args
}

// Body returns the directives of the first block param, or nil if there is none.
func (d Directive) Body() []Directive {
	for _, p := range d.Params {
		if p.IsBlock() {
			return p.Block
		}
	}
	return nil
}

// HasBlock reports whether any param is a block.
func (d Directive) HasBlock() bool {
	for _, p := range d.Params {
		if p.IsBlock() {
			return true
		}
	}
	return false
}

// Key is the identity of a zone within a Config.
func (z Zone) Key() string {
	if z.Listen == "" {
		return z.Name
	}
	return z.Name + " @" + z.Listen
}

func (z Zone) String() string {
	if z.Listen == "" {
		return z.Name
	}
	return strings.Join(strings.Fields(z.Name), ":"+z.Listen+" ") + ":" + z.Listen
}

// Validate checks the structure of the tree: zone keys are unique and every directive has a name.
func (c *Config) Validate() error {
	if err := validateDirectives(c.Includes); err != nil {
		return errors.Wrap(err, "includes")
	}
	seen := make(map[string]struct{}, len(c.Zones))
	for _, z := range c.Zones {
		if _, ok := seen[z.Key()]; ok {
			return errors.Errorf("duplicate zone %q", z.String())
		}
		seen[z.Key()] = struct{}{}
		if err := validateDirectives(z.Directives); err != nil {
			return errors.Wrapf(err, "zone %q", z.String())
		}
	}
	return nil
}

func validateDirectives(ds []Directive) error {
	for _, d := range ds {
		if d.Name == "" {
			return errors.New("directive with empty name")
		}
		for _, p := range d.Params {
			if p.IsBlock() {
				if err := validateDirectives(p.Block); err != nil {
					return errors.Wrapf(err, "in block of %q", d.Name)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	out := &Config{Includes: cloneDirectives(c.Includes), Zones: make([]Zone, 0, len(c.Zones))}
	for _, z := range c.Zones {
		out.Zones = append(out.Zones, Zone{Name: z.Name, Listen: z.Listen, Directives: cloneDirectives(z.Directives)})
	}
	return out
}

func cloneDirectives(ds []Directive) []Directive {
	if ds == nil {
		return nil
	}
	out := make([]Directive, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Clone())
	}
	return out
}

// Clone returns a deep copy of the Directive.
func (d Directive) Clone() Directive {
	out := Directive{Name: d.Name}
	if d.Params != nil {
		out.Params = make([]Param, 0, len(d.Params))
		for _, p := range d.Params {
			if p.IsBlock() {
				blk := cloneDirectives(p.Block)
				if blk == nil {
					blk = []Directive{}
				}
				out.Params = append(out.Params, Param{Block: blk})
			} else {
				out.Params = append(out.Params, Param{Value: p.Value})
			}
		}
	}
	return out
}

// Equal reports whether two configs are structurally equal.
func Equal(a, b *Config) bool {
	if len(a.Zones) != len(b.Zones) || !equalDirectives(a.Includes, b.Includes) {
		return false
	}
	for i := range a.Zones {
		za, zb := a.Zones[i], b.Zones[i]
		if za.Name != zb.Name || za.Listen != zb.Listen || !equalDirectives(za.Directives, zb.Directives) {
			return false
		}
	}
	return true
}

// Equal reports whether two directives are structurally equal.
func (d Directive) Equal(o Directive) bool {
	return equalDirectives([]Directive{d}, []Directive{o})
}

func equalDirectives(a, b []Directive) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || len(a[i].Params) != len(b[i].Params) {
			return false
		}
		for j := range a[i].Params {
			pa, pb := a[i].Params[j], b[i].Params[j]
			if pa.IsBlock() != pb.IsBlock() {
				return false
			}
			if pa.IsBlock() {
				if !equalDirectives(pa.Block, pb.Block) {
					return false
				}
			} else if pa.Value != pb.Value {
				return false
			}
		}
	}
	return true
}
