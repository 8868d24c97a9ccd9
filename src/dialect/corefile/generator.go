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

package corefile

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/dialect"
)

const indent = "    "

// Generate renders a Config as a Corefile. Server blocks are separated by one blank line and nested blocks are
// indented four spaces per level.
func (Corefile) Generate(c *ast.Config) (string, error) {
	var sb strings.Builder
	for _, inc := range c.Includes {
		if inc.Name != importDirective || inc.HasBlock() || len(inc.Params) == 0 {
			return "", errors.Errorf("only import PATTERN can appear outside a server block, found %q", inc.Name)
		}
		if err := writeDirectives(&sb, []ast.Directive{inc}, 0); err != nil {
			return "", err
		}
	}
	if len(c.Includes) > 0 && len(c.Zones) > 0 {
		sb.WriteString("\n")
	}
	for i, z := range c.Zones {
		if strings.TrimSpace(z.Name) == "" && z.Listen == "" {
			return "", errors.Errorf("zone %d has neither a name nor a listen port", i)
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(blockHeader(z))
		sb.WriteString(" {\n")
		if err := writeDirectives(&sb, z.Directives, 1); err != nil {
			return "", errors.Wrapf(err, "server block %s", z.String())
		}
		sb.WriteString("}\n")
	}
	return sb.String(), nil
}

// blockHeader renders the server block keys. A first key the parser would read as a snippet definition or a
// top-level import is quoted.
func blockHeader(z ast.Zone) string {
	keys := strings.Fields(z.String())
	if len(keys) == 0 {
		return ""
	}
	if _, snippet := snippetName(dialect.Token{Text: keys[0]}); snippet || keys[0] == importDirective {
		keys[0] = dialect.QuoteAlways(keys[0])
	}
	return strings.Join(keys, " ")
}

func writeDirectives(sb *strings.Builder, ds []ast.Directive, depth int) error {
	pad := strings.Repeat(indent, depth)
	for _, d := range ds {
		sb.WriteString(pad)
		sb.WriteString(dialect.Quote(d.Name))
		for i, p := range d.Params {
			if !p.IsBlock() {
				sb.WriteString(" ")
				sb.WriteString(dialect.Quote(p.Value))
				continue
			}
			if i != len(d.Params)-1 {
				return errors.Errorf("directive %q: a block must be its last parameter", d.Name)
			}
			sb.WriteString(" {\n")
			if err := writeDirectives(sb, p.Block, depth+1); err != nil {
				return errors.Wrapf(err, "in %q", d.Name)
			}
			sb.WriteString(pad)
			sb.WriteString("}")
		}
		sb.WriteString("\n")
	}
	return nil
}
