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

// Package unbound parses and generates unbound.conf files.
//
// Unbound has a single global scope, so a parsed file is one Zone named "." whose Listen is the server clause's
// port. include: and include-toplevel: lines before the first clause are kept in Config.Includes. Options of server:
// clauses are plain Directives in file order. Every other clause (forward-zone:, auth-zone:, remote-control:, ...) is
// a Directive named after the clause with one block Param holding its options.
package unbound

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/dialect"
)

// Name is the dialect identifier.
const Name = "unbound"

// RootZone is the name of the single zone an unbound.conf parses into.
const RootZone = "."

const (
	serverClause = "server"
	portOption   = "port"
	indent       = "    "
)

var knownClauses = map[string]struct{}{
	"server":         {},
	"forward-zone":   {},
	"stub-zone":      {},
	"auth-zone":      {},
	"view":           {},
	"remote-control": {},
	"python":         {},
	"dynlib":         {},
	"cachedb":        {},
	"rpz":            {},
	"dnstap":         {},
	"dnscrypt":       {},
}

// options allowed before the first clause
var includeOptions = map[string]struct{}{
	"include":          {},
	"include-toplevel": {},
}

// options whose first value is always written quoted, as unbound's own documentation does
var quotedOptions = map[string]struct{}{
	"name":             {},
	"local-data":       {},
	"local-data-ptr":   {},
	"local-zone":       {},
	"include":          {},
	"include-toplevel": {},
}

// IsClause reports whether name is an unbound clause header.
func IsClause(name string) bool {
	_, ok := knownClauses[name]
	return ok
}

type Unbound struct{}

func init() {
	dialect.Register(Unbound{})
}

func (Unbound) Name() string {
	return Name
}

// Parse turns unbound.conf text into a Config.
func (Unbound) Parse(text string) (*ast.Config, error) {
	tokens, err := dialect.Lex(Name, text)
	if err != nil {
		return nil, err
	}
	c := &ast.Config{Zones: []ast.Zone{}}
	var zone *ast.Zone
	// index of the clause directive receiving options, -1 for the server clause
	clause := -1
	inClause := false

	for _, line := range splitLines(tokens) {
		head := line[0]
		if head.Quoted {
			return nil, syntaxErr(head, "option name")
		}
		if len(line) == 1 && strings.HasSuffix(head.Text, ":") && IsClause(strings.TrimSuffix(head.Text, ":")) {
			name := strings.TrimSuffix(head.Text, ":")
			if zone == nil {
				c.Zones = append(c.Zones, ast.Zone{Name: RootZone, Directives: []ast.Directive{}})
				zone = &c.Zones[0]
			}
			inClause = true
			if name == serverClause {
				clause = -1
				continue
			}
			zone.Directives = append(zone.Directives, ast.Directive{Name: name, Params: []ast.Param{ast.Block()}})
			clause = len(zone.Directives) - 1
			continue
		}
		key, params, err := parseOption(line)
		if err != nil {
			return nil, err
		}
		d := ast.Directive{Name: key, Params: params}
		if !inClause {
			if _, ok := includeOptions[key]; ok {
				c.Includes = append(c.Includes, d)
				continue
			}
			return nil, syntaxErr(head, "clause header such as server:")
		}
		if clause < 0 {
			if key == portOption && len(params) == 1 {
				zone.Listen = params[0].Value
				continue
			}
			zone.Directives = append(zone.Directives, d)
			continue
		}
		blk := &zone.Directives[clause].Params[0]
		blk.Block = append(blk.Block, d)
	}
	return c, nil
}

func syntaxErr(tok dialect.Token, expected string) error {
	return &dialect.SyntaxError{Dialect: Name, Line: tok.Line, Column: tok.Column, Expected: expected, Found: tok.Text}
}

// splitLines groups tokens by the line they start on.
func splitLines(tokens []dialect.Token) [][]dialect.Token {
	var lines [][]dialect.Token
	for i, tok := range tokens {
		if i == 0 || tok.Line != tokens[i-1].Line {
			lines = append(lines, []dialect.Token{tok})
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], tok)
	}
	return lines
}

// parseOption reads "key: value ..." where the value may be glued to the colon.
func parseOption(line []dialect.Token) (string, []ast.Param, error) {
	head := line[0]
	i := strings.Index(head.Text, ":")
	if i <= 0 {
		return "", nil, syntaxErr(head, "key: value")
	}
	key := head.Text[:i]
	var params []ast.Param
	if rest := head.Text[i+1:]; rest != "" {
		if len(rest) >= 2 && rest[0] == '"' && rest[len(rest)-1] == '"' {
			rest = rest[1 : len(rest)-1]
		}
		params = append(params, ast.Value(rest))
	}
	for _, tok := range line[1:] {
		params = append(params, ast.Value(tok.Text))
	}
	return key, params, nil
}

// Generate renders a Config as unbound.conf text. Plain directives are written under server: and every directive
// with a block param becomes its own clause; a new server: header is opened whenever plain directives follow a clause
// so that file order is kept.
func (Unbound) Generate(c *ast.Config) (string, error) {
	var sb strings.Builder
	for _, inc := range c.Includes {
		if _, ok := includeOptions[inc.Name]; !ok || inc.HasBlock() || len(inc.Params) != 1 {
			return "", errors.Errorf("only include: and include-toplevel: can appear outside a clause, found %q", inc.Name)
		}
		writeLine(&sb, "", inc.Name, inc.Params)
	}
	for _, z := range c.Zones {
		inServer := false
		openServer := func() {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(serverClause + ":\n")
			inServer = true
		}
		if z.Listen != "" {
			openServer()
			writeOption(&sb, portOption, ast.Values(z.Listen))
		}
		for _, d := range z.Directives {
			if !d.HasBlock() {
				if len(d.Params) == 0 && IsClause(d.Name) {
					return "", errors.Errorf("option %q would be read back as a clause header", d.Name)
				}
				if !inServer {
					openServer()
				}
				writeOption(&sb, d.Name, d.Params)
				continue
			}
			if !IsClause(d.Name) || d.Name == serverClause {
				return "", errors.Errorf("%q is not an unbound clause", d.Name)
			}
			if len(d.Params) != 1 {
				return "", errors.Errorf("clause %q cannot carry inline parameters", d.Name)
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(d.Name + ":\n")
			for _, opt := range d.Params[0].Block {
				if opt.HasBlock() {
					return "", errors.Errorf("clause %q: option %q cannot contain a nested block", d.Name, opt.Name)
				}
				writeOption(&sb, opt.Name, opt.Params)
			}
			inServer = false
		}
	}
	return sb.String(), nil
}

func writeOption(sb *strings.Builder, key string, params []ast.Param) {
	writeLine(sb, indent, key, params)
}

func writeLine(sb *strings.Builder, pad, key string, params []ast.Param) {
	sb.WriteString(pad)
	sb.WriteString(key)
	sb.WriteString(":")
	_, alwaysQuote := quotedOptions[key]
	for i, p := range params {
		sb.WriteString(" ")
		if i == 0 && alwaysQuote {
			sb.WriteString(dialect.QuoteAlways(p.Value))
			continue
		}
		sb.WriteString(dialect.Quote(p.Value))
	}
	sb.WriteString("\n")
}
