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

// Package corefile parses and generates CoreDNS Corefiles.
//
// A server block becomes a Zone whose Name is its zone keys without ports and whose Listen is the shared port. Each
// plugin line becomes a Directive; a trailing "{ ... }" becomes a block Param. Snippets are expanded where they are
// imported and are not kept in the tree. An import outside any server block names other files and is kept verbatim
// in Config.Includes.
package corefile

import (
	"strconv"
	"strings"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/dialect"
)

// Name is the dialect identifier.
const Name = "coredns"

const importDirective = "import"

type Corefile struct{}

func init() {
	dialect.Register(Corefile{})
}

func (Corefile) Name() string {
	return Name
}

type parser struct {
	tokens   []dialect.Token
	pos      int
	snippets map[string][]ast.Directive
}

// Parse turns Corefile text into a Config.
func (Corefile) Parse(text string) (*ast.Config, error) {
	tokens, err := dialect.Lex(Name, text)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, snippets: make(map[string][]ast.Directive)}
	return p.parseFile()
}

func (p *parser) peek() (dialect.Token, bool) {
	if p.pos >= len(p.tokens) {
		return dialect.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() dialect.Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func isOpen(tok dialect.Token) bool {
	return !tok.Quoted && tok.Text == "{"
}

func isClose(tok dialect.Token) bool {
	return !tok.Quoted && tok.Text == "}"
}

// eofError reports a premature end of input just after the last token.
func (p *parser) eofError(expected string) error {
	if len(p.tokens) == 0 {
		return &dialect.SyntaxError{Dialect: Name, Line: 1, Column: 1, Expected: expected}
	}
	last := p.tokens[len(p.tokens)-1]
	return &dialect.SyntaxError{Dialect: Name, Line: last.Line, Column: last.Column + len(last.Text), Expected: expected, Found: "end of input"}
}

func unexpected(tok dialect.Token, expected string) error {
	return &dialect.SyntaxError{Dialect: Name, Line: tok.Line, Column: tok.Column, Expected: expected, Found: tok.Text}
}

func (p *parser) parseFile() (*ast.Config, error) {
	c := &ast.Config{Zones: []ast.Zone{}}
	seen := make(map[string]struct{})
	for {
		tok, ok := p.peek()
		if !ok {
			return c, nil
		}
		if isClose(tok) || isOpen(tok) {
			return nil, unexpected(tok, "server block key")
		}
		if p.atTopLevelImport() {
			d, err := p.parseDirective()
			if err != nil {
				return nil, err
			}
			c.Includes = append(c.Includes, *d)
			continue
		}
		if name, isSnippet := snippetName(tok); isSnippet {
			if err := p.parseSnippet(name); err != nil {
				return nil, err
			}
			continue
		}
		first := tok
		z, err := p.parseServerBlock()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[z.Key()]; dup {
			return nil, unexpected(first, "unique server block key")
		}
		seen[z.Key()] = struct{}{}
		c.Zones = append(c.Zones, *z)
	}
}

// atTopLevelImport reports whether the current line is "import PATTERN..." rather than a server block header.
func (p *parser) atTopLevelImport() bool {
	head := p.tokens[p.pos]
	if head.Quoted || head.Text != importDirective {
		return false
	}
	args := 0
	for _, tok := range p.tokens[p.pos+1:] {
		if tok.Line != head.Line {
			break
		}
		if isOpen(tok) {
			return false
		}
		args++
	}
	return args > 0
}

func snippetName(tok dialect.Token) (string, bool) {
	if tok.Quoted || len(tok.Text) < 3 || !strings.HasPrefix(tok.Text, "(") || !strings.HasSuffix(tok.Text, ")") {
		return "", false
	}
	return tok.Text[1 : len(tok.Text)-1], true
}

func (p *parser) parseSnippet(name string) error {
	head := p.next()
	tok, ok := p.peek()
	if !ok {
		return p.eofError("{")
	}
	if !isOpen(tok) || tok.Line != head.Line {
		return unexpected(tok, "{")
	}
	p.next()
	body, err := p.parseBody()
	if err != nil {
		return err
	}
	p.snippets[name] = body
	return nil
}

// parseServerBlock reads the keys on one line, the opening brace at the end of that line and the body.
func (p *parser) parseServerBlock() (*ast.Zone, error) {
	var keys []dialect.Token
	line := p.tokens[p.pos].Line
	for {
		tok, ok := p.peek()
		if !ok {
			return nil, p.eofError("{")
		}
		if tok.Line != line {
			return nil, unexpected(tok, "{ at end of line "+strconv.Itoa(line))
		}
		if isOpen(tok) {
			p.next()
			break
		}
		if isClose(tok) {
			return nil, unexpected(tok, "{")
		}
		keys = append(keys, p.next())
	}
	if len(keys) == 0 {
		return nil, unexpected(p.tokens[p.pos-1], "server block key")
	}
	z := zoneFromKeys(keys)
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	z.Directives = body
	return z, nil
}

func zoneFromKeys(keys []dialect.Token) *ast.Zone {
	zones := make([]string, 0, len(keys))
	raw := make([]string, 0, len(keys))
	port := ""
	samePort := true
	for i, k := range keys {
		zone, kport := splitKey(k.Text)
		if i == 0 {
			port = kport
		} else if kport != port {
			samePort = false
		}
		zones = append(zones, zone)
		raw = append(raw, k.Text)
	}
	if !samePort {
		return &ast.Zone{Name: strings.Join(raw, " "), Directives: []ast.Directive{}}
	}
	return &ast.Zone{Name: strings.Join(zones, " "), Listen: port, Directives: []ast.Directive{}}
}

// splitKey separates "[scheme://]zone[:port]" into the zone part and the port.
func splitKey(key string) (zone, port string) {
	i := strings.LastIndex(key, ":")
	if i < 0 || i == len(key)-1 {
		return key, ""
	}
	candidate := key[i+1:]
	for _, r := range candidate {
		if r < '0' || r > '9' {
			return key, ""
		}
	}
	return key[:i], candidate
}

// parseBody reads directives until the matching closing brace, which it consumes.
func (p *parser) parseBody() ([]ast.Directive, error) {
	body := []ast.Directive{}
	for {
		tok, ok := p.peek()
		if !ok {
			return nil, p.eofError("}")
		}
		if isClose(tok) {
			p.next()
			return body, nil
		}
		if isOpen(tok) {
			return nil, unexpected(tok, "directive name")
		}
		d, err := p.parseDirective()
		if err != nil {
			return nil, err
		}
		if d.Name == importDirective && !d.HasBlock() && len(d.Params) == 1 {
			if snippet, found := p.snippets[d.Params[0].Value]; found {
				for _, sd := range snippet {
					body = append(body, sd.Clone())
				}
				continue
			}
		}
		body = append(body, *d)
	}
}

func (p *parser) parseDirective() (*ast.Directive, error) {
	nameTok := p.next()
	d := &ast.Directive{Name: nameTok.Text}
	for {
		tok, ok := p.peek()
		if !ok || tok.Line != nameTok.Line || isClose(tok) {
			return d, nil
		}
		if isOpen(tok) {
			p.next()
			block, err := p.parseBody()
			if err != nil {
				return nil, err
			}
			d.Params = append(d.Params, ast.Block(block...))
			return d, nil
		}
		d.Params = append(d.Params, ast.Value(p.next().Text))
	}
}
