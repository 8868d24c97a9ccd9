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

package dialect

import (
	"strings"
	"unicode"
)

// Token is one whitespace-delimited word of configuration text.
type Token struct {
	Text   string
	Line   int
	Column int
	Quoted bool
}

// Lex splits text into tokens. A '#' at the start of a word starts a comment that runs to the end of the line. A token that
// begins with '"' runs to the matching unescaped '"' and may contain whitespace; the quotes are removed and \" and \\
// are unescaped. Line and column numbers start at 1.
func Lex(dialectName, text string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		col++
		switch {
		case r == '\n':
			line++
			col = 0
		case unicode.IsSpace(r):
		case r == '#':
			for i+1 < len(runes) && runes[i+1] != '\n' {
				i++
			}
		case r == '"':
			startLine, startCol := line, col
			var sb strings.Builder
			closed := false
			for i+1 < len(runes) {
				i++
				col++
				c := runes[i]
				if c == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					i++
					col++
					sb.WriteRune(runes[i])
					continue
				}
				if c == '"' {
					closed = true
					break
				}
				if c == '\n' {
					line++
					col = 0
				}
				sb.WriteRune(c)
			}
			if !closed {
				return nil, &SyntaxError{Dialect: dialectName, Line: startLine, Column: startCol, Expected: "closing quote"}
			}
			tokens = append(tokens, Token{Text: sb.String(), Line: startLine, Column: startCol, Quoted: true})
		default:
			startCol := col
			start := i
			for i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				i++
				col++
			}
			tokens = append(tokens, Token{Text: string(runes[start : i+1]), Line: line, Column: startCol})
		}
	}
	return tokens, nil
}

// Quote returns s quoted if it would not survive Lex as a single bare token, or would be read back as a brace.
func Quote(s string) string {
	if s != "" && s != "{" && s != "}" && !strings.ContainsAny(s, " \t\r\n") && s[0] != '"' && s[0] != '#' {
		return s
	}
	return QuoteAlways(s)
}

// QuoteAlways returns s in double quotes with '"' and '\\' escaped.
func QuoteAlways(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
