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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/dnsscience/dnsmigrate/src/ast"
)

// Dialect is one resolver's configuration syntax. Parse never returns a partial Config; Generate is deterministic and
// never mutates its input.
type Dialect interface {
	Name() string
	Parse(text string) (*ast.Config, error)
	Generate(c *ast.Config) (string, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]Dialect)
)

// Register makes a dialect available by name. Dialect packages call this from init.
func Register(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	name := strings.ToLower(d.Name())
	if _, ok := dialects[name]; ok {
		panic(fmt.Sprintf("dialect %s registered twice", name))
	}
	dialects[name] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown dialect %q, available: %s", name, strings.Join(namesLocked(), ", "))
	}
	return d, nil
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SyntaxError is a malformed configuration, localised to a line and column (both 1-based).
type SyntaxError struct {
	Dialect  string
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("%s: syntax error at line %d, column %d: expected %s", e.Dialect, e.Line, e.Column, e.Expected)
	}
	return fmt.Sprintf("%s: syntax error at line %d, column %d: expected %s, found %q", e.Dialect, e.Line, e.Column, e.Expected, e.Found)
}
