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

package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleConfig() *Config {
	return &Config{Zones: []Zone{
		{Name: ".", Listen: "53", Directives: []Directive{
			{Name: "errors"},
			{Name: "forward", Params: []Param{Value("."), Value("8.8.8.8"), Block(Directive{Name: "max_fails", Params: Values("3")})}},
		}},
		{Name: "example.org example.net", Listen: "1053", Directives: []Directive{{Name: "log"}}},
	}}
}

func TestZoneString(t *testing.T) {
	c := sampleConfig()
	require.Equal(t, ".:53", c.Zones[0].String())
	require.Equal(t, "example.org:1053 example.net:1053", c.Zones[1].String())
	require.Equal(t, "server", Zone{Name: "server"}.String())
}

func TestValidate(t *testing.T) {
	c := sampleConfig()
	require.NoError(t, c.Validate())

	// same zone on another port is a different zone
	c.Zones = append(c.Zones, Zone{Name: ".", Listen: "5353"})
	require.NoError(t, c.Validate())

	c.Zones = append(c.Zones, Zone{Name: ".", Listen: "53"})
	require.Error(t, c.Validate())

	bad := &Config{Zones: []Zone{{Name: ".", Directives: []Directive{{Name: "forward", Params: []Param{Block(Directive{})}}}}}}
	require.Error(t, bad.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	c := sampleConfig()
	cp := c.Clone()
	require.True(t, Equal(c, cp))

	cp.Zones[0].Directives[1].Params[2].Block[0].Params[0].Value = "5"
	require.False(t, Equal(c, cp))
	require.Equal(t, "3", c.Zones[0].Directives[1].Params[2].Block[0].Params[0].Value)
}

func TestEqualDistinguishesBlockFromValue(t *testing.T) {
	a := &Config{Zones: []Zone{{Name: ".", Directives: []Directive{{Name: "hosts", Params: []Param{Block()}}}}}}
	b := &Config{Zones: []Zone{{Name: ".", Directives: []Directive{{Name: "hosts", Params: []Param{Value("")}}}}}}
	require.False(t, Equal(a, b))
	require.True(t, a.Zones[0].Directives[0].Params[0].IsBlock())
}

func TestDirectiveAccessors(t *testing.T) {
	d := sampleConfig().Zones[0].Directives[1]
	require.Equal(t, []string{".", "8.8.8.8"}, d.Args())
	require.True(t, d.HasBlock())
	require.Len(t, d.Body(), 1)
	require.Nil(t, Directive{Name: "log"}.Body())
}

func TestIncludes(t *testing.T) {
	c := sampleConfig()
	c.Includes = []Directive{{Name: "import", Params: Values("common/*.conf")}}
	require.NoError(t, c.Validate())

	cp := c.Clone()
	require.True(t, Equal(c, cp))
	cp.Includes[0].Params[0].Value = "other/*.conf"
	require.False(t, Equal(c, cp))
	require.Equal(t, "common/*.conf", c.Includes[0].Params[0].Value)

	require.False(t, Equal(c, sampleConfig()))
	require.Nil(t, sampleConfig().Clone().Includes)

	c.Includes = append(c.Includes, Directive{})
	require.Error(t, c.Validate())
}
