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

package safeblacklist

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContains(t *testing.T) {
	b := New()
	assert.True(t, b.Empty())
	assert.False(t, b.Contains(net.ParseIP("10.1.2.3")))

	require.NoError(t, b.AddEntry("10.0.0.0/8"))
	require.NoError(t, b.AddEntry("192.0.2.7"))
	assert.False(t, b.Empty())

	assert.True(t, b.Contains(net.ParseIP("10.1.2.3")))
	assert.True(t, b.Contains(net.ParseIP("192.0.2.7")))
	assert.False(t, b.Contains(net.ParseIP("192.0.2.8")))
	assert.False(t, b.Contains(net.ParseIP("2001:db8::1")))
	assert.False(t, b.Contains(nil))

	assert.Error(t, b.AddEntry("not-an-ip"))
	assert.Error(t, b.AddEntry("2001:db8::1"))
}

func TestParseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.txt")
	require.NoError(t, os.WriteFile(path, []byte("172.16.0.0/12\n"), 0o644))
	b := New()
	require.NoError(t, b.ParseFromFile(path))
	assert.True(t, b.Contains(net.ParseIP("172.20.0.1")))
	assert.False(t, b.Contains(net.ParseIP("8.8.8.8")))

	assert.Error(t, New().ParseFromFile(filepath.Join(t.TempDir(), "missing.txt")))
}
