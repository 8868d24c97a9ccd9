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
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/zmap/go-iptree/blacklist"
)

// SafeBlacklist is a set of IPv4 client networks, safe for concurrent use. IPv6 addresses are never contained.
type SafeBlacklist struct {
	mu      sync.RWMutex
	list    *blacklist.Blacklist
	entries int
}

func New() *SafeBlacklist {
	return &SafeBlacklist{list: blacklist.New()}
}

// AddEntry adds a CIDR network or a single address.
func (b *SafeBlacklist) AddEntry(cidr string) error {
	cidr = strings.TrimSpace(cidr)
	if !strings.Contains(cidr, "/") {
		ip := net.ParseIP(cidr)
		if ip == nil || ip.To4() == nil {
			return errors.Errorf("%q is not an IPv4 address or network", cidr)
		}
		cidr += "/32"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.list.AddEntry(cidr); err != nil {
		return errors.Wrapf(err, "adding %q", cidr)
	}
	b.entries++
	return nil
}

// ParseFromFile adds every network listed in a file, one per line.
func (b *SafeBlacklist) ParseFromFile(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.list.ParseFromFile(path); err != nil {
		return errors.Wrapf(err, "reading client networks from %s", path)
	}
	b.entries++
	return nil
}

// Empty reports whether nothing was ever added.
func (b *SafeBlacklist) Empty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.entries == 0
}

// Contains reports whether ip falls in any listed network.
func (b *SafeBlacklist) Contains(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil || b.Empty() {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	listed, err := b.list.IsBlacklisted(v4.String())
	return err == nil && listed
}
