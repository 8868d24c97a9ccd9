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

package util

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const DefaultFilePermissions = 0644 // rw-r--r--

var domainRegex = regexp.MustCompile(`^(?i)[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9])?(\.[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9])?)*\.[a-z]{2,}$`)

// SplitHostPort splits an address into host and port, falling back to defaultPort when the address carries none.
// Bare IPv6 addresses are accepted with or without brackets. The host must be an IP address, a valid domain name or
// localhost.
func SplitHostPort(addr string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// might mean there's no port specified
		host = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
		portStr = ""
	}
	if host == "" {
		return "", 0, errors.Errorf("address %q has no host", addr)
	}
	if net.ParseIP(host) == nil && host != "localhost" && !IsStringValidDomainName(strings.TrimSuffix(host, ".")) {
		return "", 0, errors.Errorf("invalid host %q: not an IP address or domain name", host)
	}
	if portStr == "" {
		return host, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, errors.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// IsStringValidDomainName checks if the given string is a valid domain name: at most 253 characters, labels of at
// most 63 characters, and an alphabetic top-level label.
func IsStringValidDomainName(domain string) bool {
	if len(domain) > 253 {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) > 63 {
			return false
		}
	}
	return domainRegex.MatchString(domain)
}

// HasCtxExpired checks if the context has expired without blocking.
func HasCtxExpired(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Contains checks if a value is in a slice.
// Performance note: if you're going to be making multiple calls to Contains, it is much more performant to create a
// map of the slice to get O(1) lookups. This is for one-off lookups.
func Contains[T comparable](slice []T, entity T) bool {
	for _, v := range slice {
		if v == entity {
			return true
		}
	}
	return false
}

// RemoveDuplicates returns the distinct values of slice in first-seen order.
func RemoveDuplicates[T comparable](slice []T) []T {
	lookup := make(map[T]struct{}, len(slice)) // prealloc for performance
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := lookup[v]; !ok {
			lookup[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}
