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

package shadow

import (
	"bufio"
	"context"
	"io"
	"net"
	"regexp"

	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/internal/safeblacklist"
	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/model"
)

// LogFormat names a resolver query log format.
type LogFormat string

const (
	// CoreDNSLog is the common format of the log plugin:
	//   [INFO] 10.0.0.5:47650 - 34711 "A IN example.org. udp 29 false 512" NOERROR qr,rd 45 0.0001s
	CoreDNSLog LogFormat = "coredns"
	// UnboundLog is what log-queries writes:
	//   [1700000000] unbound[1234:0] info: 10.0.0.5 example.org. A IN
	UnboundLog LogFormat = "unbound"
)

var (
	coreDNSLine = regexp.MustCompile(`(\S+) - \d+ "(\S+) IN (\S+) `)
	unboundLine = regexp.MustCompile(`info: (\S+) (\S+) (\S+) IN\s*$`)
)

// ParseLogLine extracts the client address and query from one log line. Lines that are not queries, or ask for a
// record type the comparator does not support, are rejected.
func ParseLogLine(format LogFormat, line string) (net.IP, model.Query, bool) {
	var client, name, qtype string
	switch format {
	case CoreDNSLog:
		m := coreDNSLine.FindStringSubmatch(line)
		if m == nil {
			return nil, model.Query{}, false
		}
		client, qtype, name = m[1], m[2], m[3]
		if host, _, err := util.SplitHostPort(client, 0); err == nil {
			client = host
		}
	case UnboundLog:
		m := unboundLine.FindStringSubmatch(line)
		if m == nil {
			return nil, model.Query{}, false
		}
		client, name, qtype = m[1], m[2], m[3]
	default:
		return nil, model.Query{}, false
	}
	q, err := model.NewQuery(name, qtype)
	if err != nil {
		return nil, model.Query{}, false
	}
	return net.ParseIP(client), q, true
}

// LogTap reads queries from a resolver's query log, such as a file or a pipe from tail -F.
type LogTap struct {
	Reader io.Reader
	Format LogFormat
	Name   string
	// Exclude drops queries from the listed client networks.
	Exclude *safeblacklist.SafeBlacklist
}

func (t *LogTap) Queries(ctx context.Context) <-chan model.Query {
	out := make(chan model.Query)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(t.Reader)
		for scanner.Scan() {
			client, q, ok := ParseLogLine(t.Format, scanner.Text())
			if !ok || (t.Exclude != nil && t.Exclude.Contains(client)) {
				continue
			}
			select {
			case out <- q:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warnf("reading %s query log %s: %v", t.Format, t.Name, err)
		}
	}()
	return out
}

func (t *LogTap) String() string {
	return string(t.Format) + " log " + t.Name
}
