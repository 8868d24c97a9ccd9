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

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// supportedTypes are the record types the engine accepts in a Query.
var supportedTypes = map[string]uint16{
	"A":     dns.TypeA,
	"AAAA":  dns.TypeAAAA,
	"CNAME": dns.TypeCNAME,
	"MX":    dns.TypeMX,
	"NS":    dns.TypeNS,
	"TXT":   dns.TypeTXT,
	"SOA":   dns.TypeSOA,
	"PTR":   dns.TypePTR,
	"SRV":   dns.TypeSRV,
}

// SupportedTypes returns the accepted record type strings in a fixed order.
func SupportedTypes() []string {
	return []string{"A", "AAAA", "CNAME", "MX", "NS", "TXT", "SOA", "PTR", "SRV"}
}

// ParseType returns the wire type for a record type string.
func ParseType(s string) (uint16, error) {
	t, ok := supportedTypes[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, &ValidationError{Field: "type", Value: s, Reason: fmt.Sprintf("must be one of %s", strings.Join(SupportedTypes(), ", "))}
	}
	return t, nil
}

// Query is a single name/type pair sent to both resolvers.
type Query struct {
	Name string `json:"name" groups:"short,normal,long"`
	Type string `json:"type" groups:"short,normal,long"`
}

// NewQuery validates the name and type and returns a canonical Query.
func NewQuery(name, qtype string) (Query, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Query{}, &ValidationError{Field: "name", Value: name, Reason: "must not be empty"}
	}
	if qtype == "" {
		qtype = "A"
	}
	if _, err := ParseType(qtype); err != nil {
		return Query{}, err
	}
	return Query{Name: strings.ToLower(strings.TrimSuffix(name, ".")), Type: strings.ToUpper(qtype)}, nil
}

func (q Query) String() string {
	return q.Name + "/" + q.Type
}

// Record is one resource record from an answer section.
type Record struct {
	Name string `json:"name" groups:"short,normal,long"`
	Type string `json:"type" groups:"short,normal,long"`
	TTL  uint32 `json:"ttl" groups:"normal,long"`
	Data string `json:"data" groups:"short,normal,long"`
}

// RecordKey is the identity of a record for comparison purposes. TTL is never part of it.
type RecordKey struct {
	Name string
	Type string
	Data string
}

// Key returns the comparison identity of the record.
func (r Record) Key() RecordKey {
	return RecordKey{Name: r.Name, Type: r.Type, Data: r.Data}
}

func (r Record) String() string {
	return fmt.Sprintf("%s %d %s %s", r.Name, r.TTL, r.Type, r.Data)
}

// NewRecord builds a normalised Record. Owner names are lowercased without the trailing dot, rdata is trimmed and
// name-valued rdata is canonicalised the same way as owner names.
func NewRecord(name, rtype string, ttl uint32, data string) Record {
	rtype = strings.ToUpper(strings.TrimSpace(rtype))
	return Record{
		Name: normalizeName(name),
		Type: rtype,
		TTL:  ttl,
		Data: normalizeData(rtype, data),
	}
}

// RecordFromRR converts a miekg/dns RR into a normalised Record.
func RecordFromRR(rr dns.RR) Record {
	hdr := rr.Header()
	rdata := strings.TrimPrefix(rr.String(), hdr.String())
	return NewRecord(hdr.Name, dns.TypeToString[hdr.Rrtype], hdr.Ttl, rdata)
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "." {
		return name
	}
	return strings.TrimSuffix(name, ".")
}

func normalizeData(rtype, data string) string {
	data = strings.Join(strings.Fields(data), " ")
	switch rtype {
	case "CNAME", "NS", "PTR":
		return normalizeName(data)
	case "MX":
		// preference target
		fields := strings.Fields(data)
		if len(fields) == 2 {
			return fields[0] + " " + normalizeName(fields[1])
		}
	case "SRV":
		// priority weight port target
		fields := strings.Fields(data)
		if len(fields) == 4 {
			return strings.Join(fields[:3], " ") + " " + normalizeName(fields[3])
		}
	}
	return data
}

// Response is one resolver's answer to a Query. It is owned by a single comparison and never persisted.
type Response struct {
	Rcode     Status        `json:"rcode" groups:"short,normal,long"`
	Records   []Record      `json:"records" groups:"normal,long"`
	QueryTime time.Duration `json:"query_time" groups:"long"`
	Protocol  string        `json:"protocol,omitempty" groups:"long"`
	Resolver  string        `json:"resolver,omitempty" groups:"long"`
	// Error carries the transport failure detail when Rcode is ERROR.
	Error string `json:"error,omitempty" groups:"short,normal,long"`
}

// ResponseFromMsg builds a Response from the answer section of a DNS message.
func ResponseFromMsg(m *dns.Msg) *Response {
	res := &Response{
		Rcode:   TranslateDNSErrorCode(m.Rcode),
		Records: make([]Record, 0, len(m.Answer)),
	}
	for _, rr := range m.Answer {
		res.Records = append(res.Records, RecordFromRR(rr))
	}
	return res
}

// ErrorResponse is the Response recorded for a query that failed at the transport level.
func ErrorResponse(err error, elapsed time.Duration) *Response {
	res := &Response{Rcode: StatusError, Records: []Record{}, QueryTime: elapsed}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
