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
	"errors"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, s := range SupportedTypes() {
		_, err := ParseType(s)
		require.NoError(t, err, "type %s should be supported", s)
	}
	qt, err := ParseType("mx")
	require.NoError(t, err)
	require.Equal(t, dns.TypeMX, qt)

	_, err = ParseType("HINFO")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "type", verr.Field)
}

func TestNewQuery(t *testing.T) {
	q, err := NewQuery("Example.COM.", "")
	require.NoError(t, err)
	require.Equal(t, Query{Name: "example.com", Type: "A"}, q)

	_, err = NewQuery("  ", "A")
	require.Error(t, err)
	_, err = NewQuery("example.com", "BOGUS")
	require.Error(t, err)
}

func TestRecordFromRR(t *testing.T) {
	tests := []struct {
		rr       string
		expected Record
	}{
		{"Example.com. 300 IN A 192.0.2.1", Record{Name: "example.com", Type: "A", TTL: 300, Data: "192.0.2.1"}},
		{"www.example.com. 60 IN CNAME Target.Example.NET.", Record{Name: "www.example.com", Type: "CNAME", TTL: 60, Data: "target.example.net"}},
		{"example.com. 3600 IN MX 10 Mail.Example.com.", Record{Name: "example.com", Type: "MX", TTL: 3600, Data: "10 mail.example.com"}},
		{"_sip._tcp.example.com. 86400 IN SRV 0 5 5060 SIP.example.com.", Record{Name: "_sip._tcp.example.com", Type: "SRV", TTL: 86400, Data: "0 5 5060 sip.example.com"}},
		{"example.com. 300 IN TXT \"v=spf1 -all\"", Record{Name: "example.com", Type: "TXT", TTL: 300, Data: "\"v=spf1 -all\""}},
	}
	for _, test := range tests {
		t.Run(test.rr, func(t *testing.T) {
			rr, err := dns.NewRR(test.rr)
			require.NoError(t, err)
			assert.Equal(t, test.expected, RecordFromRR(rr))
		})
	}
}

func TestRecordKeyIgnoresTTL(t *testing.T) {
	a := NewRecord("example.com.", "a", 300, " 192.0.2.1 ")
	b := NewRecord("EXAMPLE.com", "A", 250, "192.0.2.1")
	require.Equal(t, a.Key(), b.Key())
	require.NotEqual(t, a.TTL, b.TTL)
}

func TestResponseFromMsg(t *testing.T) {
	m := new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeA)
	m.Rcode = dns.RcodeNameError
	res := ResponseFromMsg(m)
	require.Equal(t, StatusNXDomain, res.Rcode)
	require.Empty(t, res.Records)

	m.Rcode = dns.RcodeSuccess
	rr, err := dns.NewRR("example.com. 300 IN A 192.0.2.1")
	require.NoError(t, err)
	m.Answer = append(m.Answer, rr)
	res = ResponseFromMsg(m)
	require.Equal(t, StatusNoError, res.Rcode)
	require.Len(t, res.Records, 1)
}

func TestCheckUnitInterval(t *testing.T) {
	require.NoError(t, CheckUnitInterval("sample_rate", 0))
	require.NoError(t, CheckUnitInterval("sample_rate", 1))
	require.Error(t, CheckUnitInterval("sample_rate", 1.01))
	require.Error(t, CheckUnitInterval("sample_rate", -0.1))
}
