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

package lookup

import (
	"net"
	"strconv"
	"strings"

	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/model"
)

type Transport string

const (
	UDP Transport = "udp"
	TCP Transport = "tcp"
)

const DefaultPort = 53

// Endpoint is an addressable DNS service.
type Endpoint struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Transport Transport `json:"transport"`
}

// ParseEndpoint reads [udp://|tcp://]host[:port]. The port defaults to 53 and the transport to UDP.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	e := Endpoint{Transport: UDP}
	if i := strings.Index(s, "://"); i >= 0 {
		switch Transport(strings.ToLower(s[:i])) {
		case UDP:
		case TCP:
			e.Transport = TCP
		default:
			return Endpoint{}, &model.ValidationError{Field: "endpoint", Value: s, Reason: "transport must be udp or tcp"}
		}
		s = s[i+3:]
	}
	host, port, err := util.SplitHostPort(s, DefaultPort)
	if err != nil {
		return Endpoint{}, &model.ValidationError{Field: "endpoint", Value: s, Reason: err.Error()}
	}
	e.Host, e.Port = host, port
	return e, nil
}

// Address is the host:port form used to dial the endpoint.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return string(e.Transport) + "://" + e.Address()
}
