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
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/model"
)

const (
	DefaultTimeout = 5 * time.Second // hard deadline for a single attempt
	DefaultRetries = 1

	udpBufferSize = 1232
)

// Exchanger sends one DNS message to an address. *dns.Client implements it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Lookuper answers a Query. Transport failures are folded into a Response with Rcode ERROR rather than returned.
type Lookuper interface {
	Lookup(ctx context.Context, q model.Query) *model.Response
	String() string
}

// ResolverConfig holds the options used to create a Resolver.
type ResolverConfig struct {
	Endpoint Endpoint
	Timeout  time.Duration
	// Retries is the number of extra attempts after a transport failure. Valid DNS error responses are never retried.
	Retries   int
	Recursive bool

	// UDPClient and TCPClient replace the wire clients, for tests.
	UDPClient Exchanger
	TCPClient Exchanger
}

// NewResolverConfig creates a ResolverConfig for the endpoint with default values.
func NewResolverConfig(endpoint Endpoint) *ResolverConfig {
	return &ResolverConfig{
		Endpoint:  endpoint,
		Timeout:   DefaultTimeout,
		Retries:   DefaultRetries,
		Recursive: true,
	}
}

// Validate checks the config before any query is sent.
func (rc *ResolverConfig) Validate() error {
	if rc.Endpoint.Host == "" {
		return &model.ValidationError{Field: "endpoint", Value: rc.Endpoint.String(), Reason: "host must be set"}
	}
	if rc.Endpoint.Transport != UDP && rc.Endpoint.Transport != TCP {
		return &model.ValidationError{Field: "transport", Value: rc.Endpoint.Transport, Reason: "must be udp or tcp"}
	}
	if rc.Timeout <= 0 {
		return &model.ValidationError{Field: "timeout", Value: rc.Timeout, Reason: "must be positive"}
	}
	if rc.Retries < 0 {
		return &model.ValidationError{Field: "retries", Value: rc.Retries, Reason: "must not be negative"}
	}
	return nil
}

// Resolver queries a single endpoint. It is safe for concurrent use.
type Resolver struct {
	endpoint  Endpoint
	timeout   time.Duration
	retries   int
	recursive bool

	udpClient Exchanger
	tcpClient Exchanger
}

// InitResolver creates a Resolver from a validated config.
func InitResolver(config *ResolverConfig) (*Resolver, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid resolver config")
	}
	r := &Resolver{
		endpoint:  config.Endpoint,
		timeout:   config.Timeout,
		retries:   config.Retries,
		recursive: config.Recursive,
		udpClient: config.UDPClient,
		tcpClient: config.TCPClient,
	}
	if r.udpClient == nil {
		r.udpClient = &dns.Client{Net: "udp", Timeout: r.timeout, UDPSize: udpBufferSize}
	}
	if r.tcpClient == nil {
		r.tcpClient = &dns.Client{Net: "tcp", Timeout: r.timeout}
	}
	return r, nil
}

func (r *Resolver) String() string {
	return r.endpoint.String()
}

// Lookup sends q to the endpoint, retrying transport failures up to the retry budget. Every attempt has its own hard
// deadline so a hung upstream never blocks the caller for longer than (retries+1) * timeout.
func (r *Resolver) Lookup(ctx context.Context, q model.Query) *model.Response {
	start := time.Now()
	qtype, err := model.ParseType(q.Type)
	if err != nil {
		return r.errorResponse(err, start)
	}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(q.Name), qtype)
	m.RecursionDesired = r.recursive
	m.SetEdns0(udpBufferSize, false)

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if util.HasCtxExpired(ctx) {
			lastErr = &TransportError{Endpoint: r.endpoint.String(), Query: q, Err: ctx.Err(), Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded)}
			break
		}
		attemptStart := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		reply, protocol, err := r.exchange(attemptCtx, m)
		cancel()
		if err == nil {
			res := model.ResponseFromMsg(reply)
			res.QueryTime = time.Since(attemptStart)
			res.Protocol = protocol
			res.Resolver = r.endpoint.String()
			return res
		}
		lastErr = &TransportError{Endpoint: r.endpoint.String(), Query: q, Err: err, Timeout: isTimeout(err)}
		log.Debugf("lookup of %s against %s failed (attempt %d of %d): %v", q, r.endpoint, attempt+1, r.retries+1, err)
	}
	return r.errorResponse(lastErr, start)
}

func (r *Resolver) errorResponse(err error, start time.Time) *model.Response {
	res := model.ErrorResponse(err, time.Since(start))
	res.Protocol = string(r.endpoint.Transport)
	res.Resolver = r.endpoint.String()
	return res
}

// exchange performs one attempt. A truncated UDP answer is re-asked over TCP within the same deadline.
func (r *Resolver) exchange(ctx context.Context, m *dns.Msg) (*dns.Msg, string, error) {
	if r.endpoint.Transport == TCP {
		reply, _, err := r.tcpClient.ExchangeContext(ctx, m, r.endpoint.Address())
		return checkReply(reply, err, string(TCP))
	}
	reply, _, err := r.udpClient.ExchangeContext(ctx, m, r.endpoint.Address())
	if reply != nil && reply.Truncated {
		log.Debugf("truncated answer from %s, retrying over tcp", r.endpoint)
		reply, _, err = r.tcpClient.ExchangeContext(ctx, m, r.endpoint.Address())
		return checkReply(reply, err, string(TCP))
	}
	return checkReply(reply, err, string(UDP))
}

func checkReply(reply *dns.Msg, err error, protocol string) (*dns.Msg, string, error) {
	if err != nil {
		return nil, protocol, err
	}
	if reply == nil {
		return nil, protocol, errors.New("empty reply")
	}
	return reply, protocol, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// TransportError is a query that got no usable answer: the endpoint was unreachable or did not answer in time.
type TransportError struct {
	Endpoint string
	Query    model.Query
	Err      error
	Timeout  bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: query %s to %s timed out: %v", model.StatusTimeout, e.Query, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("query %s to %s failed: %v", e.Query, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error for errors.Cause.
func (e *TransportError) Cause() error {
	return e.Err
}
