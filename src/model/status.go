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
	"github.com/miekg/dns"
)

// Status is the rcode of a response as a string, plus ERROR for responses that never arrived.
type Status string

const (
	// Standard DNS rcodes
	StatusNoError  Status = "NOERROR"
	StatusFormErr  Status = "FORMERR"
	StatusServFail Status = "SERVFAIL"
	StatusNXDomain Status = "NXDOMAIN"
	StatusNotImp   Status = "NOTIMP"
	StatusRefused  Status = "REFUSED"
	StatusNotAuth  Status = "NOTAUTH"

	// Transport failures. TIMEOUT is only ever carried as detail; a Response whose
	// query failed at the transport level always has Rcode StatusError.
	StatusError   Status = "ERROR"
	StatusTimeout Status = "TIMEOUT"
)

// TranslateDNSErrorCode translates a DNS rcode from the DNS library to a Status
func TranslateDNSErrorCode(rcode int) Status {
	if s, ok := dns.RcodeToString[rcode]; ok {
		return Status(s)
	}
	return StatusError
}

// IsTransportFailure reports whether the status means no usable response was received.
func (s Status) IsTransportFailure() bool {
	return s == StatusError || s == StatusTimeout
}
