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

package mapping

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dnsscience/dnsmigrate/src/ast"
	"github.com/dnsscience/dnsmigrate/src/dialect/corefile"
	"github.com/dnsscience/dnsmigrate/src/dialect/unbound"
	"github.com/dnsscience/dnsmigrate/src/internal/util"
)

func init() {
	register(unbound.Name, corefile.Name,
		Entry{Source: "forward-zone", Target: "forward", Transform: zoneToForward("forward-addr"), Automated: true, Single: true, Category: CategoryForwarding,
			Note: "forward-zone blocks become forward plugins"},
		Entry{Source: "stub-zone", Target: "forward", Transform: zoneToForward("stub-addr"), Automated: true, Single: true, Category: CategoryForwarding,
			Note: "stub zones are forwarded; CoreDNS does not iterate from stub servers"},
		Entry{Source: "cache-max-ttl", Target: "cache", Transform: maxTTLToCache, Automated: true, Single: true, Category: CategoryCache,
			Note: "maximum TTL becomes the cache plugin TTL"},
		Entry{Source: "msg-cache-size", Target: "cache", Category: CategoryCache,
			Note: "CoreDNS sizes its cache in entries, not bytes; pick a capacity by hand"},
		Entry{Source: "rrset-cache-size", Target: "cache", Category: CategoryCache,
			Note: "CoreDNS sizes its cache in entries, not bytes; pick a capacity by hand"},
		Entry{Source: "log-queries", Target: "log", Transform: whenYes, Automated: true, Single: true, Category: CategoryLogging,
			Note: "query logging"},
		Entry{Source: "log-servfail", Target: "errors", Transform: whenYes, Automated: true, Single: true, Category: CategoryLogging,
			Note: "errors logs every failed query, not only SERVFAIL"},
		Entry{Source: "verbosity", Target: "log", Category: CategoryLogging,
			Note: "CoreDNS has no verbosity levels; choose log classes by hand"},
		Entry{Source: "local-data", Target: "hosts", Transform: localDataToHosts, Automated: true, Category: CategoryHosts, Coalesce: true,
			Note: "A and AAAA local-data records are collected into one hosts block"},
		Entry{Source: "local-zone", Target: "rewrite", Category: CategoryRewrite,
			Note: "local-zone types have no direct equivalent; use rewrite, template or file"},
		Entry{Source: "private-address", Target: "rewrite", Category: CategoryRewrite,
			Note: "private address filtering needs a rewrite or acl rule"},
		Entry{Source: "auth-zone", Target: "file", Transform: authZoneToFile, Automated: true, Category: CategoryZones,
			Note: "auth-zone zone files are served with the file plugin"},
		Entry{Source: "access-control", Target: "acl", Transform: accessControlToACL, Automated: true, Category: CategoryAccessControl, Coalesce: true,
			Note: "access-control lines are collected into one acl block"},
		Entry{Source: "interface", Target: "bind", Transform: interfaceToBind, Automated: true, Category: CategoryListen, Coalesce: true,
			Note: "interfaces are collected into one bind directive"},
		Entry{Source: "rrset-roundrobin", Target: "loadbalance", Transform: whenYes, Automated: true, Single: true, Category: CategoryLoadBalance,
			Note: "round-robin answer ordering"},
		Entry{Source: "auto-trust-anchor-file", Target: "dnssec", Transform: constant(), Automated: true, Single: true, Category: CategoryDNSSEC,
			Note: "CoreDNS does not validate upstream answers; dnssec signs local zones"},
		Entry{Source: "remote-control", Category: CategoryOperations,
			Note: "no equivalent; CoreDNS reloads with the reload plugin"},
	)
}

// whenYes emits the target without params for "yes" and nothing for "no".
func whenYes(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	args := ast.Directive{Params: params}.Args()
	if len(args) != 1 {
		return nil, nil, errors.New("expected yes or no")
	}
	switch strings.ToLower(args[0]) {
	case "yes":
		return [][]ast.Param{nil}, nil, nil
	case "no":
		return nil, nil, nil
	}
	return nil, nil, errors.Errorf("expected yes or no, found %q", args[0])
}

func isYes(args []string) bool {
	return len(args) == 1 && strings.ToLower(args[0]) == "yes"
}

// zoneToForward turns a forward-zone or stub-zone clause into a forward plugin. Clause options with no forward
// counterpart, such as forward-first or forward-no-cache, are reported.
func zoneToForward(addrOption string) Transform {
	return func(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
		body := ast.Directive{Params: params}.Body()
		name := ""
		tls, tcp := false, false
		var addrs []string
		var dropped []string
		for _, opt := range body {
			args := opt.Args()
			switch {
			case opt.Name == "name" && len(args) == 1:
				name = args[0]
			case opt.Name == addrOption && len(args) == 1:
				addrs = append(addrs, args[0])
			case opt.Name == "forward-tls-upstream" || opt.Name == "stub-tls-upstream":
				tls = isYes(args)
			case opt.Name == "forward-tcp-upstream" || opt.Name == "stub-tcp-upstream":
				tcp = isYes(args)
			case strings.HasSuffix(opt.Name, "-host"):
				return nil, nil, errors.Errorf("%s %v must be resolved to an address by hand", opt.Name, args)
			default:
				if !util.Contains(dropped, opt.Name) {
					dropped = append(dropped, opt.Name)
				}
			}
		}
		if name == "" {
			return nil, nil, errors.New("zone has no name")
		}
		if len(addrs) == 0 {
			return nil, nil, errors.Errorf("zone %s has no %s", name, addrOption)
		}
		out := []ast.Param{ast.Value(name)}
		serverName := ""
		for _, a := range addrs {
			to, sni, err := coreDNSAddr(a, tls)
			if err != nil {
				return nil, nil, err
			}
			if sni != "" {
				serverName = sni
			}
			out = append(out, ast.Value(to))
		}
		var opts []ast.Directive
		if serverName != "" {
			opts = append(opts, ast.Directive{Name: "tls_servername", Params: ast.Values(serverName)})
		}
		if tcp && !tls {
			opts = append(opts, ast.Directive{Name: "force_tcp"})
		}
		if len(opts) > 0 {
			out = append(out, ast.Block(opts...))
		}
		return [][]ast.Param{out}, dropped, nil
	}
}

// coreDNSAddr converts unbound's host[@port][#tls-name] to a CoreDNS upstream and its TLS server name.
func coreDNSAddr(addr string, tls bool) (string, string, error) {
	sni := ""
	if i := strings.Index(addr, "#"); i >= 0 {
		addr, sni = addr[:i], addr[i+1:]
	}
	host, port := addr, ""
	if i := strings.Index(addr, "@"); i >= 0 {
		host, port = addr[:i], addr[i+1:]
	}
	if net.ParseIP(host) == nil {
		return "", "", errors.Errorf("upstream %q is not an IP address", addr)
	}
	if tls {
		if port != "" && port != tlsPort {
			host = net.JoinHostPort(host, port)
		}
		return "tls://" + host, sni, nil
	}
	if port != "" && port != dnsPort {
		host = net.JoinHostPort(host, port)
	}
	return host, "", nil
}

func maxTTLToCache(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	args := ast.Directive{Params: params}.Args()
	if len(args) != 1 {
		return nil, nil, errors.New("cache-max-ttl needs one value")
	}
	if _, err := strconv.ParseUint(args[0], 10, 32); err != nil {
		return nil, nil, errors.Errorf("cache-max-ttl %q is not a number of seconds", args[0])
	}
	return values(args[0]), nil, nil
}

func localDataToHosts(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	args := ast.Directive{Params: params}.Args()
	if len(args) != 1 {
		return nil, nil, errors.New("local-data needs one quoted record")
	}
	fields := strings.Fields(args[0])
	// name [ttl] [class] type rdata
	if len(fields) < 3 {
		return nil, nil, errors.Errorf("local-data %q is not a resource record", args[0])
	}
	name, rest := fields[0], fields[1:]
	var dropped []string
	if _, err := strconv.ParseUint(rest[0], 10, 32); err == nil && len(rest) > 2 {
		// hosts answers with its own TTL, one hour by default
		if rest[0] != defaultCacheTTL {
			dropped = append(dropped, "ttl")
		}
		rest = rest[1:]
	}
	if strings.EqualFold(rest[0], "IN") && len(rest) > 2 {
		rest = rest[1:]
	}
	rtype := strings.ToUpper(rest[0])
	if (rtype != "A" && rtype != "AAAA") || len(rest) != 2 {
		return nil, nil, errors.Errorf("local-data %q: only A and AAAA records fit the hosts plugin", args[0])
	}
	if net.ParseIP(rest[1]) == nil {
		return nil, nil, errors.Errorf("local-data %q: %q is not an IP address", args[0], rest[1])
	}
	entry := ast.Directive{Name: rest[1], Params: ast.Values(strings.TrimSuffix(name, "."))}
	return [][]ast.Param{{ast.Block(entry)}}, dropped, nil
}

// authZoneToFile serves the zone file of an auth-zone. Transfer and upstream options stay behind and are reported.
func authZoneToFile(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	body := (ast.Directive{Params: params}).Body()
	name, file := "", ""
	for _, opt := range body {
		args := opt.Args()
		if len(args) != 1 {
			continue
		}
		switch opt.Name {
		case "name":
			name = args[0]
		case "zonefile":
			file = args[0]
		}
	}
	if name == "" {
		return nil, nil, errors.New("auth-zone has no name")
	}
	if file == "" {
		return nil, nil, errors.Errorf("auth-zone %s has no zonefile; zone transfers must be configured with the secondary plugin", name)
	}
	return values(file, name), unknownOptions(body, "name", "zonefile"), nil
}

var accessActions = map[string]string{
	"allow":            "allow",
	"allow_setrd":      "allow",
	"allow_snoop":      "allow",
	"refuse":           "block",
	"refuse_non_local": "block",
	"deny":             "drop",
	"deny_non_local":   "drop",
}

func accessControlToACL(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	args := ast.Directive{Params: params}.Args()
	if len(args) != 2 {
		return nil, nil, errors.New("access-control needs a netblock and an action")
	}
	action, ok := accessActions[strings.ToLower(args[1])]
	if !ok {
		return nil, nil, errors.Errorf("access-control action %q has no acl equivalent", args[1])
	}
	if _, _, err := net.ParseCIDR(args[0]); err != nil {
		return nil, nil, errors.Errorf("access-control netblock %q is not a CIDR", args[0])
	}
	rule := ast.Directive{Name: action, Params: ast.Values("net", args[0])}
	return [][]ast.Param{{ast.Block(rule)}}, nil, nil
}

func interfaceToBind(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	args := ast.Directive{Params: params}.Args()
	if len(args) != 1 {
		return nil, nil, errors.New("interface needs one address")
	}
	addr := args[0]
	var dropped []string
	if i := strings.Index(addr, "@"); i >= 0 {
		addr = addr[:i]
		dropped = append(dropped, "port")
	}
	return values(addr), dropped, nil
}
