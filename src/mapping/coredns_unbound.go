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

const (
	defaultCacheTTL    = "3600"
	defaultTrustAnchor = "/var/lib/unbound/root.key"
	tlsPort            = "853"
	dnsPort            = "53"
)

func init() {
	register(corefile.Name, unbound.Name,
		Entry{Source: "forward", Target: "forward-zone", Transform: forwardToZone, Automated: true, Category: CategoryForwarding,
			Note: "each forward becomes a forward-zone with one forward-addr per upstream"},
		Entry{Source: "cache", Target: "cache-max-ttl", Transform: cacheToMaxTTL, Automated: true, Single: true, Category: CategoryCache,
			Note: "CoreDNS caps TTLs per plugin, unbound globally; cache sizes are not carried over"},
		Entry{Source: "log", Target: "log-queries", Transform: constant("yes"), Automated: true, Single: true, Category: CategoryLogging,
			Note: "query logging"},
		Entry{Source: "errors", Target: "log-servfail", Transform: constant("yes"), Automated: true, Single: true, Category: CategoryLogging,
			Note: "only SERVFAIL answers are logged by unbound"},
		Entry{Source: "hosts", Target: "local-data", Transform: hostsToLocalData, Automated: true, Category: CategoryHosts,
			Note: "inline hosts entries become local-data records"},
		Entry{Source: "file", Target: "auth-zone", Transform: fileToAuthZone, Automated: true, Category: CategoryZones,
			Note: "zone files are compatible; check the path is readable by unbound"},
		Entry{Source: "loop", Target: "harden-glue", Transform: constant("yes"), Automated: true, Single: true, Category: CategoryForwarding,
			Note: "unbound prevents loops through its harden-* options"},
		Entry{Source: "dnssec", Target: "auto-trust-anchor-file", Transform: constant(defaultTrustAnchor), Automated: true, Single: true, Category: CategoryDNSSEC,
			Note: "validation is built in; point the trust anchor at a maintained root key"},
		Entry{Source: "bind", Target: "interface", Transform: bindToInterface, Automated: true, Category: CategoryListen,
			Note: "one interface per bound address"},
		Entry{Source: "acl", Target: "access-control", Transform: aclToAccessControl, Automated: true, Category: CategoryAccessControl,
			Note: "allow maps to allow, block to refuse, drop to deny"},
		Entry{Source: "loadbalance", Target: "rrset-roundrobin", Transform: constant("yes"), Automated: true, Single: true, Category: CategoryLoadBalance,
			Note: "round-robin answer ordering"},
		Entry{Source: "health", Category: CategoryHealth,
			Note: "no equivalent; use an external health check such as unbound-control status"},
		Entry{Source: "ready", Category: CategoryHealth,
			Note: "no equivalent; use an external readiness check"},
		Entry{Source: "reload", Category: CategoryOperations,
			Note: "use unbound-control reload instead"},
		Entry{Source: "prometheus", Target: "extended-statistics", Category: CategoryMetrics,
			Note: "enable extended-statistics and run an unbound exporter"},
		Entry{Source: "rewrite", Target: "local-zone", Category: CategoryRewrite,
			Note: "unbound has limited rewrite support; express rules as local-zone and local-data"},
		Entry{Source: "template", Target: "local-data", Category: CategoryRewrite,
			Note: "templated answers must be written out as local-data records"},
	)
}

// zoneName returns the first zone of a server block key without its scheme.
func zoneName(zone string) string {
	fields := strings.Fields(zone)
	if len(fields) == 0 {
		return "."
	}
	name := fields[0]
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	if name == "" {
		return "."
	}
	return name
}

func forwardToZone(zone string, params []ast.Param) ([][]ast.Param, []string, error) {
	d := ast.Directive{Name: "forward", Params: params}
	args := d.Args()
	if len(args) < 2 {
		return nil, nil, errors.New("forward needs a zone and at least one upstream")
	}
	from := args[0]
	if from == "." {
		from = zoneName(zone)
	}
	serverName := ""
	forceTCP := false
	for _, opt := range d.Body() {
		switch opt.Name {
		case "tls_servername":
			if len(opt.Args()) == 1 {
				serverName = opt.Args()[0]
			}
		case "force_tcp":
			forceTCP = true
		}
	}

	body := []ast.Directive{{Name: "name", Params: ast.Values(from)}}
	useTLS := false
	for _, to := range args[1:] {
		addr, tls, err := unboundAddr(to, serverName)
		if err != nil {
			return nil, nil, err
		}
		useTLS = useTLS || tls
		body = append(body, ast.Directive{Name: "forward-addr", Params: ast.Values(addr)})
	}
	if useTLS {
		body = append(body, ast.Directive{Name: "forward-tls-upstream", Params: ast.Values("yes")})
	}
	if forceTCP {
		body = append(body, ast.Directive{Name: "forward-tcp-upstream", Params: ast.Values("yes")})
	}
	return [][]ast.Param{{ast.Block(body...)}}, unknownOptions(d.Body(), "tls_servername", "force_tcp"), nil
}

// unboundAddr converts a CoreDNS upstream ([scheme://]host[:port]) to unbound's host[@port][#tls-name].
func unboundAddr(to, serverName string) (string, bool, error) {
	if strings.HasPrefix(to, "/") {
		return "", false, errors.Errorf("upstream %q is a resolv.conf file; list its nameservers explicitly", to)
	}
	tls := false
	switch {
	case strings.HasPrefix(to, "tls://"):
		tls = true
		to = strings.TrimPrefix(to, "tls://")
	case strings.HasPrefix(to, "dns://"):
		to = strings.TrimPrefix(to, "dns://")
	case strings.Contains(to, "://"):
		return "", false, errors.Errorf("upstream %q uses a transport unbound cannot forward over", to)
	}
	host, port := to, ""
	if h, p, err := net.SplitHostPort(to); err == nil {
		host, port = h, p
	}
	if net.ParseIP(host) == nil {
		return "", false, errors.Errorf("upstream %q is not an IP address", to)
	}
	if tls && port == "" {
		port = tlsPort
	}
	addr := host
	if port != "" && (tls || port != dnsPort) {
		addr += "@" + port
	}
	if tls && serverName != "" {
		addr += "#" + serverName
	}
	return addr, tls, nil
}

// cacheToMaxTTL keeps the TTL cap of "cache [TTL] [ZONES...]". Zone lists and cache tuning options are reported.
func cacheToMaxTTL(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	d := ast.Directive{Params: params}
	ttl := defaultCacheTTL
	args := d.Args()
	if len(args) > 0 {
		if _, err := strconv.ParseUint(args[0], 10, 32); err != nil {
			return nil, nil, errors.Errorf("cache TTL %q is not a number of seconds", args[0])
		}
		ttl = args[0]
	}
	var dropped []string
	if len(args) > 1 {
		dropped = append(dropped, "zones")
	}
	return values(ttl), append(dropped, unknownOptions(d.Body())...), nil
}

var hostsOptions = map[string]struct{}{
	"fallthrough": {},
	"ttl":         {},
	"reload":      {},
	"no_reverse":  {},
}

// hostsToLocalData turns inline hosts entries into local-data records. A hosts file given next to inline entries is
// not read and is reported, like every plugin option.
func hostsToLocalData(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	d := ast.Directive{Params: params}
	var out [][]ast.Param
	var dropped []string
	for _, entry := range d.Body() {
		if _, ok := hostsOptions[entry.Name]; ok {
			if !util.Contains(dropped, entry.Name) {
				dropped = append(dropped, entry.Name)
			}
			continue
		}
		ip := net.ParseIP(entry.Name)
		if ip == nil {
			return nil, nil, errors.Errorf("hosts entry %q does not start with an IP address", entry.Name)
		}
		rtype := "A"
		if ip.To4() == nil {
			rtype = "AAAA"
		}
		for _, name := range entry.Args() {
			out = append(out, ast.Values(strings.TrimSuffix(name, ".")+". "+rtype+" "+entry.Name))
		}
	}
	args := d.Args()
	if len(out) == 0 {
		file := "/etc/hosts"
		if len(args) > 0 {
			file = args[0]
		}
		return nil, nil, errors.Errorf("hosts file %s must be converted to local-data records by hand", file)
	}
	if len(args) > 1 {
		dropped = append([]string{"zones"}, dropped...)
	}
	if len(args) > 0 {
		dropped = append([]string{"file"}, dropped...)
	}
	return out, dropped, nil
}

func fileToAuthZone(zone string, params []ast.Param) ([][]ast.Param, []string, error) {
	d := ast.Directive{Params: params}
	args := d.Args()
	if len(args) == 0 {
		return nil, nil, errors.New("file needs a zone file path")
	}
	zones := args[1:]
	if len(zones) == 0 {
		zones = []string{zoneName(zone)}
	}
	out := make([][]ast.Param, 0, len(zones))
	for _, z := range zones {
		out = append(out, []ast.Param{ast.Block(
			ast.Directive{Name: "name", Params: ast.Values(z)},
			ast.Directive{Name: "zonefile", Params: ast.Values(args[0])},
		)})
	}
	return out, unknownOptions(d.Body()), nil
}

func bindToInterface(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	args := ast.Directive{Params: params}.Args()
	out := make([][]ast.Param, 0, len(args))
	var dropped []string
	for _, a := range args {
		if a == "except" {
			dropped = append(dropped, "except")
			break
		}
		out = append(out, ast.Values(a))
	}
	if len(out) == 0 {
		return nil, nil, errors.New("bind needs at least one address")
	}
	return out, dropped, nil
}

var aclActions = map[string]string{
	"allow":  "allow",
	"block":  "refuse",
	"filter": "refuse",
	"drop":   "deny",
}

// aclToAccessControl expands "ACTION [type QTYPE...] [net SOURCE...]" rules. Unbound cannot filter on query type,
// so a type list is reported and the rule applies to every type.
func aclToAccessControl(_ string, params []ast.Param) ([][]ast.Param, []string, error) {
	var out [][]ast.Param
	var dropped []string
	for _, rule := range (ast.Directive{Params: params}).Body() {
		action, ok := aclActions[rule.Name]
		if !ok {
			return nil, nil, errors.Errorf("acl rule %q is not supported", rule.Name)
		}
		args := rule.Args()
		var nets []string
		for i := 0; i < len(args); i++ {
			if args[i] == "type" && !util.Contains(dropped, "type") {
				dropped = append(dropped, "type")
			}
			if args[i] == "net" {
				nets = append(nets, args[i+1:]...)
				break
			}
		}
		if len(nets) == 0 {
			nets = []string{"0.0.0.0/0", "::/0"}
		}
		for _, n := range nets {
			out = append(out, ast.Values(n, action))
		}
	}
	return out, dropped, nil
}
