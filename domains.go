package agentgate

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"golang.org/x/net/idna"
)

// DomainRules holds the built-in outbound network rules.
type DomainRules struct {
	// AlwaysBlockedSuffixes lists hostname suffixes that can never be
	// reached, at any security level and regardless of overrides.
	AlwaysBlockedSuffixes []string

	// AlwaysBlockedHosts lists exact hostnames that can never be reached.
	AlwaysBlockedHosts []string

	// DefaultAllowed lists external API domains permitted by default at
	// allowlist-driven levels. Supports exact match and "*.domain.tld".
	DefaultAllowed []string
}

var (
	domainRulesOnce sync.Once
	domainRulesInst *DomainRules
)

// DefaultDomainRules returns the built-in domain rule table. The table is
// immutable and cached after first construction.
func DefaultDomainRules() *DomainRules {
	domainRulesOnce.Do(func() {
		domainRulesInst = &DomainRules{
			AlwaysBlockedSuffixes: []string{".internal", ".local", ".localdomain"},
			AlwaysBlockedHosts:    []string{"localhost", "metadata.google.internal"},
			DefaultAllowed: []string{
				"api.openai.com", "api.anthropic.com", "generativelanguage.googleapis.com",
				"api.github.com", "github.com", "*.githubusercontent.com",
				"pypi.org", "files.pythonhosted.org", "registry.npmjs.org",
				"proxy.golang.org", "crates.io", "static.crates.io",
				"en.wikipedia.org", "duckduckgo.com", "*.duckduckgo.com",
			},
		}
	})
	return domainRulesInst
}

// blockedIPNets contains the CIDR ranges that are unconditionally blocked
// outbound: loopback, link-local, multicast, RFC1918 private ranges, CGNAT,
// and IPv6 loopback/link-local/ULA. Reaching these would let the agent
// pivot to the host's own management interfaces.
var blockedIPNets []*net.IPNet

// cloudMetadataIP is the well-known cloud metadata service IP.
var cloudMetadataIP = net.ParseIP("169.254.169.254")

func init() {
	cidrs := []string{
		"0.0.0.0/8",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"224.0.0.0/4",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10",
		"::1/128",
		"fe80::/10",
		"ff00::/8",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("failed to parse CIDR %q: %v", cidr, err))
		}
		blockedIPNets = append(blockedIPNets, ipNet)
	}
}

// isBlockedIP reports whether ip falls in an unconditionally blocked range.
func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.Equal(cloudMetadataIP) {
		return true
	}
	for _, ipNet := range blockedIPNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// isAlwaysBlockedHost reports whether the normalized hostname hits an
// unconditional network block: a blocked IP literal, a blocked exact host,
// or a blocked suffix.
func (r *DomainRules) isAlwaysBlockedHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return isBlockedIP(ip)
	}
	for _, h := range r.AlwaysBlockedHosts {
		if host == h {
			return true
		}
	}
	for _, suffix := range r.AlwaysBlockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// isDefaultAllowedHost reports whether host matches the default allowed
// domain list.
func (r *DomainRules) isDefaultAllowedHost(host string) bool {
	for _, pattern := range r.DefaultAllowed {
		if matchesDomain(host, pattern) {
			return true
		}
	}
	return false
}

// normalizeHost lowercases a hostname, strips any port and trailing dot,
// and IDNA-maps unicode labels to their punycode form so homoglyph domains
// compare against rules in one canonical representation. IPv6 literals in
// brackets are unwrapped.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	host = strings.TrimSuffix(host, ".")
	host = strings.ToLower(host)
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	return host
}

// matchesDomain checks hostname against a domain pattern. Supports exact
// match and wildcard patterns; "*.example.com" matches sub.example.com but
// not example.com itself. Matching is case-insensitive.
func matchesDomain(hostname, pattern string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	pattern = strings.ToLower(strings.TrimSuffix(pattern, "."))

	if !strings.HasPrefix(pattern, "*.") {
		return hostname == pattern
	}

	suffix := pattern[1:] // ".example.com"
	return len(hostname) > len(suffix) && strings.HasSuffix(hostname, suffix)
}

// validateDomainPattern checks that a user-supplied domain pattern is
// well-formed: a bare domain or a single leading "*." wildcard, with no
// protocol, port, or path.
func validateDomainPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty domain pattern")
	}
	if strings.Contains(pattern, "://") {
		return fmt.Errorf("domain pattern %q must not contain protocol prefix", pattern)
	}
	if strings.Contains(pattern, "/") {
		return fmt.Errorf("domain pattern %q must not contain path", pattern)
	}
	if strings.Contains(pattern, ":") {
		return fmt.Errorf("domain pattern %q must not contain port", pattern)
	}
	p := strings.TrimSuffix(pattern, ".")
	if strings.HasPrefix(p, "*.") {
		if strings.Contains(p[2:], "*") {
			return fmt.Errorf("domain pattern %q: only one leading wildcard is allowed", pattern)
		}
		if !strings.Contains(p[2:], ".") {
			return fmt.Errorf("domain pattern %q: wildcard domain needs at least two labels", pattern)
		}
		return nil
	}
	if strings.Contains(p, "*") {
		return fmt.Errorf("domain pattern %q: wildcard is only allowed as a *.domain prefix", pattern)
	}
	if !strings.Contains(p, ".") && net.ParseIP(p) == nil {
		return fmt.Errorf("domain pattern %q must contain at least one dot", pattern)
	}
	return nil
}
