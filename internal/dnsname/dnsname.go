// Package dnsname normalizes DNS names so that zone, host and server lookups
// always compare like with like.
package dnsname

import (
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// Normalize trims whitespace, lower-cases the name, converts internationalized
// labels to their ASCII form and strips a trailing dot.
// An empty or whitespace-only input yields "".
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	if ascii, err := idna.ToASCII(name); err == nil {
		name = ascii
	}

	return strings.TrimSuffix(name, ".")
}

// Fqdn returns the normalized name with exactly one trailing dot.
func Fqdn(name string) string {
	n := Normalize(name)
	if n == "" {
		return "."
	}
	return dns.Fqdn(n)
}

// Join combines a host label sequence and a zone into a normalized name.
// An empty host denotes the zone apex.
func Join(host, zone string) string {
	host = Normalize(host)
	zone = Normalize(zone)
	switch {
	case host == "":
		return zone
	case zone == "":
		return host
	default:
		return host + "." + zone
	}
}

// HasLabelSuffix reports whether zone is name itself or one of its parent
// domains, comparing whole labels only ("myexample.com" is not inside
// "example.com").
func HasLabelSuffix(name, zone string) bool {
	name = Normalize(name)
	zone = Normalize(zone)
	if zone == "" {
		return false
	}
	return name == zone || strings.HasSuffix(name, "."+zone)
}

// IsQualified reports whether the normalized name has at least two labels.
func IsQualified(name string) bool {
	return strings.Contains(Normalize(name), ".")
}

// SplitFirst splits a normalized name into its leftmost label and the rest.
// For a single-label name rest is "".
func SplitFirst(name string) (first, rest string) {
	name = Normalize(name)
	first, rest, _ = strings.Cut(name, ".")
	return first, rest
}

// Labels returns the labels of the normalized name, leftmost first.
func Labels(name string) []string {
	return dns.SplitDomainName(Normalize(name))
}
