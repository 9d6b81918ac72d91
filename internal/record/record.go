// Package record classifies and validates record values against the record
// types the client manages.
package record

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

// Type is a managed DNS record type.
type Type string

// Supported record types.
const (
	TypeA     Type = "A"
	TypeAAAA  Type = "AAAA"
	TypeNS    Type = "NS"
	TypeCNAME Type = "CNAME"
	TypePTR   Type = "PTR"
)

// Types returns the supported record types in display order.
func Types() []Type {
	return []Type{TypeA, TypeAAAA, TypeNS, TypeCNAME, TypePTR}
}

// ParseType parses a record type name case-insensitively.
// An empty string yields "" (no type requested).
func ParseType(s string) (Type, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errdefs.Parameterf("unsupported record type %q (supported: A, AAAA, NS, CNAME, PTR)", s)
}

// RRType returns the miekg/dns numeric type.
func (t Type) RRType() uint16 {
	return dns.StringToType[string(t)]
}

// IsAddress reports whether records of this type carry an IP address and
// therefore own a reverse pointer.
func (t Type) IsAddress() bool {
	return t == TypeA || t == TypeAAAA
}

// Spec is one record value with its resolved type.
type Spec struct {
	Type  Type
	Value string
}

func (s Spec) String() string {
	return fmt.Sprintf("%s %s", s.Type, s.Value)
}

// Matches reports whether two specs denote the same record. Address values
// are compared as parsed addresses so that textual IPv6 variants match.
func (s Spec) Matches(other Spec) bool {
	if s.Type != other.Type {
		return false
	}
	if s.Type.IsAddress() {
		a, errA := netip.ParseAddr(s.Value)
		b, errB := netip.ParseAddr(other.Value)
		if errA == nil && errB == nil {
			return a == b
		}
	}
	return strings.EqualFold(strings.TrimSuffix(s.Value, "."), strings.TrimSuffix(other.Value, "."))
}

// IsIPv4 reports whether value is a dotted-quad IPv4 address. Shortened forms
// such as "127.1" are rejected even where a lenient parser would accept them.
func IsIPv4(value string) bool {
	if strings.Count(value, ".") != 3 {
		return false
	}
	addr, err := netip.ParseAddr(value)
	return err == nil && addr.Is4()
}

// IsIPv6 reports whether value is an IPv6 address usable as AAAA data.
// Scoped and IPv4-mapped addresses are rejected.
func IsIPv6(value string) bool {
	addr, err := netip.ParseAddr(value)
	return err == nil && addr.Is6() && !addr.Is4In6() && addr.Zone() == ""
}

// isNameLike is the minimal FQDN-shape check used for NS, CNAME and PTR data.
func isNameLike(value string) bool {
	return strings.Contains(value, ".")
}

// Validate reports whether value is acceptable record data for t.
func Validate(value string, t Type) bool {
	switch t {
	case TypeA:
		return IsIPv4(value)
	case TypeAAAA:
		return IsIPv6(value)
	case TypeNS, TypeCNAME, TypePTR:
		return isNameLike(value)
	default:
		return false
	}
}

// Classify infers the type of value. Only address types are inferred; name
// types must be requested explicitly.
func Classify(value string) (Type, error) {
	switch {
	case IsIPv4(value):
		return TypeA, nil
	case IsIPv6(value):
		return TypeAAAA, nil
	default:
		return "", errdefs.Parameterf("cannot infer record type of %q: not an IPv4 or IPv6 address (use --type)", value)
	}
}

// BuildSpecs classifies or validates every value. When t is empty each value's
// type is inferred; otherwise every value must be valid for t. The first
// failure aborts the whole set.
func BuildSpecs(values []string, t Type) ([]Spec, error) {
	specs := make([]Spec, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)

		recordType := t
		if recordType == "" {
			inferred, err := Classify(value)
			if err != nil {
				return nil, err
			}
			recordType = inferred
		} else if !Validate(value, recordType) {
			return nil, errdefs.Parameterf("%q is not a valid %s record value", value, recordType)
		}

		specs = append(specs, Spec{Type: recordType, Value: value})
	}
	return specs, nil
}

// ReverseName returns the reverse-lookup name of an address without the
// trailing dot, e.g. "4.3.2.1.in-addr.arpa" for 1.2.3.4.
func ReverseName(addr string) (string, error) {
	rev, err := dns.ReverseAddr(addr)
	if err != nil {
		return "", errdefs.Parameterf("cannot compute reverse name of %q: %v", addr, err)
	}
	return strings.TrimSuffix(rev, "."), nil
}
