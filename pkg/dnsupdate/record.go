package dnsupdate

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// Record is one resource record as sent in an update. For RRset and name
// deletions only Name (and Type) are used.
type Record struct {
	// Name is the owner name. A trailing dot is added when missing.
	Name string

	// Type is the DNS record type (e.g., dns.TypeA, dns.TypePTR).
	Type uint16

	// TTL is the time-to-live in seconds.
	TTL uint32

	// RData is the record data: an address for A/AAAA, a name otherwise.
	RData string
}

// TypeString returns the string representation of the record type.
func (r Record) TypeString() string {
	if name, ok := dns.TypeToString[r.Type]; ok {
		return name
	}
	return fmt.Sprintf("TYPE%d", r.Type)
}

func (r Record) String() string {
	if r.RData == "" {
		return fmt.Sprintf("%s %s", dns.Fqdn(r.Name), r.TypeString())
	}
	return fmt.Sprintf("%s %d %s %s", dns.Fqdn(r.Name), r.TTL, r.TypeString(), r.RData)
}

// ToRR converts the Record to a dns.RR.
func (r Record) ToRR() (dns.RR, error) {
	header := dns.RR_Header{
		Name:   dns.Fqdn(r.Name),
		Rrtype: r.Type,
		Class:  dns.ClassINET,
		Ttl:    r.TTL,
	}

	switch r.Type {
	case dns.TypeA:
		addr, err := netip.ParseAddr(r.RData)
		if err != nil || !addr.Is4() {
			return nil, fmt.Errorf("invalid IPv4 address: %s", r.RData)
		}
		return &dns.A{Hdr: header, A: addr.AsSlice()}, nil

	case dns.TypeAAAA:
		addr, err := netip.ParseAddr(r.RData)
		if err != nil || !addr.Is6() || addr.Is4In6() {
			return nil, fmt.Errorf("invalid IPv6 address: %s", r.RData)
		}
		return &dns.AAAA{Hdr: header, AAAA: addr.AsSlice()}, nil

	case dns.TypeCNAME:
		return &dns.CNAME{Hdr: header, Target: fqdnData(r.RData)}, nil

	case dns.TypePTR:
		return &dns.PTR{Hdr: header, Ptr: fqdnData(r.RData)}, nil

	case dns.TypeNS:
		return &dns.NS{Hdr: header, Ns: fqdnData(r.RData)}, nil

	default:
		return nil, fmt.Errorf("unsupported record type: %s", r.TypeString())
	}
}

func fqdnData(name string) string {
	return dns.Fqdn(strings.TrimSpace(name))
}

// addressFromRR extracts the address of an A or AAAA record.
func addressFromRR(rr dns.RR) (string, bool) {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String(), true
	case *dns.AAAA:
		return v.AAAA.String(), true
	default:
		return "", false
	}
}

// OpKind is the kind of change an Operation makes.
type OpKind int

const (
	// OpAdd appends a record to its RRset.
	OpAdd OpKind = iota
	// OpReplace removes the RRset of the record's name and type, then adds it.
	OpReplace
	// OpDelete removes one record.
	OpDelete
	// OpDeleteRRset removes every record of the given name and type.
	OpDeleteRRset
	// OpDeleteName removes every record of the given name.
	OpDeleteName
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	case OpDeleteRRset:
		return "delete-rrset"
	case OpDeleteName:
		return "delete-name"
	default:
		return "unknown"
	}
}

// Operation is one change within an update transaction.
type Operation struct {
	Kind   OpKind
	Record Record
}

func (o Operation) String() string {
	switch o.Kind {
	case OpDeleteName:
		return fmt.Sprintf("%s %s", o.Kind, dns.Fqdn(o.Record.Name))
	case OpDeleteRRset:
		return fmt.Sprintf("%s %s %s", o.Kind, dns.Fqdn(o.Record.Name), o.Record.TypeString())
	default:
		return fmt.Sprintf("%s %s", o.Kind, o.Record)
	}
}
