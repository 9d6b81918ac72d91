package dnsupdate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

type rrsetKey struct {
	name  string
	rtype uint16
}

// BuildUpdate builds the UPDATE message for ops against zone. Operations are
// encoded in order. For OpReplace the RRset is removed once, before the first
// record of that name and type is added, so several replace operations on
// one RRset leave all of their records in place.
func BuildUpdate(zone string, ops []Operation) (*dns.Msg, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, errors.New("zone is required")
	}
	if len(ops) == 0 {
		return nil, errors.New("update has no operations")
	}
	zone = dns.Fqdn(strings.ToLower(zone))

	msg := new(dns.Msg)
	msg.SetUpdate(zone)

	cleared := make(map[rrsetKey]bool)
	for _, op := range ops {
		if strings.TrimSpace(op.Record.Name) == "" {
			return nil, errors.New("record name is required")
		}
		name := dns.Fqdn(op.Record.Name)
		if !dns.IsSubDomain(zone, name) {
			return nil, fmt.Errorf("%w: %s not in zone %s", ErrZoneMismatch, name, zone)
		}

		switch op.Kind {
		case OpAdd:
			rr, err := op.Record.ToRR()
			if err != nil {
				return nil, fmt.Errorf("invalid record: %w", err)
			}
			msg.Insert([]dns.RR{rr})

		case OpReplace:
			rr, err := op.Record.ToRR()
			if err != nil {
				return nil, fmt.Errorf("invalid record: %w", err)
			}
			key := rrsetKey{name: strings.ToLower(name), rtype: op.Record.Type}
			if !cleared[key] {
				msg.Ns = append(msg.Ns, rrsetRemoval(name, op.Record.Type))
				cleared[key] = true
			}
			msg.Insert([]dns.RR{rr})

		case OpDelete:
			rr, err := op.Record.ToRR()
			if err != nil {
				return nil, fmt.Errorf("invalid record: %w", err)
			}
			msg.Remove([]dns.RR{rr})

		case OpDeleteRRset:
			if op.Record.Type == 0 {
				return nil, errors.New("record type is required for RRset deletion")
			}
			msg.Ns = append(msg.Ns, rrsetRemoval(name, op.Record.Type))

		case OpDeleteName:
			msg.Ns = append(msg.Ns, rrsetRemoval(name, dns.TypeANY))

		default:
			return nil, fmt.Errorf("unknown operation kind %d", op.Kind)
		}
	}

	return msg, nil
}

// rrsetRemoval returns the RFC 2136 section 2.5.2 record deleting the RRset
// of the given type at name, or every RRset when rtype is TypeANY.
func rrsetRemoval(name string, rtype uint16) dns.RR {
	return &dns.ANY{
		Hdr: dns.RR_Header{
			Name:   name,
			Rrtype: rtype,
			Class:  dns.ClassANY,
			Ttl:    0,
		},
	}
}
