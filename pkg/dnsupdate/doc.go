// Package dnsupdate sends RFC 2136 dynamic updates and plain lookups to
// authoritative DNS servers.
//
// The client is zone-agnostic: every call names the server, the zone and the
// TSIG key, so one client serves forward and reverse zones alike.
//
// Key features:
//   - RFC 2136 update messages built from ordered Operations
//   - TSIG authentication (RFC 2845) with HMAC-MD5 and the HMAC-SHA family
//   - A, AAAA, NS, CNAME and PTR records
//   - UDP or TCP transport, with TCP retry for truncated lookups
//
// # Usage
//
//	client := dnsupdate.NewClient(dnsupdate.Config{Timeout: 5 * time.Second})
//
//	tsig, err := dnsupdate.NewTSIG("ddns-key", secret, "hmac-sha256")
//	if err != nil {
//	    return err
//	}
//
//	rcode, err := client.SendUpdate(ctx, "ns1.example.com", "example.com", tsig, []dnsupdate.Operation{
//	    {Kind: dnsupdate.OpReplace, Record: dnsupdate.Record{
//	        Name:  "www.example.com",
//	        Type:  dns.TypeA,
//	        TTL:   3600,
//	        RData: "192.0.2.10",
//	    }},
//	})
//
// # TSIG Authentication
//
// Generate TSIG keys using BIND's tsig-keygen:
//
//	tsig-keygen -a hmac-sha256 ddns-key > ddns.key
package dnsupdate
