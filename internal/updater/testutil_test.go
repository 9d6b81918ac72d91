package updater

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dnsupd/pkg/tsigkey"
)

// =============================================================================
// Mock Transport
// =============================================================================

// sentUpdate is one update transaction received by the mock transport.
type sentUpdate struct {
	Server string
	Zone   string
	Key    string
	Ops    []dnsupdate.Operation
}

// testMockTransport implements Transport over an in-memory record set.
// Update semantics follow BuildUpdate: a REPLACE clears its RRset once per
// transaction before adding.
type testMockTransport struct {
	mu sync.Mutex
	// records maps owner name (fqdn) to type to values.
	records map[string]map[uint16][]string
	updates []sentUpdate
	lookups []string

	lookupErr error
	// rcodes forces a response code per zone.
	rcodes map[string]int
}

func newTestMockTransport() *testMockTransport {
	return &testMockTransport{
		records: make(map[string]map[uint16][]string),
		rcodes:  make(map[string]int),
	}
}

func (m *testMockTransport) seed(name string, rtype uint16, values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = dns.Fqdn(strings.ToLower(name))
	if m.records[name] == nil {
		m.records[name] = make(map[uint16][]string)
	}
	m.records[name][rtype] = append(m.records[name][rtype], values...)
}

func (m *testMockTransport) get(name string, rtype uint16) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := append([]string(nil), m.records[dns.Fqdn(strings.ToLower(name))][rtype]...)
	sort.Strings(values)
	return values
}

func (m *testMockTransport) sent() []sentUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentUpdate(nil), m.updates...)
}

func (m *testMockTransport) SendUpdate(_ context.Context, server, zone string, tsig *dnsupdate.TSIG, ops []dnsupdate.Operation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates = append(m.updates, sentUpdate{
		Server: server,
		Zone:   zone,
		Key:    tsig.String(),
		Ops:    append([]dnsupdate.Operation(nil), ops...),
	})

	if rcode, ok := m.rcodes[zone]; ok && rcode != dns.RcodeSuccess {
		return rcode, dnsupdate.RcodeToError(rcode)
	}

	cleared := make(map[string]bool)
	for _, op := range ops {
		name := dns.Fqdn(strings.ToLower(op.Record.Name))
		if m.records[name] == nil {
			m.records[name] = make(map[uint16][]string)
		}
		rrsets := m.records[name]
		value := strings.ToLower(op.Record.RData)

		switch op.Kind {
		case dnsupdate.OpReplace:
			key := name + "/" + op.Record.TypeString()
			if !cleared[key] {
				delete(rrsets, op.Record.Type)
				cleared[key] = true
			}
			rrsets[op.Record.Type] = appendUnique(rrsets[op.Record.Type], value)
		case dnsupdate.OpAdd:
			rrsets[op.Record.Type] = appendUnique(rrsets[op.Record.Type], value)
		case dnsupdate.OpDelete:
			rrsets[op.Record.Type] = removeValue(rrsets[op.Record.Type], value)
		case dnsupdate.OpDeleteRRset:
			delete(rrsets, op.Record.Type)
		case dnsupdate.OpDeleteName:
			delete(m.records, name)
		}
	}
	return dns.RcodeSuccess, nil
}

func (m *testMockTransport) Lookup(_ context.Context, server, name string, qtype uint16) dnsupdate.LookupResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups = append(m.lookups, server+" "+dns.TypeToString[qtype]+" "+name)
	if m.lookupErr != nil {
		return dnsupdate.LookupResult{Err: m.lookupErr}
	}
	values := m.records[dns.Fqdn(strings.ToLower(name))][qtype]
	return dnsupdate.LookupResult{Addresses: append([]string(nil), values...)}
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func removeValue(values []string, v string) []string {
	out := values[:0]
	for _, existing := range values {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}

// =============================================================================
// Mock Observer
// =============================================================================

type testMockObserver struct {
	exchanges  map[string]int
	operations map[string]int
}

func newTestMockObserver() *testMockObserver {
	return &testMockObserver{
		exchanges:  make(map[string]int),
		operations: make(map[string]int),
	}
}

func (o *testMockObserver) ObserveExchange(kind, result string, _ time.Duration) {
	o.exchanges[kind+"/"+result]++
}

func (o *testMockObserver) ObserveOperation(operation string, applied bool) {
	key := operation + "/dry-run"
	if applied {
		key = operation + "/applied"
	}
	o.operations[key]++
}

// =============================================================================
// Fixtures
// =============================================================================

const (
	testSecret     = "c2VjcmV0LWtleS1tYXRlcmlhbA=="
	testZoneKey    = "hmac-sha256:example-key:" + testSecret
	testHostKey    = "hmac-sha256:host-key:" + testSecret
	testServerKey  = "hmac-sha512:ns1-key:" + testSecret
	testReverseKey = "reverse-key:" + testSecret
)

// testStore configures two forward zones, one nested in the other, and the
// IPv4 and IPv6 documentation reverse zones.
func testStore() *config.Store {
	return config.NewStore(
		map[string]string{
			"example.com":              "ns1.example.com",
			"host.example.com":         "ns2.example.com",
			"2.0.192.in-addr.arpa":     "ns1.example.com",
			"8.b.d.0.1.0.0.2.ip6.arpa": "ns1.example.com",
			"Example.ORG.":             "ns3.example.org:5353",
		},
		map[string]string{
			"example.com":          testZoneKey,
			"host.example.com":     testHostKey,
			"2.0.192.in-addr.arpa": testReverseKey,
		},
		map[string]string{
			"ns1.example.com": testServerKey,
		},
	)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUpdater(store *config.Store, transport Transport, opts ...Option) *Updater {
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	return New(store, transport, tsigkey.NewLoader(tsigkey.WithLogger(testLogger())), opts...)
}
