package config

import (
	"sort"
	"strings"

	"gitlab.bluewillows.net/root/dnsupd/internal/dnsname"
)

// DefaultServerKey is the Servers entry used when no zone matches.
const DefaultServerKey = "default"

// Store holds the three lookup tables: zone to server, zone to key
// reference and server to key reference. Keys are normalized on
// construction and the tables are never modified afterwards.
type Store struct {
	servers    map[string]string
	zoneKeys   map[string]string
	serverKeys map[string]string
}

// NewStore copies the given mappings into a Store, normalizing every key.
// Nil maps are treated as empty.
func NewStore(servers, zoneKeys, serverKeys map[string]string) *Store {
	return &Store{
		servers:    normalizeKeys(servers),
		zoneKeys:   normalizeKeys(zoneKeys),
		serverKeys: normalizeKeys(serverKeys),
	}
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		key := dnsname.Normalize(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

// Server returns the server configured for zone. The "default" entry is not
// consulted; see DefaultServer.
func (s *Store) Server(zone string) (string, bool) {
	v, ok := s.servers[dnsname.Normalize(zone)]
	return v, ok
}

// DefaultServer returns the "default" server entry.
func (s *Store) DefaultServer() (string, bool) {
	v, ok := s.servers[DefaultServerKey]
	return v, ok
}

// HasZone reports whether zone has an explicit server entry.
func (s *Store) HasZone(zone string) bool {
	zone = dnsname.Normalize(zone)
	if zone == DefaultServerKey {
		return false
	}
	_, ok := s.servers[zone]
	return ok
}

// ZoneKey returns the key reference configured for zone.
func (s *Store) ZoneKey(zone string) (string, bool) {
	v, ok := s.zoneKeys[dnsname.Normalize(zone)]
	return v, ok
}

// ServerKey returns the key reference configured for server.
func (s *Store) ServerKey(server string) (string, bool) {
	v, ok := s.serverKeys[dnsname.Normalize(server)]
	return v, ok
}

// Zones returns the configured zone names in sorted order, excluding the
// default entry.
func (s *Store) Zones() []string {
	zones := make([]string, 0, len(s.servers))
	for z := range s.servers {
		if z != DefaultServerKey {
			zones = append(zones, z)
		}
	}
	sort.Strings(zones)
	return zones
}
