// Package resolver maps a record name onto the zone, update server and TSIG
// key reference it should be sent with. All lookups go through an immutable
// config.Store handed in at construction.
package resolver

import (
	"strings"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/dnsname"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

// ZoneResolver splits a fully-qualified name into host and zone.
type ZoneResolver struct {
	store *config.Store
}

// NewZoneResolver creates a ZoneResolver backed by store.
func NewZoneResolver(store *config.Store) *ZoneResolver {
	return &ZoneResolver{store: store}
}

// Resolve returns the host part and zone of fqdn. Both are normalized and
// satisfy dnsname.Join(host, zone) == dnsname.Normalize(fqdn); host is "" for
// the zone apex.
//
// With an explicit zone, fqdn must lie inside it. Otherwise the longest
// configured zone that is a label suffix of fqdn wins, and when none matches
// the first label is taken as the host and the rest as the zone.
func (r *ZoneResolver) Resolve(fqdn, explicitZone string) (host, zone string, err error) {
	name := dnsname.Normalize(fqdn)
	if !dnsname.IsQualified(name) {
		return "", "", errdefs.Parameterf("%q is not a fully qualified name", fqdn)
	}

	if strings.TrimSpace(explicitZone) != "" {
		return splitExplicit(name, fqdn, explicitZone)
	}

	for candidate := name; dnsname.IsQualified(candidate); {
		if r.store.HasZone(candidate) {
			return strings.TrimSuffix(strings.TrimSuffix(name, candidate), "."), candidate, nil
		}
		_, candidate = dnsname.SplitFirst(candidate)
	}

	host, zone = dnsname.SplitFirst(name)
	return host, zone, nil
}

func splitExplicit(name, fqdn, explicitZone string) (string, string, error) {
	zone := dnsname.Normalize(explicitZone)
	if zone == "" {
		return "", "", errdefs.Parameterf("zone %q is empty", explicitZone)
	}
	if !dnsname.HasLabelSuffix(name, zone) {
		return "", "", errdefs.Parameterf("%q is not inside zone %q", fqdn, zone)
	}
	if name == zone {
		return "", zone, nil
	}
	return strings.TrimSuffix(name, "."+zone), zone, nil
}
