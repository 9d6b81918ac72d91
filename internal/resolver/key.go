package resolver

import (
	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/dnsname"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

// KeySource tells which mapping a key reference came from.
type KeySource string

const (
	KeySourceZone   KeySource = "zone"
	KeySourceServer KeySource = "server"
)

// KeyOutcome tags the result of ResolveFor.
type KeyOutcome int

const (
	// KeyResolved means Ref holds the key reference to use.
	KeyResolved KeyOutcome = iota
	// KeyRetryConfiguredServer means no key was found for an overridden
	// server; the caller should resolve again against the configured server.
	KeyRetryConfiguredServer
	// KeyMissing means no key exists; Err says why.
	KeyMissing
)

func (o KeyOutcome) String() string {
	switch o {
	case KeyResolved:
		return "resolved"
	case KeyRetryConfiguredServer:
		return "retry-configured-server"
	case KeyMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// KeyResult is the tagged result of a key lookup.
type KeyResult struct {
	Outcome KeyOutcome
	Ref     string
	Source  KeySource
	// Err is set for KeyRetryConfiguredServer and KeyMissing.
	Err error
}

// KeyResolver finds the key reference for a zone and server pair.
type KeyResolver struct {
	store *config.Store
}

// NewKeyResolver creates a KeyResolver backed by store.
func NewKeyResolver(store *config.Store) *KeyResolver {
	return &KeyResolver{store: store}
}

// Resolve returns the key reference for the pair. A zone key always takes
// precedence over a server key.
func (r *KeyResolver) Resolve(zone, server string) (string, error) {
	ref, _, err := r.lookup(zone, server)
	return ref, err
}

// ResolveFor is Resolve with the override rule made explicit. When the server
// was overridden by the caller and no key matches, the result asks the caller
// to retry once with the configured server instead of failing.
func (r *KeyResolver) ResolveFor(zone, server string, overridden bool) KeyResult {
	ref, source, err := r.lookup(zone, server)
	switch {
	case err == nil:
		return KeyResult{Outcome: KeyResolved, Ref: ref, Source: source}
	case overridden:
		return KeyResult{Outcome: KeyRetryConfiguredServer, Err: err}
	default:
		return KeyResult{Outcome: KeyMissing, Err: err}
	}
}

func (r *KeyResolver) lookup(zone, server string) (string, KeySource, error) {
	if ref, ok := r.store.ZoneKey(zone); ok {
		return ref, KeySourceZone, nil
	}
	if ref, ok := r.store.ServerKey(server); ok {
		return ref, KeySourceServer, nil
	}
	return "", "", &errdefs.KeyNotFoundError{
		Zone:   dnsname.Normalize(zone),
		Server: dnsname.Normalize(server),
	}
}
