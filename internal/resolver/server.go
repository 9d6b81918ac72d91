package resolver

import (
	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/dnsname"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

// ServerResolver picks the update server for a zone.
type ServerResolver struct {
	store *config.Store
}

// NewServerResolver creates a ServerResolver backed by store.
func NewServerResolver(store *config.Store) *ServerResolver {
	return &ServerResolver{store: store}
}

// Resolve returns the server configured for zone, falling back to the
// "default" entry.
func (r *ServerResolver) Resolve(zone string) (string, error) {
	if server, ok := r.store.Server(zone); ok {
		return server, nil
	}
	if server, ok := r.store.DefaultServer(); ok {
		return server, nil
	}
	return "", &errdefs.ServerNotFoundError{Zone: dnsname.Normalize(zone)}
}
