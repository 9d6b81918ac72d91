package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.bluewillows.net/root/dnsupd/internal/dnsname"
	"gitlab.bluewillows.net/root/dnsupd/internal/resolver"
	"gitlab.bluewillows.net/root/dnsupd/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dnsupd/pkg/tsigkey"
)

// KeySourceOverride marks a key given with TargetOptions.AuthKey.
const KeySourceOverride resolver.KeySource = "override"

// TargetOptions carries the caller's overrides for target resolution.
type TargetOptions struct {
	// Zone forces the zone instead of searching the configuration.
	Zone string
	// Server overrides the configured update server.
	Server string
	// AuthKey is a key reference used instead of the configured keys.
	AuthKey string
}

// Target is where and how updates for one name are sent.
type Target struct {
	// Host is the part of the name left of Zone; "" at the apex.
	Host string
	// Zone is the zone the name belongs to.
	Zone string
	// Server is the server updates are sent to.
	Server string
	// ServerOverridden is true when Server came from TargetOptions.
	ServerOverridden bool
	// KeySource tells where the key reference came from.
	KeySource resolver.KeySource
	// Key is the resolved TSIG key material.
	Key *tsigkey.Material
	// TSIG signs the updates.
	TSIG *dnsupdate.TSIG
}

// Name returns the full owner name without a trailing dot.
func (t *Target) Name() string {
	return dnsname.Join(t.Host, t.Zone)
}

// FQDN returns the full owner name with a trailing dot.
func (t *Target) FQDN() string {
	return dnsname.Fqdn(t.Name())
}

// Algorithm returns the TSIG algorithm of the target's key.
func (t *Target) Algorithm() string {
	if t.Key == nil {
		return ""
	}
	return t.Key.Algorithm
}

// ResolveTarget maps name to its zone, server and key.
func (u *Updater) ResolveTarget(ctx context.Context, name string, opts TargetOptions) (*Target, error) {
	host, zone, err := u.zones.Resolve(name, opts.Zone)
	if err != nil {
		return nil, err
	}

	target := &Target{Host: host, Zone: zone}

	if server := strings.TrimSpace(opts.Server); server != "" {
		target.Server = server
		target.ServerOverridden = true
	} else {
		server, err := u.servers.Resolve(zone)
		if err != nil {
			return nil, err
		}
		target.Server = server
	}

	ref, source, err := u.keyReference(target, opts.AuthKey)
	if err != nil {
		return nil, err
	}
	target.KeySource = source

	material, err := u.keys.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading key for zone %s: %w", zone, err)
	}
	tsig, err := dnsupdate.NewTSIG(material.Name, material.Secret, material.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("key for zone %s: %w", zone, err)
	}
	target.Key = material
	target.TSIG = tsig

	u.logger.Debug("resolved target",
		slog.String("name", target.FQDN()),
		slog.String("zone", target.Zone),
		slog.String("server", target.Server),
		slog.Bool("server_overridden", target.ServerOverridden),
		slog.String("key", material.String()),
		slog.String("key_source", string(source)),
	)

	return target, nil
}

// keyReference picks the key reference for the target. When the server was
// overridden and has no key, the configured server's key is tried once; if
// that fails too the original error is returned.
func (u *Updater) keyReference(target *Target, authKey string) (string, resolver.KeySource, error) {
	if ref := strings.TrimSpace(authKey); ref != "" {
		return ref, KeySourceOverride, nil
	}

	result := u.keyRefs.ResolveFor(target.Zone, target.Server, target.ServerOverridden)
	switch result.Outcome {
	case resolver.KeyResolved:
		return result.Ref, result.Source, nil

	case resolver.KeyRetryConfiguredServer:
		configured, err := u.servers.Resolve(target.Zone)
		if err != nil {
			return "", "", result.Err
		}
		retry := u.keyRefs.ResolveFor(target.Zone, configured, false)
		if retry.Outcome != resolver.KeyResolved {
			return "", "", result.Err
		}
		u.logger.Debug("using key of configured server",
			slog.String("zone", target.Zone),
			slog.String("override", target.Server),
			slog.String("configured", configured),
		)
		return retry.Ref, retry.Source, nil

	default:
		return "", "", result.Err
	}
}
