// Package updater drives the set and delete commands: it resolves the target
// of a name, classifies the record values and sequences the forward and
// reverse (PTR) update exchanges.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
	"gitlab.bluewillows.net/root/dnsupd/internal/metrics"
	"gitlab.bluewillows.net/root/dnsupd/internal/record"
	"gitlab.bluewillows.net/root/dnsupd/internal/resolver"
	"gitlab.bluewillows.net/root/dnsupd/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dnsupd/pkg/tsigkey"
)

// DefaultTTL is the TTL of records added or replaced without an explicit TTL.
const DefaultTTL = 3600

// ErrPartialUpdate is wrapped when a later exchange failed after an earlier
// one was applied. Nothing is rolled back.
var ErrPartialUpdate = errors.New("partial update")

// Transport sends updates and lookups to DNS servers.
type Transport interface {
	SendUpdate(ctx context.Context, server, zone string, tsig *dnsupdate.TSIG, ops []dnsupdate.Operation) (int, error)
	Lookup(ctx context.Context, server, name string, qtype uint16) dnsupdate.LookupResult
}

// KeyLoader turns a key reference into key material.
type KeyLoader interface {
	Load(ctx context.Context, ref string) (*tsigkey.Material, error)
}

// Observer receives exchange and operation counts.
type Observer interface {
	ObserveExchange(kind, result string, d time.Duration)
	ObserveOperation(operation string, applied bool)
}

type nopObserver struct{}

func (nopObserver) ObserveExchange(string, string, time.Duration) {}
func (nopObserver) ObserveOperation(string, bool)                 {}

// Updater runs set and delete commands against a configuration.
type Updater struct {
	zones     *resolver.ZoneResolver
	servers   *resolver.ServerResolver
	keyRefs   *resolver.KeyResolver
	keys      KeyLoader
	transport Transport
	observer  Observer
	logger    *slog.Logger
	audit     *slog.Logger
}

// Option is a functional option for configuring the Updater.
type Option func(*Updater)

// WithLogger sets a custom logger for the updater.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithAuditLogger sets a logger that receives one record per outcome.
func WithAuditLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		u.audit = logger
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(u *Updater) {
		if o != nil {
			u.observer = o
		}
	}
}

// New creates an Updater for the given store.
func New(store *config.Store, transport Transport, keys KeyLoader, opts ...Option) *Updater {
	u := &Updater{
		zones:     resolver.NewZoneResolver(store),
		servers:   resolver.NewServerResolver(store),
		keyRefs:   resolver.NewKeyResolver(store),
		keys:      keys,
		transport: transport,
		observer:  nopObserver{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// SetRequest describes a set command.
type SetRequest struct {
	Name   string
	Values []string
	// Type is the record type; "" infers A or AAAA from each value.
	Type record.Type
	// TTL of the new records; 0 means DefaultTTL.
	TTL uint32
	// Add appends instead of replacing the RRset.
	Add    bool
	DryRun bool
	Target TargetOptions
}

// Set creates or replaces records for a name and points the reverse PTR of
// every A and AAAA value back at it.
func (u *Updater) Set(ctx context.Context, req SetRequest) (*Result, error) {
	result := NewResult("set", req.DryRun)
	defer u.finish(result)

	target, err := u.ResolveTarget(ctx, req.Name, req.Target)
	if err != nil {
		return result, err
	}

	if len(req.Values) == 0 {
		return result, errdefs.Parameterf("no record value given for %s", target.FQDN())
	}
	specs, err := record.BuildSpecs(req.Values, req.Type)
	if err != nil {
		return result, err
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	kind, op := dnsupdate.OpReplace, OpReplace
	if req.Add {
		kind, op = dnsupdate.OpAdd, OpAdd
	}

	ops := make([]dnsupdate.Operation, 0, len(specs))
	outcomes := make([]Outcome, 0, len(specs))
	for i := range specs {
		spec := specs[i]
		ops = append(ops, dnsupdate.Operation{Kind: kind, Record: dnsupdate.Record{
			Name:  target.FQDN(),
			Type:  spec.Type.RRType(),
			TTL:   ttl,
			RData: spec.Value,
		}})
		outcomes = append(outcomes, u.outcome(op, target, &spec, false))
	}

	if err := u.apply(ctx, result, target, ops, outcomes); err != nil {
		return result, err
	}

	for i := range specs {
		spec := specs[i]
		if !spec.Type.IsAddress() {
			continue
		}
		if err := u.syncReverse(ctx, result, target, spec, ttl, req.Target); err != nil {
			return result, partial(result, err)
		}
	}

	return result, nil
}

// syncReverse replaces the PTR of an address with the target's name. It is
// always a replace since an address owns a single reverse pointer.
func (u *Updater) syncReverse(ctx context.Context, result *Result, target *Target, spec record.Spec, ttl uint32, opts TargetOptions) error {
	revTarget, err := u.reverseTarget(ctx, spec.Value, opts)
	if err != nil {
		return err
	}

	ptr := record.Spec{Type: record.TypePTR, Value: target.FQDN()}
	ops := []dnsupdate.Operation{{Kind: dnsupdate.OpReplace, Record: dnsupdate.Record{
		Name:  revTarget.FQDN(),
		Type:  ptr.Type.RRType(),
		TTL:   ttl,
		RData: ptr.Value,
	}}}

	return u.apply(ctx, result, revTarget, ops, []Outcome{u.outcome(OpReplace, revTarget, &ptr, true)})
}

// DeleteRequest describes a delete command.
type DeleteRequest struct {
	Name string
	// Values are optional; none means every record of Type, or of the name.
	Values []string
	Type   record.Type
	DryRun bool
	Target TargetOptions
}

// Delete removes records of a name. The PTRs of its current A and AAAA
// records are removed first, since finding them needs the forward records.
func (u *Updater) Delete(ctx context.Context, req DeleteRequest) (*Result, error) {
	result := NewResult("delete", req.DryRun)
	defer u.finish(result)

	target, err := u.ResolveTarget(ctx, req.Name, req.Target)
	if err != nil {
		return result, err
	}

	var specs []record.Spec
	if len(req.Values) > 0 {
		specs, err = record.BuildSpecs(req.Values, req.Type)
		if err != nil {
			return result, err
		}
	}

	for _, addr := range u.discover(ctx, target) {
		if !deletesReverse(addr, specs, req.Type) {
			continue
		}
		if err := u.deleteReverse(ctx, result, target, addr, req.Target); err != nil {
			return result, partial(result, err)
		}
	}

	ops, outcomes := u.forwardDeletes(target, specs, req.Type)
	if err := u.apply(ctx, result, target, ops, outcomes); err != nil {
		return result, partial(result, err)
	}

	return result, nil
}

// discover returns the A and AAAA records the forward server currently holds
// for the target. A failed lookup counts as no records.
func (u *Updater) discover(ctx context.Context, target *Target) []record.Spec {
	var found []record.Spec
	for _, t := range []record.Type{record.TypeA, record.TypeAAAA} {
		start := time.Now()
		res := u.transport.Lookup(ctx, target.Server, target.FQDN(), t.RRType())

		status := "NOERROR"
		if res.Err != nil {
			status = "error"
		}
		u.observer.ObserveExchange(metrics.KindLookup, status, time.Since(start))

		addresses := res.Addresses
		if res.Err != nil {
			u.logger.Warn("lookup failed, assuming no records",
				slog.String("name", target.FQDN()),
				slog.String("type", string(t)),
				slog.String("server", target.Server),
				slog.String("error", res.Err.Error()),
			)
			addresses = nil
		}

		for _, a := range addresses {
			found = append(found, record.Spec{Type: t, Value: a})
		}
	}
	return found
}

// deletesReverse reports whether the PTR of a discovered address goes.
func deletesReverse(addr record.Spec, specs []record.Spec, t record.Type) bool {
	if len(specs) == 0 {
		return t == "" || addr.Type == t
	}
	for _, s := range specs {
		if s.Matches(addr) {
			return true
		}
	}
	return false
}

func (u *Updater) deleteReverse(ctx context.Context, result *Result, target *Target, addr record.Spec, opts TargetOptions) error {
	revTarget, err := u.reverseTarget(ctx, addr.Value, opts)
	if err != nil {
		return err
	}

	ptr := record.Spec{Type: record.TypePTR, Value: target.FQDN()}
	ops := []dnsupdate.Operation{{Kind: dnsupdate.OpDeleteRRset, Record: dnsupdate.Record{
		Name: revTarget.FQDN(),
		Type: ptr.Type.RRType(),
	}}}

	return u.apply(ctx, result, revTarget, ops, []Outcome{u.outcome(OpDelete, revTarget, &ptr, true)})
}

func (u *Updater) forwardDeletes(target *Target, specs []record.Spec, t record.Type) ([]dnsupdate.Operation, []Outcome) {
	name := target.FQDN()

	switch {
	case len(specs) == 0 && t == "":
		return []dnsupdate.Operation{{Kind: dnsupdate.OpDeleteName, Record: dnsupdate.Record{Name: name}}},
			[]Outcome{u.outcome(OpDelete, target, nil, false)}

	case len(specs) == 0:
		return []dnsupdate.Operation{{Kind: dnsupdate.OpDeleteRRset, Record: dnsupdate.Record{Name: name, Type: t.RRType()}}},
			[]Outcome{u.outcome(OpDelete, target, &record.Spec{Type: t}, false)}
	}

	ops := make([]dnsupdate.Operation, 0, len(specs))
	outcomes := make([]Outcome, 0, len(specs))
	for i := range specs {
		spec := specs[i]
		ops = append(ops, dnsupdate.Operation{Kind: dnsupdate.OpDelete, Record: dnsupdate.Record{
			Name:  name,
			Type:  spec.Type.RRType(),
			RData: spec.Value,
		}})
		outcomes = append(outcomes, u.outcome(OpDelete, target, &spec, false))
	}
	return ops, outcomes
}

// reverseTarget resolves the target owning the reverse name of addr. The
// caller's server and key overrides apply; the zone override does not.
func (u *Updater) reverseTarget(ctx context.Context, addr string, opts TargetOptions) (*Target, error) {
	rev, err := record.ReverseName(addr)
	if err != nil {
		return nil, err
	}
	return u.ResolveTarget(ctx, rev, TargetOptions{Server: opts.Server, AuthKey: opts.AuthKey})
}

// apply sends one transaction, unless the result is a dry run, and records
// its outcomes.
func (u *Updater) apply(ctx context.Context, result *Result, target *Target, ops []dnsupdate.Operation, outcomes []Outcome) error {
	if result.DryRun {
		for _, o := range outcomes {
			o.Status = StatusDryRun
			u.report(result, o)
		}
		return nil
	}

	start := time.Now()
	rcode, err := u.transport.SendUpdate(ctx, target.Server, target.Zone, target.TSIG, ops)
	status := dnsupdate.RcodeString(rcode)
	u.observer.ObserveExchange(metrics.KindUpdate, status, time.Since(start))
	result.Exchanges++

	for _, o := range outcomes {
		o.Rcode = status
		o.Status = StatusApplied
		if err != nil {
			o.Status = StatusFailed
			o.Error = err.Error()
		}
		u.report(result, o)
	}

	if err != nil {
		return fmt.Errorf("updating zone %s on %s: %w", target.Zone, target.Server, err)
	}
	return nil
}

func (u *Updater) outcome(op Operation, target *Target, spec *record.Spec, reverse bool) Outcome {
	return Outcome{
		Operation: op,
		Name:      target.FQDN(),
		Zone:      target.Zone,
		Server:    target.Server,
		Record:    spec,
		Reverse:   reverse,
	}
}

func (u *Updater) report(result *Result, o Outcome) {
	result.add(o)

	level := slog.LevelInfo
	if o.Status == StatusFailed {
		level = slog.LevelError
	}
	u.logger.LogAttrs(context.Background(), level, "dns operation", o.LogAttrs()...)
	if u.audit != nil {
		u.audit.LogAttrs(context.Background(), level, "dns operation", o.LogAttrs()...)
	}
}

func (u *Updater) finish(result *Result) {
	result.Complete()
	for _, o := range result.Outcomes {
		u.observer.ObserveOperation(string(o.Operation), o.Applied())
	}
}

// partial wraps err with ErrPartialUpdate when a change was already applied.
func partial(result *Result, err error) error {
	if result.HasApplied() {
		return fmt.Errorf("%w: %w", ErrPartialUpdate, err)
	}
	return err
}
