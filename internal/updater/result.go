package updater

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/dnsupd/internal/record"
)

// Operation names the kind of change an Outcome describes.
type Operation string

const (
	// OpAdd appends a record to its RRset.
	OpAdd Operation = "ADD"
	// OpReplace replaces the RRset of the record's type with the record.
	OpReplace Operation = "REPLACE"
	// OpDelete removes a record, an RRset or every record of a name.
	OpDelete Operation = "DELETE"
)

// Status is the outcome of one operation.
type Status string

const (
	// StatusApplied means the server accepted the change.
	StatusApplied Status = "applied"
	// StatusDryRun means the change was only logged.
	StatusDryRun Status = "dry-run"
	// StatusFailed means the exchange carrying the change failed.
	StatusFailed Status = "failed"
)

// Outcome is one applied, simulated or failed record operation.
type Outcome struct {
	// Operation is ADD, REPLACE or DELETE.
	Operation Operation

	// Name is the owner name with a trailing dot.
	Name string

	// Zone is the zone the update was sent for.
	Zone string

	// Server is the update server.
	Server string

	// Record is the affected record. A nil Record on a DELETE means every
	// record of Name; an empty Value means the whole RRset of Record.Type.
	Record *record.Spec

	// Reverse marks PTR synchronization outcomes.
	Reverse bool

	// Status is applied, dry-run or failed.
	Status Status

	// Rcode is the response code mnemonic ("" under dry-run).
	Rcode string

	// Error holds the failure message when Status is StatusFailed.
	Error string
}

// Applied reports whether the change reached the server.
func (o Outcome) Applied() bool {
	return o.Status == StatusApplied
}

func (o Outcome) target() string {
	switch {
	case o.Record == nil:
		return o.Name + " (all records)"
	case o.Record.Value == "":
		return fmt.Sprintf("%s %s (all)", o.Name, o.Record.Type)
	default:
		return fmt.Sprintf("%s %s %s", o.Name, o.Record.Type, o.Record.Value)
	}
}

// String returns the one-line report printed for the outcome.
func (o Outcome) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s %s in zone %s via %s", o.Status, o.Operation, o.target(), o.Zone, o.Server)
	if o.Rcode != "" {
		fmt.Fprintf(&sb, " (%s)", o.Rcode)
	}
	if o.Error != "" {
		fmt.Fprintf(&sb, ": %s", o.Error)
	}
	return sb.String()
}

// LogAttrs returns the outcome as structured log attributes.
func (o Outcome) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", string(o.Operation)),
		slog.String("name", o.Name),
		slog.String("zone", o.Zone),
		slog.String("server", o.Server),
		slog.String("status", string(o.Status)),
		slog.Bool("reverse", o.Reverse),
	}
	if o.Record != nil {
		attrs = append(attrs,
			slog.String("type", string(o.Record.Type)),
			slog.String("value", o.Record.Value),
		)
	}
	if o.Rcode != "" {
		attrs = append(attrs, slog.String("rcode", o.Rcode))
	}
	if o.Error != "" {
		attrs = append(attrs, slog.String("error", o.Error))
	}
	return attrs
}

// Result holds everything a set or delete command did.
type Result struct {
	// Command is "set" or "delete".
	Command string

	// StartTime is when the command started.
	StartTime time.Time

	// EndTime is when the command completed.
	EndTime time.Time

	// Outcomes lists operations in the order they were issued.
	Outcomes []Outcome

	// Exchanges counts update messages actually sent.
	Exchanges int

	// DryRun indicates no update was sent.
	DryRun bool
}

// NewResult creates a new Result with the start time set to now.
func NewResult(command string, dryRun bool) *Result {
	return &Result{
		Command:   command,
		StartTime: time.Now(),
		Outcomes:  make([]Outcome, 0),
		DryRun:    dryRun,
	}
}

// Complete marks the result as complete with the end time set to now.
func (r *Result) Complete() {
	r.EndTime = time.Now()
}

// Duration returns the total command duration.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

func (r *Result) filter(status Status) []Outcome {
	var filtered []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// Applied returns all outcomes the server accepted.
func (r *Result) Applied() []Outcome {
	return r.filter(StatusApplied)
}

// Failed returns all failed outcomes.
func (r *Result) Failed() []Outcome {
	return r.filter(StatusFailed)
}

// HasApplied reports whether any change reached a server.
func (r *Result) HasApplied() bool {
	return len(r.Applied()) > 0
}

// HasErrors returns true if any outcome failed.
func (r *Result) HasErrors() bool {
	return len(r.Failed()) > 0
}

// Lines returns the report, one line per outcome.
func (r *Result) Lines() []string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		lines = append(lines, o.String())
	}
	return lines
}

// Summary returns a short human-readable summary.
func (r *Result) Summary() string {
	mode := "applied"
	if r.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("%s complete (%s) in %s: %d operations, %d updates sent, %d failed",
		r.Command, mode, r.Duration().Round(time.Millisecond),
		len(r.Outcomes), r.Exchanges, len(r.Failed()))
}
