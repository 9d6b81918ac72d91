package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
	"gitlab.bluewillows.net/root/dnsupd/internal/updater"
	"gitlab.bluewillows.net/root/dnsupd/pkg/dnsupdate"
)

// testMockTransport records updates and answers every lookup with no records.
type testMockTransport struct {
	mu      sync.Mutex
	updates [][]dnsupdate.Operation
	zones   []string
}

func (m *testMockTransport) SendUpdate(_ context.Context, _, zone string, _ *dnsupdate.TSIG, ops []dnsupdate.Operation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, ops)
	m.zones = append(m.zones, zone)
	return 0, nil
}

func (m *testMockTransport) Lookup(context.Context, string, string, uint16) dnsupdate.LookupResult {
	return dnsupdate.LookupResult{}
}

const testConfig = `
servers:
  example.com: ns1.example.com
  2.0.192.in-addr.arpa: ns1.example.com
zone_keys:
  example.com: "hmac-sha256:cmd-key:c2VjcmV0LWtleS1tYXRlcmlhbA=="
  2.0.192.in-addr.arpa: "hmac-sha256:cmd-key:c2VjcmV0LWtleS1tYXRlcmlhbA=="
`

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig+extra), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// execute runs the command line against a mock transport.
func execute(t *testing.T, args ...string) (stdout string, transport *testMockTransport, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	transport = &testMockTransport{}

	a := newApp()
	a.stdout = &out
	a.stderr = &errOut
	a.newTransport = func(*config.Config, *slog.Logger) updater.Transport { return transport }

	root := newRootCmd(a)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), transport, err
}

func TestSetCommand(t *testing.T) {
	path := writeConfig(t, "")

	out, transport, err := execute(t, "--config", path, "set", "www.example.com", "192.0.2.10")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}

	for _, want := range []string{
		"[applied] REPLACE www.example.com. A 192.0.2.10 in zone example.com via ns1.example.com (NOERROR)",
		"[applied] REPLACE 10.2.0.192.in-addr.arpa. PTR www.example.com. in zone 2.0.192.in-addr.arpa",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if len(transport.updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(transport.updates))
	}
	if got := transport.updates[0][0].Record.TTL; got != updater.DefaultTTL {
		t.Errorf("TTL = %d, want %d", got, updater.DefaultTTL)
	}
}

func TestSetTTL(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		args  []string
		want  uint32
	}{
		{name: "config default", extra: "defaults:\n  ttl: 300\n", want: 300},
		{name: "flag wins", extra: "defaults:\n  ttl: 300\n", args: []string{"--ttl", "60"}, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", writeConfig(t, tt.extra), "set"}, tt.args...)
			args = append(args, "www.example.com", "192.0.2.10")

			_, transport, err := execute(t, args...)
			if err != nil {
				t.Fatalf("set error = %v", err)
			}
			if got := transport.updates[0][0].Record.TTL; got != tt.want {
				t.Errorf("TTL = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSetAdd(t *testing.T) {
	_, transport, err := execute(t, "--config", writeConfig(t, ""), "set", "--add", "www.example.com", "192.0.2.10")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if got := transport.updates[0][0].Kind; got != dnsupdate.OpAdd {
		t.Errorf("forward op = %v, want add", got)
	}
}

func TestDryRun(t *testing.T) {
	out, transport, err := execute(t, "--config", writeConfig(t, ""), "set", "-n", "www.example.com", "192.0.2.10")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if len(transport.updates) != 0 {
		t.Errorf("dry run sent %d updates", len(transport.updates))
	}
	if strings.Count(out, "[dry-run]") != 2 {
		t.Errorf("stdout = %q, want two dry-run lines", out)
	}
}

func TestDeleteCommand(t *testing.T) {
	out, transport, err := execute(t, "--config", writeConfig(t, ""), "delete", "-t", "CNAME", "ftp.example.com")
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if len(transport.updates) != 1 || transport.updates[0][0].Kind != dnsupdate.OpDeleteRRset {
		t.Errorf("updates = %v, want one rrset delete", transport.updates)
	}
	if !strings.Contains(out, "DELETE ftp.example.com. CNAME (all)") {
		t.Errorf("stdout = %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	path := writeConfig(t, "")

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "missing name", args: []string{"--config", path, "set"}, wantCode: 2},
		{name: "unknown flag", args: []string{"--config", path, "set", "--bogus", "www.example.com", "192.0.2.1"}, wantCode: 2},
		{name: "bad type", args: []string{"--config", path, "set", "-t", "MX", "www.example.com", "mail"}, wantCode: 2},
		{name: "no value", args: []string{"--config", path, "set", "www.example.com"}, wantCode: 2},
		{name: "no server", args: []string{"--config", path, "set", "www.example.net", "192.0.2.1"}, wantCode: 1},
		{name: "bad log format", args: []string{"--config", path, "--log-format", "xml", "set", "www.example.com", "192.0.2.1"}, wantCode: 2},
		{name: "missing config", args: []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "set", "www.example.com", "192.0.2.1"}, wantCode: 1},
		{name: "add and replace", args: []string{"--config", path, "set", "--add", "--replace", "www.example.com", "192.0.2.1"}, wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, transport, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := exitCode(err); got != tt.wantCode {
				t.Errorf("exitCode(%v) = %d, want %d", err, got, tt.wantCode)
			}
			if len(transport.updates) != 0 {
				t.Errorf("sent %d updates on error", len(transport.updates))
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "parameter", err: errdefs.Parameterf("bad value"), want: 2},
		{name: "wrapped parameter", err: fmt.Errorf("set: %w", errdefs.Parameterf("bad value")), want: 2},
		{name: "validation", err: &config.ValidationError{Errors: []string{"x"}}, want: 2},
		{name: "usage", err: fmt.Errorf("%w: no name", errUsage), want: 2},
		{name: "partial", err: fmt.Errorf("%w: refused", updater.ErrPartialUpdate), want: 1},
		{name: "other", err: errors.New("boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMetricsTextfile(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "dnsupd.prom")

	_, _, err := execute(t, "--config", writeConfig(t, ""), "--metrics-textfile", metricsPath, "set", "www.example.com", "192.0.2.10")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	for _, want := range []string{
		`dnsupd_operations_total{applied="true",operation="REPLACE"} 2`,
		`dnsupd_exchanges_total{kind="update",result="NOERROR"} 2`,
		"dnsupd_build_info",
		"dnsupd_last_run_timestamp_seconds",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestAuditLog(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")
	extra := fmt.Sprintf("logging:\n  audit_file: %s\n", auditPath)

	_, _, err := execute(t, "--config", writeConfig(t, extra), "set", "www.example.com", "192.0.2.10")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit lines = %d, want 2:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], `"operation":"REPLACE"`) || !strings.Contains(lines[0], `"status":"applied"`) {
		t.Errorf("audit record = %s", lines[0])
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "dnsupd version "+version) {
		t.Errorf("version output = %q", out)
	}
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestTeardownLogsAuditCloseError(t *testing.T) {
	var logs bytes.Buffer
	a := &app{
		cfg:    &config.Config{Audit: config.AuditConfig{File: "/var/log/dnsupd/audit.log"}},
		logger: setupLogger(&logs, slog.LevelWarn, "text"),
		closer: failingCloser{},
	}

	a.teardown()

	out := logs.String()
	for _, want := range []string{"level=WARN", "failed to close audit log", "path=/var/log/dnsupd/audit.log", "error=\"disk full\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
