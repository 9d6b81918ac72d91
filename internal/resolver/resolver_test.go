package resolver

import (
	"errors"
	"testing"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

func testStore() *config.Store {
	return config.NewStore(
		map[string]string{
			"example.com":          "ns1.example.com",
			"host.example.com":     "ns2.example.com",
			"2.0.192.in-addr.arpa": "ns1.example.com",
			"default":              "ns.example.net",
		},
		map[string]string{
			"example.com": "hmac-sha256:zone-key:c2VjcmV0",
		},
		map[string]string{
			"ns1.example.com": "hmac-sha256:server-key:c2VjcmV0",
			"ns.example.net":  "hmac-sha256:default-key:c2VjcmV0",
		},
	)
}

func TestZoneResolver_Resolve(t *testing.T) {
	r := NewZoneResolver(testStore())

	tests := []struct {
		name         string
		fqdn         string
		explicitZone string
		wantHost     string
		wantZone     string
		wantParamErr bool
	}{
		{
			name:     "configured zone",
			fqdn:     "www.example.com",
			wantHost: "www",
			wantZone: "example.com",
		},
		{
			name:     "longest suffix wins",
			fqdn:     "www.host.example.com",
			wantHost: "www",
			wantZone: "host.example.com",
		},
		{
			name:     "multi-label host",
			fqdn:     "a.b.example.com.",
			wantHost: "a.b",
			wantZone: "example.com",
		},
		{
			name:     "apex of configured zone",
			fqdn:     "host.example.com",
			wantHost: "",
			wantZone: "host.example.com",
		},
		{
			name:     "normalized input",
			fqdn:     "  WWW.Example.COM. ",
			wantHost: "www",
			wantZone: "example.com",
		},
		{
			name:     "reverse name",
			fqdn:     "10.2.0.192.in-addr.arpa",
			wantHost: "10",
			wantZone: "2.0.192.in-addr.arpa",
		},
		{
			name:     "fallback to first label split",
			fqdn:     "mail.unknown.org",
			wantHost: "mail",
			wantZone: "unknown.org",
		},
		{
			name:     "label boundary respected",
			fqdn:     "www.myexample.com",
			wantHost: "www",
			wantZone: "myexample.com",
		},
		{
			name:     "default entry is never a zone",
			fqdn:     "www.default",
			wantHost: "www",
			wantZone: "default",
		},
		{
			name:         "unqualified name",
			fqdn:         "localhost",
			wantParamErr: true,
		},
		{
			name:         "empty name",
			fqdn:         "",
			wantParamErr: true,
		},
		{
			name:         "explicit zone",
			fqdn:         "www.host.example.com",
			explicitZone: "example.com.",
			wantHost:     "www.host",
			wantZone:     "example.com",
		},
		{
			name:         "explicit zone not configured",
			fqdn:         "a.b.c.unknown.org",
			explicitZone: "c.unknown.org",
			wantHost:     "a.b",
			wantZone:     "c.unknown.org",
		},
		{
			name:         "explicit zone equals name",
			fqdn:         "example.com",
			explicitZone: "Example.com",
			wantHost:     "",
			wantZone:     "example.com",
		},
		{
			name:         "explicit zone not a suffix",
			fqdn:         "example.com.evil.org",
			explicitZone: "example.com",
			wantParamErr: true,
		},
		{
			name:         "explicit zone partial label",
			fqdn:         "www.myexample.com",
			explicitZone: "example.com",
			wantParamErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, zone, err := r.Resolve(tt.fqdn, tt.explicitZone)
			if tt.wantParamErr {
				if !errdefs.IsParameter(err) {
					t.Fatalf("Resolve(%q, %q) error = %v, want ParameterError", tt.fqdn, tt.explicitZone, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q, %q) unexpected error: %v", tt.fqdn, tt.explicitZone, err)
			}
			if host != tt.wantHost || zone != tt.wantZone {
				t.Errorf("Resolve(%q, %q) = (%q, %q), want (%q, %q)",
					tt.fqdn, tt.explicitZone, host, zone, tt.wantHost, tt.wantZone)
			}
		})
	}
}

func TestZoneResolver_EmptyStoreFallback(t *testing.T) {
	r := NewZoneResolver(config.NewStore(nil, nil, nil))

	host, zone, err := r.Resolve("www.example.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "www" || zone != "example.com" {
		t.Errorf("got (%q, %q), want (www, example.com)", host, zone)
	}
}

func TestServerResolver_Resolve(t *testing.T) {
	r := NewServerResolver(testStore())

	tests := []struct {
		zone string
		want string
	}{
		{"example.com", "ns1.example.com"},
		{"HOST.example.com.", "ns2.example.com"},
		{"unknown.org", "ns.example.net"},
	}

	for _, tt := range tests {
		got, err := r.Resolve(tt.zone)
		if err != nil {
			t.Errorf("Resolve(%q) unexpected error: %v", tt.zone, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.zone, got, tt.want)
		}
	}
}

func TestServerResolver_NotFound(t *testing.T) {
	r := NewServerResolver(config.NewStore(map[string]string{"example.com": "ns1.example.com"}, nil, nil))

	_, err := r.Resolve("Unknown.org.")
	var snf *errdefs.ServerNotFoundError
	if !errors.As(err, &snf) {
		t.Fatalf("expected ServerNotFoundError, got %v", err)
	}
	if snf.Zone != "unknown.org" {
		t.Errorf("Zone = %q, want unknown.org", snf.Zone)
	}
}

func TestKeyResolver_Resolve(t *testing.T) {
	r := NewKeyResolver(testStore())

	tests := []struct {
		name    string
		zone    string
		server  string
		want    string
		wantErr bool
	}{
		{
			name:   "zone key beats server key",
			zone:   "example.com",
			server: "ns1.example.com",
			want:   "hmac-sha256:zone-key:c2VjcmV0",
		},
		{
			name:   "server key when no zone key",
			zone:   "host.example.com",
			server: "ns1.example.com",
			want:   "hmac-sha256:server-key:c2VjcmV0",
		},
		{
			name:   "server key normalized",
			zone:   "unknown.org",
			server: "NS.Example.Net.",
			want:   "hmac-sha256:default-key:c2VjcmV0",
		},
		{
			name:    "no key",
			zone:    "host.example.com",
			server:  "ns2.example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.zone, tt.server)
			if tt.wantErr {
				if !errdefs.IsKeyNotFound(err) {
					t.Fatalf("expected KeyNotFoundError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.zone, tt.server, got, tt.want)
			}
		})
	}
}

func TestKeyResolver_ResolveFor(t *testing.T) {
	r := NewKeyResolver(testStore())

	tests := []struct {
		name       string
		zone       string
		server     string
		overridden bool
		want       KeyOutcome
		wantSource KeySource
	}{
		{"zone key", "example.com", "10.0.0.1", true, KeyResolved, KeySourceZone},
		{"server key", "host.example.com", "ns1.example.com", false, KeyResolved, KeySourceServer},
		{"overridden server without key", "host.example.com", "10.0.0.1", true, KeyRetryConfiguredServer, ""},
		{"configured server without key", "host.example.com", "ns2.example.com", false, KeyMissing, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.ResolveFor(tt.zone, tt.server, tt.overridden)
			if res.Outcome != tt.want {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, tt.want)
			}
			if res.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", res.Source, tt.wantSource)
			}
			if tt.want == KeyResolved && res.Err != nil {
				t.Errorf("unexpected Err: %v", res.Err)
			}
			if tt.want != KeyResolved && !errdefs.IsKeyNotFound(res.Err) {
				t.Errorf("Err = %v, want KeyNotFoundError", res.Err)
			}
		})
	}
}

func TestKeyOutcome_String(t *testing.T) {
	if KeyRetryConfiguredServer.String() != "retry-configured-server" {
		t.Errorf("String() = %q", KeyRetryConfiguredServer.String())
	}
	if KeyOutcome(99).String() != "unknown" {
		t.Errorf("String() = %q", KeyOutcome(99).String())
	}
}
