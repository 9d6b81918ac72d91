package record

import (
	"testing"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

func TestIsIPv4(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"127.0.0.1", true},
		{"192.168.1.100", true},
		{"127.1", false},
		{"10.1.1", false},
		{"300.1.1.1", false},
		{"1.2.3.4.5", false},
		{"::1", false},
		{"::ffff:1.2.3.4", false},
		{"host.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := IsIPv4(tt.value); got != tt.want {
				t.Errorf("IsIPv4(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsIPv6(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"::1", true},
		{"2001:db8::1", true},
		{"2001:DB8:0:0:0:0:0:1", true},
		{"fe80::1%eth0", false},
		{"::ffff:192.0.2.1", false},
		{"127.0.0.1", false},
		{"2001:db8::g", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := IsIPv6(tt.value); got != tt.want {
				t.Errorf("IsIPv6(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		typ   Type
		want  bool
	}{
		{"A ok", "10.0.0.1", TypeA, true},
		{"A short form", "10.1", TypeA, false},
		{"A given v6", "2001:db8::1", TypeA, false},
		{"AAAA ok", "2001:db8::1", TypeAAAA, true},
		{"AAAA given v4", "10.0.0.1", TypeAAAA, false},
		{"CNAME ok", "target.example.com", TypeCNAME, true},
		{"CNAME single label", "target", TypeCNAME, false},
		{"NS ok", "ns1.example.com.", TypeNS, true},
		{"PTR ok", "host.example.com", TypePTR, true},
		{"unknown type", "x.y", Type("TXT"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.value, tt.typ); got != tt.want {
				t.Errorf("Validate(%q, %s) = %v, want %v", tt.value, tt.typ, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got, err := Classify("192.0.2.1"); err != nil || got != TypeA {
		t.Errorf("Classify(v4) = %v, %v", got, err)
	}
	if got, err := Classify("2001:db8::1"); err != nil || got != TypeAAAA {
		t.Errorf("Classify(v6) = %v, %v", got, err)
	}

	// Inference never guesses name types.
	_, err := Classify("target.example.com")
	if !errdefs.IsParameter(err) {
		t.Errorf("Classify(name) error = %v, want ParameterError", err)
	}
	_, err = Classify("127.1")
	if !errdefs.IsParameter(err) {
		t.Errorf("Classify(127.1) error = %v, want ParameterError", err)
	}
}

func TestBuildSpecs(t *testing.T) {
	specs, err := BuildSpecs([]string{"192.0.2.1", " 2001:db8::1 "}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0] != (Spec{Type: TypeA, Value: "192.0.2.1"}) {
		t.Errorf("specs[0] = %+v", specs[0])
	}
	if specs[1] != (Spec{Type: TypeAAAA, Value: "2001:db8::1"}) {
		t.Errorf("specs[1] = %+v", specs[1])
	}

	specs, err = BuildSpecs([]string{"alias.example.com"}, TypeCNAME)
	if err != nil || len(specs) != 1 || specs[0].Type != TypeCNAME {
		t.Errorf("explicit CNAME: specs=%v err=%v", specs, err)
	}

	// One bad value rejects the whole set.
	if _, err := BuildSpecs([]string{"192.0.2.1", "nope"}, ""); !errdefs.IsParameter(err) {
		t.Errorf("expected ParameterError, got %v", err)
	}
	if _, err := BuildSpecs([]string{"192.0.2.1"}, TypeAAAA); !errdefs.IsParameter(err) {
		t.Errorf("expected ParameterError for type mismatch, got %v", err)
	}

	// IPv4-mapped addresses are neither A nor AAAA data.
	for _, rtype := range []Type{"", TypeAAAA} {
		if _, err := BuildSpecs([]string{"::ffff:192.0.2.1"}, rtype); !errdefs.IsParameter(err) {
			t.Errorf("BuildSpecs(v4-mapped, %q) error = %v, want ParameterError", rtype, err)
		}
	}

	specs, err = BuildSpecs(nil, TypeA)
	if err != nil || len(specs) != 0 {
		t.Errorf("empty values: specs=%v err=%v", specs, err)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"A", TypeA, false},
		{"aaaa", TypeAAAA, false},
		{" cname ", TypeCNAME, false},
		{"ns", TypeNS, false},
		{"PTR", TypePTR, false},
		{"", "", false},
		{"TXT", "", true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTypeRRType(t *testing.T) {
	if TypeA.RRType() != dns.TypeA || TypeAAAA.RRType() != dns.TypeAAAA || TypePTR.RRType() != dns.TypePTR {
		t.Error("RRType mapping is wrong")
	}
	if !TypeA.IsAddress() || !TypeAAAA.IsAddress() || TypeCNAME.IsAddress() {
		t.Error("IsAddress mapping is wrong")
	}
}

func TestSpecMatches(t *testing.T) {
	a := Spec{Type: TypeAAAA, Value: "2001:db8::1"}
	b := Spec{Type: TypeAAAA, Value: "2001:DB8:0:0:0:0:0:1"}
	if !a.Matches(b) {
		t.Error("equivalent IPv6 values should match")
	}
	if a.Matches(Spec{Type: TypeA, Value: "2001:db8::1"}) {
		t.Error("different types should not match")
	}
	if !(Spec{Type: TypeCNAME, Value: "Target.example.com."}).Matches(Spec{Type: TypeCNAME, Value: "target.example.com"}) {
		t.Error("names should match case-insensitively and ignoring trailing dot")
	}
}

func TestReverseName(t *testing.T) {
	got, err := ReverseName("192.0.2.10")
	if err != nil || got != "10.2.0.192.in-addr.arpa" {
		t.Errorf("ReverseName(v4) = %q, %v", got, err)
	}

	got, err = ReverseName("2001:db8::1")
	want := "1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa"
	if err != nil || got != want {
		t.Errorf("ReverseName(v6) = %q, %v", got, err)
	}

	if _, err := ReverseName("not-an-ip"); !errdefs.IsParameter(err) {
		t.Errorf("expected ParameterError, got %v", err)
	}
}
