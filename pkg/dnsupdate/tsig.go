package dnsupdate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// TSIG represents a Transaction Signature key for RFC 2845 authentication.
type TSIG struct {
	// Name is the key name with a trailing dot.
	Name string

	// Secret is the base64-encoded shared secret.
	Secret string

	// Algorithm is the TSIG algorithm (e.g., dns.HmacSHA256).
	Algorithm string
}

// NewTSIG creates a TSIG key. The secret must be base64-encoded.
func NewTSIG(name, secret, algorithm string) (*TSIG, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("tsig key name is empty")
	}

	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("tsig secret is not valid base64: %w", err)
	}

	alg := normalizeAlgorithm(algorithm)
	if !isValidAlgorithm(alg) {
		return nil, fmt.Errorf("unsupported tsig algorithm: %s", algorithm)
	}

	return &TSIG{
		Name:      dns.Fqdn(name),
		Secret:    secret,
		Algorithm: alg,
	}, nil
}

// String identifies the key without revealing the secret.
func (t *TSIG) String() string {
	if t == nil {
		return "none"
	}
	return strings.TrimSuffix(t.Name, ".")
}

// ApplyToClient installs the key on a dns.Client so responses can be verified.
func (t *TSIG) ApplyToClient(client *dns.Client) {
	if t == nil {
		return
	}
	client.TsigSecret = map[string]string{t.Name: t.Secret}
}

// ApplyToMessage adds the TSIG record to a message. It must be the last
// change made to the message before it is sent.
func (t *TSIG) ApplyToMessage(msg *dns.Msg) {
	if t == nil {
		return
	}
	msg.SetTsig(t.Name, t.Algorithm, DefaultFudge, 0)
}

// normalizeAlgorithm normalizes algorithm strings to miekg/dns format.
func normalizeAlgorithm(alg string) string {
	normalized := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(alg)), ".")

	switch normalized {
	case "":
		return DefaultTSIGAlgorithm
	case "hmac-md5", "md5", "hmac-md5.sig-alg.reg.int":
		return dns.HmacMD5
	case "hmac-sha1", "sha1":
		return dns.HmacSHA1
	case "hmac-sha224", "sha224":
		return dns.HmacSHA224
	case "hmac-sha256", "sha256":
		return dns.HmacSHA256
	case "hmac-sha384", "sha384":
		return dns.HmacSHA384
	case "hmac-sha512", "sha512":
		return dns.HmacSHA512
	default:
		return alg
	}
}

// isValidAlgorithm checks if the algorithm is supported.
func isValidAlgorithm(alg string) bool {
	switch alg {
	case dns.HmacMD5, dns.HmacSHA1, dns.HmacSHA224, dns.HmacSHA256, dns.HmacSHA384, dns.HmacSHA512:
		return true
	default:
		return false
	}
}
