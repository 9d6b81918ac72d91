// Package tsigkey turns key references from the configuration into TSIG key
// material.
//
// A reference takes one of these forms:
//
//	hmac-sha256:name:secret              inline key
//	name:secret                          inline key, hmac-sha256
//	/etc/bind/ddns.key:name              key "name" from a BIND key file
//	ssh://user@host:22/etc/bind/k.key:name  the same, read over SFTP
//
// Files are parsed once and cached by the Loader.
package tsigkey

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// DefaultAlgorithm is used by inline references that omit the algorithm.
const DefaultAlgorithm = dns.HmacSHA256

// ErrInvalidReference is returned for references that match none of the
// supported forms.
var ErrInvalidReference = errors.New("invalid key reference")

// Material is a resolved TSIG key.
type Material struct {
	// Name is the key name in canonical form with a trailing dot.
	Name string
	// Algorithm is the miekg/dns algorithm name, e.g. dns.HmacSHA256.
	Algorithm string
	// Secret is the base64-encoded shared secret.
	Secret string
}

// String identifies the key without revealing the secret.
func (m Material) String() string {
	return fmt.Sprintf("%s (%s)", strings.TrimSuffix(m.Name, "."), strings.TrimSuffix(m.Algorithm, "."))
}

// Validate checks that the material can sign a message.
func (m Material) Validate() error {
	if m.Name == "" || m.Name == "." {
		return errors.New("key name is empty")
	}
	if !isSupportedAlgorithm(m.Algorithm) {
		return fmt.Errorf("key %s: unsupported algorithm %q", m.Name, m.Algorithm)
	}
	if m.Secret == "" {
		return fmt.Errorf("key %s: secret is empty", m.Name)
	}
	if _, err := base64.StdEncoding.DecodeString(m.Secret); err != nil {
		return fmt.Errorf("key %s: secret is not valid base64: %w", m.Name, err)
	}
	return nil
}

// newMaterial builds Material with a canonical name and algorithm.
func newMaterial(name, algorithm, secret string) Material {
	return Material{
		Name:      canonicalName(name),
		Algorithm: CanonicalAlgorithm(algorithm),
		Secret:    strings.TrimSpace(secret),
	}
}

func canonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return dns.Fqdn(name)
}

// CanonicalAlgorithm maps the algorithm names found in configuration and key
// files to miekg/dns constants. The legacy "hmac-md5" spelling becomes
// "hmac-md5.sig-alg.reg.int.". An empty name yields DefaultAlgorithm; unknown
// names are returned lower-cased with a trailing dot.
func CanonicalAlgorithm(alg string) string {
	normalized := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(alg)), ".")

	switch normalized {
	case "":
		return DefaultAlgorithm
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
		return normalized + "."
	}
}

func isSupportedAlgorithm(alg string) bool {
	switch alg {
	case dns.HmacMD5, dns.HmacSHA1, dns.HmacSHA224, dns.HmacSHA256, dns.HmacSHA384, dns.HmacSHA512:
		return true
	default:
		return false
	}
}
