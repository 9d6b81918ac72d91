package dnsupdate

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Default configuration values.
const (
	// DefaultPort is the standard DNS port.
	DefaultPort = 53

	// DefaultTimeout is the default timeout for a single exchange.
	DefaultTimeout = 10 * time.Second

	// DefaultTSIGAlgorithm is the default TSIG algorithm if none specified.
	DefaultTSIGAlgorithm = dns.HmacSHA256

	// DefaultFudge is the allowed clock skew for TSIG signatures, in seconds.
	DefaultFudge = 300
)

// Config holds transport settings shared by every exchange. The server and
// zone are chosen per call.
type Config struct {
	// Timeout bounds each exchange (default: 10s).
	Timeout time.Duration

	// UseTCP forces TCP transport instead of UDP.
	UseTCP bool

	// Port is used for servers given without one (default: 53).
	Port int
}

// GetTimeout returns the configured timeout or the default.
func (c Config) GetTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// GetPort returns the configured port or the default.
func (c Config) GetPort() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultPort
}

// Network returns the dns.Client network name.
func (c Config) Network() string {
	if c.UseTCP {
		return "tcp"
	}
	return "udp"
}

// ServerAddress returns server in host:port form, appending defaultPort when
// server carries none. Bare and bracketed IPv6 literals are accepted.
func ServerAddress(server string, defaultPort int) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	host := strings.TrimSuffix(strings.TrimPrefix(server, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(defaultPort))
}
