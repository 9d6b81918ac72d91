package dnsupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Sentinel errors for RFC 2136 operations.
var (
	// ErrUpdateFailed is returned when the DNS UPDATE operation fails.
	ErrUpdateFailed = errors.New("dns update failed")

	// ErrRecordNotFound is returned when a prerequisite RRset does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned when a prerequisite RRset unexpectedly exists.
	ErrRecordExists = errors.New("record already exists")

	// ErrAuthenticationFailed is returned when TSIG authentication fails.
	ErrAuthenticationFailed = errors.New("tsig authentication failed")

	// ErrConnectionFailed is returned when the DNS server cannot be reached.
	ErrConnectionFailed = errors.New("connection to dns server failed")

	// ErrZoneMismatch is returned when a record name is outside the update zone.
	ErrZoneMismatch = errors.New("record name does not match zone")

	// ErrLookupFailed is returned when a query gets an error response.
	ErrLookupFailed = errors.New("dns lookup failed")
)

// NoResponse is the status reported when no response was received.
const NoResponse = -1

// Client sends RFC 2136 updates and plain queries. It holds no per-zone
// state; server, zone and key are given on every call.
type Client struct {
	config Config
	logger *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the DNS update client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client with the given transport settings.
func NewClient(config Config, opts ...ClientOption) *Client {
	c := &Client{
		config: config,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Config returns the transport settings.
func (c *Client) Config() Config {
	return c.config
}

// newDNSClient returns a dns.Client for one exchange. A fresh client is used
// per call because the TSIG secret map differs between exchanges.
func (c *Client) newDNSClient(network string, tsig *TSIG) *dns.Client {
	client := &dns.Client{
		Net:     network,
		Timeout: c.config.GetTimeout(),
	}
	tsig.ApplyToClient(client)
	return client
}

// SendUpdate sends one update transaction for zone to server and returns
// the response code. The error is non-nil when the exchange failed or the
// server answered with anything but NOERROR.
func (c *Client) SendUpdate(ctx context.Context, server, zone string, tsig *TSIG, ops []Operation) (int, error) {
	msg, err := BuildUpdate(zone, ops)
	if err != nil {
		return NoResponse, err
	}
	tsig.ApplyToMessage(msg)

	addr := ServerAddress(server, c.config.GetPort())
	if addr == "" {
		return NoResponse, fmt.Errorf("%w: no server given", ErrUpdateFailed)
	}

	c.logger.Debug("sending DNS update",
		slog.String("server", addr),
		slog.String("zone", dns.Fqdn(zone)),
		slog.Int("operations", len(ops)),
		slog.String("key", tsig.String()),
		slog.Bool("tcp", c.config.UseTCP),
	)

	resp, rtt, err := c.exchangeWithContext(ctx, c.newDNSClient(c.config.Network(), tsig), msg, addr)
	if err != nil {
		return NoResponse, exchangeError(err)
	}

	if err := checkResponse(resp); err != nil {
		c.logger.Debug("DNS update rejected",
			slog.String("zone", dns.Fqdn(zone)),
			slog.String("rcode", dns.RcodeToString[resp.Rcode]),
		)
		return resp.Rcode, err
	}

	c.logger.Debug("DNS update applied",
		slog.String("zone", dns.Fqdn(zone)),
		slog.Duration("rtt", rtt),
	)

	return resp.Rcode, nil
}

// LookupResult is the outcome of a Lookup. A failed lookup carries Err and
// no addresses; callers decide whether to treat that as "nothing found".
type LookupResult struct {
	Addresses []string
	Err       error
}

// Found reports whether the lookup succeeded and returned addresses.
func (r LookupResult) Found() bool {
	return r.Err == nil && len(r.Addresses) > 0
}

// Lookup queries server directly for the A or AAAA records of name. An
// NXDOMAIN or empty answer is a successful lookup with no addresses.
// Truncated UDP answers are retried over TCP.
func (c *Client) Lookup(ctx context.Context, server, name string, qtype uint16) LookupResult {
	addr := ServerAddress(server, c.config.GetPort())
	fqdn := dns.Fqdn(name)

	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = false

	c.logger.Debug("querying DNS records",
		slog.String("server", addr),
		slog.String("name", fqdn),
		slog.String("type", dns.TypeToString[qtype]),
	)

	resp, _, err := c.exchangeWithContext(ctx, c.newDNSClient(c.config.Network(), nil), msg, addr)
	if err == nil && resp.Truncated && !c.config.UseTCP {
		resp, _, err = c.exchangeWithContext(ctx, c.newDNSClient("tcp", nil), msg, addr)
	}
	if err != nil {
		return LookupResult{Err: fmt.Errorf("%w: %w", ErrLookupFailed, exchangeError(err))}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return LookupResult{}
	default:
		return LookupResult{Err: fmt.Errorf("%w: %s %s returned %s", ErrLookupFailed, fqdn, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])}
	}

	var addrs []string
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype || !strings.EqualFold(rr.Header().Name, fqdn) {
			continue
		}
		if a, ok := addressFromRR(rr); ok {
			addrs = append(addrs, a)
		}
	}

	c.logger.Debug("DNS query complete",
		slog.String("name", fqdn),
		slog.Int("count", len(addrs)),
	)

	return LookupResult{Addresses: addrs}
}

// exchangeWithContext performs DNS exchange with context support.
func (c *Client) exchangeWithContext(ctx context.Context, client *dns.Client, msg *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
	type result struct {
		resp *dns.Msg
		rtt  time.Duration
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		resp, rtt, err := client.Exchange(msg, addr)
		ch <- result{resp, rtt, err}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case r := <-ch:
		if r.err == nil && r.resp == nil {
			return nil, r.rtt, errors.New("empty response")
		}
		return r.resp, r.rtt, r.err
	}
}

// exchangeError classifies an error returned by the exchange itself.
func exchangeError(err error) error {
	switch {
	case errors.Is(err, dns.ErrSig), errors.Is(err, dns.ErrTime), errors.Is(err, dns.ErrKey), errors.Is(err, dns.ErrSecret):
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case IsNetworkError(err):
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
}

// checkResponse checks the DNS response for errors.
func checkResponse(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("%w: no response from server", ErrUpdateFailed)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil

	case dns.RcodeNotAuth:
		// Server is not authoritative or TSIG failed
		if resp.IsTsig() != nil {
			return fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return fmt.Errorf("%w: server not authoritative for zone", ErrUpdateFailed)

	case dns.RcodeRefused:
		return fmt.Errorf("%w: update refused (check server policy or TSIG configuration)", ErrUpdateFailed)

	default:
		return RcodeToError(resp.Rcode)
	}
}

// RcodeToError converts a DNS rcode to an appropriate error.
func RcodeToError(rcode int) error {
	switch rcode {
	case dns.RcodeSuccess:
		return nil
	case NoResponse:
		return fmt.Errorf("%w: no response from server", ErrUpdateFailed)
	case dns.RcodeYXRrset:
		return ErrRecordExists
	case dns.RcodeNXRrset:
		return ErrRecordNotFound
	case dns.RcodeNotAuth, dns.RcodeBadSig, dns.RcodeBadKey, dns.RcodeBadTime:
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, RcodeString(rcode))
	case dns.RcodeNotZone:
		return ErrZoneMismatch
	default:
		return fmt.Errorf("%w: %s", ErrUpdateFailed, RcodeString(rcode))
	}
}

// RcodeString returns the mnemonic of rcode, e.g. "NOERROR".
func RcodeString(rcode int) string {
	if rcode == NoResponse {
		return "NORESPONSE"
	}
	if s, ok := dns.RcodeToString[rcode]; ok {
		return s
	}
	return fmt.Sprintf("RCODE%d", rcode)
}

// IsNetworkError checks if an error is a network-related error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}
