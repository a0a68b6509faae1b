package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"syscall"
	"time"
)

var (
	errBlockedAddress = errors.New("request to private/reserved network address is not allowed")
	errNoAddresses    = errors.New("host did not resolve to any address")
)

// Background:
// - https://snyk.io/articles/how-to-avoid-ssrf-vulnerability-in-go-applications/
// - https://logoi.dny.dev/2022/12/02/implementing-ssrf-protections-in-golang/

// reservedPrefixes are CIDR ranges not covered by the netip.Addr helper methods
// (IsLoopback, IsPrivate, IsLinkLocalUnicast, IsLinkLocalMulticast, IsUnspecified).
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),   // Carrier-grade NAT (RFC 6598)
	netip.MustParsePrefix("192.0.0.0/24"),    // IETF protocol assignments (RFC 6890)
	netip.MustParsePrefix("192.0.2.0/24"),    // TEST-NET-1 (RFC 5737)
	netip.MustParsePrefix("198.18.0.0/15"),   // Benchmarking (RFC 2544)
	netip.MustParsePrefix("198.51.100.0/24"), // TEST-NET-2 (RFC 5737)
	netip.MustParsePrefix("203.0.113.0/24"),  // TEST-NET-3 (RFC 5737)
}

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Guard refuses targets that resolve to private or reserved addresses. It
// runs before a browser is launched; a headless browser does its own DNS
// resolution, so the dial-time check used by HTTPLoader is not available.
type Guard struct {
	resolver Resolver
	enabled  bool
}

// NewGuard returns a Guard using the system resolver. A disabled guard
// accepts every target.
func NewGuard(enabled bool) *Guard {
	return &Guard{resolver: net.DefaultResolver, enabled: enabled}
}

// Check resolves the host of rawURL and fails if any address is blocked.
// Lookup failures are returned as-is so the caller fails fast on hosts that
// do not exist.
func (g *Guard) Check(ctx context.Context, rawURL string) error {
	if g == nil || !g.enabled {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := u.Hostname()

	if addr, err := netip.ParseAddr(host); err == nil {
		if isBlockedIP(addr) {
			return fmt.Errorf("%w: %s", errBlockedAddress, addr)
		}
		return nil
	}

	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s", errNoAddresses, host)
	}
	for _, addr := range addrs {
		if isBlockedIP(addr) {
			return fmt.Errorf("%w: %s resolves to %s", errBlockedAddress, host, addr)
		}
	}
	return nil
}

// safeDialer returns a net.Dialer whose Control function rejects connections
// to private, loopback, link-local, and other reserved IP ranges. The check
// runs at dial time (after DNS resolution), which also prevents DNS-rebinding.
func safeDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   blockPrivateAddresses,
	}
}

func blockPrivateAddresses(_ string, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %w", errBlockedAddress, err)
	}

	if isBlockedIP(addrPort.Addr()) {
		return fmt.Errorf("%w: %s", errBlockedAddress, addrPort.Addr())
	}

	return nil
}

func isBlockedIP(addr netip.Addr) bool {
	// Unmap IPv4-in-IPv6 (e.g. ::ffff:127.0.0.1 -> 127.0.0.1) so that
	// mapped addresses cannot bypass IPv4 checks.
	addr = addr.Unmap()

	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return true
	}

	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
