// Package netgate decides whether a request's network origin is inside the
// permitted prefix. Presence-marking is restricted to the on-site network;
// this gate is the only place that policy lives.
package netgate

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// DeniedError reports an address outside the permitted network. The evaluated
// address is echoed back for diagnostics.
type DeniedError struct {
	Addr string
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("address %s is outside the permitted network", e.Addr)
}

// Gate checks resolved source addresses against a configured prefix.
type Gate struct {
	prefix netip.Prefix
	// loopback requests (local testing behind no proxy) are rewritten to this
	// canonical in-network address instead of being rejected.
	loopbackRewrite netip.Addr
}

// New builds a gate for the given CIDR. loopbackRewrite may be empty to
// disable the loopback rewrite.
func New(cidr, loopbackRewrite string) (*Gate, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("netgate: bad cidr %q: %w", cidr, err)
	}
	g := &Gate{prefix: prefix.Masked()}
	if loopbackRewrite != "" {
		addr, err := netip.ParseAddr(loopbackRewrite)
		if err != nil {
			return nil, fmt.Errorf("netgate: bad loopback rewrite %q: %w", loopbackRewrite, err)
		}
		g.loopbackRewrite = addr
	}
	return g, nil
}

// Resolve normalizes the caller's source address: the first forwarded-for
// entry wins, otherwise the transport remote address; v4-in-v6 mappings are
// unwrapped.
func Resolve(forwardedFor, remoteAddr string) (netip.Addr, error) {
	candidate := remoteAddr
	if forwardedFor != "" {
		candidate = strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}
	if host, _, err := net.SplitHostPort(candidate); err == nil {
		candidate = host
	}
	addr, err := netip.ParseAddr(candidate)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("netgate: unparseable source address %q: %w", candidate, err)
	}
	return addr.Unmap(), nil
}

// Check evaluates addr against the permitted prefix and returns the address
// that was actually evaluated (after any loopback rewrite).
func (g *Gate) Check(addr netip.Addr) (netip.Addr, error) {
	if addr.IsLoopback() && g.loopbackRewrite.IsValid() {
		addr = g.loopbackRewrite
	}
	if !g.prefix.Contains(addr) {
		return addr, DeniedError{Addr: addr.String()}
	}
	return addr, nil
}

// CheckRequest resolves and checks in one call, returning the evaluated
// address as a string for recording on attendance rows.
func (g *Gate) CheckRequest(forwardedFor, remoteAddr string) (string, error) {
	addr, err := Resolve(forwardedFor, remoteAddr)
	if err != nil {
		return "", err
	}
	evaluated, err := g.Check(addr)
	if err != nil {
		return evaluated.String(), err
	}
	return evaluated.String(), nil
}
