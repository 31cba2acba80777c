// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrOutboundNotAllowed indicates the manifest host is blocked by policy.
var ErrOutboundNotAllowed = errors.New("outbound url not allowed")

// LookupFunc resolves a host name to addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// OutboundPolicy decides which hosts the engine may fetch manifests from.
// With BlockPrivate unset every host is allowed.
type OutboundPolicy struct {
	BlockPrivate bool
	AllowHosts   []string
	AllowCIDRs   []string
}

// Guard is a compiled OutboundPolicy.
type Guard struct {
	block  bool
	hosts  map[string]struct{}
	cidrs  []netip.Prefix
	lookup LookupFunc
}

// NewGuard compiles p. A nil lookup uses net.DefaultResolver.
func NewGuard(p OutboundPolicy, lookup LookupFunc) (*Guard, error) {
	g := &Guard{block: p.BlockPrivate, hosts: make(map[string]struct{}), lookup: lookup}
	if g.lookup == nil {
		g.lookup = defaultLookup
	}
	for _, h := range p.AllowHosts {
		n, err := NormalizeHost(h)
		if err != nil {
			return nil, err
		}
		g.hosts[n] = struct{}{}
	}
	cidrs, err := parseCIDRAllowlist(p.AllowCIDRs)
	if err != nil {
		return nil, err
	}
	g.cidrs = cidrs
	return g, nil
}

// Check resolves the host of rawURL and rejects loopback, private,
// link-local and unspecified targets that are not allowlisted.
func (g *Guard) Check(ctx context.Context, rawURL string) error {
	if g == nil || !g.block {
		return nil
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return err
	}
	if _, ok := g.hosts[host]; ok {
		return nil
	}

	var addrs []netip.Addr
	if ip, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{ip}
	} else {
		addrs, err = g.lookup(ctx, host)
		if err != nil {
			return fmt.Errorf("resolve host %q: %w", host, err)
		}
		if len(addrs) == 0 {
			return fmt.Errorf("resolve host %q: no addresses", host)
		}
	}
	for _, ip := range addrs {
		ip = ip.Unmap()
		if isBlockedIP(ip) && !ipInCIDRs(ip, g.cidrs) {
			return fmt.Errorf("%w: %s resolves to %s", ErrOutboundNotAllowed, host, ip)
		}
	}
	return nil
}

// NormalizeHost validates and normalizes a host for comparison.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.ContainsAny(host, "/@") {
		return "", fmt.Errorf("host must not include path or userinfo: %s", raw)
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.String(), nil
	}
	if strings.Contains(host, ":") {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

func parseCIDRAllowlist(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, p.Masked())
			continue
		}
		ip, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR or IP: %s", entry)
		}
		out = append(out, netip.PrefixFrom(ip, ip.BitLen()))
	}
	return out, nil
}

func defaultLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

func isBlockedIP(ip netip.Addr) bool {
	return !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast()
}

func ipInCIDRs(ip netip.Addr, cidrs []netip.Prefix) bool {
	for _, p := range cidrs {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
