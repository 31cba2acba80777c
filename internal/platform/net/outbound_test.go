// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package net

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticLookup(table map[string][]string) LookupFunc {
	return func(_ context.Context, host string) ([]netip.Addr, error) {
		raw, ok := table[host]
		if !ok {
			return nil, errors.New("no such host")
		}
		out := make([]netip.Addr, 0, len(raw))
		for _, r := range raw {
			out = append(out, netip.MustParseAddr(r))
		}
		return out, nil
	}
}

func TestGuardCheck(t *testing.T) {
	lookup := staticLookup(map[string][]string{
		"cdn.example":      {"203.0.113.7"},
		"internal.lan":     {"10.1.2.3"},
		"mixed.example":    {"203.0.113.8", "192.168.1.5"},
		"xn--bcher-kva.ch": {"198.51.100.1"},
	})
	guard, err := NewGuard(OutboundPolicy{
		BlockPrivate: true,
		AllowHosts:   []string{"media.lan"},
		AllowCIDRs:   []string{"10.1.0.0/16"},
	}, lookup)
	require.NoError(t, err)

	cases := []struct {
		name    string
		rawURL  string
		blocked bool
	}{
		{"public host", "https://cdn.example/live.m3u8", false},
		{"allowlisted cidr", "http://internal.lan/a.m3u8", false},
		{"allowlisted host skips lookup", "http://media.lan/a.m3u8", false},
		{"idna host", "https://bücher.ch/a.m3u8", false},
		{"loopback literal", "http://127.0.0.1:8080/a.m3u8", true},
		{"metadata ip", "http://169.254.169.254/a.m3u8", true},
		{"ipv6 loopback", "http://[::1]/a.m3u8", true},
		{"any private address blocks", "http://mixed.example/a.m3u8", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.Check(context.Background(), tc.rawURL)
			if tc.blocked {
				assert.ErrorIs(t, err, ErrOutboundNotAllowed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGuardCheck_ResolveFailure(t *testing.T) {
	guard, err := NewGuard(OutboundPolicy{BlockPrivate: true}, staticLookup(nil))
	require.NoError(t, err)
	err = guard.Check(context.Background(), "http://unknown.example/a.m3u8")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOutboundNotAllowed)
}

func TestGuardCheck_DisabledAllowsEverything(t *testing.T) {
	guard, err := NewGuard(OutboundPolicy{}, nil)
	require.NoError(t, err)
	assert.NoError(t, guard.Check(context.Background(), "http://127.0.0.1/a.m3u8"))

	var nilGuard *Guard
	assert.NoError(t, nilGuard.Check(context.Background(), "http://127.0.0.1/a.m3u8"))
}

func TestNewGuard_InvalidAllowlist(t *testing.T) {
	_, err := NewGuard(OutboundPolicy{AllowCIDRs: []string{"not-a-cidr"}}, nil)
	assert.ErrorContains(t, err, "invalid CIDR")

	_, err = NewGuard(OutboundPolicy{AllowHosts: []string{"http://x"}}, nil)
	assert.Error(t, err)
}

func TestNormalizeHost(t *testing.T) {
	got, err := NormalizeHost("CDN.Example.")
	require.NoError(t, err)
	assert.Equal(t, "cdn.example", got)

	got, err = NormalizeHost("[2001:DB8::1]")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", got)

	_, err = NormalizeHost("cdn.example:443")
	assert.Error(t, err)
	_, err = NormalizeHost("")
	assert.Error(t, err)
}
