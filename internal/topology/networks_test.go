package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

func TestRegisterNetwork(t *testing.T) {
	s, rec := newStore(t)

	n, err := s.RegisterNetwork("10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, model.Network{CIDR: "10.0.0.0/30", Address: "10.0.0.0", Prefix: 30, Version: 4, Size: "2"}, n)

	again, err := s.RegisterNetwork(" 10.0.0.0/30 ")
	require.NoError(t, err)
	assert.Equal(t, n, again)
	assert.Equal(t, 1, rec.Count(OpCreated, EntityNetwork))

	_, err = s.RegisterNetwork("10.0.0.0/24")
	assert.True(t, errs.Is(err, errs.InvariantViolation), "same address, other prefix")
	_, err = s.RegisterNetwork("10.0.0.1/30")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = s.RegisterNetwork("banana")
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	v6, err := s.RegisterNetwork("2001:db8::/126")
	require.NoError(t, err)
	assert.Equal(t, 6, v6.Version)

	assert.Len(t, s.ListNetworks(), 2)
	_, err = s.GetNetwork("192.168.0.0/24")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestAllocateSlash30(t *testing.T) {
	s, _ := newStore(t)
	h := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)})
	name := h.Interfaces[0]
	_, err := s.RegisterNetwork("10.0.0.0/30")
	require.NoError(t, err)

	first, err := s.AllocateAddress(name, "10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, model.IPConfig{Address: "10.0.0.1", Network: "10.0.0.0/30"}, first)
	second, err := s.AllocateAddress(name, "10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", second.Address)

	_, err = s.AllocateAddress(name, "10.0.0.0/30")
	assert.True(t, errs.Is(err, errs.Exhausted))
	_, err = s.NextFreeAddress("10.0.0.0/30")
	assert.True(t, errs.Is(err, errs.Exhausted))

	require.NoError(t, s.ReleaseAddress(name, "10.0.0.1"))
	next, err := s.NextFreeAddress("10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", next)

	n, err := s.GetNetwork("10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2"}, n.Allocated)
}

func TestAssignAddress(t *testing.T) {
	s, rec := newStore(t)
	h := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(2, geometry.Top)})
	_, err := s.RegisterNetwork("192.168.1.0/24")
	require.NoError(t, err)
	rec.Reset()

	cfg, err := s.AssignAddress(h.Interfaces[0], "192.168.1.10", "192.168.1.0/24")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10", cfg.Address)
	assert.Equal(t, 2, countAttr(rec, AttrAddresses), "interface and network are both reported")

	tests := []struct {
		name, iface, addr, cidr string
		kind                    error
	}{
		{"in use", h.Interfaces[1], "192.168.1.10", "192.168.1.0/24", errs.InvariantViolation},
		{"out of range", h.Interfaces[1], "192.168.2.1", "192.168.1.0/24", errs.InvariantViolation},
		{"network address", h.Interfaces[1], "192.168.1.0", "192.168.1.0/24", errs.InvariantViolation},
		{"last address", h.Interfaces[1], "192.168.1.255", "192.168.1.0/24", errs.InvariantViolation},
		{"malformed", h.Interfaces[1], "192.168.1", "192.168.1.0/24", errs.InvalidArgument},
		{"wrong family", h.Interfaces[1], "fe80::1", "192.168.1.0/24", errs.InvalidArgument},
		{"unknown network", h.Interfaces[1], "10.0.0.1", "10.0.0.0/8", errs.NotFound},
		{"unknown interface", "nope", "192.168.1.11", "192.168.1.0/24", errs.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AssignAddress(tt.iface, tt.addr, tt.cidr)
			assert.True(t, errs.Is(err, tt.kind), "got %v", err)
		})
	}

	assert.True(t, errs.Is(s.ReleaseAddress(h.Interfaces[1], "192.168.1.10"), errs.NotFound))
	assert.True(t, errs.Is(s.RemoveNetwork("192.168.1.0/24"), errs.InvariantViolation))

	// Removing the interface hands its addresses back.
	require.NoError(t, s.RemoveInterface(h.Interfaces[0]))
	n, err := s.GetNetwork("192.168.1.0/24")
	require.NoError(t, err)
	assert.Empty(t, n.Allocated)
	require.NoError(t, s.RemoveNetwork("192.168.1.0/24"))
	assert.Empty(t, s.ListNetworks())
}

func TestNextFreeDoesNotReserve(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.RegisterNetwork("10.9.0.0/29")
	require.NoError(t, err)

	a, err := s.NextFreeAddress("10.9.0.0/29")
	require.NoError(t, err)
	b, err := s.NextFreeAddress("10.9.0.0/29")
	require.NoError(t, err)
	assert.Equal(t, "10.9.0.1", a)
	assert.Equal(t, a, b, "the cursor stays put")

	n, err := s.GetNetwork("10.9.0.0/29")
	require.NoError(t, err)
	assert.Empty(t, n.Allocated, "nothing is reserved")

	h := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)})
	got, err := s.AllocateAddress(h.Interfaces[0], "10.9.0.0/29")
	require.NoError(t, err)
	assert.Equal(t, a, got.Address, "allocation hands out the address that was shown")
	next, err := s.NextFreeAddress("10.9.0.0/29")
	require.NoError(t, err)
	assert.Equal(t, "10.9.0.2", next)
}

func TestNetworkSummary(t *testing.T) {
	s, _ := newStore(t)
	for _, c := range []string{"10.0.0.0/25", "10.0.0.128/25", "172.16.0.0/24"} {
		_, err := s.RegisterNetwork(c)
		require.NoError(t, err)
	}

	sum, err := s.NetworkSummary()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24", "172.16.0.0/24"}, sum)

	empty, err := New().NetworkSummary()
	require.NoError(t, err)
	assert.Empty(t, empty)
}
