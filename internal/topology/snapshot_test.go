package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

func TestSnapshot(t *testing.T) {
	s, _ := newStore(t)
	sw, hosts := fanOut(t, s, "lan", "")
	require.NoError(t, s.SynthesizeAll())
	_, _, err := s.EnsureVLAN(VLANSpec{Name: "mgmt"})
	require.NoError(t, err)
	for _, c := range []string{"10.0.0.0/25", "10.0.0.128/25"} {
		_, err := s.RegisterNetwork(c)
		require.NoError(t, err)
	}

	snap := s.Snapshot()

	require.Contains(t, snap.Groups, model.GlobalGroup)
	require.Contains(t, snap.Groups, "lan")
	global := snap.Groups[model.GlobalGroup]
	assert.Contains(t, global.Components, sw.Name)
	assert.Contains(t, global.Components, hosts[1].Name)
	assert.Len(t, global.Components[sw.Name].Interfaces, 2)

	lan := snap.Groups["lan"]
	assert.Contains(t, lan.Components, hosts[0].Name)
	assert.Len(t, lan.GroupSwitches, 1)
	assert.Len(t, lan.GroupInterfaces, 1)
	assert.Len(t, lan.Cables, 1)

	assert.Len(t, snap.Cables, 2)
	assert.Len(t, snap.VirtualInterfaces, 2)
	assert.Contains(t, snap.VLANs, "mgmt")
	assert.Contains(t, snap.Networks, "10.0.0.128/25")
	assert.Equal(t, []string{"10.0.0.0/24"}, snap.Summary)
}

func TestSnapshotIsDetached(t *testing.T) {
	s, _ := newStore(t)
	h := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)})

	snap := s.Snapshot()
	view := snap.Groups[model.GlobalGroup].Components[h.Name]
	view.Component.Interfaces[0] = "changed"

	got, err := s.GetComponent(h.Name)
	require.NoError(t, err)
	assert.Equal(t, h.Interfaces, got.Interfaces)
}

func TestGroupSnapshot(t *testing.T) {
	s, _ := newStore(t)
	_, hosts := fanOut(t, s, "lan", "dmz")
	require.NoError(t, s.SynthesizeAll())
	_, err := s.RegisterNetwork("10.1.0.0/24")
	require.NoError(t, err)

	snap, err := s.GroupSnapshot("lan")
	require.NoError(t, err)
	require.Len(t, snap.Groups, 1)
	assert.Contains(t, snap.Groups["lan"].Components, hosts[0].Name)
	assert.NotContains(t, snap.Groups["lan"].Components, hosts[1].Name)
	assert.Contains(t, snap.Networks, "10.1.0.0/24")
	assert.Equal(t, []string{"10.1.0.0/24"}, snap.Summary)

	_, err = s.GroupSnapshot("missing")
	assert.Error(t, err)
}
