package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", JSON, false},
		{"JSON", JSON, false},
		{"yaml", YAML, false},
		{" yml ", YAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.True(t, errs.Is(err, errs.InvalidArgument), "ParseFormat(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func sampleSnapshot(t *testing.T) model.Snapshot {
	t.Helper()
	s := topology.New()
	sw, err := s.CreateComponent(topology.ComponentSpec{Kind: model.KindSwitch, Orientations: []geometry.Side{geometry.Bottom}})
	require.NoError(t, err)
	h, err := s.CreateComponent(topology.ComponentSpec{Kind: model.KindHost, Orientations: []geometry.Side{geometry.Top}, Group: "lab"})
	require.NoError(t, err)
	_, err = s.Connect(topology.CableSpec{Left: sw.Interfaces[0], Right: h.Interfaces[0]})
	require.NoError(t, err)
	_, err = s.RegisterNetwork("192.168.1.0/24")
	require.NoError(t, err)
	_, _, err = s.EnsureVLAN(topology.VLANSpec{Name: "users"})
	require.NoError(t, err)
	require.NoError(t, s.SynthesizeBoundaries(sw.Name))
	return s.Snapshot()
}

func TestRoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)
	for _, f := range []Format{JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, f, snap))

			got, err := Decode(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, len(snap.Groups), len(got.Groups))
			assert.Equal(t, snap.Cables, got.Cables)
			assert.Equal(t, snap.VLANs, got.VLANs)
			assert.Equal(t, snap.Summary, got.Summary)
			assert.Equal(t, snap.Groups["lab"].Group.Members, got.Groups["lab"].Group.Members)
		})
	}
}

func TestEncodeSidesAsText(t *testing.T) {
	out, err := Marshal(YAML, sampleSnapshot(t))
	require.NoError(t, err)
	assert.Contains(t, string(out), "orientation: TOP")

	out, err = Marshal(JSON, sampleSnapshot(t))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"orientation": "BOTTOM"`)
}

func TestUnknownFormat(t *testing.T) {
	err := Encode(&strings.Builder{}, Format("toml"), model.Snapshot{})
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = Decode(strings.NewReader(""), Format("toml"))
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	assert.Equal(t, "application/yaml", YAML.ContentType())
	assert.Equal(t, "application/json", JSON.ContentType())
}
