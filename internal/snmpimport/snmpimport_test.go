package snmpimport

import (
	"context"
	"errors"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

type fakeWalker struct {
	ports []Port
	err   error
}

func (f fakeWalker) Ports(context.Context, string) ([]Port, error) {
	return f.ports, f.err
}

func TestParsePDUs(t *testing.T) {
	pdus := []gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.2.1.2.2.1.2.10", Type: gosnmp.OctetString, Value: []byte("Gi0/10 ")},
		{Name: ".1.3.6.1.2.1.2.2.1.2.2", Type: gosnmp.OctetString, Value: []byte("Gi0/2")},
		{Name: ".1.3.6.1.2.1.2.2.1.2.bad", Type: gosnmp.OctetString, Value: []byte("x")},
		{Name: ".1.3.6.1.2.1.2.2.1.2.1", Type: gosnmp.Integer, Value: 7},
	}
	got := parsePDUs(pdus)
	assert.Equal(t, []Port{{1, "7"}, {2, "Gi0/2"}, {10, "Gi0/10"}}, got)
}

func TestImport(t *testing.T) {
	s := topology.New()
	im := NewImporter(s, fakeWalker{ports: []Port{{1, "Gi0/1"}, {2, ""}, {3, "Gi0/3"}}})

	view, err := im.Import(context.Background(), Request{Target: "10.0.0.2", Group: "core"})
	require.NoError(t, err)

	assert.Equal(t, model.KindSwitch, view.Component.Kind)
	assert.Equal(t, "10.0.0.2", view.Component.Label)
	require.Len(t, view.Component.Interfaces, 3)
	var labels []string
	for _, n := range view.Component.Interfaces {
		labels = append(labels, view.Interfaces[n].Label)
		assert.Equal(t, geometry.Bottom, view.Interfaces[n].Orientation)
	}
	assert.Equal(t, []string{"Gi0/1", "if2", "Gi0/3"}, labels)

	g, err := s.GetGroup("core")
	require.NoError(t, err)
	assert.Contains(t, g.Members, view.Component.Name)
}

func TestImportErrors(t *testing.T) {
	s := topology.New()

	_, err := NewImporter(s, fakeWalker{}).Import(context.Background(), Request{Target: " "})
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = NewImporter(s, fakeWalker{}).Import(context.Background(), Request{Target: "sw1"})
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	boom := errors.New("timeout")
	_, err = NewImporter(s, fakeWalker{err: boom}).Import(context.Background(), Request{Target: "sw1"})
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, s.ListComponents())
}
