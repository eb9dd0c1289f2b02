// Package snmpimport builds a switch from the port table of a live
// device.
package snmpimport

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

// IfDescrOID is IF-MIB::ifDescr.
const IfDescrOID = ".1.3.6.1.2.1.2.2.1.2"

// Port is one row of the device's interface table
type Port struct {
	Index int    `json:"index"`
	Descr string `json:"descr"`
}

// Walker lists the ports of a device
type Walker interface {
	Ports(ctx context.Context, target string) ([]Port, error)
}

// SNMPWalker reads IF-MIB over SNMP v2c
type SNMPWalker struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// Ports walks ifDescr on target and returns the rows ordered by ifIndex.
func (w *SNMPWalker) Ports(ctx context.Context, target string) ([]Port, error) {
	g := &gosnmp.GoSNMP{
		Target:    target,
		Port:      w.Port,
		Community: w.Community,
		Version:   gosnmp.Version2c,
		Timeout:   w.Timeout,
		Retries:   w.Retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}
	if g.Port == 0 {
		g.Port = 161
	}
	if g.Community == "" {
		g.Community = "public"
	}
	if g.Timeout == 0 {
		g.Timeout = 5 * time.Second
	}

	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	defer g.Conn.Close()

	pdus, err := g.BulkWalkAll(IfDescrOID)
	if err != nil {
		return nil, fmt.Errorf("walking ifDescr on %s: %w", target, err)
	}
	return parsePDUs(pdus), nil
}

func parsePDUs(pdus []gosnmp.SnmpPDU) []Port {
	ports := make([]Port, 0, len(pdus))
	for _, pdu := range pdus {
		idx, err := strconv.Atoi(pdu.Name[strings.LastIndex(pdu.Name, ".")+1:])
		if err != nil {
			continue
		}
		var descr string
		switch v := pdu.Value.(type) {
		case []byte:
			descr = string(v)
		case string:
			descr = v
		default:
			descr = fmt.Sprint(v)
		}
		ports = append(ports, Port{Index: idx, Descr: strings.TrimSpace(descr)})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Index < ports[j].Index })
	return ports
}

// Importer creates switches from walked devices
type Importer struct {
	store  *topology.Store
	walker Walker
	side   geometry.Side
}

// NewImporter returns an importer placing ports on the bottom edge.
func NewImporter(store *topology.Store, walker Walker) *Importer {
	return &Importer{store: store, walker: walker, side: geometry.Bottom}
}

// Request describes one import
type Request struct {
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
	Group  string `json:"group,omitempty"`
}

// Import walks req.Target and adds a switch with one interface per port,
// labelled with the port description. Nothing is added if the walk fails
// or returns no ports.
func (im *Importer) Import(ctx context.Context, req Request) (model.ComponentView, error) {
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return model.ComponentView{}, errs.Invalidf("empty import target")
	}
	ports, err := im.walker.Ports(ctx, target)
	if err != nil {
		return model.ComponentView{}, err
	}
	if len(ports) == 0 {
		return model.ComponentView{}, errs.Invalidf("device %s reported no interfaces", target)
	}

	label := req.Label
	if label == "" {
		label = target
	}
	sw, err := im.store.CreateComponent(topology.ComponentSpec{
		Kind:  model.KindSwitch,
		Label: label,
		Group: req.Group,
	})
	if err != nil {
		return model.ComponentView{}, err
	}

	for _, p := range ports {
		descr := p.Descr
		if descr == "" {
			descr = "if" + strconv.Itoa(p.Index)
		}
		if _, err := im.store.AddInterface(sw.Name, topology.InterfaceSpec{Orientation: im.side, Label: descr}); err != nil {
			if rmErr := im.store.RemoveComponent(sw.Name); rmErr != nil {
				log.Warn("Failed to roll back partial import", "component", sw.Name, "error", rmErr)
			}
			return model.ComponentView{}, err
		}
	}

	log.Info("Imported switch over SNMP", "target", target, "component", sw.Name, "ports", len(ports))
	return im.store.ComponentView(sw.Name)
}
