package model

import (
	"maps"
	"slices"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
)

// GlobalGroup is the name of the base-layer group every component starts in
const GlobalGroup = "0.0.0.0"

// Group is a named cluster of components (a subnet or an imported
// template instance)
type Group struct {
	ID              string            `json:"id" yaml:"id"`
	Name            string            `json:"name" yaml:"name"`
	Members         []string          `json:"members" yaml:"members"`
	Cables          []string          `json:"cables" yaml:"cables"`
	GroupInterfaces []string          `json:"group_interfaces" yaml:"group_interfaces"`
	GroupSwitches   map[string]string `json:"group_switches" yaml:"group_switches"` // switch name -> group switch id
	Placement       `yaml:",inline"`
}

// Clone returns a deep copy
func (g Group) Clone() Group {
	g.Members = slices.Clone(g.Members)
	g.Cables = slices.Clone(g.Cables)
	g.GroupInterfaces = slices.Clone(g.GroupInterfaces)
	g.GroupSwitches = maps.Clone(g.GroupSwitches)
	g.Placement = g.Placement.clone()
	return g
}

// GroupInterface is a gateway joining an endpoint inside a group to an
// endpoint in the global group
type GroupInterface struct {
	ID          string        `json:"id" yaml:"id"`
	Group       string        `json:"group" yaml:"group"`
	Inner       string        `json:"inner" yaml:"inner"`
	Outer       string        `json:"outer" yaml:"outer"`
	Orientation geometry.Side `json:"orientation" yaml:"orientation"`
	Cable       string        `json:"cable,omitempty" yaml:"cable,omitempty"`
	Synthetic   bool          `json:"synthetic" yaml:"synthetic"`
}

// VirtualInterface is a non-physical port anchoring a GroupInterface
type VirtualInterface struct {
	ID             string        `json:"id" yaml:"id"`
	Switch         string        `json:"switch" yaml:"switch"`
	GroupSwitch    string        `json:"group_switch,omitempty" yaml:"group_switch,omitempty"`
	Group          string        `json:"group" yaml:"group"` // group the endpoint lives in
	Peer           string        `json:"peer" yaml:"peer"`   // group the link leads into
	GroupInterface string        `json:"group_interface" yaml:"group_interface"`
	Orientation    geometry.Side `json:"orientation" yaml:"orientation"`
}

// GroupSwitch is the projection of a switch into one group
type GroupSwitch struct {
	ID               string   `json:"id" yaml:"id"`
	Switch           string   `json:"switch" yaml:"switch"`
	Group            string   `json:"group" yaml:"group"`
	VirtualInterface string   `json:"virtual_interface" yaml:"virtual_interface"`
	Interfaces       []string `json:"interfaces" yaml:"interfaces"`
	Placement        `yaml:",inline"`
}

// Clone returns a deep copy
func (g GroupSwitch) Clone() GroupSwitch {
	g.Interfaces = slices.Clone(g.Interfaces)
	g.Placement = g.Placement.clone()
	return g
}
