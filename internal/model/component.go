package model

import (
	"maps"
	"slices"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
)

// Kind is the type of a network component
type Kind string

const (
	KindHost   Kind = "host"
	KindSwitch Kind = "switch"
	KindVM     Kind = "vm"
)

// ParseKind accepts the kind names case-insensitively
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindHost, KindSwitch, KindVM:
		return k, nil
	}
	return "", errs.Invalidf("component kind %q", s)
}

// Placement holds the layout fields shared by components, groups and
// group switches
type Placement struct {
	Dimension geometry.Dimension `json:"dimension" yaml:"dimension"`
	Position  *geometry.Position `json:"position,omitempty" yaml:"position,omitempty"`
	Fixed     bool               `json:"fixed" yaml:"fixed"`
	Box       geometry.Dimension `json:"box" yaml:"box"`
	Offsets   geometry.Insets    `json:"offsets" yaml:"offsets"`
}

func (p Placement) clone() Placement {
	if p.Position != nil {
		pos := *p.Position
		if pos.Bounds != nil {
			b := *pos.Bounds
			pos.Bounds = &b
		}
		p.Position = &pos
	}
	return p
}

// Component is a host, switch or VM in the topology
type Component struct {
	Name       string   `json:"name" yaml:"name"`
	Label      string   `json:"label" yaml:"label"`
	Kind       Kind     `json:"kind" yaml:"kind"`
	Group      string   `json:"group" yaml:"group"` // group identifier
	Interfaces []string `json:"interfaces" yaml:"interfaces"`
	Placement  `yaml:",inline"`

	// Switch only: interfaces visible on the base layer, and the per-group
	// projections keyed by group identifier.
	RealInterfaces    []string          `json:"real_interfaces,omitempty" yaml:"real_interfaces,omitempty"`
	GroupSwitches     map[string]string `json:"group_switches,omitempty" yaml:"group_switches,omitempty"`
	VirtualInterfaces map[string]string `json:"virtual_interfaces,omitempty" yaml:"virtual_interfaces,omitempty"`
}

// Clone returns a deep copy
func (c Component) Clone() Component {
	c.Interfaces = slices.Clone(c.Interfaces)
	c.RealInterfaces = slices.Clone(c.RealInterfaces)
	c.GroupSwitches = maps.Clone(c.GroupSwitches)
	c.VirtualInterfaces = maps.Clone(c.VirtualInterfaces)
	c.Placement = c.Placement.clone()
	return c
}

// End identifies which side of a cable an interface is attached to
type End string

const (
	EndLeft  End = "LEFT"
	EndRight End = "RIGHT"
)

// IPConfig is one address assigned to an interface
type IPConfig struct {
	Address string `json:"address" yaml:"address"`
	Network string `json:"network" yaml:"network"` // CIDR
}

// Interface is a port on a component
type Interface struct {
	Name        string        `json:"name" yaml:"name"`
	Component   string        `json:"component" yaml:"component"`
	Label       string        `json:"label,omitempty" yaml:"label,omitempty"`
	Orientation geometry.Side `json:"orientation" yaml:"orientation"`
	Addresses   []IPConfig    `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	VLANs       []int         `json:"vlans,omitempty" yaml:"vlans,omitempty"`
	Cable       string        `json:"cable,omitempty" yaml:"cable,omitempty"`
	End         End           `json:"end,omitempty" yaml:"end,omitempty"`
}

// Connected reports whether a cable is attached
func (i Interface) Connected() bool {
	return i.Cable != ""
}

// Clone returns a deep copy
func (i Interface) Clone() Interface {
	i.Addresses = slices.Clone(i.Addresses)
	i.VLANs = slices.Clone(i.VLANs)
	return i
}

// Cable joins two interfaces
type Cable struct {
	Name           string           `json:"name" yaml:"name"`
	Left           string           `json:"left" yaml:"left"`
	Right          string           `json:"right" yaml:"right"`
	GroupInterface string           `json:"group_interface,omitempty" yaml:"group_interface,omitempty"`
	Group          string           `json:"group" yaml:"group"` // group identifier
	Path           []geometry.Point `json:"path,omitempty" yaml:"path,omitempty"`
}

// Other returns the interface on the far end from iface
func (c Cable) Other(iface string) string {
	if c.Left == iface {
		return c.Right
	}
	return c.Left
}

// Clone returns a deep copy
func (c Cable) Clone() Cable {
	c.Path = slices.Clone(c.Path)
	return c
}
