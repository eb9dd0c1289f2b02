package model

import "github.com/martinsuchenak/netcanvas/internal/vlan"

// Network describes a registered address space
type Network struct {
	CIDR      string   `json:"cidr" yaml:"cidr"`
	Address   string   `json:"address" yaml:"address"`
	Prefix    int      `json:"prefix" yaml:"prefix"`
	Version   int      `json:"version" yaml:"version"`
	Size      string   `json:"size" yaml:"size"`
	Allocated []string `json:"allocated" yaml:"allocated"`
}

// ComponentView is a component with its interfaces resolved
type ComponentView struct {
	Component  Component            `json:"component" yaml:"component"`
	Interfaces map[string]Interface `json:"interfaces" yaml:"interfaces"`
}

// GroupView is a group with its members resolved
type GroupView struct {
	Group           Group                     `json:"group" yaml:"group"`
	Components      map[string]ComponentView  `json:"components" yaml:"components"`
	Cables          map[string]Cable          `json:"cables" yaml:"cables"`
	GroupSwitches   map[string]GroupSwitch    `json:"group_switches" yaml:"group_switches"`
	GroupInterfaces map[string]GroupInterface `json:"group_interfaces" yaml:"group_interfaces"`
}

// Snapshot is a read-only copy of the whole topology
type Snapshot struct {
	Groups            map[string]GroupView        `json:"groups" yaml:"groups"` // by group name
	Cables            map[string]Cable            `json:"cables" yaml:"cables"`
	VirtualInterfaces map[string]VirtualInterface `json:"virtual_interfaces" yaml:"virtual_interfaces"`
	VLANs             map[string]vlan.VLAN        `json:"vlans" yaml:"vlans"` // by vlan name
	Networks          map[string]Network          `json:"networks" yaml:"networks"` // by CIDR
	Summary           []string                    `json:"summary" yaml:"summary"`   // merged prefixes
}
