package topology

import (
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/vlan"
)

// Snapshot returns a copy of the whole topology keyed by local name.
// Summary holds the registered networks merged into covering prefixes.
func (s *Store) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Groups:            make(map[string]model.GroupView),
		Cables:            make(map[string]model.Cable),
		VirtualInterfaces: make(map[string]model.VirtualInterface),
		VLANs:             make(map[string]vlan.VLAN),
		Networks:          make(map[string]model.Network),
	}
	var cidrs []string
	s.view(func() {
		for _, g := range s.groups {
			snap.Groups[g.Name] = s.groupView(g)
		}
		for n, c := range s.cables {
			snap.Cables[n] = c.Clone()
		}
		for id, v := range s.virtualInterfaces {
			snap.VirtualInterfaces[id] = *v
		}
		for _, v := range s.vlans.All() {
			snap.VLANs[v.Name] = *v
		}
		cidrs = sortedKeys(s.networks)
		for _, k := range cidrs {
			snap.Networks[k] = networkInfo(s.networks[k])
		}
	})
	// The keys are canonical CIDRs, so merging cannot fail on input.
	snap.Summary, _ = summarize(cidrs)
	return snap
}

// Stats counts the live entities.
type Stats struct {
	Components        int `json:"components"`
	Interfaces        int `json:"interfaces"`
	Cables            int `json:"cables"`
	Groups            int `json:"groups"`
	GroupSwitches     int `json:"group_switches"`
	GroupInterfaces   int `json:"group_interfaces"`
	VirtualInterfaces int `json:"virtual_interfaces"`
	VLANs             int `json:"vlans"`
	Networks          int `json:"networks"`
}

// Stats returns entity counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Components:        len(s.components),
		Interfaces:        len(s.interfaces),
		Cables:            len(s.cables),
		Groups:            len(s.groups),
		GroupSwitches:     len(s.groupSwitches),
		GroupInterfaces:   len(s.groupInterfaces),
		VirtualInterfaces: len(s.virtualInterfaces),
		VLANs:             s.vlans.Len(),
		Networks:          len(s.networks),
	}
}

// GroupSnapshot returns a snapshot holding only the named group and its
// cables, plus the shared VLAN and network tables.
func (s *Store) GroupSnapshot(name string) (model.Snapshot, error) {
	view, err := s.GroupView(name)
	if err != nil {
		return model.Snapshot{}, err
	}
	full := s.Snapshot()
	return model.Snapshot{
		Groups:   map[string]model.GroupView{view.Group.Name: view},
		Cables:   view.Cables,
		VLANs:    full.VLANs,
		Networks: full.Networks,
		Summary:  full.Summary,
	}, nil
}
