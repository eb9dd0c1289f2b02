package topology

import (
	"slices"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// SynthesizeBoundaries recomputes the group projections of a switch.
// Every interface cabled to a component in another, non-global group is
// moved onto that group's GroupSwitch; the rest stay real. A switch that
// is not in the global group is left alone.
func (s *Store) SynthesizeBoundaries(name string) error {
	return s.update(func() error {
		c, ok := s.components[name]
		if !ok {
			return errs.NotFoundf("component %q", name)
		}
		return s.synthesize(c)
	})
}

// SynthesizeAll recomputes the projections of every switch.
func (s *Store) SynthesizeAll() error {
	return s.update(func() error {
		for _, n := range sortedKeys(s.components) {
			c := s.components[n]
			if c.Kind != model.KindSwitch {
				continue
			}
			if err := s.synthesize(c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) synthesize(sw *model.Component) error {
	if sw.Kind != model.KindSwitch {
		return errs.Invalidf("component %s is a %s, not a switch", sw.Name, sw.Kind)
	}
	if sw.Group != s.global {
		return nil
	}
	s.clearBoundaries(sw)

	var real []string
	for _, ifName := range sw.Interfaces {
		peer := s.peerGroup(s.interfaces[ifName])
		if peer == "" || peer == s.global {
			real = append(real, ifName)
			continue
		}
		gs, err := s.ensureGroupSwitch(sw, s.groups[peer])
		if err != nil {
			s.clearBoundaries(sw)
			return err
		}
		gs.Interfaces = append(gs.Interfaces, ifName)
		s.recomputeGroupSwitch(gs)
		s.changed(EntityGroupSwitch, gs.ID, AttrInterfaces)
	}
	sw.RealInterfaces = real
	s.recomputeComponentBox(sw)
	s.changed(EntityComponent, sw.Name, AttrInterfaces)
	return nil
}

// peerGroup returns the group of the component at the far end of iface's
// cable, or "" if iface is not connected.
func (s *Store) peerGroup(iface *model.Interface) string {
	cable, ok := s.cables[iface.Cable]
	if !ok {
		return ""
	}
	far, ok := s.interfaces[cable.Other(iface.Name)]
	if !ok {
		return ""
	}
	return s.components[far.Component].Group
}

// ensureGroupSwitch returns the projection of sw into g, creating it with
// its two virtual interfaces and the gateway that joins them.
func (s *Store) ensureGroupSwitch(sw *model.Component, g *model.Group) (*model.GroupSwitch, error) {
	if id, ok := sw.GroupSwitches[g.ID]; ok {
		return s.groupSwitches[id], nil
	}
	outer := &model.VirtualInterface{
		ID:          s.ids.nextVIF(),
		Switch:      sw.Name,
		Group:       s.global,
		Peer:        g.ID,
		Orientation: geometry.Top,
	}
	gs := &model.GroupSwitch{
		ID:     s.ids.nextGSW(),
		Switch: sw.Name,
		Group:  g.ID,
	}
	inner := &model.VirtualInterface{
		ID:          s.ids.nextVIF(),
		Switch:      sw.Name,
		GroupSwitch: gs.ID,
		Group:       g.ID,
		Peer:        s.global,
		Orientation: geometry.Bottom,
	}
	gs.VirtualInterface = inner.ID

	var registered []string
	rollback := func() {
		for _, id := range registered {
			s.ids.unregister(id)
		}
	}
	for _, ref := range []Ref{{EntityVirtualInterface, outer.ID}, {EntityVirtualInterface, inner.ID}, {EntityGroupSwitch, gs.ID}} {
		if err := s.ids.register(ref.Name, ref.Kind); err != nil {
			rollback()
			return nil, err
		}
		registered = append(registered, ref.Name)
	}
	gi, err := s.linkGateway(g, "", inner.ID, inner.Group, outer.ID, outer.Group, geometry.Top, true)
	if err != nil {
		rollback()
		return nil, err
	}
	inner.GroupInterface = gi.ID
	outer.GroupInterface = gi.ID
	for _, v := range []*model.VirtualInterface{outer, inner} {
		s.virtualInterfaces[v.ID] = v
		s.created(EntityVirtualInterface, v.ID)
	}
	s.groupSwitches[gs.ID] = gs
	s.recomputeGroupSwitch(gs)
	s.created(EntityGroupSwitch, gs.ID)

	sw.GroupSwitches[g.ID] = gs.ID
	sw.VirtualInterfaces[g.ID] = outer.ID
	g.GroupSwitches[sw.Name] = gs.ID
	s.changed(EntityGroup, g.ID, AttrInterfaces)
	return gs, nil
}

// recomputeGroupSwitch sizes gs to (interfaces, 3), faces its grouped
// interfaces TOP and its own virtual interface BOTTOM.
func (s *Store) recomputeGroupSwitch(gs *model.GroupSwitch) {
	for _, n := range gs.Interfaces {
		if iface := s.interfaces[n]; iface.Orientation != geometry.Top {
			iface.Orientation = geometry.Top
			s.changed(EntityInterface, n, AttrOrientation)
		}
	}
	if v, ok := s.virtualInterfaces[gs.VirtualInterface]; ok {
		v.Orientation = geometry.Bottom
	}
	s.setDimension(&gs.Placement, EntityGroupSwitch, gs.ID, geometry.Dimension{Width: len(gs.Interfaces), Height: 3})
	used := map[geometry.Side]bool{geometry.Bottom: true}
	if len(gs.Interfaces) > 0 {
		used[geometry.Top] = true
	}
	gs.Box, gs.Offsets = geometry.BoundingBox(gs.Dimension, s.margin, used)
	if g, ok := s.groups[gs.Group]; ok {
		s.refit(&gs.Placement, EntityGroupSwitch, gs.ID, g.Dimension)
	}
}

// clearBoundaries removes every projection of sw and returns the grouped
// interfaces to its real set.
func (s *Store) clearBoundaries(sw *model.Component) {
	for _, g := range sortedKeys(sw.GroupSwitches) {
		if gs, ok := s.groupSwitches[sw.GroupSwitches[g]]; ok {
			s.destroyGroupSwitch(gs)
		}
	}
	if sw.Kind == model.KindSwitch {
		sw.RealInterfaces = slices.Clone(sw.Interfaces)
	}
}

func (s *Store) destroyGroupSwitch(gs *model.GroupSwitch) {
	sw := s.components[gs.Switch]
	if inner, ok := s.virtualInterfaces[gs.VirtualInterface]; ok {
		if gi, ok := s.groupInterfaces[inner.GroupInterface]; ok {
			s.destroyGroupInterface(gi)
		}
		s.dropVirtualInterface(inner.ID)
	}
	if sw != nil {
		if outer, ok := sw.VirtualInterfaces[gs.Group]; ok {
			s.dropVirtualInterface(outer)
		}
		delete(sw.VirtualInterfaces, gs.Group)
		delete(sw.GroupSwitches, gs.Group)
		// Interfaces come back in their original order.
		sw.RealInterfaces = slices.DeleteFunc(slices.Clone(sw.Interfaces), func(n string) bool {
			return !slices.Contains(sw.RealInterfaces, n) && !slices.Contains(gs.Interfaces, n)
		})
	}
	if g, ok := s.groups[gs.Group]; ok {
		delete(g.GroupSwitches, gs.Switch)
	}
	delete(s.groupSwitches, gs.ID)
	s.ids.unregister(gs.ID)
	s.removed(EntityGroupSwitch, gs.ID)
}

func (s *Store) dropVirtualInterface(id string) {
	if _, ok := s.virtualInterfaces[id]; !ok {
		return
	}
	delete(s.virtualInterfaces, id)
	s.ids.unregister(id)
	s.removed(EntityVirtualInterface, id)
}

// GetGroupSwitch returns a copy of the group switch with id.
func (s *Store) GetGroupSwitch(id string) (model.GroupSwitch, error) {
	var (
		out model.GroupSwitch
		err error
	)
	s.view(func() {
		gs, ok := s.groupSwitches[id]
		if !ok {
			err = errs.NotFoundf("group switch %q", id)
			return
		}
		out = gs.Clone()
	})
	return out, err
}

// ListGroupSwitches returns the group switches of the group called name.
func (s *Store) ListGroupSwitches(name string) ([]model.GroupSwitch, error) {
	var (
		out []model.GroupSwitch
		err error
	)
	s.view(func() {
		var g *model.Group
		if g, err = s.groupByName(name); err != nil {
			return
		}
		for _, sw := range sortedKeys(g.GroupSwitches) {
			out = append(out, s.groupSwitches[g.GroupSwitches[sw]].Clone())
		}
	})
	return out, err
}

// GetVirtualInterface returns a copy of the virtual interface with id.
func (s *Store) GetVirtualInterface(id string) (model.VirtualInterface, error) {
	var (
		out model.VirtualInterface
		err error
	)
	s.view(func() {
		v, ok := s.virtualInterfaces[id]
		if !ok {
			err = errs.NotFoundf("virtual interface %q", id)
			return
		}
		out = *v
	})
	return out, err
}

// SetGroupSwitchPosition moves a group switch within its group's layer.
func (s *Store) SetGroupSwitchPosition(id string, x, y int, fixed bool) error {
	return s.update(func() error {
		gs, ok := s.groupSwitches[id]
		if !ok {
			return errs.NotFoundf("group switch %q", id)
		}
		return s.setPosition(&gs.Placement, EntityGroupSwitch, id, s.groups[gs.Group].Dimension, x, y, fixed)
	})
}
