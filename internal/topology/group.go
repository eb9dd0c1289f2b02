package topology

import (
	"slices"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// ensureGroup returns the group called name, creating it if needed.
func (s *Store) ensureGroup(name string) *model.Group {
	if id, ok := s.groupNames[name]; ok {
		return s.groups[id]
	}
	id := s.ids.nextGroupID()
	// nextGroupID skips live names, so register cannot fail here.
	_ = s.ids.register(id, EntityGroup)
	g := &model.Group{
		ID:            id,
		Name:          name,
		GroupSwitches: make(map[string]string),
	}
	g.Dimension = s.groupDim
	s.groups[id] = g
	s.groupNames[name] = id
	s.recomputeGroupBox(g)
	s.created(EntityGroup, id)
	return g
}

func (s *Store) groupByName(name string) (*model.Group, error) {
	id, ok := s.groupNames[groupNameOrGlobal(name)]
	if !ok {
		return nil, errs.NotFoundf("group %q", name)
	}
	return s.groups[id], nil
}

func (s *Store) recomputeGroupBox(g *model.Group) {
	used := make(map[geometry.Side]bool)
	for _, id := range g.GroupInterfaces {
		used[s.groupInterfaces[id].Orientation] = true
	}
	g.Box, g.Offsets = geometry.BoundingBox(g.Dimension, s.margin, used)
	if g.ID != s.global {
		s.refit(&g.Placement, EntityGroup, g.ID, s.grid)
	}
}

// refitLayer keeps every box placed on g's layer inside it.
func (s *Store) refitLayer(g *model.Group) {
	layer := s.layerGrid(g)
	for _, n := range g.Members {
		c := s.components[n]
		s.refit(&c.Placement, EntityComponent, n, layer)
	}
	for _, sw := range sortedKeys(g.GroupSwitches) {
		if gs, ok := s.groupSwitches[g.GroupSwitches[sw]]; ok {
			s.refit(&gs.Placement, EntityGroupSwitch, gs.ID, layer)
		}
	}
}

// SetGroup moves a component into the group called name, creating the
// group if needed. An empty name means the global group. The old group
// is torn down if the move empties it.
func (s *Store) SetGroup(component, name string) error {
	return s.update(func() error {
		c, ok := s.components[component]
		if !ok {
			return errs.NotFoundf("component %q", component)
		}
		target := groupNameOrGlobal(name)
		if s.groups[c.Group].Name == target {
			return nil
		}
		if c.Kind == model.KindSwitch && c.Group == s.global {
			s.clearBoundaries(c)
		}
		s.leaveGroup(c)
		g := s.ensureGroup(target)
		c.Group = g.ID
		g.Members = appendUnique(g.Members, c.Name)
		s.refit(&c.Placement, EntityComponent, c.Name, s.layerGrid(g))
		s.changed(EntityComponent, c.Name, AttrGroup)
		s.changed(EntityGroup, g.ID, AttrMembers)
		s.dropStrandedGateways(c)
		s.rederiveCableGroups(c)
		return nil
	})
}

// dropStrandedGateways removes the gateways that lost an endpoint on c
// to the move: the inner end must stay in the gateway's group and the
// outer end in the global group.
func (s *Store) dropStrandedGateways(c *model.Component) {
	for _, id := range sortedKeys(s.groupInterfaces) {
		gi, ok := s.groupInterfaces[id]
		if !ok || gi.Synthetic {
			continue
		}
		if (s.endsOn(gi.Inner, c) && c.Group != gi.Group) || (s.endsOn(gi.Outer, c) && c.Group != s.global) {
			s.destroyGroupInterface(gi)
		}
	}
}

func (s *Store) endsOn(endpoint string, c *model.Component) bool {
	i, ok := s.interfaces[endpoint]
	return ok && i.Component == c.Name
}

func (s *Store) leaveGroup(c *model.Component) {
	g, ok := s.groups[c.Group]
	if !ok {
		return
	}
	g.Members = without(g.Members, c.Name)
	s.changed(EntityGroup, g.ID, AttrMembers)
	if len(g.Members) == 0 && g.ID != s.global {
		s.teardownGroup(g)
	}
}

// teardownGroup releases everything an emptied group owns and removes it.
func (s *Store) teardownGroup(g *model.Group) {
	for _, sw := range sortedKeys(g.GroupSwitches) {
		if gs, ok := s.groupSwitches[g.GroupSwitches[sw]]; ok {
			s.destroyGroupSwitch(gs)
		}
	}
	for _, id := range slices.Clone(g.GroupInterfaces) {
		if gi, ok := s.groupInterfaces[id]; ok {
			s.destroyGroupInterface(gi)
		}
	}
	for _, n := range slices.Clone(g.Cables) {
		cable := s.cables[n]
		target := s.displayGroup(s.interfaces[cable.Left], s.interfaces[cable.Right])
		if target == g.ID {
			// The component leaving g still points at it; SetGroup
			// re-derives once the move is complete.
			target = s.global
		}
		s.moveCable(cable, target)
	}
	delete(s.groups, g.ID)
	delete(s.groupNames, g.Name)
	s.ids.unregister(g.ID)
	s.removed(EntityGroup, g.ID)
}

// GetGroup returns a copy of the group called name.
func (s *Store) GetGroup(name string) (model.Group, error) {
	var (
		out model.Group
		err error
	)
	s.view(func() {
		var g *model.Group
		if g, err = s.groupByName(name); err == nil {
			out = g.Clone()
		}
	})
	return out, err
}

// ListGroups returns every group ordered by name.
func (s *Store) ListGroups() []model.Group {
	var out []model.Group
	s.view(func() {
		for _, n := range sortedKeys(s.groupNames) {
			out = append(out, s.groups[s.groupNames[n]].Clone())
		}
	})
	return out
}

// GroupView returns the group with its members resolved.
func (s *Store) GroupView(name string) (model.GroupView, error) {
	var (
		out model.GroupView
		err error
	)
	s.view(func() {
		var g *model.Group
		if g, err = s.groupByName(name); err == nil {
			out = s.groupView(g)
		}
	})
	return out, err
}

func (s *Store) groupView(g *model.Group) model.GroupView {
	v := model.GroupView{
		Group:           g.Clone(),
		Components:      make(map[string]model.ComponentView, len(g.Members)),
		Cables:          make(map[string]model.Cable, len(g.Cables)),
		GroupSwitches:   make(map[string]model.GroupSwitch, len(g.GroupSwitches)),
		GroupInterfaces: make(map[string]model.GroupInterface, len(g.GroupInterfaces)),
	}
	for _, n := range g.Members {
		v.Components[n] = s.componentView(s.components[n])
	}
	for _, n := range g.Cables {
		v.Cables[n] = s.cables[n].Clone()
	}
	for _, id := range g.GroupSwitches {
		v.GroupSwitches[id] = s.groupSwitches[id].Clone()
	}
	for _, id := range g.GroupInterfaces {
		v.GroupInterfaces[id] = *s.groupInterfaces[id]
	}
	return v
}

// RenameGroup changes a group's name. The global group keeps its name.
func (s *Store) RenameGroup(name, newName string) error {
	return s.update(func() error {
		g, err := s.groupByName(name)
		if err != nil {
			return err
		}
		newName = strings.TrimSpace(newName)
		if newName == "" {
			return errs.Invalidf("empty group name")
		}
		if g.ID == s.global {
			return errs.Invariantf("the global group cannot be renamed")
		}
		if newName == g.Name {
			return nil
		}
		if _, taken := s.groupNames[newName]; taken {
			return errs.Duplicatef("group %q", newName)
		}
		delete(s.groupNames, g.Name)
		g.Name = newName
		s.groupNames[newName] = g.ID
		s.changed(EntityGroup, g.ID, AttrName)
		return nil
	})
}

// SetGroupPosition moves a group on the global layer.
func (s *Store) SetGroupPosition(name string, x, y int, fixed bool) error {
	return s.update(func() error {
		g, err := s.groupByName(name)
		if err != nil {
			return err
		}
		if g.ID == s.global {
			return errs.Invariantf("the global group is the base layer and has no position")
		}
		return s.setPosition(&g.Placement, EntityGroup, g.ID, s.grid, x, y, fixed)
	})
}

// SetGroupDimension resizes a group's layer.
func (s *Store) SetGroupDimension(name string, width, height int) error {
	return s.update(func() error {
		g, err := s.groupByName(name)
		if err != nil {
			return err
		}
		dim, err := geometry.NewDimension(width, height)
		if err != nil {
			return err
		}
		s.setDimension(&g.Placement, EntityGroup, g.ID, dim)
		s.recomputeGroupBox(g)
		s.refitLayer(g)
		return nil
	})
}

// GroupInterfaceSpec describes a gateway to add to a group.
type GroupInterfaceSpec struct {
	// ID is set when rebuilding from a mirror; otherwise generated.
	ID    string
	Group string
	// Inner must live in Group and Outer in the global group. Either may
	// be an interface name or a virtual interface id.
	Inner       string
	Outer       string
	Orientation geometry.Side
}

// CreateGroupInterface adds a gateway to a group.
func (s *Store) CreateGroupInterface(spec GroupInterfaceSpec) (model.GroupInterface, error) {
	var out model.GroupInterface
	err := s.update(func() error {
		g, err := s.groupByName(spec.Group)
		if err != nil {
			return err
		}
		if !validSide(spec.Orientation) {
			return errs.Invalidf("orientation %d", int(spec.Orientation))
		}
		innerGroup, err := s.endpointGroup(spec.Inner)
		if err != nil {
			return err
		}
		outerGroup, err := s.endpointGroup(spec.Outer)
		if err != nil {
			return err
		}
		gi, err := s.linkGateway(g, spec.ID, spec.Inner, innerGroup, spec.Outer, outerGroup, spec.Orientation, false)
		if err != nil {
			return err
		}
		out = *gi
		return nil
	})
	return out, err
}

// endpointGroup returns the group an interface or virtual interface is in.
func (s *Store) endpointGroup(name string) (string, error) {
	if i, ok := s.interfaces[name]; ok {
		return s.components[i.Component].Group, nil
	}
	if v, ok := s.virtualInterfaces[name]; ok {
		return v.Group, nil
	}
	return "", errs.NotFoundf("endpoint %q", name)
}

func (s *Store) linkGateway(g *model.Group, id, inner, innerGroup, outer, outerGroup string, side geometry.Side, synthetic bool) (*model.GroupInterface, error) {
	if g.ID == s.global {
		return nil, errs.Invariantf("the global group has no group interfaces")
	}
	if innerGroup != g.ID {
		return nil, errs.Invariantf("inner endpoint %s is not in group %s", inner, g.Name)
	}
	if outerGroup != s.global {
		return nil, errs.Invariantf("outer endpoint %s is not in the global group", outer)
	}
	if id == "" {
		id = s.ids.nextGIF()
	}
	if err := s.ids.register(id, EntityGroupInterface); err != nil {
		return nil, err
	}
	gi := &model.GroupInterface{
		ID:          id,
		Group:       g.ID,
		Inner:       inner,
		Outer:       outer,
		Orientation: side,
		Synthetic:   synthetic,
	}
	s.groupInterfaces[id] = gi
	g.GroupInterfaces = append(g.GroupInterfaces, id)
	s.recomputeGroupBox(g)
	s.created(EntityGroupInterface, id)
	s.changed(EntityGroup, g.ID, AttrInterfaces)
	return gi, nil
}

// GetGroupInterface returns a copy of the gateway with id.
func (s *Store) GetGroupInterface(id string) (model.GroupInterface, error) {
	var (
		out model.GroupInterface
		err error
	)
	s.view(func() {
		gi, ok := s.groupInterfaces[id]
		if !ok {
			err = errs.NotFoundf("group interface %q", id)
			return
		}
		out = *gi
	})
	return out, err
}

// ListGroupInterfaces returns the gateways of the group called name.
func (s *Store) ListGroupInterfaces(name string) ([]model.GroupInterface, error) {
	var (
		out []model.GroupInterface
		err error
	)
	s.view(func() {
		var g *model.Group
		if g, err = s.groupByName(name); err != nil {
			return
		}
		for _, id := range g.GroupInterfaces {
			out = append(out, *s.groupInterfaces[id])
		}
	})
	return out, err
}

// RemoveGroupInterface deletes a gateway. Synthesized gateways belong to
// their group switch and cannot be removed directly.
func (s *Store) RemoveGroupInterface(id string) error {
	return s.update(func() error {
		gi, ok := s.groupInterfaces[id]
		if !ok {
			return errs.NotFoundf("group interface %q", id)
		}
		if gi.Synthetic {
			return errs.Invariantf("group interface %s is owned by a group switch", id)
		}
		s.destroyGroupInterface(gi)
		return nil
	})
}

func (s *Store) destroyGroupInterface(gi *model.GroupInterface) {
	if cable, ok := s.cables[gi.Cable]; ok && cable.GroupInterface == gi.ID {
		cable.GroupInterface = ""
		s.changed(EntityCable, cable.Name, AttrConnectivity)
		s.moveCable(cable, s.displayGroup(s.interfaces[cable.Left], s.interfaces[cable.Right]))
	}
	for _, end := range []string{gi.Inner, gi.Outer} {
		if v, ok := s.virtualInterfaces[end]; ok && v.GroupInterface == gi.ID {
			v.GroupInterface = ""
		}
	}
	if g, ok := s.groups[gi.Group]; ok {
		g.GroupInterfaces = without(g.GroupInterfaces, gi.ID)
		s.recomputeGroupBox(g)
		s.changed(EntityGroup, g.ID, AttrInterfaces)
	}
	delete(s.groupInterfaces, gi.ID)
	s.ids.unregister(gi.ID)
	s.removed(EntityGroupInterface, gi.ID)
}
