package topology

import (
	"slices"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// ComponentSpec describes a component to create. Only Kind is required.
type ComponentSpec struct {
	Kind  model.Kind
	Label string
	// Name is set when rebuilding from a mirror; otherwise generated.
	Name string
	// Orientations creates one interface per entry.
	Orientations []geometry.Side
	// InterfaceNames, if set, must be parallel to Orientations.
	InterfaceNames []string
	Dimension      *geometry.Dimension
	Position       *geometry.Point
	Fixed          bool
	// Group is a group name; empty means the global group.
	Group string
}

// CreateComponent adds a component and its initial interfaces.
func (s *Store) CreateComponent(spec ComponentSpec) (model.Component, error) {
	var out model.Component
	err := s.update(func() error {
		c, err := s.createComponent(spec)
		if err != nil {
			return err
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (s *Store) createComponent(spec ComponentSpec) (*model.Component, error) {
	kind, err := model.ParseKind(string(spec.Kind))
	if err != nil {
		return nil, err
	}
	if len(spec.InterfaceNames) > 0 && len(spec.InterfaceNames) != len(spec.Orientations) {
		return nil, errs.Invalidf("%d interface names for %d orientations", len(spec.InterfaceNames), len(spec.Orientations))
	}
	dim := s.componentDim
	if spec.Dimension != nil {
		if dim, err = geometry.NewDimension(spec.Dimension.Width, spec.Dimension.Height); err != nil {
			return nil, err
		}
	}
	for _, side := range spec.Orientations {
		if !validSide(side) {
			return nil, errs.Invalidf("orientation %d", int(side))
		}
	}
	if spec.Position != nil {
		box := s.initialBox(dim, spec.Orientations)
		b, ok := geometry.Within(s.layerFor(spec.Group), box)
		if !ok {
			return nil, errs.Invalidf("a %s box does not fit group %q", box, groupNameOrGlobal(spec.Group))
		}
		if _, err := geometry.NewBoundedPosition(spec.Position.X, spec.Position.Y, b); err != nil {
			return nil, err
		}
	}

	if spec.Name != "" && s.ids.live(spec.Name) {
		return nil, errs.Duplicatef("component %q", spec.Name)
	}
	seen := map[string]bool{spec.Name: true}
	for _, n := range spec.InterfaceNames {
		if n == "" {
			return nil, errs.Invalidf("empty interface name")
		}
		if seen[n] || s.ids.live(n) {
			return nil, errs.Duplicatef("interface %q", n)
		}
		seen[n] = true
	}
	name := spec.Name
	if name == "" {
		name = s.ids.nextComponentName(kind)
		if seen[name] {
			return nil, errs.Duplicatef("interface %q", name)
		}
	}
	if err := s.ids.register(name, EntityComponent); err != nil {
		return nil, err
	}

	c := &model.Component{
		Name:  name,
		Label: strings.TrimSpace(spec.Label),
		Kind:  kind,
	}
	if c.Label == "" {
		c.Label = name
	}
	c.Dimension = dim
	c.Fixed = spec.Fixed
	if kind == model.KindSwitch {
		c.GroupSwitches = make(map[string]string)
		c.VirtualInterfaces = make(map[string]string)
	}
	s.components[name] = c

	g := s.ensureGroup(groupNameOrGlobal(spec.Group))
	c.Group = g.ID
	g.Members = appendUnique(g.Members, name)
	s.recomputeComponentBox(c)
	s.created(EntityComponent, name)

	for i, side := range spec.Orientations {
		ifName := ""
		if len(spec.InterfaceNames) > 0 {
			ifName = spec.InterfaceNames[i]
		}
		if _, err := s.addInterface(c, InterfaceSpec{Name: ifName, Orientation: side}); err != nil {
			return c, err
		}
	}
	if spec.Position != nil {
		if err := s.setPosition(&c.Placement, EntityComponent, name, s.layerGrid(g), spec.Position.X, spec.Position.Y, spec.Fixed); err != nil {
			return c, err
		}
	}
	s.changed(EntityGroup, g.ID, AttrMembers)
	return c, nil
}

// initialBox is the box a new component of logical size dim gets once
// interfaces facing sides are added.
func (s *Store) initialBox(dim geometry.Dimension, sides []geometry.Side) geometry.Dimension {
	counts := make(map[geometry.Side]int)
	used := make(map[geometry.Side]bool)
	for _, side := range sides {
		counts[side]++
		used[side] = true
	}
	dim.Width = max(dim.Width, counts[geometry.Top], counts[geometry.Bottom])
	dim.Height = max(dim.Height, counts[geometry.Left], counts[geometry.Right])
	box, _ := geometry.BoundingBox(dim, s.margin, used)
	return box
}

// layerFor is the layer size of the group called name, or of the group
// it would be created as.
func (s *Store) layerFor(name string) geometry.Dimension {
	if id, ok := s.groupNames[groupNameOrGlobal(name)]; ok {
		return s.layerGrid(s.groups[id])
	}
	return s.groupDim
}

// GetComponent returns a copy of the named component.
func (s *Store) GetComponent(name string) (model.Component, error) {
	var (
		out model.Component
		err error
	)
	s.view(func() {
		c, ok := s.components[name]
		if !ok {
			err = errs.NotFoundf("component %q", name)
			return
		}
		out = c.Clone()
	})
	return out, err
}

// ListComponents returns every component ordered by name.
func (s *Store) ListComponents() []model.Component {
	var out []model.Component
	s.view(func() {
		for _, n := range sortedKeys(s.components) {
			out = append(out, s.components[n].Clone())
		}
	})
	return out
}

// ComponentView returns the component with its interfaces resolved.
func (s *Store) ComponentView(name string) (model.ComponentView, error) {
	var (
		out model.ComponentView
		err error
	)
	s.view(func() {
		c, ok := s.components[name]
		if !ok {
			err = errs.NotFoundf("component %q", name)
			return
		}
		out = s.componentView(c)
	})
	return out, err
}

func (s *Store) componentView(c *model.Component) model.ComponentView {
	v := model.ComponentView{
		Component:  c.Clone(),
		Interfaces: make(map[string]model.Interface, len(c.Interfaces)),
	}
	for _, n := range c.Interfaces {
		v.Interfaces[n] = s.interfaces[n].Clone()
	}
	return v
}

// RemoveComponent deletes a component. Its interfaces go with it, which
// disconnects their cables; a switch also loses its group projections.
// The component's group is torn down if it becomes empty.
func (s *Store) RemoveComponent(name string) error {
	return s.update(func() error {
		c, ok := s.components[name]
		if !ok {
			return errs.NotFoundf("component %q", name)
		}
		if c.Kind == model.KindSwitch {
			s.clearBoundaries(c)
		}
		for _, ifName := range slices.Clone(c.Interfaces) {
			if err := s.removeInterface(ifName); err != nil {
				return err
			}
		}
		delete(s.components, name)
		s.ids.unregister(name)
		s.removed(EntityComponent, name)
		s.leaveGroup(c)
		return nil
	})
}

// SetComponentLabel changes the display label.
func (s *Store) SetComponentLabel(name, label string) error {
	return s.update(func() error {
		c, ok := s.components[name]
		if !ok {
			return errs.NotFoundf("component %q", name)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			return errs.Invalidf("empty label")
		}
		if c.Label == label {
			return nil
		}
		c.Label = label
		s.changed(EntityComponent, name, AttrLabel)
		return nil
	})
}

// SetComponentPosition moves a component. fixed pins it against layout.
func (s *Store) SetComponentPosition(name string, x, y int, fixed bool) error {
	return s.update(func() error {
		c, ok := s.components[name]
		if !ok {
			return errs.NotFoundf("component %q", name)
		}
		return s.setPosition(&c.Placement, EntityComponent, name, s.layerGrid(s.groups[c.Group]), x, y, fixed)
	})
}

// SetComponentDimension resizes a component's logical area. It cannot
// shrink below what its interfaces need.
func (s *Store) SetComponentDimension(name string, width, height int) error {
	return s.update(func() error {
		c, ok := s.components[name]
		if !ok {
			return errs.NotFoundf("component %q", name)
		}
		dim, err := geometry.NewDimension(width, height)
		if err != nil {
			return err
		}
		need := s.interfaceDemand(c)
		if dim.Width < need.Width || dim.Height < need.Height {
			return errs.Invariantf("component %s needs at least %s for its interfaces", name, need)
		}
		s.setDimension(&c.Placement, EntityComponent, name, dim)
		s.recomputeComponentBox(c)
		return nil
	})
}

// setPosition places p at (x, y) on a layer of size layer. The box must
// stay inside the layer.
func (s *Store) setPosition(p *model.Placement, kind EntityKind, name string, layer geometry.Dimension, x, y int, fixed bool) error {
	b, ok := geometry.Within(layer, p.Box)
	if !ok {
		return errs.Invalidf("%s %s (box %s) does not fit a %s layer", kind, name, p.Box, layer)
	}
	if err := s.moveTo(p, kind, name, b, x, y); err != nil {
		return err
	}
	p.Fixed = fixed
	return nil
}

func (s *Store) moveTo(p *model.Placement, kind EntityKind, name string, b geometry.Bounds, x, y int) error {
	old := p.Position
	var (
		pos geometry.Position
		err error
	)
	if old == nil {
		pos, err = geometry.NewBoundedPosition(x, y, b)
	} else {
		pos = geometry.Position{X: old.X, Y: old.Y, Bounds: &b}
		err = pos.Set(x, y)
	}
	if err != nil {
		return err
	}
	p.Position = &pos
	if old == nil || old.X != x {
		s.changed(kind, name, AttrGridX)
	}
	if old == nil || old.Y != y {
		s.changed(kind, name, AttrGridY)
	}
	return nil
}

// refit keeps a placed box inside layer after the box or the layer
// changed size. A position that can no longer fit is dropped.
func (s *Store) refit(p *model.Placement, kind EntityKind, name string, layer geometry.Dimension) {
	if p.Position == nil {
		return
	}
	b, ok := geometry.Within(layer, p.Box)
	if !ok {
		p.Position = nil
		p.Fixed = false
		s.changed(kind, name, AttrGridX)
		s.changed(kind, name, AttrGridY)
		return
	}
	x := geometry.Clamp(p.Position.X, 0, b.MaxX)
	y := geometry.Clamp(p.Position.Y, 0, b.MaxY)
	// (x, y) is inside b, so moveTo cannot fail.
	_ = s.moveTo(p, kind, name, b, x, y)
}

func (s *Store) setDimension(p *model.Placement, kind EntityKind, name string, dim geometry.Dimension) {
	old := p.Dimension
	p.Dimension = dim
	if old.Width != dim.Width {
		s.changed(kind, name, AttrDimX)
	}
	if old.Height != dim.Height {
		s.changed(kind, name, AttrDimY)
	}
}

// interfaceDemand is the smallest logical area that fits c's interfaces:
// width for the busier of TOP/BOTTOM, height for LEFT/RIGHT.
func (s *Store) interfaceDemand(c *model.Component) geometry.Dimension {
	counts := make(map[geometry.Side]int)
	for _, n := range c.Interfaces {
		counts[s.interfaces[n].Orientation]++
	}
	return geometry.Dimension{
		Width:  max(counts[geometry.Top], counts[geometry.Bottom]),
		Height: max(counts[geometry.Left], counts[geometry.Right]),
	}
}

// growToFit widens or heightens c so every side holds its interfaces.
func (s *Store) growToFit(c *model.Component) {
	need := s.interfaceDemand(c)
	dim := c.Dimension
	dim.Width = max(dim.Width, need.Width)
	dim.Height = max(dim.Height, need.Height)
	if dim != c.Dimension {
		s.setDimension(&c.Placement, EntityComponent, c.Name, dim)
	}
}

func (s *Store) recomputeComponentBox(c *model.Component) {
	used := make(map[geometry.Side]bool)
	for _, n := range c.Interfaces {
		used[s.interfaces[n].Orientation] = true
	}
	c.Box, c.Offsets = geometry.BoundingBox(c.Dimension, s.margin, used)
	if g, ok := s.groups[c.Group]; ok {
		s.refit(&c.Placement, EntityComponent, c.Name, s.layerGrid(g))
	}
}

func groupNameOrGlobal(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return model.GlobalGroup
	}
	return name
}
