package topology

import (
	"slices"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/ipam"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// InterfaceSpec describes an interface to add to a component.
type InterfaceSpec struct {
	// Name is set when rebuilding from a mirror; otherwise generated.
	Name        string
	Orientation geometry.Side
	Label       string
}

func validSide(s geometry.Side) bool {
	return slices.Contains(geometry.Sides, s)
}

// AddInterface adds an interface to component, growing the component
// along the interface's axis if that side is full.
func (s *Store) AddInterface(component string, spec InterfaceSpec) (model.Interface, error) {
	var out model.Interface
	err := s.update(func() error {
		c, ok := s.components[component]
		if !ok {
			return errs.NotFoundf("component %q", component)
		}
		iface, err := s.addInterface(c, spec)
		if err != nil {
			return err
		}
		out = iface.Clone()
		return nil
	})
	return out, err
}

func (s *Store) addInterface(c *model.Component, spec InterfaceSpec) (*model.Interface, error) {
	if !validSide(spec.Orientation) {
		return nil, errs.Invalidf("orientation %d", int(spec.Orientation))
	}
	name := spec.Name
	if name == "" {
		name = s.ids.nextInterfaceName(c.Name)
	}
	if err := s.ids.register(name, EntityInterface); err != nil {
		return nil, err
	}
	iface := &model.Interface{
		Name:        name,
		Component:   c.Name,
		Label:       strings.TrimSpace(spec.Label),
		Orientation: spec.Orientation,
	}
	s.interfaces[name] = iface
	c.Interfaces = append(c.Interfaces, name)
	if c.Kind == model.KindSwitch {
		c.RealInterfaces = append(c.RealInterfaces, name)
	}
	s.growToFit(c)
	s.recomputeComponentBox(c)
	s.created(EntityInterface, name)
	s.changed(EntityComponent, c.Name, AttrInterfaces)
	return iface, nil
}

// GetInterface returns a copy of the named interface.
func (s *Store) GetInterface(name string) (model.Interface, error) {
	var (
		out model.Interface
		err error
	)
	s.view(func() {
		i, ok := s.interfaces[name]
		if !ok {
			err = errs.NotFoundf("interface %q", name)
			return
		}
		out = i.Clone()
	})
	return out, err
}

// ListInterfaces returns the interfaces of component in creation order.
func (s *Store) ListInterfaces(component string) ([]model.Interface, error) {
	var (
		out []model.Interface
		err error
	)
	s.view(func() {
		c, ok := s.components[component]
		if !ok {
			err = errs.NotFoundf("component %q", component)
			return
		}
		for _, n := range c.Interfaces {
			out = append(out, s.interfaces[n].Clone())
		}
	})
	return out, err
}

// RemoveInterface deletes an interface, disconnecting its cable and
// releasing its addresses.
func (s *Store) RemoveInterface(name string) error {
	return s.update(func() error {
		return s.removeInterface(name)
	})
}

func (s *Store) removeInterface(name string) error {
	iface, ok := s.interfaces[name]
	if !ok {
		return errs.NotFoundf("interface %q", name)
	}
	if iface.Cable != "" {
		if err := s.removeCable(iface.Cable); err != nil {
			return err
		}
	}
	for _, cfg := range iface.Addresses {
		s.releaseConfig(cfg)
	}
	iface.Addresses = nil
	for _, id := range sortedKeys(s.groupInterfaces) {
		gi := s.groupInterfaces[id]
		if !gi.Synthetic && (gi.Inner == name || gi.Outer == name) {
			s.destroyGroupInterface(gi)
		}
	}

	c := s.components[iface.Component]
	c.Interfaces = without(c.Interfaces, name)
	if c.Kind == model.KindSwitch {
		c.RealInterfaces = without(c.RealInterfaces, name)
		for _, gsID := range c.GroupSwitches {
			gs := s.groupSwitches[gsID]
			if slices.Contains(gs.Interfaces, name) {
				gs.Interfaces = without(gs.Interfaces, name)
				s.recomputeGroupSwitch(gs)
			}
		}
	}
	delete(s.interfaces, name)
	s.ids.unregister(name)
	s.removed(EntityInterface, name)
	s.recomputeComponentBox(c)
	s.changed(EntityComponent, c.Name, AttrInterfaces)
	return nil
}

// releaseConfig returns cfg's address to its network. A network that has
// already been removed is ignored.
func (s *Store) releaseConfig(cfg model.IPConfig) {
	n, ok := s.networks[cfg.Network]
	if !ok {
		return
	}
	a, err := ipam.ParseAddress(cfg.Address)
	if err != nil {
		return
	}
	if n.Release(a) == nil {
		s.changed(EntityNetwork, cfg.Network, AttrAddresses)
	}
}

// SetInterfaceOrientation moves an interface to another side of its
// component.
func (s *Store) SetInterfaceOrientation(name string, side geometry.Side) error {
	return s.update(func() error {
		iface, ok := s.interfaces[name]
		if !ok {
			return errs.NotFoundf("interface %q", name)
		}
		if !validSide(side) {
			return errs.Invalidf("orientation %d", int(side))
		}
		if iface.Orientation == side {
			return nil
		}
		iface.Orientation = side
		c := s.components[iface.Component]
		s.growToFit(c)
		s.recomputeComponentBox(c)
		s.changed(EntityInterface, name, AttrOrientation)
		return nil
	})
}

// SetInterfaceLabel changes the display label. An empty label clears it.
func (s *Store) SetInterfaceLabel(name, label string) error {
	return s.update(func() error {
		iface, ok := s.interfaces[name]
		if !ok {
			return errs.NotFoundf("interface %q", name)
		}
		label = strings.TrimSpace(label)
		if iface.Label == label {
			return nil
		}
		iface.Label = label
		s.changed(EntityInterface, name, AttrLabel)
		return nil
	})
}
