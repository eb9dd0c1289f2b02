package topology

import (
	"slices"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// CableSpec describes a connection between two interfaces.
type CableSpec struct {
	// Name is set when rebuilding from a mirror; otherwise generated.
	Name  string
	Left  string
	Right string
	// GroupInterface optionally routes the cable through a gateway; the
	// cable is then displayed in the gateway's group.
	GroupInterface string
}

// Connect joins two unconnected interfaces with a new cable.
func (s *Store) Connect(spec CableSpec) (model.Cable, error) {
	var out model.Cable
	err := s.update(func() error {
		c, err := s.connect(spec)
		if err != nil {
			return err
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (s *Store) connect(spec CableSpec) (*model.Cable, error) {
	if spec.Left == spec.Right {
		return nil, errs.Invalidf("cable from %q to itself", spec.Left)
	}
	left, ok := s.interfaces[spec.Left]
	if !ok {
		return nil, errs.NotFoundf("interface %q", spec.Left)
	}
	right, ok := s.interfaces[spec.Right]
	if !ok {
		return nil, errs.NotFoundf("interface %q", spec.Right)
	}
	for _, i := range []*model.Interface{left, right} {
		if i.Connected() {
			return nil, errs.Invariantf("interface %s already connected by %s", i.Name, i.Cable)
		}
	}
	var gateway *model.GroupInterface
	if spec.GroupInterface != "" {
		if gateway, ok = s.groupInterfaces[spec.GroupInterface]; !ok {
			return nil, errs.NotFoundf("group interface %q", spec.GroupInterface)
		}
		if gateway.Cable != "" {
			return nil, errs.Invariantf("group interface %s already carries %s", gateway.ID, gateway.Cable)
		}
	}

	name := spec.Name
	if name == "" {
		name = s.ids.nextCableName()
	}
	if err := s.ids.register(name, EntityCable); err != nil {
		return nil, err
	}
	c := &model.Cable{
		Name:  name,
		Left:  left.Name,
		Right: right.Name,
	}
	if gateway != nil {
		c.GroupInterface = gateway.ID
		c.Group = gateway.Group
		gateway.Cable = name
	} else {
		c.Group = s.displayGroup(left, right)
	}
	s.cables[name] = c
	left.Cable, left.End = name, model.EndLeft
	right.Cable, right.End = name, model.EndRight
	g := s.groups[c.Group]
	g.Cables = appendUnique(g.Cables, name)

	s.created(EntityCable, name)
	s.changed(EntityInterface, left.Name, AttrConnectivity)
	s.changed(EntityInterface, right.Name, AttrConnectivity)
	if gateway != nil {
		s.changed(EntityGroupInterface, gateway.ID, AttrConnectivity)
	}
	return c, nil
}

// displayGroup picks the group a gateway-less cable is drawn in: the
// shared group, else the endpoint group that is not global, else the
// left endpoint's group.
func (s *Store) displayGroup(left, right *model.Interface) string {
	lg := s.components[left.Component].Group
	rg := s.components[right.Component].Group
	switch {
	case lg == rg:
		return lg
	case lg == s.global:
		return rg
	default:
		return lg
	}
}

// GetCable returns a copy of the named cable.
func (s *Store) GetCable(name string) (model.Cable, error) {
	var (
		out model.Cable
		err error
	)
	s.view(func() {
		c, ok := s.cables[name]
		if !ok {
			err = errs.NotFoundf("cable %q", name)
			return
		}
		out = c.Clone()
	})
	return out, err
}

// ListCables returns every cable ordered by name.
func (s *Store) ListCables() []model.Cable {
	var out []model.Cable
	s.view(func() {
		for _, n := range sortedKeys(s.cables) {
			out = append(out, s.cables[n].Clone())
		}
	})
	return out
}

// RemoveCable disconnects both endpoints and releases the cable's group
// interface, if any.
func (s *Store) RemoveCable(name string) error {
	return s.update(func() error {
		return s.removeCable(name)
	})
}

func (s *Store) removeCable(name string) error {
	c, ok := s.cables[name]
	if !ok {
		return errs.NotFoundf("cable %q", name)
	}
	if gi, ok := s.groupInterfaces[c.GroupInterface]; ok {
		gi.Cable = ""
		if gi.Synthetic {
			s.changed(EntityGroupInterface, gi.ID, AttrConnectivity)
		} else {
			s.destroyGroupInterface(gi)
		}
	}
	for _, end := range []string{c.Left, c.Right} {
		if i, ok := s.interfaces[end]; ok && i.Cable == name {
			i.Cable, i.End = "", ""
			s.changed(EntityInterface, end, AttrConnectivity)
		}
	}
	if g, ok := s.groups[c.Group]; ok {
		g.Cables = without(g.Cables, name)
	}
	delete(s.cables, name)
	s.ids.unregister(name)
	s.removed(EntityCable, name)
	return nil
}

// SetCablePath stores the routed path of a cable. An empty path clears
// it.
func (s *Store) SetCablePath(name string, path []geometry.Point) error {
	return s.update(func() error {
		c, ok := s.cables[name]
		if !ok {
			return errs.NotFoundf("cable %q", name)
		}
		for _, p := range path {
			if p.X < 0 || p.Y < 0 {
				return errs.Invalidf("path point (%d,%d)", p.X, p.Y)
			}
		}
		c.Path = slices.Clone(path)
		s.changed(EntityCable, name, AttrPath)
		return nil
	})
}

// rederiveCableGroups recomputes the display group of the gateway-less
// cables attached to c.
func (s *Store) rederiveCableGroups(c *model.Component) {
	for _, ifName := range c.Interfaces {
		iface := s.interfaces[ifName]
		cable, ok := s.cables[iface.Cable]
		if !ok || cable.GroupInterface != "" {
			continue
		}
		s.moveCable(cable, s.displayGroup(s.interfaces[cable.Left], s.interfaces[cable.Right]))
	}
}

func (s *Store) moveCable(cable *model.Cable, groupID string) {
	if cable.Group == groupID {
		return
	}
	if old, ok := s.groups[cable.Group]; ok {
		old.Cables = without(old.Cables, cable.Name)
	}
	cable.Group = groupID
	g := s.groups[groupID]
	g.Cables = appendUnique(g.Cables, cable.Name)
	s.changed(EntityCable, cable.Name, AttrGroup)
}
