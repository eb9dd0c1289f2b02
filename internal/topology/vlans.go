package topology

import (
	"slices"
	"strings"

	"github.com/juju/collections/set"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/vlan"
)

// VLANSpec describes a VLAN to look up or create. Zero ID means
// generate one; empty Color means take the next palette colour.
type VLANSpec struct {
	ID    int
	Name  string
	Color string
}

// EnsureVLAN returns the VLAN called spec.Name, creating it if needed.
// The second result reports whether it was created.
func (s *Store) EnsureVLAN(spec VLANSpec) (vlan.VLAN, bool, error) {
	var (
		out     vlan.VLAN
		created bool
	)
	err := s.update(func() error {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errs.Invalidf("empty vlan name")
		}
		if v, ok := s.vlans.Lookup(name); ok {
			if spec.ID != 0 && spec.ID != v.ID {
				return errs.Invariantf("vlan %q already has id %d", name, v.ID)
			}
			out = *v
			return nil
		}
		color := ""
		if spec.Color != "" {
			var err error
			if color, err = vlan.ParseColor(spec.Color); err != nil {
				return err
			}
		}
		id := spec.ID
		if id == 0 {
			id = s.ids.nextVLANID()
		} else if _, taken := s.vlans.Get(id); taken {
			return errs.Duplicatef("vlan %d", id)
		}
		v := &vlan.VLAN{ID: id, Name: name, Color: color}
		if err := s.vlans.Add(v); err != nil {
			return err
		}
		if err := s.ids.register(vlanName(id), EntityVLAN); err != nil {
			_ = s.vlans.Remove(id)
			return err
		}
		s.ids.observeVLANID(id)
		if v.Color == "" {
			v.Color = s.palette.Next()
		}
		s.created(EntityVLAN, vlanName(id))
		out, created = *v, true
		return nil
	})
	return out, created, err
}

// GetVLAN returns the VLAN with id.
func (s *Store) GetVLAN(id int) (vlan.VLAN, error) {
	var (
		out vlan.VLAN
		err error
	)
	s.view(func() {
		v, ok := s.vlans.Get(id)
		if !ok {
			err = errs.NotFoundf("vlan %d", id)
			return
		}
		out = *v
	})
	return out, err
}

// LookupVLAN returns the VLAN called name.
func (s *Store) LookupVLAN(name string) (vlan.VLAN, error) {
	var (
		out vlan.VLAN
		err error
	)
	s.view(func() {
		v, ok := s.vlans.Lookup(name)
		if !ok {
			err = errs.NotFoundf("vlan %q", name)
			return
		}
		out = *v
	})
	return out, err
}

// ListVLANs returns every VLAN ordered by id.
func (s *Store) ListVLANs() []vlan.VLAN {
	var out []vlan.VLAN
	s.view(func() {
		for _, v := range s.vlans.All() {
			out = append(out, *v)
		}
	})
	return out
}

// SetVLANName renames a VLAN.
func (s *Store) SetVLANName(id int, name string) error {
	return s.update(func() error {
		v, ok := s.vlans.Get(id)
		if !ok {
			return errs.NotFoundf("vlan %d", id)
		}
		old := v.Name
		if err := s.vlans.Rename(id, strings.TrimSpace(name)); err != nil {
			return err
		}
		if v.Name != old {
			s.changed(EntityVLAN, vlanName(id), AttrVLANName)
		}
		return nil
	})
}

// SetVLANColor recolours a VLAN.
func (s *Store) SetVLANColor(id int, color string) error {
	return s.update(func() error {
		v, ok := s.vlans.Get(id)
		if !ok {
			return errs.NotFoundf("vlan %d", id)
		}
		c, err := vlan.ParseColor(color)
		if err != nil {
			return err
		}
		if v.Color == c {
			return nil
		}
		v.Color = c
		s.changed(EntityVLAN, vlanName(id), AttrColor)
		return nil
	})
}

// RemoveVLAN deletes a VLAN that no interface carries.
func (s *Store) RemoveVLAN(id int) error {
	return s.update(func() error {
		if _, ok := s.vlans.Get(id); !ok {
			return errs.NotFoundf("vlan %d", id)
		}
		for _, n := range sortedKeys(s.interfaces) {
			if slices.Contains(s.interfaces[n].VLANs, id) {
				return errs.Invariantf("vlan %d is carried by %s", id, n)
			}
		}
		if err := s.vlans.Remove(id); err != nil {
			return err
		}
		s.ids.unregister(vlanName(id))
		s.removed(EntityVLAN, vlanName(id))
		return nil
	})
}

// SetInterfaceVLANs replaces the VLANs an interface carries. Every id
// must be registered.
func (s *Store) SetInterfaceVLANs(name string, ids []int) error {
	return s.update(func() error {
		iface, ok := s.interfaces[name]
		if !ok {
			return errs.NotFoundf("interface %q", name)
		}
		tags := set.NewInts(ids...)
		for _, id := range tags.SortedValues() {
			if _, ok := s.vlans.Get(id); !ok {
				return errs.NotFoundf("vlan %d", id)
			}
		}
		next := tags.SortedValues()
		if slices.Equal(iface.VLANs, next) {
			return nil
		}
		iface.VLANs = next
		s.changed(EntityInterface, name, AttrVLANs)
		return nil
	})
}
