package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/topology"
	"github.com/martinsuchenak/netcanvas/internal/vlan"
)

// Records is the decoded content of a mirror, one slice per entity kind.
type Records struct {
	Networks        []model.Network
	VLANs           []vlan.VLAN
	Groups          []model.Group
	Components      []model.Component
	Interfaces      map[string]model.Interface
	Cables          []model.Cable
	GroupInterfaces []model.GroupInterface
	GroupSwitches   []model.GroupSwitch
}

// Decode turns stored entities into typed records. Virtual interfaces are
// skipped since boundary synthesis recreates them.
func Decode(entities []Entity) (*Records, error) {
	rec := &Records{Interfaces: make(map[string]model.Interface)}
	for _, e := range entities {
		var err error
		switch e.Kind {
		case topology.EntityNetwork:
			var n model.Network
			if err = json.Unmarshal(e.State, &n); err == nil {
				rec.Networks = append(rec.Networks, n)
			}
		case topology.EntityVLAN:
			var v vlan.VLAN
			if err = json.Unmarshal(e.State, &v); err == nil {
				rec.VLANs = append(rec.VLANs, v)
			}
		case topology.EntityGroup:
			var g model.Group
			if err = json.Unmarshal(e.State, &g); err == nil {
				rec.Groups = append(rec.Groups, g)
			}
		case topology.EntityComponent:
			var c model.Component
			if err = json.Unmarshal(e.State, &c); err == nil {
				rec.Components = append(rec.Components, c)
			}
		case topology.EntityInterface:
			var i model.Interface
			if err = json.Unmarshal(e.State, &i); err == nil {
				rec.Interfaces[i.Name] = i
			}
		case topology.EntityCable:
			var c model.Cable
			if err = json.Unmarshal(e.State, &c); err == nil {
				rec.Cables = append(rec.Cables, c)
			}
		case topology.EntityGroupInterface:
			var gi model.GroupInterface
			if err = json.Unmarshal(e.State, &gi); err == nil {
				rec.GroupInterfaces = append(rec.GroupInterfaces, gi)
			}
		case topology.EntityGroupSwitch:
			var gs model.GroupSwitch
			if err = json.Unmarshal(e.State, &gs); err == nil {
				rec.GroupSwitches = append(rec.GroupSwitches, gs)
			}
		case topology.EntityVirtualInterface:
		default:
			log.Warn("Skipping unknown mirror entity", "kind", e.Kind, "name", e.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", e.Kind, e.Name, err)
		}
	}

	sort.Slice(rec.Networks, func(i, j int) bool { return rec.Networks[i].CIDR < rec.Networks[j].CIDR })
	sort.Slice(rec.VLANs, func(i, j int) bool { return rec.VLANs[i].ID < rec.VLANs[j].ID })
	sort.Slice(rec.Groups, func(i, j int) bool { return rec.Groups[i].Name < rec.Groups[j].Name })
	sort.Slice(rec.Components, func(i, j int) bool { return rec.Components[i].Name < rec.Components[j].Name })
	sort.Slice(rec.Cables, func(i, j int) bool { return rec.Cables[i].Name < rec.Cables[j].Name })
	sort.Slice(rec.GroupInterfaces, func(i, j int) bool { return rec.GroupInterfaces[i].ID < rec.GroupInterfaces[j].ID })
	return rec, nil
}

// Load reads and decodes every stored entity.
func (s *SQLite) Load(ctx context.Context) (*Records, error) {
	entities, err := s.Entities(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(entities)
}

// Rebuild clears store and replays rec into it, then synthesises the
// switch boundaries. Group identifiers are regenerated; everything else
// keeps its stored name.
func Rebuild(ctx context.Context, store *topology.Store, rec *Records) error {
	store.Clear()

	for _, n := range rec.Networks {
		if _, err := store.RegisterNetwork(n.CIDR); err != nil {
			return fmt.Errorf("rebuilding network %s: %w", n.CIDR, err)
		}
	}
	for _, v := range rec.VLANs {
		if _, _, err := store.EnsureVLAN(topology.VLANSpec{ID: v.ID, Name: v.Name, Color: v.Color}); err != nil {
			return fmt.Errorf("rebuilding vlan %d: %w", v.ID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	groupNames := make(map[string]string, len(rec.Groups))
	for _, g := range rec.Groups {
		groupNames[g.ID] = g.Name
	}

	for _, c := range rec.Components {
		spec := topology.ComponentSpec{
			Kind:      c.Kind,
			Label:     c.Label,
			Name:      c.Name,
			Dimension: &c.Dimension,
			Fixed:     c.Fixed,
			Group:     groupNames[c.Group],
		}
		for _, name := range c.Interfaces {
			iface, ok := rec.Interfaces[name]
			if !ok {
				log.Warn("Mirror is missing an interface record", "component", c.Name, "interface", name)
				continue
			}
			spec.InterfaceNames = append(spec.InterfaceNames, name)
			spec.Orientations = append(spec.Orientations, iface.Orientation)
		}
		if _, err := store.CreateComponent(spec); err != nil {
			return fmt.Errorf("rebuilding component %s: %w", c.Name, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, g := range rec.Groups {
		if g.Name == model.GlobalGroup {
			continue
		}
		if _, err := store.GetGroup(g.Name); err != nil {
			// empty groups are not kept by the store
			continue
		}
		if err := store.SetGroupDimension(g.Name, g.Dimension.Width, g.Dimension.Height); err != nil {
			return fmt.Errorf("rebuilding group %s: %w", g.Name, err)
		}
	}

	for _, name := range sortedNames(rec.Interfaces) {
		iface := rec.Interfaces[name]
		if _, err := store.GetInterface(name); err != nil {
			continue
		}
		if iface.Label != "" {
			if err := store.SetInterfaceLabel(name, iface.Label); err != nil {
				return fmt.Errorf("rebuilding interface %s: %w", name, err)
			}
		}
		if len(iface.VLANs) > 0 {
			if err := store.SetInterfaceVLANs(name, iface.VLANs); err != nil {
				return fmt.Errorf("rebuilding interface %s: %w", name, err)
			}
		}
		for _, cfg := range iface.Addresses {
			if _, err := store.AssignAddress(name, cfg.Address, cfg.Network); err != nil {
				return fmt.Errorf("rebuilding interface %s: %w", name, err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gateways := make(map[string]bool)
	for _, gi := range rec.GroupInterfaces {
		if gi.Synthetic {
			continue
		}
		if !isInterface(store, gi.Inner) || !isInterface(store, gi.Outer) {
			log.Warn("Skipping group interface anchored on a virtual interface", "id", gi.ID)
			continue
		}
		_, err := store.CreateGroupInterface(topology.GroupInterfaceSpec{
			ID:          gi.ID,
			Group:       groupNames[gi.Group],
			Inner:       gi.Inner,
			Outer:       gi.Outer,
			Orientation: gi.Orientation,
		})
		if err != nil {
			return fmt.Errorf("rebuilding group interface %s: %w", gi.ID, err)
		}
		gateways[gi.ID] = true
	}

	for _, c := range rec.Cables {
		spec := topology.CableSpec{Name: c.Name, Left: c.Left, Right: c.Right}
		if gateways[c.GroupInterface] {
			spec.GroupInterface = c.GroupInterface
		}
		if _, err := store.Connect(spec); err != nil {
			return fmt.Errorf("rebuilding cable %s: %w", c.Name, err)
		}
		if len(c.Path) > 0 {
			if err := store.SetCablePath(c.Name, c.Path); err != nil {
				return fmt.Errorf("rebuilding cable %s: %w", c.Name, err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := store.SynthesizeAll(); err != nil {
		return fmt.Errorf("synthesizing boundaries: %w", err)
	}

	// Boxes are final only once gateways exist and boundaries are
	// synthesized, so positions are replayed last.
	for _, g := range rec.Groups {
		if g.Position == nil || g.Name == model.GlobalGroup {
			continue
		}
		if _, err := store.GetGroup(g.Name); err != nil {
			continue
		}
		if err := store.SetGroupPosition(g.Name, g.Position.X, g.Position.Y, g.Fixed); err != nil {
			return fmt.Errorf("rebuilding group %s: %w", g.Name, err)
		}
	}
	for _, c := range rec.Components {
		if c.Position == nil {
			continue
		}
		if err := store.SetComponentPosition(c.Name, c.Position.X, c.Position.Y, c.Fixed); err != nil {
			return fmt.Errorf("rebuilding component %s: %w", c.Name, err)
		}
	}

	for _, gs := range rec.GroupSwitches {
		if gs.Position == nil {
			continue
		}
		current, err := store.ListGroupSwitches(groupNames[gs.Group])
		if err != nil {
			continue
		}
		for _, cur := range current {
			if cur.Switch != gs.Switch {
				continue
			}
			if err := store.SetGroupSwitchPosition(cur.ID, gs.Position.X, gs.Position.Y, gs.Fixed); err != nil {
				return fmt.Errorf("rebuilding group switch %s: %w", gs.ID, err)
			}
		}
	}

	st := store.Stats()
	log.Info("Topology rebuilt from mirror", "components", st.Components, "cables", st.Cables, "groups", st.Groups)
	return nil
}

// Restore rebuilds store from db, rewrites the stored entities from the
// rebuilt store in one transaction and then attaches d as the store's
// mirror. If the rewrite fails the stored entities are left as they were.
func Restore(ctx context.Context, store *topology.Store, db *SQLite, d *Dispatcher) error {
	rec, err := db.Load(ctx)
	if err != nil {
		return err
	}
	if err := Rebuild(ctx, store, rec); err != nil {
		return err
	}
	entities, err := StoreEntities(store)
	if err != nil {
		return err
	}
	if err := db.ReplaceAll(ctx, entities); err != nil {
		return fmt.Errorf("rewriting mirror: %w", err)
	}
	store.SetMirror(d)
	return nil
}

// StoreEntities returns the current state of every live entity in store, in
// the form the mirror stores it.
func StoreEntities(store *topology.Store) ([]Entity, error) {
	rec := &topology.Recorder{}
	store.SetMirror(rec)
	store.Resync()
	store.SetMirror(nil)

	now := time.Now()
	out := make([]Entity, 0, len(rec.Events))
	for _, e := range rec.Events {
		raw, err := json.Marshal(e.State)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s: %w", e.Ref.Kind, e.Ref.Name, err)
		}
		out = append(out, Entity{Kind: e.Ref.Kind, Name: e.Ref.Name, State: raw, UpdatedAt: now})
	}
	return out, nil
}

func isInterface(store *topology.Store, name string) bool {
	kind, ok := store.Lookup(name)
	return ok && kind == topology.EntityInterface
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
