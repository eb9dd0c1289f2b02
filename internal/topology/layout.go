package topology

import (
	"context"
	"slices"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/layout"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// LayoutJob describes one layer for a layout engine. On the global layer
// the nodes are the global components plus one box per other group; on
// a group layer they are the members plus the group switches. Group
// nodes are named by group id.
func (s *Store) LayoutJob(group string) (*layout.Job, error) {
	var (
		job *layout.Job
		err error
	)
	s.view(func() {
		var g *model.Group
		if g, err = s.groupByName(group); err != nil {
			return
		}
		job = layout.NewJob(g.Name, s.layerGrid(g))
		for _, n := range g.Members {
			c := s.components[n]
			job.AddComponent(n, c.Box, c.Position, c.Fixed)
		}
		if g.ID == s.global {
			for _, id := range sortedKeys(s.groups) {
				if id == s.global {
					continue
				}
				og := s.groups[id]
				job.AddComponentGroup(id, og.Box, og.Position, og.Fixed)
			}
		} else {
			for _, sw := range sortedKeys(g.GroupSwitches) {
				gs := s.groupSwitches[g.GroupSwitches[sw]]
				job.AddGroupSwitch(gs.ID, gs.Box, gs.Position, gs.Fixed)
			}
		}
		for _, n := range g.Cables {
			c := s.cables[n]
			from, to := s.layoutEndpoint(g, c.Left), s.layoutEndpoint(g, c.Right)
			if from == "" || to == "" {
				continue
			}
			job.AddCable(n, from, to, len(c.Path) > 0)
		}
	})
	return job, err
}

func (s *Store) layerGrid(g *model.Group) geometry.Dimension {
	if g.ID == s.global {
		return s.grid
	}
	return g.Dimension
}

// layoutEndpoint names the node an interface appears on in layer g, or
// "" if it is not visible there.
func (s *Store) layoutEndpoint(g *model.Group, ifName string) string {
	iface, ok := s.interfaces[ifName]
	if !ok {
		return ""
	}
	c := s.components[iface.Component]
	if c.Group == g.ID {
		return c.Name
	}
	if g.ID == s.global {
		return c.Group
	}
	if gsID, ok := c.GroupSwitches[g.ID]; ok && slices.Contains(s.groupSwitches[gsID].Interfaces, ifName) {
		return gsID
	}
	return ""
}

// ApplyLayout moves the nodes of layer group to the proposed positions,
// clamped so each box stays inside the layer. Fixed entities, boxes the
// layer cannot hold and names that are not on the layer are skipped. It returns how many entities
// moved.
func (s *Store) ApplyLayout(group string, result layout.Result) (int, error) {
	applied := 0
	err := s.update(func() error {
		g, err := s.groupByName(group)
		if err != nil {
			return err
		}
		grid := s.layerGrid(g)
		for _, name := range sortedKeys(result) {
			p, kind, ok := s.layerPlacement(g, name)
			if !ok || (p.Fixed && p.Position != nil) {
				continue
			}
			b, fits := geometry.Within(grid, p.Box)
			if !fits {
				continue
			}
			pt := result[name]
			x := geometry.Clamp(pt.X, 0, b.MaxX)
			y := geometry.Clamp(pt.Y, 0, b.MaxY)
			if p.Position != nil && p.Position.X == x && p.Position.Y == y {
				continue
			}
			if err := s.setPosition(p, kind, name, grid, x, y, false); err != nil {
				return err
			}
			applied++
		}
		return nil
	})
	return applied, err
}

func (s *Store) layerPlacement(g *model.Group, name string) (*model.Placement, EntityKind, bool) {
	if c, ok := s.components[name]; ok && c.Group == g.ID {
		return &c.Placement, EntityComponent, true
	}
	if g.ID == s.global {
		if og, ok := s.groups[name]; ok && og.ID != s.global {
			return &og.Placement, EntityGroup, true
		}
		return nil, "", false
	}
	if gs, ok := s.groupSwitches[name]; ok && gs.Group == g.ID {
		return &gs.Placement, EntityGroupSwitch, true
	}
	return nil, "", false
}

// Layout runs engine over layer group and applies the result. The engine
// runs without the store lock held; entities removed in the meantime are
// skipped.
func (s *Store) Layout(ctx context.Context, group string, engine layout.Engine) (int, error) {
	if engine == nil {
		return 0, errs.Invalidf("nil layout engine")
	}
	job, err := s.LayoutJob(group)
	if err != nil {
		return 0, err
	}
	result, err := engine.Layout(ctx, job)
	if err != nil {
		return 0, err
	}
	return s.ApplyLayout(group, result)
}
