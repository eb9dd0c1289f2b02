package layout

import (
	"context"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
)

// DefaultSpacing is the gap the grid engine leaves between boxes.
const DefaultSpacing = 2

// Grid places free nodes in rows, left to right, wrapping at the grid
// width and stepping around fixed nodes.
type Grid struct {
	spacing int
}

// NewGrid returns a grid engine with the given spacing.
func NewGrid(spacing int) *Grid {
	if spacing < 0 {
		spacing = 0
	}
	return &Grid{spacing: spacing}
}

func (g *Grid) Name() string { return "grid" }

type rect struct {
	x, y, w, h int
}

func (r rect) overlaps(o rect) bool {
	return r.x < o.x+o.w && o.x < r.x+r.w && r.y < o.y+o.h && o.y < r.y+r.h
}

// Layout implements Engine.
func (g *Grid) Layout(ctx context.Context, job *Job) (Result, error) {
	var taken []rect
	for _, n := range job.Nodes {
		if n.Fixed {
			taken = append(taken, rect{n.Position.X, n.Position.Y, n.Size.Width + g.spacing, n.Size.Height + g.spacing})
		}
	}

	out := make(Result)
	x, y, rowHeight := 0, 0, 0
	for _, n := range job.Nodes {
		if n.Fixed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, h := n.Size.Width+g.spacing, n.Size.Height+g.spacing
		for {
			if x > 0 && x+n.Size.Width > job.Grid.Width {
				x, y, rowHeight = 0, y+max(rowHeight, 1), 0
			}
			r := rect{x, y, w, h}
			blocker, hit := firstOverlap(taken, r)
			if !hit {
				break
			}
			x = blocker.x + blocker.w
		}
		out[n.Name] = geometry.Point{X: x, Y: y}
		taken = append(taken, rect{x, y, w, h})
		x += w
		rowHeight = max(rowHeight, h)
	}
	return out, nil
}

func firstOverlap(taken []rect, r rect) (rect, bool) {
	for _, t := range taken {
		if r.overlaps(t) {
			return t, true
		}
	}
	return rect{}, false
}
