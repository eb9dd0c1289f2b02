// Package geometry holds the grid primitives used to place components,
// groups and group switches on the editor canvas.
package geometry

import (
	"fmt"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
)

// Dimension is a non-negative width/height pair in grid units.
type Dimension struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NewDimension validates and returns a Dimension.
func NewDimension(width, height int) (Dimension, error) {
	if width < 0 || height < 0 {
		return Dimension{}, errs.Invalidf("dimension %dx%d", width, height)
	}
	return Dimension{Width: width, Height: height}, nil
}

func (d Dimension) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Point is an unconstrained grid coordinate.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Bounds is the inclusive range a bounded Position must stay within.
type Bounds struct {
	MinX int `json:"min_x" yaml:"min_x"`
	MinY int `json:"min_y" yaml:"min_y"`
	MaxX int `json:"max_x" yaml:"max_x"`
	MaxY int `json:"max_y" yaml:"max_y"`
}

func (b Bounds) contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Within returns the bounds that keep a box of size box inside layer,
// i.e. [0, layer-box) on each axis. It reports false if the layer is too
// small to hold the box at all.
func Within(layer, box Dimension) (Bounds, bool) {
	b := Bounds{MaxX: layer.Width - box.Width - 1, MaxY: layer.Height - box.Height - 1}
	return b, b.MaxX >= 0 && b.MaxY >= 0
}

// Position is a grid coordinate, optionally restricted to Bounds.
type Position struct {
	X      int     `json:"x" yaml:"x"`
	Y      int     `json:"y" yaml:"y"`
	Bounds *Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// NewPosition returns an unbounded position.
func NewPosition(x, y int) Position {
	return Position{X: x, Y: y}
}

// NewBoundedPosition returns a position restricted to b. It fails if
// (x, y) is outside b or b is empty.
func NewBoundedPosition(x, y int, b Bounds) (Position, error) {
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return Position{}, errs.Invalidf("bounds [%d,%d]-[%d,%d]", b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	if !b.contains(x, y) {
		return Position{}, errs.Invalidf("position (%d,%d) outside [%d,%d]-[%d,%d]", x, y, b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	return Position{X: x, Y: y, Bounds: &b}, nil
}

// Set moves the position. The position is unchanged on error.
func (p *Position) Set(x, y int) error {
	if p.Bounds != nil && !p.Bounds.contains(x, y) {
		return errs.Invalidf("position (%d,%d) outside [%d,%d]-[%d,%d]",
			x, y, p.Bounds.MinX, p.Bounds.MinY, p.Bounds.MaxX, p.Bounds.MaxY)
	}
	p.X, p.Y = x, y
	return nil
}

// Point drops the bounds.
func (p Position) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// Clamp limits v to [lo, hi]. If hi < lo, lo wins.
func Clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Side is one of the four edges of a box.
type Side int

const (
	Top Side = iota
	Bottom
	Left
	Right
)

// Sides lists every side in canonical order.
var Sides = []Side{Top, Bottom, Left, Right}

func (s Side) String() string {
	switch s {
	case Top:
		return "TOP"
	case Bottom:
		return "BOTTOM"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Horizontal reports whether interfaces on this side are spread along
// the x axis.
func (s Side) Horizontal() bool {
	return s == Top || s == Bottom
}

// ParseSide accepts the side names case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TOP":
		return Top, nil
	case "BOTTOM":
		return Bottom, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	}
	return 0, errs.Invalidf("side %q", s)
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Insets is the distance from each edge of a box to the logical area.
type Insets struct {
	Top    int `json:"top" yaml:"top"`
	Bottom int `json:"bottom" yaml:"bottom"`
	Left   int `json:"left" yaml:"left"`
	Right  int `json:"right" yaml:"right"`
}

// BoundingBox derives the outer box and interface offsets for a logical
// area. Each axis gets 2*margin plus two units of fixed padding, and one
// extra unit for every side that has an interface facing it so two
// adjacent boxes always leave a passable gap.
func BoundingBox(logical Dimension, margin int, used map[Side]bool) (Dimension, Insets) {
	box := Dimension{
		Width:  logical.Width + 2*margin + 2,
		Height: logical.Height + 2*margin + 2,
	}
	offset := func(s Side) int {
		if used[s] {
			return margin + 1
		}
		return margin
	}
	if used[Left] {
		box.Width++
	}
	if used[Right] {
		box.Width++
	}
	if used[Top] {
		box.Height++
	}
	if used[Bottom] {
		box.Height++
	}
	return box, Insets{
		Top:    offset(Top),
		Bottom: offset(Bottom),
		Left:   offset(Left),
		Right:  offset(Right),
	}
}
