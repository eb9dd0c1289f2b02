// Package layout defines the contract between the topology store and
// automatic layout engines. The store describes one layer as a Job, an
// Engine proposes positions, and the store applies them.
package layout

import (
	"context"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
)

// NodeKind is the type of entity a node stands for.
type NodeKind string

const (
	NodeComponent   NodeKind = "component"
	NodeGroup       NodeKind = "group"
	NodeGroupSwitch NodeKind = "group_switch"
)

// Node is a box to place.
type Node struct {
	Name     string             `json:"name"`
	Kind     NodeKind           `json:"kind"`
	Size     geometry.Dimension `json:"size"`
	Position *geometry.Point    `json:"position,omitempty"`
	Fixed    bool               `json:"fixed"`
}

// Edge joins two nodes.
type Edge struct {
	Name  string `json:"name"`
	From  string `json:"from"`
	To    string `json:"to"`
	Fixed bool   `json:"fixed"`
}

// Job is one layer to lay out.
type Job struct {
	Layer string             `json:"layer"`
	Grid  geometry.Dimension `json:"grid"`
	Nodes []Node             `json:"nodes"`
	Edges []Edge             `json:"edges"`
}

// NewJob returns an empty job for layer on a grid of the given size.
func NewJob(layer string, grid geometry.Dimension) *Job {
	return &Job{Layer: layer, Grid: grid}
}

func (j *Job) addNode(kind NodeKind, name string, size geometry.Dimension, pos *geometry.Position, fixed bool) bool {
	n := Node{Name: name, Kind: kind, Size: size, Fixed: fixed && pos != nil}
	if pos != nil {
		p := pos.Point()
		n.Position = &p
	}
	j.Nodes = append(j.Nodes, n)
	return n.Fixed
}

// AddComponent adds a component box and reports whether it is fixed.
func (j *Job) AddComponent(name string, size geometry.Dimension, pos *geometry.Position, fixed bool) bool {
	return j.addNode(NodeComponent, name, size, pos, fixed)
}

// AddComponentGroup adds a collapsed group box and reports whether it is
// fixed.
func (j *Job) AddComponentGroup(name string, size geometry.Dimension, pos *geometry.Position, fixed bool) bool {
	return j.addNode(NodeGroup, name, size, pos, fixed)
}

// AddGroupSwitch adds a group switch box and reports whether it is fixed.
func (j *Job) AddGroupSwitch(name string, size geometry.Dimension, pos *geometry.Position, fixed bool) bool {
	return j.addNode(NodeGroupSwitch, name, size, pos, fixed)
}

// AddCable adds an edge. A cable with a routed path is fixed.
func (j *Job) AddCable(name, from, to string, routed bool) bool {
	j.Edges = append(j.Edges, Edge{Name: name, From: from, To: to, Fixed: routed})
	return routed
}

// Node returns the node called name.
func (j *Job) Node(name string) (Node, bool) {
	for _, n := range j.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Result maps node names to proposed top-left corners.
type Result map[string]geometry.Point

// Engine computes positions for a job. Engines may ignore fixed nodes in
// their result; the store never moves them.
type Engine interface {
	Name() string
	Layout(ctx context.Context, job *Job) (Result, error)
}
