// Package vlan holds VLAN tags and the registry the topology store keeps
// them in.
package vlan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
)

// VLAN is an 802.1Q tag as shown in the editor.
type VLAN struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// MaxID is the highest usable 802.1Q identifier.
const MaxID = 4094

var colorRE = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseColor validates a "#RRGGBB" string and normalises it to lower case.
func ParseColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !colorRE.MatchString(s) {
		return "", errs.Invalidf("color %q", s)
	}
	return strings.ToLower(s), nil
}

// DefaultColors is the palette new VLANs cycle through.
var DefaultColors = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Palette hands out colours round-robin.
type Palette struct {
	colors []string
	next   int
}

// NewPalette returns a palette over colors, or DefaultColors if empty.
func NewPalette(colors ...string) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &Palette{colors: colors}
}

// Next returns the next colour.
func (p *Palette) Next() string {
	c := p.colors[p.next%len(p.colors)]
	p.next++
	return c
}

// Reset starts the cycle over.
func (p *Palette) Reset() {
	p.next = 0
}

// Registry indexes VLANs by id and by name. It is not safe for
// concurrent use.
type Registry struct {
	byID   map[int]*VLAN
	byName map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[int]*VLAN),
		byName: make(map[string]int),
	}
}

// Add registers v. Ids must be in 1..MaxID and both id and name unique.
func (r *Registry) Add(v *VLAN) error {
	if v.ID < 1 || v.ID > MaxID {
		return errs.Invalidf("vlan id %d", v.ID)
	}
	if strings.TrimSpace(v.Name) == "" {
		return errs.Invalidf("empty vlan name")
	}
	if _, ok := r.byID[v.ID]; ok {
		return errs.Duplicatef("vlan %d", v.ID)
	}
	if _, ok := r.byName[v.Name]; ok {
		return errs.Duplicatef("vlan %q", v.Name)
	}
	r.byID[v.ID] = v
	r.byName[v.Name] = v.ID
	return nil
}

// Get returns the VLAN with id.
func (r *Registry) Get(id int) (*VLAN, bool) {
	v, ok := r.byID[id]
	return v, ok
}

// Lookup returns the VLAN called name.
func (r *Registry) Lookup(name string) (*VLAN, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// Rename changes the name of VLAN id.
func (r *Registry) Rename(id int, name string) error {
	v, ok := r.byID[id]
	if !ok {
		return errs.NotFoundf("vlan %d", id)
	}
	if strings.TrimSpace(name) == "" {
		return errs.Invalidf("empty vlan name")
	}
	if name == v.Name {
		return nil
	}
	if _, taken := r.byName[name]; taken {
		return errs.Duplicatef("vlan %q", name)
	}
	delete(r.byName, v.Name)
	v.Name = name
	r.byName[name] = id
	return nil
}

// Remove drops VLAN id.
func (r *Registry) Remove(id int) error {
	v, ok := r.byID[id]
	if !ok {
		return errs.NotFoundf("vlan %d", id)
	}
	delete(r.byName, v.Name)
	delete(r.byID, id)
	return nil
}

// All returns every VLAN ordered by id.
func (r *Registry) All() []*VLAN {
	out := make([]*VLAN, 0, len(r.byID))
	for _, v := range r.byID {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of VLANs.
func (r *Registry) Len() int {
	return len(r.byID)
}
