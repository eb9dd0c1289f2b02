package topology

import (
	"slices"
	"sync"

	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/ipam"
	"github.com/martinsuchenak/netcanvas/internal/model"
	"github.com/martinsuchenak/netcanvas/internal/vlan"
)

const (
	DefaultMargin = 1
)

var (
	DefaultComponentDimension = geometry.Dimension{Width: 5, Height: 5}
	DefaultGroupDimension     = geometry.Dimension{Width: 20, Height: 20}
	DefaultGrid               = geometry.Dimension{Width: 200, Height: 200}
)

// Option configures a Store.
type Option func(*Store)

// WithMirror attaches m to receive change notifications.
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithMargin sets the box margin used when deriving bounding boxes.
func WithMargin(margin int) Option {
	return func(s *Store) {
		if margin >= 0 {
			s.margin = margin
		}
	}
}

// WithGrid sets the size of the global layer.
func WithGrid(d geometry.Dimension) Option {
	return func(s *Store) { s.grid = d }
}

// WithComponentDimension sets the default logical size of new components.
func WithComponentDimension(d geometry.Dimension) Option {
	return func(s *Store) { s.componentDim = d }
}

// WithGroupDimension sets the default logical size of new groups.
func WithGroupDimension(d geometry.Dimension) Option {
	return func(s *Store) { s.groupDim = d }
}

// WithPalette sets the colours handed to VLANs created without one.
func WithPalette(colors ...string) Option {
	return func(s *Store) { s.colors = colors }
}

// Store holds the topology. The zero value is not usable; call New.
type Store struct {
	mu      sync.RWMutex
	pending []Event
	// ticket is handed out under mu; deliveries run in ticket order
	// without mu held.
	ticket uint64

	deliverMu sync.Mutex
	turn      *sync.Cond
	served    uint64
	mirror    Mirror

	margin       int
	grid         geometry.Dimension
	componentDim geometry.Dimension
	groupDim     geometry.Dimension
	colors       []string

	ids               *identity
	components        map[string]*model.Component
	interfaces        map[string]*model.Interface
	cables            map[string]*model.Cable
	groups            map[string]*model.Group // by id
	groupNames        map[string]string       // name -> id
	global            string                  // id of the global group
	groupInterfaces   map[string]*model.GroupInterface
	virtualInterfaces map[string]*model.VirtualInterface
	groupSwitches     map[string]*model.GroupSwitch
	vlans             *vlan.Registry
	palette           *vlan.Palette
	networks          map[string]*ipam.Network // by CIDR
}

// New returns an empty store holding only the global group.
func New(opts ...Option) *Store {
	s := &Store{
		margin:       DefaultMargin,
		grid:         DefaultGrid,
		componentDim: DefaultComponentDimension,
		groupDim:     DefaultGroupDimension,
	}
	s.turn = sync.NewCond(&s.deliverMu)
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.ids = newIdentity()
	s.components = make(map[string]*model.Component)
	s.interfaces = make(map[string]*model.Interface)
	s.cables = make(map[string]*model.Cable)
	s.groups = make(map[string]*model.Group)
	s.groupNames = make(map[string]string)
	s.groupInterfaces = make(map[string]*model.GroupInterface)
	s.virtualInterfaces = make(map[string]*model.VirtualInterface)
	s.groupSwitches = make(map[string]*model.GroupSwitch)
	s.vlans = vlan.NewRegistry()
	s.palette = vlan.NewPalette(s.colors...)
	s.networks = make(map[string]*ipam.Network)
	s.global = s.ensureGroup(model.GlobalGroup).ID
	s.pending = nil
}

// SetMirror replaces the mirror. Pass nil to detach.
func (s *Store) SetMirror(m Mirror) {
	s.deliverMu.Lock()
	s.mirror = m
	s.deliverMu.Unlock()
}

// Grid returns the size of the global layer.
func (s *Store) Grid() geometry.Dimension {
	return s.grid
}

// Margin returns the box margin.
func (s *Store) Margin() int {
	return s.margin
}

// update runs fn under the write lock and delivers whatever events it
// recorded, including those of a cascade that failed part way. Delivery
// happens after the lock is released, in the order the writes took it.
func (s *Store) update(fn func() error) error {
	s.mu.Lock()
	err := fn()
	events := s.pending
	s.pending = nil
	ticket := s.ticket
	s.ticket++
	s.mu.Unlock()

	s.deliver(ticket, events)
	return err
}

// deliver waits for ticket's turn and hands events to the mirror.
func (s *Store) deliver(ticket uint64, events []Event) {
	s.deliverMu.Lock()
	for s.served != ticket {
		s.turn.Wait()
	}
	m := s.mirror
	s.deliverMu.Unlock()

	defer func() {
		s.deliverMu.Lock()
		s.served++
		s.turn.Broadcast()
		s.deliverMu.Unlock()
	}()
	if m == nil {
		return
	}
	for _, e := range events {
		e.Deliver(m)
	}
}

func (s *Store) view(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// Clear drops every entity and resets all counters. No events are
// emitted.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Resync emits ObjectCreated for every live entity, dependency first.
// Used to repopulate a mirror that was attached after the store was
// filled.
func (s *Store) Resync() {
	_ = s.update(func() error {
		for _, n := range sortedKeys(s.networks) {
			s.created(EntityNetwork, n)
		}
		for _, v := range s.vlans.All() {
			s.created(EntityVLAN, vlanName(v.ID))
		}
		for _, id := range sortedKeys(s.groups) {
			s.created(EntityGroup, id)
		}
		for _, n := range sortedKeys(s.components) {
			s.created(EntityComponent, n)
		}
		for _, n := range sortedKeys(s.interfaces) {
			s.created(EntityInterface, n)
		}
		for _, n := range sortedKeys(s.virtualInterfaces) {
			s.created(EntityVirtualInterface, n)
		}
		for _, n := range sortedKeys(s.groupSwitches) {
			s.created(EntityGroupSwitch, n)
		}
		for _, n := range sortedKeys(s.groupInterfaces) {
			s.created(EntityGroupInterface, n)
		}
		for _, n := range sortedKeys(s.cables) {
			s.created(EntityCable, n)
		}
		return nil
	})
}

// Lookup reports which kind of entity holds the local name.
func (s *Store) Lookup(name string) (EntityKind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.kindOf(name)
}

// state returns a copy of the entity for a mirror event.
func (s *Store) state(kind EntityKind, name string) any {
	switch kind {
	case EntityComponent:
		if c, ok := s.components[name]; ok {
			return c.Clone()
		}
	case EntityInterface:
		if i, ok := s.interfaces[name]; ok {
			return i.Clone()
		}
	case EntityCable:
		if c, ok := s.cables[name]; ok {
			return c.Clone()
		}
	case EntityGroup:
		if g, ok := s.groups[name]; ok {
			return g.Clone()
		}
	case EntityGroupInterface:
		if gi, ok := s.groupInterfaces[name]; ok {
			return *gi
		}
	case EntityVirtualInterface:
		if v, ok := s.virtualInterfaces[name]; ok {
			return *v
		}
	case EntityGroupSwitch:
		if gs, ok := s.groupSwitches[name]; ok {
			return gs.Clone()
		}
	case EntityNetwork:
		if n, ok := s.networks[name]; ok {
			return networkInfo(n)
		}
	case EntityVLAN:
		for _, v := range s.vlans.All() {
			if vlanName(v.ID) == name {
				return *v
			}
		}
	}
	return nil
}

func (s *Store) created(kind EntityKind, name string) {
	s.pending = append(s.pending, Event{Op: OpCreated, Ref: Ref{kind, name}, State: s.state(kind, name)})
}

func (s *Store) changed(kind EntityKind, name string, attr Attribute) {
	s.pending = append(s.pending, Event{Op: OpChanged, Ref: Ref{kind, name}, Attribute: attr, State: s.state(kind, name)})
}

func (s *Store) removed(kind EntityKind, name string) {
	s.pending = append(s.pending, Event{Op: OpRemoved, Ref: Ref{kind, name}})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func appendUnique(list []string, name string) []string {
	if slices.Contains(list, name) {
		return list
	}
	return append(list, name)
}

func without(list []string, name string) []string {
	return slices.DeleteFunc(list, func(s string) bool { return s == name })
}
