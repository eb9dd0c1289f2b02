package topology

// EntityKind names the type of entity a mirror event refers to.
type EntityKind string

const (
	EntityComponent        EntityKind = "component"
	EntityInterface        EntityKind = "interface"
	EntityCable            EntityKind = "cable"
	EntityGroup            EntityKind = "group"
	EntityGroupInterface   EntityKind = "group_interface"
	EntityVirtualInterface EntityKind = "virtual_interface"
	EntityGroupSwitch      EntityKind = "group_switch"
	EntityVLAN             EntityKind = "vlan"
	EntityNetwork          EntityKind = "network"
)

// Ref identifies an entity by kind and local name.
type Ref struct {
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// Attribute tags the property a PropertyChanged event is about.
type Attribute string

const (
	AttrName         Attribute = "name"
	AttrLabel        Attribute = "label"
	AttrConnectivity Attribute = "connectivity"
	AttrInterfaces   Attribute = "interfaces"
	AttrMembers      Attribute = "members"
	AttrAddresses    Attribute = "addresses"
	AttrVLANs        Attribute = "vlans"
	AttrGridX        Attribute = "grid_x"
	AttrGridY        Attribute = "grid_y"
	AttrDimX         Attribute = "dim_x"
	AttrDimY         Attribute = "dim_y"
	AttrOrientation  Attribute = "orientation"
	AttrGroup        Attribute = "group"
	AttrColor        Attribute = "color"
	AttrVLANName     Attribute = "vlan_name"
	AttrPath         Attribute = "path"
)

// Mirror receives every successful change to the store. state is a copy
// of the entity after the change (a model value, vlan.VLAN or
// model.Network) and may be retained.
//
// Calls are made after the store lock is released, one operation at a
// time and in the order the changes happened. Readers and the next
// writer are not held up while a Mirror runs. A Mirror may read from the
// Store but must not mutate it synchronously.
type Mirror interface {
	ObjectCreated(ref Ref, state any)
	PropertyChanged(ref Ref, attr Attribute, state any)
	ObjectRemoved(ref Ref)
}

// Op is the type of a recorded change.
type Op string

const (
	OpCreated Op = "created"
	OpChanged Op = "changed"
	OpRemoved Op = "removed"
)

// Event is one recorded change.
type Event struct {
	Op        Op
	Ref       Ref
	Attribute Attribute
	State     any
}

// Deliver hands e to m.
func (e Event) Deliver(m Mirror) {
	switch e.Op {
	case OpCreated:
		m.ObjectCreated(e.Ref, e.State)
	case OpChanged:
		m.PropertyChanged(e.Ref, e.Attribute, e.State)
	case OpRemoved:
		m.ObjectRemoved(e.Ref)
	}
}

// Recorder is a Mirror that keeps every event in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) ObjectCreated(ref Ref, state any) {
	r.Events = append(r.Events, Event{Op: OpCreated, Ref: ref, State: state})
}

func (r *Recorder) PropertyChanged(ref Ref, attr Attribute, state any) {
	r.Events = append(r.Events, Event{Op: OpChanged, Ref: ref, Attribute: attr, State: state})
}

func (r *Recorder) ObjectRemoved(ref Ref) {
	r.Events = append(r.Events, Event{Op: OpRemoved, Ref: ref})
}

// Count returns how many recorded events match op and kind.
func (r *Recorder) Count(op Op, kind EntityKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Op == op && e.Ref.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}
