package topology

import (
	"fmt"

	"github.com/juju/collections/set"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// identity owns name generation and the global name registry.
type identity struct {
	// used holds component numbers ever handed out; it is shared across
	// kinds, so host_1 and switch_1 never coexist from generation alone.
	used     set.Ints
	names    map[string]EntityKind
	lastVLAN int
	groupSeq int
	vifSeq   int
	gifSeq   int
	gswSeq   int
}

func newIdentity() *identity {
	return &identity{
		used:  set.NewInts(),
		names: make(map[string]EntityKind),
	}
}

func componentName(kind model.Kind, n int) string {
	return fmt.Sprintf("%s_%d", kind, n)
}

func interfaceName(component string, n int) string {
	return fmt.Sprintf("%s_if%d", component, n)
}

func cableName(n int) string {
	return fmt.Sprintf("ncable_%d", n)
}

func vlanName(id int) string {
	return fmt.Sprintf("vlan_%d", id)
}

func (id *identity) live(name string) bool {
	_, ok := id.names[name]
	return ok
}

func (id *identity) kindOf(name string) (EntityKind, bool) {
	k, ok := id.names[name]
	return k, ok
}

func (id *identity) register(name string, kind EntityKind) error {
	if name == "" {
		return errs.Invalidf("empty %s name", kind)
	}
	if existing, ok := id.names[name]; ok {
		return errs.Duplicatef("name %q (held by %s)", name, existing)
	}
	id.names[name] = kind
	return nil
}

func (id *identity) unregister(name string) {
	delete(id.names, name)
}

// nextComponentName returns the lowest unused number n for which
// <kind>_<n> is not live, and marks n used.
func (id *identity) nextComponentName(kind model.Kind) string {
	for n := 1; ; n++ {
		if id.used.Contains(n) {
			continue
		}
		name := componentName(kind, n)
		if id.live(name) {
			continue
		}
		id.used.Add(n)
		return name
	}
}

func (id *identity) nextInterfaceName(component string) string {
	for n := 0; ; n++ {
		if name := interfaceName(component, n); !id.live(name) {
			return name
		}
	}
}

func (id *identity) nextCableName() string {
	for n := 1; ; n++ {
		if name := cableName(n); !id.live(name) {
			return name
		}
	}
}

func (id *identity) nextVLANID() int {
	id.lastVLAN++
	return id.lastVLAN
}

// observeVLANID keeps generated ids above every externally supplied one.
func (id *identity) observeVLANID(v int) {
	if v >= id.lastVLAN {
		id.lastVLAN = v
	}
}

func (id *identity) nextSeq(seq *int, prefix string) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, *seq)
		*seq++
		if !id.live(name) {
			return name
		}
	}
}

func (id *identity) nextGroupID() string { return id.nextSeq(&id.groupSeq, "cgroup") }
func (id *identity) nextVIF() string     { return id.nextSeq(&id.vifSeq, "vif") }
func (id *identity) nextGIF() string     { return id.nextSeq(&id.gifSeq, "gif") }
func (id *identity) nextGSW() string     { return id.nextSeq(&id.gswSeq, "gswitch") }
