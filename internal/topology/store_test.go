package topology

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

func newStore(t *testing.T, opts ...Option) (*Store, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	return New(append(opts, WithMirror(rec))...), rec
}

func mustComponent(t *testing.T, s *Store, spec ComponentSpec) model.Component {
	t.Helper()
	c, err := s.CreateComponent(spec)
	require.NoError(t, err)
	return c
}

func sides(n int, side geometry.Side) []geometry.Side {
	out := make([]geometry.Side, n)
	for i := range out {
		out[i] = side
	}
	return out
}

func TestNewStoreHoldsGlobalGroup(t *testing.T) {
	s, rec := newStore(t)

	g, err := s.GetGroup(model.GlobalGroup)
	require.NoError(t, err)
	assert.Equal(t, "cgroup0", g.ID)
	assert.Empty(t, rec.Events, "construction is not reported")

	g2, err := s.GetGroup("")
	require.NoError(t, err)
	assert.Equal(t, g.ID, g2.ID, "empty name means the global group")
}

func TestComponentNaming(t *testing.T) {
	s, _ := newStore(t)

	assert.Equal(t, "host_1", mustComponent(t, s, ComponentSpec{Kind: model.KindHost}).Name)
	assert.Equal(t, "switch_2", mustComponent(t, s, ComponentSpec{Kind: model.KindSwitch}).Name)
	assert.Equal(t, "vm_3", mustComponent(t, s, ComponentSpec{Kind: model.KindVM}).Name)

	// Numbers are never handed out twice, even after removal.
	require.NoError(t, s.RemoveComponent("host_1"))
	assert.Equal(t, "host_4", mustComponent(t, s, ComponentSpec{Kind: model.KindHost}).Name)

	// Supplied names are registered but do not mark their number used, so
	// another kind can still take that number.
	mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Name: "host_5"})
	assert.Equal(t, "host_6", mustComponent(t, s, ComponentSpec{Kind: model.KindHost}).Name)
	assert.Equal(t, "switch_5", mustComponent(t, s, ComponentSpec{Kind: model.KindSwitch}).Name)
}

func TestCreateComponentValidation(t *testing.T) {
	s, _ := newStore(t)
	mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)})

	tests := []struct {
		name string
		spec ComponentSpec
		kind error
	}{
		{"unknown kind", ComponentSpec{Kind: "router"}, errs.InvalidArgument},
		{"negative dimension", ComponentSpec{Kind: model.KindHost, Dimension: &geometry.Dimension{Width: -1, Height: 2}}, errs.InvalidArgument},
		{"negative position", ComponentSpec{Kind: model.KindHost, Position: &geometry.Point{X: -1}}, errs.InvalidArgument},
		{"bad orientation", ComponentSpec{Kind: model.KindHost, Orientations: []geometry.Side{geometry.Side(9)}}, errs.InvalidArgument},
		{"names not parallel", ComponentSpec{Kind: model.KindHost, Orientations: sides(2, geometry.Top), InterfaceNames: []string{"a"}}, errs.InvalidArgument},
		{"duplicate component", ComponentSpec{Kind: model.KindVM, Name: "host_1"}, errs.DuplicateIdentity},
		{"duplicate interface", ComponentSpec{Kind: model.KindVM, Orientations: sides(1, geometry.Top), InterfaceNames: []string{"host_1_if0"}}, errs.DuplicateIdentity},
		{"interface repeated", ComponentSpec{Kind: model.KindVM, Orientations: sides(2, geometry.Top), InterfaceNames: []string{"x", "x"}}, errs.DuplicateIdentity},
		{"interface named like component", ComponentSpec{Kind: model.KindVM, Name: "x", Orientations: sides(1, geometry.Top), InterfaceNames: []string{"x"}}, errs.DuplicateIdentity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Stats()
			_, err := s.CreateComponent(tt.spec)
			assert.True(t, errs.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, before, s.Stats(), "failed create must not leave entities behind")
		})
	}

	// Rejected creates did not burn numbers.
	assert.Equal(t, "vm_2", mustComponent(t, s, ComponentSpec{Kind: model.KindVM}).Name)
}

func TestCreateComponentDefaults(t *testing.T) {
	s, _ := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Label: "  web  "})

	assert.Equal(t, "web", c.Label)
	assert.Equal(t, DefaultComponentDimension, c.Dimension)
	assert.Equal(t, geometry.Dimension{Width: 9, Height: 9}, c.Box)
	assert.Equal(t, geometry.Insets{Top: 1, Bottom: 1, Left: 1, Right: 1}, c.Offsets)
	assert.Nil(t, c.Position)

	unlabelled := mustComponent(t, s, ComponentSpec{Kind: model.KindHost})
	assert.Equal(t, unlabelled.Name, unlabelled.Label)

	g, err := s.GetGroup(model.GlobalGroup)
	require.NoError(t, err)
	assert.Equal(t, g.ID, c.Group)
	assert.ElementsMatch(t, []string{c.Name, unlabelled.Name}, g.Members)
}

func TestComponentInterfacesAndGrowth(t *testing.T) {
	s, _ := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindSwitch, Orientations: sides(6, geometry.Top)})

	assert.Equal(t, []string{
		"switch_1_if0", "switch_1_if1", "switch_1_if2",
		"switch_1_if3", "switch_1_if4", "switch_1_if5",
	}, c.Interfaces)
	assert.Equal(t, c.Interfaces, c.RealInterfaces)
	assert.Equal(t, geometry.Dimension{Width: 6, Height: 5}, c.Dimension, "six TOP ports widen a 5-wide box")
	assert.Equal(t, geometry.Dimension{Width: 10, Height: 10}, c.Box)
	assert.Equal(t, geometry.Insets{Top: 2, Bottom: 1, Left: 1, Right: 1}, c.Offsets)

	for range 6 {
		_, err := s.AddInterface(c.Name, InterfaceSpec{Orientation: geometry.Left})
		require.NoError(t, err)
	}
	c, err := s.GetComponent(c.Name)
	require.NoError(t, err)
	assert.Equal(t, geometry.Dimension{Width: 6, Height: 6}, c.Dimension)

	// Removing a port frees its number for the next one.
	require.NoError(t, s.RemoveInterface("switch_1_if1"))
	iface, err := s.AddInterface(c.Name, InterfaceSpec{Orientation: geometry.Bottom, Label: "uplink"})
	require.NoError(t, err)
	assert.Equal(t, "switch_1_if1", iface.Name)
	assert.Equal(t, "uplink", iface.Label)

	err = s.SetComponentDimension(c.Name, 2, 6)
	assert.True(t, errs.Is(err, errs.InvariantViolation))
	require.NoError(t, s.SetComponentDimension(c.Name, 8, 8))

	_, err = s.AddInterface("nope", InterfaceSpec{})
	assert.True(t, errs.Is(err, errs.NotFound))
	_, err = s.AddInterface(c.Name, InterfaceSpec{Name: "switch_1_if0"})
	assert.True(t, errs.Is(err, errs.DuplicateIdentity))
}

func TestInterfaceSetters(t *testing.T) {
	s, rec := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)})
	name := c.Interfaces[0]
	rec.Reset()

	require.NoError(t, s.SetInterfaceOrientation(name, geometry.Right))
	require.NoError(t, s.SetInterfaceLabel(name, "eth0"))
	require.NoError(t, s.SetInterfaceLabel(name, "eth0"))
	assert.Equal(t, 2, rec.Count(OpChanged, EntityInterface), "unchanged label is not reported")

	iface, err := s.GetInterface(name)
	require.NoError(t, err)
	assert.Equal(t, geometry.Right, iface.Orientation)
	assert.Equal(t, "eth0", iface.Label)

	c, err = s.GetComponent(c.Name)
	require.NoError(t, err)
	assert.Equal(t, geometry.Insets{Top: 1, Bottom: 1, Left: 1, Right: 2}, c.Offsets)

	assert.True(t, errs.Is(s.SetInterfaceOrientation(name, geometry.Side(7)), errs.InvalidArgument))
	assert.True(t, errs.Is(s.SetInterfaceLabel("missing", "x"), errs.NotFound))

	list, err := s.ListInterfaces(c.Name)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestComponentSetters(t *testing.T) {
	s, rec := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindVM})
	rec.Reset()

	require.NoError(t, s.SetComponentLabel(c.Name, "db"))
	assert.True(t, errs.Is(s.SetComponentLabel(c.Name, " "), errs.InvalidArgument))
	require.NoError(t, s.SetComponentPosition(c.Name, 4, 7, true))
	assert.True(t, errs.Is(s.SetComponentPosition(c.Name, -1, 0, false), errs.InvalidArgument))

	got, err := s.GetComponent(c.Name)
	require.NoError(t, err)
	assert.Equal(t, "db", got.Label)
	assert.Equal(t, geometry.Point{X: 4, Y: 7}, got.Position.Point())
	assert.True(t, got.Fixed)

	assert.Equal(t, 1, countAttr(rec, AttrLabel))
	assert.Equal(t, 1, countAttr(rec, AttrGridX))
	assert.Equal(t, 1, countAttr(rec, AttrGridY))
}

func countAttr(rec *Recorder, attr Attribute) int {
	n := 0
	for _, e := range rec.Events {
		if e.Op == OpChanged && e.Attribute == attr {
			n++
		}
	}
	return n
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s, _ := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(2, geometry.Top)})
	c.Interfaces[0] = "tampered"

	got, err := s.GetComponent(c.Name)
	require.NoError(t, err)
	assert.Equal(t, "host_1_if0", got.Interfaces[0])
}

func TestRemoveComponentCascades(t *testing.T) {
	s, rec := newStore(t)
	sw := mustComponent(t, s, ComponentSpec{Kind: model.KindSwitch, Orientations: sides(2, geometry.Top)})
	h1 := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Bottom)})
	h2 := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Bottom)})
	_, err := s.Connect(CableSpec{Left: sw.Interfaces[0], Right: h1.Interfaces[0]})
	require.NoError(t, err)
	_, err = s.Connect(CableSpec{Left: sw.Interfaces[1], Right: h2.Interfaces[0]})
	require.NoError(t, err)
	rec.Reset()

	require.NoError(t, s.RemoveComponent(sw.Name))

	assert.Equal(t, 1, rec.Count(OpRemoved, EntityComponent))
	assert.Equal(t, 2, rec.Count(OpRemoved, EntityInterface))
	assert.Equal(t, 2, rec.Count(OpRemoved, EntityCable))
	assert.Empty(t, s.ListCables())
	for _, h := range []model.Component{h1, h2} {
		iface, err := s.GetInterface(h.Interfaces[0])
		require.NoError(t, err)
		assert.False(t, iface.Connected())
	}
	for _, n := range append([]string{sw.Name}, sw.Interfaces...) {
		_, live := s.Lookup(n)
		assert.False(t, live, n)
	}
	assert.True(t, errs.Is(s.RemoveComponent(sw.Name), errs.NotFound))
}

func TestClearResetsEverything(t *testing.T) {
	s, rec := newStore(t)
	mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Group: "lan"})
	_, _, err := s.EnsureVLAN(VLANSpec{Name: "mgmt"})
	require.NoError(t, err)
	rec.Reset()

	s.Clear()

	assert.Empty(t, rec.Events)
	assert.Equal(t, Stats{Groups: 1}, s.Stats())
	assert.Equal(t, "host_1", mustComponent(t, s, ComponentSpec{Kind: model.KindHost}).Name)
	g := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Group: "lan"})
	grp, err := s.GetGroup("lan")
	require.NoError(t, err)
	assert.Equal(t, "cgroup1", grp.ID)
	assert.Equal(t, grp.ID, g.Group)
	v, _, err := s.EnsureVLAN(VLANSpec{Name: "mgmt"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.ID)
}

func TestResyncEmitsEveryEntity(t *testing.T) {
	s := New()
	sw := mustComponent(t, s, ComponentSpec{Kind: model.KindSwitch, Orientations: sides(1, geometry.Top)})
	vm := mustComponent(t, s, ComponentSpec{Kind: model.KindVM, Orientations: sides(1, geometry.Top), Group: "lan"})
	_, err := s.Connect(CableSpec{Left: sw.Interfaces[0], Right: vm.Interfaces[0]})
	require.NoError(t, err)
	require.NoError(t, s.SynthesizeAll())

	rec := &Recorder{}
	s.SetMirror(rec)
	s.Resync()

	st := s.Stats()
	assert.Equal(t, st.Components, rec.Count(OpCreated, EntityComponent))
	assert.Equal(t, st.Interfaces, rec.Count(OpCreated, EntityInterface))
	assert.Equal(t, st.Cables, rec.Count(OpCreated, EntityCable))
	assert.Equal(t, st.Groups, rec.Count(OpCreated, EntityGroup))
	assert.Equal(t, st.GroupSwitches, rec.Count(OpCreated, EntityGroupSwitch))
	assert.Equal(t, st.VirtualInterfaces, rec.Count(OpCreated, EntityVirtualInterface))
	assert.Equal(t, st.GroupInterfaces, rec.Count(OpCreated, EntityGroupInterface))
	assert.Len(t, rec.Events, st.Components+st.Interfaces+st.Cables+st.Groups+st.GroupSwitches+st.VirtualInterfaces+st.GroupInterfaces)
}

// readingMirror looks the entity up again while handling the event,
// which only works if delivery happens after the store lock is released.
type readingMirror struct {
	s     *Store
	found []string
}

func (m *readingMirror) ObjectCreated(ref Ref, _ any) {
	if ref.Kind == EntityComponent {
		if c, err := m.s.GetComponent(ref.Name); err == nil {
			m.found = append(m.found, c.Name)
		}
	}
}
func (m *readingMirror) PropertyChanged(Ref, Attribute, any) {}
func (m *readingMirror) ObjectRemoved(Ref)                   {}

func TestMirrorRunsOutsideLock(t *testing.T) {
	s := New()
	m := &readingMirror{s: s}
	s.SetMirror(m)

	mustComponent(t, s, ComponentSpec{Kind: model.KindHost})
	assert.Equal(t, []string{"host_1"}, m.found)
}

func TestEventStateIsSnapshot(t *testing.T) {
	s, rec := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindHost})
	require.NoError(t, s.SetComponentLabel(c.Name, "renamed"))

	first := rec.Events[0]
	require.Equal(t, OpCreated, first.Op)
	require.Equal(t, Ref{EntityComponent, c.Name}, first.Ref)
	assert.Equal(t, c.Name, first.State.(model.Component).Label, "creation state is not affected by later edits")
}

func TestConcurrentCreates(t *testing.T) {
	s := New()
	const workers, each = 8, 25

	var wg sync.WaitGroup
	names := make(chan string, workers*each)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				c, err := s.CreateComponent(ComponentSpec{
					Kind:         model.KindHost,
					Orientations: sides(1, geometry.Top),
					Group:        fmt.Sprintf("g%d", (w+i)%3),
				})
				if err != nil {
					t.Error(err)
					return
				}
				names <- c.Name
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool)
	for n := range names {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers*each)
	assert.Equal(t, workers*each, s.Stats().Interfaces)
}

// statsMirror reads the store from every callback and keeps the order in
// which components were announced.
type statsMirror struct {
	s       *Store
	mu      sync.Mutex
	created []string
}

func (m *statsMirror) ObjectCreated(ref Ref, _ any) {
	_ = m.s.Stats()
	if ref.Kind == EntityComponent {
		m.mu.Lock()
		m.created = append(m.created, ref.Name)
		m.mu.Unlock()
	}
}
func (m *statsMirror) PropertyChanged(Ref, Attribute, any) { _ = m.s.Stats() }
func (m *statsMirror) ObjectRemoved(Ref)                   { _ = m.s.Stats() }

func TestMirrorReadsUnderConcurrentWriters(t *testing.T) {
	s := New()
	m := &statsMirror{s: s}
	s.SetMirror(m)
	const workers, each = 8, 20

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range each {
					if _, err := s.CreateComponent(ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)}); err != nil {
						t.Error(err)
						return
					}
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("writers stalled while the mirror read the store")
	}

	require.Len(t, m.created, workers*each)
	for i, name := range m.created {
		n, err := strconv.Atoi(strings.TrimPrefix(name, "host_"))
		require.NoError(t, err)
		assert.Equal(t, i+1, n, "components are announced in creation order")
	}
}

// gateMirror blocks the first delivery until gate is closed.
type gateMirror struct {
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (m *gateMirror) ObjectCreated(Ref, any) {
	m.once.Do(func() {
		close(m.entered)
		<-m.gate
	})
}
func (m *gateMirror) PropertyChanged(Ref, Attribute, any) {}
func (m *gateMirror) ObjectRemoved(Ref)                   {}

func TestSlowMirrorDoesNotHoldTheLock(t *testing.T) {
	m := &gateMirror{entered: make(chan struct{}), gate: make(chan struct{})}
	s := New(WithMirror(m))

	first := make(chan error, 1)
	go func() {
		_, err := s.CreateComponent(ComponentSpec{Kind: model.KindHost})
		first <- err
	}()
	<-m.entered

	second := make(chan error, 1)
	go func() {
		_, err := s.CreateComponent(ComponentSpec{Kind: model.KindVM})
		second <- err
	}()

	// Both mutations land while the mirror is still stuck on the first.
	require.Eventually(t, func() bool { return s.Stats().Components == 2 }, 5*time.Second, time.Millisecond)
	select {
	case <-second:
		t.Fatal("the second write was delivered ahead of the first")
	default:
	}

	close(m.gate)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
}

func TestComponentPositionBounds(t *testing.T) {
	s, _ := newStore(t)
	c := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(1, geometry.Top)})

	assert.True(t, errs.Is(s.SetComponentPosition(c.Name, 100000, 100000, false), errs.InvalidArgument))
	got, err := s.GetComponent(c.Name)
	require.NoError(t, err)
	assert.Nil(t, got.Position, "a rejected move leaves the component unplaced")

	maxX := DefaultGrid.Width - c.Box.Width - 1
	require.NoError(t, s.SetComponentPosition(c.Name, maxX, 0, false))
	got, err = s.GetComponent(c.Name)
	require.NoError(t, err)
	require.NotNil(t, got.Position.Bounds)
	assert.Equal(t, geometry.Bounds{MaxX: maxX, MaxY: DefaultGrid.Height - c.Box.Height - 1}, *got.Position.Bounds)
	assert.True(t, errs.Is(s.SetComponentPosition(c.Name, maxX+1, 0, false), errs.InvalidArgument))

	// A growing box is pulled back inside the layer.
	_, err = s.AddInterface(c.Name, InterfaceSpec{Orientation: geometry.Right})
	require.NoError(t, err)
	got, err = s.GetComponent(c.Name)
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid.Width-got.Box.Width-1, got.Position.X)

	_, err = s.CreateComponent(ComponentSpec{Kind: model.KindHost, Position: &geometry.Point{X: DefaultGrid.Width, Y: 0}})
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = s.CreateComponent(ComponentSpec{Kind: model.KindHost, Group: "lan", Position: &geometry.Point{X: DefaultGroupDimension.Width, Y: 0}})
	assert.True(t, errs.Is(err, errs.InvalidArgument), "positions in a group are bounded by the group layer")

	placed := mustComponent(t, s, ComponentSpec{Kind: model.KindHost, Orientations: sides(3, geometry.Left), Group: "lan", Position: &geometry.Point{X: 2, Y: 3}, Fixed: true})
	require.NotNil(t, placed.Position)
	assert.Equal(t, geometry.Point{X: 2, Y: 3}, placed.Position.Point())
	assert.True(t, placed.Fixed)
}
