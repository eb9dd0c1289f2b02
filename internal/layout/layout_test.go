package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
)

func TestJobReportsFixed(t *testing.T) {
	job := NewJob("0.0.0.0", geometry.Dimension{Width: 50, Height: 50})
	pos := geometry.NewPosition(3, 4)

	assert.True(t, job.AddComponent("host_1", geometry.Dimension{Width: 7, Height: 7}, &pos, true))
	assert.False(t, job.AddComponent("host_2", geometry.Dimension{Width: 7, Height: 7}, &pos, false))
	assert.False(t, job.AddComponentGroup("lan", geometry.Dimension{Width: 22, Height: 22}, nil, true), "fixed without a position is not fixed")
	assert.False(t, job.AddGroupSwitch("gswitch0", geometry.Dimension{Width: 5, Height: 6}, nil, false))
	assert.True(t, job.AddCable("ncable_1", "host_1", "host_2", true))

	n, ok := job.Node("host_1")
	require.True(t, ok)
	assert.Equal(t, NodeComponent, n.Kind)
	assert.Equal(t, &geometry.Point{X: 3, Y: 4}, n.Position)
	_, ok = job.Node("missing")
	assert.False(t, ok)
}

func TestGridAvoidsFixedNodes(t *testing.T) {
	job := NewJob("layer", geometry.Dimension{Width: 30, Height: 100})
	pos := geometry.NewPosition(0, 0)
	job.AddComponent("pinned", geometry.Dimension{Width: 10, Height: 10}, &pos, true)
	for _, n := range []string{"a", "b", "c"} {
		job.AddComponent(n, geometry.Dimension{Width: 10, Height: 10}, nil, false)
	}

	res, err := NewGrid(0).Layout(context.Background(), job)
	require.NoError(t, err)
	assert.NotContains(t, res, "pinned")
	assert.Equal(t, geometry.Point{X: 10, Y: 0}, res["a"])
	assert.Equal(t, geometry.Point{X: 20, Y: 0}, res["b"])
	assert.Equal(t, geometry.Point{X: 0, Y: 10}, res["c"])
}

func TestGridWideFixedNodeTerminates(t *testing.T) {
	job := NewJob("layer", geometry.Dimension{Width: 10, Height: 100})
	pos := geometry.NewPosition(0, 0)
	job.AddComponent("wall", geometry.Dimension{Width: 10, Height: 3}, &pos, true)
	job.AddComponent("a", geometry.Dimension{Width: 4, Height: 4}, nil, false)

	res, err := NewGrid(DefaultSpacing).Layout(context.Background(), job)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res["a"].Y, 3+DefaultSpacing)
}

func TestGridHonoursCancellation(t *testing.T) {
	job := NewJob("layer", geometry.Dimension{Width: 10, Height: 10})
	job.AddComponent("a", geometry.Dimension{Width: 1, Height: 1}, nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGrid(1).Layout(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"grid"}, r.Names())

	e, err := r.Get("grid")
	require.NoError(t, err)
	assert.Equal(t, "grid", e.Name())

	_, err = r.Get("force")
	assert.True(t, errs.Is(err, errs.NotFound))
}
