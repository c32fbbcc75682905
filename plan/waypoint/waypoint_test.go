// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package waypoint

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/model"
	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/props"
)

func TestNewTask(t *testing.T) {
	tree := props.NewTree()

	task, err := NewTask(plan.StaticConfig{"name": "wp", "lat_deg": "45.5", "lon_deg": "-122.25"}, tree, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, model.Coord{Lat: 45.5, Lon: -122.25}, task.Waypoint())
	assert.InDelta(t, DefaultArrive, task.arrive, 0)

	cases := []struct {
		cfg plan.StaticConfig
		want error
	}{
		{plan.StaticConfig{"lat_deg": "1", "lon_deg": "1"}, plan.ErrMissingField},
		{plan.StaticConfig{"name": "wp", "lon_deg": "1"}, plan.ErrMissingField},
		{plan.StaticConfig{"name": "wp", "lat_deg": "1"}, plan.ErrMissingField},
		{plan.StaticConfig{"name": "wp", "lat_deg": "north", "lon_deg": "1"}, plan.ErrInvalidField},
		{plan.StaticConfig{"name": "wp", "lat_deg": "91", "lon_deg": "1"}, plan.ErrInvalidField},
		{plan.StaticConfig{"name": "wp", "lat_deg": "1", "lon_deg": "1", "arrive_m": "0"}, plan.ErrInvalidField},
	}
	for _, c := range cases {
		_, err := NewTask(c.cfg, tree, nil, zerolog.Nop())
		assert.ErrorIs(t, err, c.want, "%v", c.cfg)
	}
}

func TestDirectToAndArrive(t *testing.T) {
	tree := props.NewTree()
	pos := tree.Node("/position")
	route := tree.Node("/task/route")
	ap := tree.Node("/autopilot")
	ap.SetString("mode", "auto")
	tree.Node("/velocity").SetFloat("groundspeed_ms", 10)

	var buf bytes.Buffer
	task, err := NewTask(plan.StaticConfig{"name": "wp1", "lat_deg": "0", "lon_deg": "0.001"}, tree, events.New(&buf, "f"), zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, task.Update(0.02), "inactive")

	task.Activate()
	assert.Equal(t, Mode, ap.GetString("mode"))
	assert.Equal(t, "wp1", route.GetString("target"))

	pos.SetFloat("latitude_deg", 0)
	pos.SetFloat("longitude_deg", 0)
	assert.True(t, task.Update(0.02))
	assert.InDelta(t, 90.0, route.GetFloat("course_deg"), 1e-6)
	assert.InDelta(t, 111.319, route.GetFloat("dist_m"), 0.01)
	assert.InDelta(t, 11.1319, route.GetFloat("eta_sec"), 0.01)
	assert.False(t, task.IsComplete())

	tree.Node("/velocity").SetFloat("groundspeed_ms", 0)
	pos.SetFloat("longitude_deg", 0.0009)
	assert.False(t, task.Update(0.02))
	assert.InDelta(t, 0.0, route.GetFloat("eta_sec"), 0)
	assert.True(t, task.IsComplete())
	assert.Contains(t, buf.String(), "waypoint wp1 reached")

	pos.SetFloat("longitude_deg", 10)
	task.Update(0.02)
	assert.True(t, task.IsComplete(), "arrival is permanent")

	task.Close()
	assert.Equal(t, "auto", ap.GetString("mode"))
}

func TestRouteThroughPlanner(t *testing.T) {
	tree := props.NewTree()
	pos := tree.Node("/position")
	tree.Node("/autopilot").SetString("mode", "auto")

	p := plan.NewPlanner(tree, zerolog.Nop())
	idle := &stub{Base: mustBase(t, "idle")}
	require.NoError(t, p.AddTask(idle))
	require.NoError(t, p.SetIdleTask("idle"))

	for _, cfg := range []plan.StaticConfig{
		{"name": "wp1", "lat_deg": "0", "lon_deg": "0.01"},
		{"name": "wp2", "lat_deg": "0.01", "lon_deg": "0.01"},
	} {
		task, err := NewTask(cfg, tree, nil, zerolog.Nop())
		require.NoError(t, err)
		require.NoError(t, p.AddTask(task))
		require.NoError(t, p.Enqueue(task.Name()))
	}

	p.Tick(0.02)
	assert.Equal(t, "wp1", p.Current().Name())
	p.Tick(0.02)
	assert.Equal(t, "wp1", p.Current().Name())

	pos.SetFloat("longitude_deg", 0.01)
	p.Tick(0.02)
	assert.Equal(t, "wp2", p.Current().Name(), "next waypoint activated on arrival")
	assert.Equal(t, Mode, tree.Node("/autopilot").GetString("mode"))

	pos.SetFloat("latitude_deg", 0.01)
	p.Tick(0.02)
	assert.Equal(t, "idle", p.Current().Name())
	assert.Equal(t, "auto", tree.Node("/autopilot").GetString("mode"))
	assert.Empty(t, p.Queue())
}

type stub struct {
	plan.Base
}

func (s *stub) Activate() { s.SetActive(true) }
func (s *stub) Update(dt float64) bool { return true }
func (s *stub) IsComplete() bool { return false }
func (s *stub) Close() { s.SetActive(false) }

func mustBase(t *testing.T, name string) plan.Base {
	b, err := plan.NewBase(plan.StaticConfig{"name": name})
	require.NoError(t, err)
	return b
}
