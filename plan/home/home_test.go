// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package home

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/model"
	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/props"
)

func newHome(t require.TestingT, tree *props.Tree, ev *events.Log) *Task {
	task, err := NewTask(plan.StaticConfig{"name": "home_mgr", "nickname": "home"}, tree, ev, zerolog.Nop())
	require.NoError(t, err)
	task.Activate()
	return task
}

func setGPS(tree *props.Tree, age float64, settle bool, lat, lon, alt float64) {
	gps := tree.Node("/sensors/gps")
	gps.SetFloat("gps_age", age)
	gps.SetBool("settle", settle)
	gps.SetFloat("latitude_deg", lat)
	gps.SetFloat("longitude_deg", lon)
	gps.SetFloat("altitude_m", alt)
	gps.SetInt("satellites", 9)
}

func TestNewTask(t *testing.T) {
	tree := props.NewTree()
	task, err := NewTask(plan.StaticConfig{"name": "home_mgr"}, tree, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "home_mgr", task.Name())
	assert.False(t, task.Active())
	assert.True(t, tree.Node("/task/home").Has("valid"))
	assert.False(t, tree.Node("/task/home").GetBool("valid"))

	_, err = NewTask(plan.StaticConfig{}, tree, nil, zerolog.Nop())
	require.ErrorIs(t, err, plan.ErrMissingField)
}

func TestInactiveDoesNothing(t *testing.T) {
	tree := props.NewTree()
	task, err := NewTask(plan.StaticConfig{"name": "home_mgr"}, tree, nil, zerolog.Nop())
	require.NoError(t, err)
	setGPS(tree, 0.1, true, 45, -93, 250)

	assert.False(t, task.Update(0.02))
	assert.False(t, tree.Node("/task/home").GetBool("valid"))
}

func TestWaitsForSettledFreshFix(t *testing.T) {
	tree := props.NewTree()
	task := newHome(t, tree, nil)
	home := tree.Node("/task/home")

	samples := []struct {
		age float64
		settle bool
	}{
		{5.0, false},
		{0.2, false},
		{1.0, true},
		{3.0, true},
	}

	for _, s := range samples {
		setGPS(tree, s.age, s.settle, 45, -93, 250)
		assert.True(t, task.Update(0.02))

		assert.False(t, home.GetBool("valid"))
		for _, f := range []string{"latitude_deg", "longitude_deg", "altitude_m", "azimuth_deg", "course_deg", "dist_m"} {
			assert.False(t, home.Has(f), "%s written before settle", f)
		}
		assert.False(t, tree.Node("/task/startup").Has("valid"))
	}
}

func TestSetsHomeOnceSettled(t *testing.T) {
	tree := props.NewTree()
	var buf bytes.Buffer
	task := newHome(t, tree, events.New(&buf, "f"))
	home := tree.Node("/task/home")
	startup := tree.Node("/task/startup")

	setGPS(tree, 0.5, true, 44.9778, -93.2650, 256)
	task.Update(0.02)

	assert.True(t, home.GetBool("valid"))
	assert.True(t, startup.GetBool("valid"))
	want := model.Fix{Coord: model.Coord{Lat: 44.9778, Lon: -93.2650}, Alt: 256}
	assert.Equal(t, want, model.FixAt(home))
	assert.Equal(t, want, model.FixAt(startup))
	assert.InDelta(t, 0.0, home.GetFloat("azimuth_deg"), 0)
	assert.Contains(t, buf.String(), "home position set")

	// Later fixes, good or bad, don't move home.
	setGPS(tree, 9.0, false, 10, 10, 10)
	task.Update(0.02)
	setGPS(tree, 0.1, true, 20, 20, 20)
	task.Update(0.02)

	assert.True(t, home.GetBool("valid"))
	assert.Equal(t, want, model.FixAt(home))
	assert.Equal(t, want, model.FixAt(startup))
}

func TestCourseAndDistanceToHome(t *testing.T) {
	tree := props.NewTree()
	task := newHome(t, tree, nil)
	home := tree.Node("/task/home")
	pos := tree.Node("/position")

	setGPS(tree, 0.1, true, 0, 0, 100)
	task.Update(0.02)
	require.True(t, home.GetBool("valid"))

	pos.SetFloat("latitude_deg", 0)
	pos.SetFloat("longitude_deg", 1)
	task.Update(0.02)

	assert.InDelta(t, 270.0, home.GetFloat("course_deg"), 1e-6)
	assert.InDelta(t, model.EquatorialRadius * math.Pi / 180, home.GetFloat("dist_m"), 0.05)
	assert.InDelta(t, 0.0, home.GetFloat("latitude_deg"), 0)
	assert.InDelta(t, 100.0, home.GetFloat("altitude_m"), 0)
}

func TestAtHomeIsStable(t *testing.T) {
	tree := props.NewTree()
	task := newHome(t, tree, nil)
	home := tree.Node("/task/home")
	pos := tree.Node("/position")

	setGPS(tree, 0.1, true, 51.4700, -0.4543, 25)
	task.Update(0.02)

	pos.SetFloat("latitude_deg", 51.4700)
	pos.SetFloat("longitude_deg", -0.4543)
	for i := 0; i < 10; i++ {
		task.Update(0.02)

		course := home.GetFloat("course_deg")
		assert.False(t, math.IsNaN(course))
		assert.InDelta(t, 0.0, course, 0)
		assert.InDelta(t, 0.0, home.GetFloat("dist_m"), 1e-9)
	}
}

func TestLifecycle(t *testing.T) {
	tree := props.NewTree()
	task := newHome(t, tree, nil)

	assert.True(t, task.Active())
	assert.False(t, task.IsComplete())

	task.Close()
	assert.False(t, task.Active())
	assert.False(t, task.IsComplete())
}

func TestPropertyHomeIsOneShot(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tree := props.NewTree()
		task := newHome(rt, tree, nil)
		home := tree.Node("/task/home")

		ticks := rapid.IntRange(1, 50).Draw(rt, "ticks")
		setAt := -1
		var want model.Fix
		for i := 0; i < ticks; i++ {
			age := rapid.Float64Range(0, 3).Draw(rt, fmt.Sprintf("age_%d", i))
			settle := rapid.Bool().Draw(rt, fmt.Sprintf("settle_%d", i))
			lat := rapid.Float64Range(-60, 60).Draw(rt, fmt.Sprintf("lat_%d", i))
			lon := rapid.Float64Range(-180, 180).Draw(rt, fmt.Sprintf("lon_%d", i))
			setGPS(tree, age, settle, lat, lon, 100)

			task.Update(0.02)

			if setAt < 0 && age < MaxGPSAge && settle {
				setAt = i
				want = model.Fix{Coord: model.Coord{Lat: lat, Lon: lon}, Alt: 100}
			}

			valid := home.GetBool("valid")
			if valid != (setAt >= 0) {
				rt.Fatalf("tick %d: valid=%v, home set at %d", i, valid, setAt)
			}
			if valid && model.FixAt(home) != want {
				rt.Fatalf("tick %d: home moved to %v, want %v", i, model.FixAt(home), want)
			}
		}
	})
}
