// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package base

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usedbytes/linux-led"
	"periph.io/x/periph/conn/i2c/i2ctest"

	"github.com/usedbytes/mission/base/servo"
	"github.com/usedbytes/mission/props"
)

// connectOps is the probe and setup sequence reServos performs.
func connectOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: servo.DefaultAddr, W: []byte{servo.RegControl}, R: []byte{0}},
		{Addr: servo.DefaultAddr, W: []byte{servo.RegServoA, 0, 127}},
		{Addr: servo.DefaultAddr, W: []byte{servo.RegControl, 0x7}},
	}
}

func TestNoBus(t *testing.T) {
	tree := props.NewTree()
	p := NewPlatform(nil, servo.DefaultAddr, 0, tree, zerolog.Nop())

	tree.Node("/controls/engine").SetFloat("throttle", 1)
	assert.NoError(t, p.Update())
	assert.False(t, p.Connected())
	assert.False(t, tree.Node("/platform").GetBool("servos"))
	assert.NoError(t, p.Close())
}

func TestRudderPos(t *testing.T) {
	assert.InDelta(t, 0.0, rudderPos(-1), 0)
	assert.InDelta(t, 0.5, rudderPos(0), 0)
	assert.InDelta(t, 1.0, rudderPos(1), 0)
}

func TestUpdateWritesSetpoints(t *testing.T) {
	ops := append(connectOps(),
		i2ctest.IO{Addr: servo.DefaultAddr, W: []byte{servo.RegServoA, 127, 0}},
		i2ctest.IO{Addr: servo.DefaultAddr, W: []byte{servo.RegServoA, 255, 255}},
		i2ctest.IO{Addr: servo.DefaultAddr, W: []byte{servo.RegControl, 0}},
	)
	bus := &i2ctest.Playback{Ops: ops}

	tree := props.NewTree()
	p := NewPlatform(bus, servo.DefaultAddr, 0, tree, zerolog.Nop())
	require.True(t, p.Connected())
	assert.True(t, tree.Node("/platform").GetBool("servos"))

	engine := tree.Node("/controls/engine")
	flight := tree.Node("/controls/flight")

	engine.SetFloat("throttle", 0.5)
	flight.SetFloat("rudder", -1)
	require.NoError(t, p.Update())

	engine.SetFloat("throttle", 3)
	flight.SetFloat("rudder", 1)
	require.NoError(t, p.Update())

	require.NoError(t, p.Close())
	assert.False(t, p.Connected())
	assert.NoError(t, bus.Close())
}

func TestWriteFailureDropsServos(t *testing.T) {
	bus := &i2ctest.Playback{Ops: connectOps(), DontPanic: true}

	tree := props.NewTree()
	p := NewPlatform(bus, servo.DefaultAddr, 0, tree, zerolog.Nop())
	require.True(t, p.Connected())

	assert.Error(t, p.Update())
	assert.False(t, p.Connected())
	assert.False(t, tree.Node("/platform").GetBool("servos"))

	assert.NoError(t, p.Update(), "no device, nothing to write")
	require.NoError(t, p.Close())
}

func TestMissingBoard(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}

	tree := props.NewTree()
	p := NewPlatform(bus, servo.DefaultAddr, 0, tree, zerolog.Nop())
	defer p.Close()

	assert.False(t, p.Connected())
	assert.NoError(t, p.Update())
}

func TestStatusLED(t *testing.T) {
	c, trig := statusLED(true, true)
	assert.Equal(t, colorIdle, c)
	assert.Equal(t, led.Trigger(led.TriggerHeartbeat), trig)

	c, trig = statusLED(true, false)
	assert.Equal(t, colorTask, c)
	assert.Equal(t, led.Trigger(led.TriggerNone), trig)

	c, trig = statusLED(false, true)
	assert.Equal(t, colorFault, c, "faults win over idle")
	assert.Equal(t, led.Trigger(led.TriggerNone), trig)
}

func TestLedFollowsSchedule(t *testing.T) {
	tree := props.NewTree()
	task := tree.Node("/task")
	health := tree.Node("/task/health")
	status := tree.Node("/platform")
	health.SetBool("ok", true)
	task.SetBool("idle", true)

	p := NewPlatform(nil, servo.DefaultAddr, 0, tree, zerolog.Nop())
	require.NoError(t, p.Update())
	assert.Equal(t, "#00ff00", status.GetString("led_color"))
	assert.True(t, status.GetBool("led_heartbeat"))

	task.SetBool("idle", false)
	require.NoError(t, p.Update())
	assert.Equal(t, "#0000ff", status.GetString("led_color"))
	assert.False(t, status.GetBool("led_heartbeat"))

	health.SetBool("ok", false)
	require.NoError(t, p.Update())
	assert.Equal(t, "#ff0000", status.GetString("led_color"))
}
