// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package base drives the actuators from the setpoints in the store.
package base

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/usedbytes/linux-led"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"github.com/usedbytes/mission/base/servo"
	"github.com/usedbytes/mission/props"
)

const (
	DefaultReconnect = 5 * time.Second
	DefaultTimeout = 10 * time.Second
)

// Platform pushes /controls/engine/throttle to servo channel A and
// /controls/flight/rudder to channel B, and shows the schedule state on an
// optional status LED. With no bus the servos are skipped.
type Platform struct {
	log zerolog.Logger

	bus i2c.Bus
	addr uint16
	timeout time.Duration
	reconTime time.Duration

	engine *props.Node
	flight *props.Node
	status *props.Node
	task *props.Node
	health *props.Node

	lock sync.Mutex
	servos *servo.Dev
	closed bool

	led led.RGBLED
	ledColor color.NRGBA
	ledTrigger led.Trigger
	ledValid bool
}

// OpenBus initialises the host drivers and opens the named I2C bus. An
// empty name picks the first bus available.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus '%s': %w", name, err)
	}

	return b, nil
}

func NewPlatform(bus i2c.Bus, addr uint16, timeout time.Duration, tree *props.Tree, log zerolog.Logger) *Platform {
	p := &Platform{
		log: log.With().Str("component", "platform").Logger(),
		bus: bus,
		addr: addr,
		timeout: timeout,
		reconTime: DefaultReconnect,
		engine: tree.Node("/controls/engine"),
		flight: tree.Node("/controls/flight"),
		status: tree.Node("/platform"),
		task: tree.Node("/task"),
		health: tree.Node("/task/health"),
	}
	p.status.SetBool("servos", false)

	if bus == nil {
		p.log.Info().Msg("no bus, actuator output disabled")
		return p
	}

	if !p.reServos() {
		p.Reconnect(p.reServos)
	}

	return p
}

// reServos probes for the servo board and, if it answers, parks both
// channels and enables the outputs.
func (p *Platform) reServos() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		return true
	}

	servos, err := servo.NewI2C(p.bus, p.addr)
	if err != nil || !servos.Ping() {
		p.log.Warn().Err(err).Uint16("addr", p.addr).Msg("couldn't get servos")
		return false
	}

	servos.SetTimeout(p.timeout)
	if err := servos.SetPos(0.0, 0.5); err != nil {
		return false
	}
	if err := servos.Enable(true, true); err != nil {
		return false
	}

	p.servos = servos
	p.status.SetBool("servos", true)
	p.log.Info().Stringer("dev", servos).Msg("servos connected")

	return true
}

func (p *Platform) Reconnect(recon func() bool) {
	time.AfterFunc(p.reconTime, func() {
		if !recon() {
			p.Reconnect(recon)
		}
	})
}

func (p *Platform) Connected() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.servos != nil
}

// Rudder [-1, 1] maps onto the servo range [0, 1].
func rudderPos(r float64) float32 {
	return float32((r + 1.0) / 2.0)
}

func (p *Platform) Update() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.updateLed()

	if p.servos == nil {
		return nil
	}

	throttle := float32(p.engine.GetFloat("throttle"))
	rudder := rudderPos(p.flight.GetFloat("rudder"))

	err := p.servos.SetPos(throttle, rudder)
	if err != nil {
		p.log.Error().Err(err).Msg("servo write failed, reconnecting")
		p.servos.Halt()
		p.servos = nil
		p.status.SetBool("servos", false)
		p.Reconnect(p.reServos)
	}

	return err
}

// Close halts the outputs and stops any reconnect attempts.
func (p *Platform) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.closed = true
	if p.servos == nil {
		return nil
	}

	err := p.servos.Halt()
	p.servos = nil
	p.status.SetBool("servos", false)

	return err
}
