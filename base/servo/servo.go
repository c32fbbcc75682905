// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package servo

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/i2c"
)

type Id int

const (
	ServoA Id = iota
	ServoB
)

const (
	RegControl uint8 = 0
	RegServoA = 1
	RegServoB = 2

	ctrlEnableA = 1 << 0
	ctrlEnableB = 1 << 1
	ctrlOutput = 1 << 2
)

const DefaultAddr = 0x40

// Dev is the two channel servo board. Positions are 0.0 - 1.0. If a
// timeout is set, the outputs are halted when no position has been written
// for that long.
type Dev struct {
	d    conn.Conn
	name string

	lock sync.Mutex
	val byte

	timer *time.Timer
	gen int
	timeout time.Duration
}

func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	if b == nil {
		return nil, fmt.Errorf("servo: no bus")
	}

	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, name: "Servo"}

	return d, nil
}

func toPos(x float32) byte {
	if x < 0.0 {
		return 0
	} else if x > 1.0 {
		return 255
	}

	return byte(255.0 * x)
}

func (d *Dev) resetTimeout() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.gen++
	if d.timeout != 0 {
		gen := d.gen
		d.timer = time.AfterFunc(d.timeout, func() { d.expire(gen) })
	}
}

// expire halts the outputs, unless the timer it belongs to was replaced
// while it was firing.
func (d *Dev) expire(gen int) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if gen != d.gen {
		return
	}
	d.timer = nil
	d.writeReg(RegControl, []byte{0})
}

func (d *Dev) SetTimeout(to time.Duration) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.timeout = to
	d.resetTimeout()
}

func (d *Dev) Enable(a, b bool) error {
	val := byte(0)
	if a {
		val |= ctrlEnableA
	}
	if b {
		val |= ctrlEnableB
	}
	if a || b {
		val |= ctrlOutput
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	d.val = val
	d.resetTimeout()

	return d.writeReg(RegControl, []byte{val})
}

func (d *Dev) SetPos(a, b float32) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.rearm(); err != nil {
		return err
	}
	d.resetTimeout()

	return d.writeReg(RegServoA, []byte{toPos(a), toPos(b)})
}

func (d *Dev) SetSingle(servo Id, pos float32) error {
	addr := RegServoA
	if servo == ServoB {
		addr = RegServoB
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.rearm(); err != nil {
		return err
	}
	d.resetTimeout()

	return d.writeReg(uint8(addr), []byte{toPos(pos)})
}

// rearm re-enables the outputs after a timeout halted them.
func (d *Dev) rearm() error {
	if d.timer != nil || d.timeout == 0 || d.val == 0 {
		return nil
	}

	return d.writeReg(RegControl, []byte{d.val})
}

func (d *Dev) Ping() bool {
	tmp := []byte{0}
	err := d.readReg(RegControl, tmp)
	if err != nil {
		return false
	}

	return true
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.name, d.d)
}

func (d *Dev) Halt() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	// Don't use Enable() so the saved enable bits survive
	return d.writeReg(RegControl, []byte{0})
}

func (d *Dev) readReg(reg uint8, data []byte) error {
	return d.d.Tx([]byte{reg}, data)
}

func (d *Dev) writeReg(reg uint8, data []byte) error {
	write := make([]byte, 1, len(data) + 1)
	write[0] = reg
	write = append(write, data...)

	return d.d.Tx(write, nil)
}

var _ conn.Resource = &Dev{}
