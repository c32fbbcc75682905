// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package base

import (
	"fmt"
	"image/color"

	"github.com/usedbytes/linux-led"
)

var (
	colorIdle = color.NRGBA{0x00, 0xff, 0x00, 0x80}
	colorTask = color.NRGBA{0x00, 0x00, 0xff, 0x80}
	colorFault = color.NRGBA{0xff, 0x00, 0x00, 0x80}
)

// statusLED is red once anything has faulted, a green heartbeat while
// idling and solid blue while a task runs.
func statusLED(ok, idle bool) (color.NRGBA, led.Trigger) {
	switch {
	case !ok:
		return colorFault, led.TriggerNone
	case idle:
		return colorIdle, led.TriggerHeartbeat
	default:
		return colorTask, led.TriggerNone
	}
}

// AddLed attaches a status LED. It's refreshed from the schedule state on
// every Update.
func (p *Platform) AddLed(rgb led.RGBLED) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.led = rgb
	p.ledValid = false
	p.updateLed()
}

// Must be called with the lock held.
func (p *Platform) updateLed() {
	c, trig := statusLED(p.health.GetBool("ok"), p.task.GetBool("idle"))
	if p.ledValid && c == p.ledColor && trig == p.ledTrigger {
		return
	}

	p.ledColor, p.ledTrigger, p.ledValid = c, trig, true
	p.status.SetString("led_color", fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	p.status.SetBool("led_heartbeat", trig == led.TriggerHeartbeat)

	if p.led != nil {
		p.led.SetTrigger(trig)
		p.led.SetColor(c)
	}
}
