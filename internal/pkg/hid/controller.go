package hid

import (
	"fmt"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

const (
	left = iota
	middle
	right
)

// Controller sits between motion logic and a Sink.
// Buttons and keys are reference counted, so two holders of the same button (a stick mode and a macro)
// release it only once both let go.
type Controller struct {
	sink    Sink
	buttons [3]int
	keys    map[evdev.EvCode]int
	keyList []evdev.EvCode // press order, released in reverse by ReleaseAll

	ops int
}

func NewController(sink Sink) *Controller {
	return &Controller{
		sink: sink,
		keys: make(map[evdev.EvCode]int),
	}
}

func clampMove(v int) int {
	if v > MaxMove {
		return MaxMove
	}
	if v < -MaxMove {
		return -MaxMove
	}
	return v
}

// Move emits a relative motion, split into as many reports as it takes.
func (c *Controller) Move(dx, dy int) {
	for dx != 0 || dy != 0 {
		x, y := clampMove(dx), clampMove(dy)
		c.sink.Move(int8(x), int8(y))
		c.ops++
		dx -= x
		dy -= y
	}
}

func (c *Controller) Scroll(vertical, horizontal int) {
	if vertical == 0 && horizontal == 0 {
		return
	}
	c.sink.Scroll(int8(clampMove(vertical)), int8(clampMove(horizontal)))
	c.ops++
}

func (c *Controller) Joystick(axes []uint16) {
	c.sink.Joystick(axes)
	c.ops++
}

// Press takes a hold on every button set in b, the mask is reported only when it changes.
func (c *Controller) Press(b profile.Buttons) {
	before := c.mask()
	for i, set := range []bool{b.Left, b.Middle, b.Right} {
		if set {
			c.buttons[i]++
		}
	}
	c.report(before)
}

// Release drops a hold taken by Press. Releasing a button nobody holds does nothing.
func (c *Controller) Release(b profile.Buttons) {
	before := c.mask()
	for i, set := range []bool{b.Left, b.Middle, b.Right} {
		if set && c.buttons[i] > 0 {
			c.buttons[i]--
		}
	}
	c.report(before)
}

func (c *Controller) mask() [3]bool {
	return [3]bool{c.buttons[left] > 0, c.buttons[middle] > 0, c.buttons[right] > 0}
}

func (c *Controller) report(before [3]bool) {
	now := c.mask()
	if now == before {
		return
	}
	c.sink.SetButtons(now[left], now[middle], now[right])
	c.ops++
}

// Buttons returns the currently reported mask.
func (c *Controller) Buttons() profile.Buttons {
	m := c.mask()
	return profile.Buttons{Left: m[left], Middle: m[middle], Right: m[right]}
}

func (c *Controller) KeyDown(key evdev.EvCode) {
	if key == 0 {
		return
	}
	c.keys[key]++
	if c.keys[key] > 1 {
		return
	}
	c.keyList = append(c.keyList, key)
	c.sink.KeyPress(key)
	c.ops++
}

func (c *Controller) KeyUp(key evdev.EvCode) {
	n, ok := c.keys[key]
	if !ok || n == 0 {
		return
	}
	if n > 1 {
		c.keys[key] = n - 1
		return
	}
	delete(c.keys, key)
	for i, k := range c.keyList {
		if k == key {
			c.keyList = append(c.keyList[:i], c.keyList[i+1:]...)
			break
		}
	}
	c.sink.KeyRelease(key)
	c.ops++
}

func (c *Controller) KeyHeld(key evdev.EvCode) bool {
	return c.keys[key] > 0
}

// ReleaseAll lets go of everything regardless of how many holders there are.
func (c *Controller) ReleaseAll() {
	for i := len(c.keyList) - 1; i >= 0; i-- {
		key := c.keyList[i]
		c.sink.KeyRelease(key)
		c.ops++
		log.Info(fmt.Sprintf("released stuck key 0x%x", key), logger.Debug)
	}
	c.keyList = nil
	c.keys = make(map[evdev.EvCode]int)

	if c.mask() != [3]bool{} {
		c.buttons = [3]int{}
		c.sink.SetButtons(false, false, false)
		c.ops++
		log.Info("released mouse buttons", zap.String("buttons", "all"), logger.Debug)
	}
}

// Ops counts reports sent to the sink.
func (c *Controller) Ops() int {
	return c.ops
}
