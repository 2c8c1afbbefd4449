// Package hid is the output side of orbitrat: relative mouse motion, wheel, buttons, keys and an optional joystick report.
package hid

import (
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/holoplot/go-evdev"
)

var log = logger.GetLogger()

// MaxMove is the largest relative motion a single report can carry.
const MaxMove = 127

// Sink consumes HID reports. Implementations never fail from the caller's point of view,
// transmission errors are their own business.
type Sink interface {
	Move(dx, dy int8)
	SetButtons(left, middle, right bool)
	Scroll(vertical, horizontal int8)
	KeyPress(key evdev.EvCode)
	KeyRelease(key evdev.EvCode)
	Joystick(axes []uint16) // 0..axis.JoystickMax per axis
}
