package hid

import (
	"testing"

	"github.com/gethiox/orbitrat/internal/pkg/axis"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

func TestMouseHasNoAbsoluteAxes(t *testing.T) {
	caps := capabilities()

	_, ok := caps[evdev.EV_ABS]
	assert.False(t, ok)
	assert.Equal(t, []evdev.EvCode{evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL, evdev.REL_HWHEEL}, caps[evdev.EV_REL])
	assert.Contains(t, caps[evdev.EV_KEY], evdev.EvCode(evdev.BTN_LEFT))
	assert.Contains(t, caps[evdev.EV_KEY], evdev.EvCode(evdev.KEY_LEFTSHIFT))
}

func TestJoystickCapabilities(t *testing.T) {
	caps := joystickCapabilities()

	assert.Equal(t, JoystickAxes, caps[evdev.EV_ABS])
	assert.Equal(t, []evdev.EvCode{evdev.BTN_TRIGGER}, caps[evdev.EV_KEY])
	_, ok := caps[evdev.EV_REL]
	assert.False(t, ok)
}

func TestJoystickSetup(t *testing.T) {
	dev := joystickSetup("orbitrat joystick")

	assert.Equal(t, "orbitrat joystick", string(dev.Name[:len("orbitrat joystick")]))
	assert.Equal(t, byte(0), dev.Name[len("orbitrat joystick")])
	assert.Equal(t, joystickID, dev.ID)

	declared := make(map[int]bool)
	for _, code := range JoystickAxes {
		declared[int(code)] = true
		assert.Equal(t, int32(0), dev.Absmin[code])
		assert.Equal(t, int32(axis.JoystickMax), dev.Absmax[code])
	}
	for code := range dev.Absmax {
		if declared[code] {
			continue
		}
		assert.Equal(t, int32(0), dev.Absmax[code], "abs 0x%x", code)
	}
}

func TestJoystickSetupLongName(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	dev := joystickSetup(string(long))
	assert.Equal(t, byte(0), dev.Name[len(dev.Name)-1])
}
