package hid

import (
	"fmt"
	"sync"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

// errorInterval limits how often write failures end up in the log.
const errorInterval = time.Second

var uinputID = evdev.InputID{
	BusType: 0x03, // BUS_USB
	Vendor:  0x1209,
	Product: 0x0a7e,
	Version: 1,
}

// Uinput is a Sink backed by a virtual input device.
type Uinput struct {
	dev  *evdev.InputDevice
	name string

	// created on the first joystick report
	joystick       *Joystick
	joystickFailed bool

	mu         sync.Mutex
	lastError  time.Time
	suppressed int
}

func capabilities() map[evdev.EvType][]evdev.EvCode {
	var keys []evdev.EvCode
	for code := evdev.EvCode(evdev.KEY_ESC); code <= evdev.KEY_MICMUTE; code++ {
		keys = append(keys, code)
	}
	keys = append(keys, evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE)

	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keys,
		evdev.EV_REL: {evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL, evdev.REL_HWHEEL},
	}
}

func NewUinput(name string) (*Uinput, error) {
	dev, err := evdev.CreateDevice(name, uinputID, capabilities())
	if err != nil {
		return nil, fmt.Errorf("creating uinput device failed: %w", err)
	}
	log.Info("virtual device created", zap.String("name", name), logger.Debug)
	return &Uinput{dev: dev, name: name}, nil
}

func (u *Uinput) Close() error {
	if u.joystick != nil {
		_ = u.joystick.Close()
	}
	return u.dev.Close()
}

func (u *Uinput) write(events ...*evdev.InputEvent) {
	events = append(events, &evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT})
	for _, ev := range events {
		err := u.dev.WriteOne(ev)
		if err != nil {
			u.failed(err)
			return
		}
	}
}

func (u *Uinput) failed(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := time.Now()
	if now.Sub(u.lastError) < errorInterval {
		u.suppressed++
		return
	}
	log.Info(fmt.Sprintf("uinput write failed: %v", err),
		zap.String("device", u.name), zap.Int("suppressed", u.suppressed), logger.Error,
	)
	u.lastError = now
	u.suppressed = 0
}

func rel(code evdev.EvCode, v int8) *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_REL, Code: code, Value: int32(v)}
}

func key(code evdev.EvCode, pressed bool) *evdev.InputEvent {
	var v int32
	if pressed {
		v = 1
	}
	return &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: v}
}

func (u *Uinput) Move(dx, dy int8) {
	u.write(rel(evdev.REL_X, dx), rel(evdev.REL_Y, dy))
}

func (u *Uinput) SetButtons(left, middle, right bool) {
	u.write(key(evdev.BTN_LEFT, left), key(evdev.BTN_MIDDLE, middle), key(evdev.BTN_RIGHT, right))
}

// Scroll reports positive vertical values as wheel-up, matching REL_WHEEL.
func (u *Uinput) Scroll(vertical, horizontal int8) {
	var events []*evdev.InputEvent
	if vertical != 0 {
		events = append(events, rel(evdev.REL_WHEEL, vertical))
	}
	if horizontal != 0 {
		events = append(events, rel(evdev.REL_HWHEEL, horizontal))
	}
	u.write(events...)
}

func (u *Uinput) KeyPress(code evdev.EvCode) {
	u.write(key(code, true))
}

func (u *Uinput) KeyRelease(code evdev.EvCode) {
	u.write(key(code, false))
}

func (u *Uinput) Joystick(axes []uint16) {
	if u.joystick == nil {
		if u.joystickFailed {
			return
		}
		j, err := NewJoystick(u.name + " joystick")
		if err != nil {
			u.joystickFailed = true
			log.Info(fmt.Sprintf("joystick reports disabled: %v", err), zap.String("device", u.name), logger.Error)
			return
		}
		log.Info("virtual joystick created", zap.String("name", u.name+" joystick"), logger.Debug)
		u.joystick = j
	}

	err := u.joystick.Report(axes)
	if err != nil {
		u.failed(err)
	}
}
