package hid

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"

	"github.com/gethiox/orbitrat/internal/pkg/axis"
	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// uinput ioctl requests, see linux/uinput.h
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
)

// JoystickAxes are reported in this order by Uinput.Joystick.
var JoystickAxes = []evdev.EvCode{evdev.ABS_X, evdev.ABS_Y, evdev.ABS_RZ, evdev.ABS_THROTTLE}

var joystickID = evdev.InputID{
	BusType: 0x03,
	Vendor:  0x1209,
	Product: 0x0a7f,
	Version: 1,
}

// joystickCapabilities is kept apart from the mouse device, an ABS_X/ABS_Y device next to
// BTN_LEFT would be taken for a touchpad or tablet.
// BTN_TRIGGER is never pressed, it only marks the device as a joystick.
func joystickCapabilities() map[evdev.EvType][]evdev.EvCode {
	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: {evdev.BTN_TRIGGER},
		evdev.EV_ABS: JoystickAxes,
	}
}

// joystickSetup declares the 0..JoystickMax range of every reported axis.
func joystickSetup(name string) evdev.UinputUserDevice {
	dev := evdev.UinputUserDevice{ID: joystickID}
	copy(dev.Name[:len(dev.Name)-1], name)
	for _, code := range JoystickAxes {
		dev.Absmin[code] = 0
		dev.Absmax[code] = axis.JoystickMax
	}
	return dev
}

func ioctl(fd uintptr, req, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// Joystick is a virtual absolute-axis device. go-evdev's CreateDevice leaves every abs range
// at [0,0], so the legacy uinput setup is written here with the ranges filled in.
type Joystick struct {
	f *os.File
}

func NewJoystick(name string) (*Joystick, error) {
	f, err := os.OpenFile("/dev/uinput", syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("opening uinput failed: %w", err)
	}
	fd := f.Fd()

	fail := func(err error) (*Joystick, error) {
		_ = f.Close()
		return nil, fmt.Errorf("creating joystick device failed: %w", err)
	}

	for ev, codes := range joystickCapabilities() {
		err = ioctl(fd, uiSetEvBit, uintptr(ev))
		if err != nil {
			return fail(err)
		}
		req := uintptr(uiSetKeyBit)
		if ev == evdev.EV_ABS {
			req = uiSetAbsBit
		}
		for _, code := range codes {
			err = ioctl(fd, req, uintptr(code))
			if err != nil {
				return fail(err)
			}
		}
	}

	err = binary.Write(f, binary.LittleEndian, joystickSetup(name))
	if err != nil {
		return fail(err)
	}
	err = ioctl(fd, uiDevCreate, 0)
	if err != nil {
		return fail(err)
	}
	return &Joystick{f: f}, nil
}

func (j *Joystick) Report(axes []uint16) error {
	for i, v := range axes {
		if i >= len(JoystickAxes) {
			break
		}
		err := binary.Write(j.f, binary.LittleEndian, &evdev.InputEvent{Type: evdev.EV_ABS, Code: JoystickAxes[i], Value: int32(v)})
		if err != nil {
			return err
		}
	}
	return binary.Write(j.f, binary.LittleEndian, &evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT})
}

func (j *Joystick) Close() error {
	_ = ioctl(j.f.Fd(), uiDevDestroy, 0)
	return j.f.Close()
}
