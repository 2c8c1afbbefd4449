package input

import (
	"errors"
	"testing"

	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

const procDevices = `I: Bus=0019 Vendor=0000 Product=0001 Version=0000
N: Name="Power Button"
P: Phys=LNXPWRBN/button/input0
S: Sysfs=/devices/LNXSYSTM:00/LNXPWRBN:00/input/input0
U: Uniq=
H: Handlers=kbd event0
B: PROP=0
B: EV=3
B: KEY=10000000000000 0

I: Bus=0003 Vendor=2341 Product=8036 Version=0111
N: Name="Arduino LLC Arduino Leonardo"
P: Phys=usb-0000:01:00.0-1.2/input2
S: Sysfs=/devices/platform/scb/usb1/1-1/1-1.2/1-1.2:1.2/0003:2341:8036.0003/input/input7
U: Uniq=HIDFG
H: Handlers=js0 event5
B: PROP=0
B: EV=1b
B: KEY=ffff 0 0 0 0 0 0 0 0 0
B: ABS=3003b
B: MSC=10

`

func TestUnmarshal(t *testing.T) {
	devices, err := unmarshal([]byte(procDevices))
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(devices))

	d := devices[1]
	assert.Equal(t, InputID{Bus: 0x3, Vendor: 0x2341, Product: 0x8036, Version: 0x111}, d.ID)
	assert.Equal(t, "Arduino LLC Arduino Leonardo", d.Name)
	assert.Equal(t, "usb-0000:01:00.0-1.2/input2", d.Phys)
	assert.Equal(t, "HIDFG", d.Uniq)
	assert.Equal(t, []string{"js0", "event5"}, d.Handlers)
	assert.Equal(t, "event5", d.Event())
	assert.Equal(t, "/dev/input/event5", d.EventPath())
	assert.Equal(t, "0003:2341:8036:0111", d.ID.String())

	assert.Equal(t, "Power Button", devices[0].Name)
	assert.Equal(t, "", devices[0].Uniq)
}

func TestUnmarshalEmpty(t *testing.T) {
	devices, err := unmarshal(nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(devices))
}

func TestUnmarshalBadID(t *testing.T) {
	_, err := unmarshal([]byte("I: Bus=zz Vendor=0000\n"))
	assert.NotEqual(t, nil, err)
}

func TestFindDevice(t *testing.T) {
	devices, err := unmarshal([]byte(procDevices))
	assert.Equal(t, nil, err)

	path, err := findDevice(devices, "Arduino LLC Arduino Leonardo")
	assert.Equal(t, nil, err)
	assert.Equal(t, "/dev/input/event5", path)

	_, err = findDevice(devices, "Gamepad")
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestMappingFor(t *testing.T) {
	m := MappingFor(profile.Default())
	assert.Equal(t, []evdev.EvCode{evdev.ABS_X, evdev.ABS_Y, evdev.ABS_RX, evdev.ABS_RY}, m.Axes)
	assert.Equal(t, []evdev.EvCode{evdev.BTN_THUMBL, evdev.BTN_THUMBR, evdev.BTN_SOUTH}, m.Buttons)
}

func TestEvdevSnapshot(t *testing.T) {
	e := &Evdev{
		mapping: Mapping{
			Axes:    []evdev.EvCode{evdev.ABS_X, evdev.ABS_Y},
			Buttons: []evdev.EvCode{evdev.BTN_SOUTH, evdev.BTN_EAST},
		},
		axes: map[evdev.EvCode]int{},
	}

	e.handle(&evdev.InputEvent{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 100})
	e.handle(&evdev.InputEvent{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: 900})
	e.handle(&evdev.InputEvent{Type: evdev.EV_ABS, Code: evdev.ABS_Z, Value: 5}) // not mapped
	e.handle(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.BTN_EAST, Value: 1})
	e.handle(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.BTN_EAST, Value: 2}) // repeat
	e.handle(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.BTN_NORTH, Value: 1})
	e.handle(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.BTN_EAST, Value: 0})

	axes := make([]int, 3)
	edges := e.Read(axes)
	assert.Equal(t, []int{100, 900, 0}, axes)
	assert.Equal(t, []Edge{{Button: 1, Pressed: true}, {Button: 1, Pressed: false}}, edges)

	assert.Equal(t, 0, len(e.Read(axes)))
	assert.Equal(t, []int{100, 900, 0}, axes)
}

func TestEvdevEdgeOverflow(t *testing.T) {
	e := &Evdev{
		mapping: Mapping{Buttons: []evdev.EvCode{evdev.BTN_SOUTH}},
		axes:    map[evdev.EvCode]int{},
	}
	for i := 0; i < maxPendingEdges+10; i++ {
		e.handle(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.BTN_SOUTH, Value: int32(i % 2)})
	}
	assert.Equal(t, maxPendingEdges, len(e.Read(nil)))
	assert.Equal(t, 0, e.dropped)
}

func TestEvdevSetMapping(t *testing.T) {
	e := &Evdev{
		mapping: Mapping{Axes: []evdev.EvCode{evdev.ABS_X}},
		axes:    map[evdev.EvCode]int{evdev.ABS_X: 1, evdev.ABS_RX: 7},
	}
	e.handle(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.BTN_SOUTH, Value: 1})

	e.SetMapping(Mapping{Axes: []evdev.EvCode{evdev.ABS_RX}, Buttons: []evdev.EvCode{evdev.BTN_SOUTH}})
	axes := make([]int, 1)
	assert.Equal(t, 0, len(e.Read(axes)))
	assert.Equal(t, []int{7}, axes)
}
