package input

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrDeviceNotFound = errors.New("input device not found")

// DeviceInfo contains information of every reported event device,
// it is supposed to be created by unmarshal function only
type DeviceInfo struct {
	ID       InputID  // ID of the device
	Name     string   // name of the device
	Phys     string   // physical path to the device in the system hierarchy
	Sysfs    string   // sysfs path
	Uniq     string   // unique identification code for the device (if device has it)
	Handlers []string // list of input handles associated with the device
}

type InputID struct {
	Bus     uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

func (i InputID) String() string {
	return fmt.Sprintf("%04x:%04x:%04x:%04x", i.Bus, i.Vendor, i.Product, i.Version)
}

// Event returns event name, like "event0" for /dev/input/event0
func (d *DeviceInfo) Event() string {
	for _, handler := range d.Handlers {
		if strings.HasPrefix(handler, "event") {
			return handler
		}
	}
	return ""
}

// EventPath returns a /dev/input/event filepath
func (d *DeviceInfo) EventPath() string {
	event := d.Event()
	if event == "" {
		return ""
	}
	return fmt.Sprintf("/dev/input/%s", event)
}

// GetHandlers returns a list of available input handlers in the system.
func GetHandlers() ([]DeviceInfo, error) {
	data, err := os.ReadFile("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	return unmarshal(data)
}

// FindDevice returns the event path of the first device with the given name.
func FindDevice(name string) (string, error) {
	devices, err := GetHandlers()
	if err != nil {
		return "", fmt.Errorf("listing input devices failed: %w", err)
	}
	return findDevice(devices, name)
}

func findDevice(devices []DeviceInfo, name string) (string, error) {
	for _, d := range devices {
		if d.Name != name {
			continue
		}
		path := d.EventPath()
		if path == "" {
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

func decodeUint16(v string) (uint16, error) {
	hv, err := hex.DecodeString(fmt.Sprintf("%04s", v))
	if err != nil {
		return 0, fmt.Errorf("hex decoding failed: %v", err)
	}
	if len(hv) != 2 {
		return 0, fmt.Errorf("value too long: %q", v)
	}
	return uint16(hv[0])<<8 | uint16(hv[1]), nil
}

// unmarshal parses /proc/bus/input/devices file
func unmarshal(data []byte) ([]DeviceInfo, error) {
	var devices = make([]DeviceInfo, 0)

	var device DeviceInfo
	var pending bool

	flush := func() {
		if pending {
			devices = append(devices, device)
		}
		device = DeviceInfo{}
		pending = false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			flush()
			continue
		}
		if len(line) < 3 {
			continue
		}
		pending = true

		label := line[:1]
		info := line[3:]

		switch label {
		case "I":
			for _, param := range strings.Fields(info) {
				l, v, ok := strings.Cut(param, "=")
				if !ok {
					continue
				}
				uv, err := decodeUint16(v)
				if err != nil {
					return devices, err
				}
				switch l {
				case "Bus":
					device.ID.Bus = uv
				case "Vendor":
					device.ID.Vendor = uv
				case "Product":
					device.ID.Product = uv
				case "Version":
					device.ID.Version = uv
				}
			}
		case "N":
			device.Name = strings.Trim(strings.TrimPrefix(info, "Name="), "\"")
		case "P":
			device.Phys = strings.TrimPrefix(info, "Phys=")
		case "S":
			device.Sysfs = strings.TrimPrefix(info, "Sysfs=")
		case "U":
			device.Uniq = strings.TrimPrefix(info, "Uniq=")
		case "H":
			device.Handlers = strings.Fields(strings.TrimPrefix(info, "Handlers="))
		}
	}
	flush()

	return devices, nil
}
