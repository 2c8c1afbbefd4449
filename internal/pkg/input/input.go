// Package input provides raw axis samples and button edges to the engine.
package input

import (
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/holoplot/go-evdev"
)

var log = logger.GetLogger()

// Edge is a button state change, Button is an index into the profile's button list.
type Edge struct {
	Button  int
	Pressed bool
}

// Source fills axes with the latest raw samples and returns button edges seen since the previous call.
type Source interface {
	Read(axes []int) []Edge
}

// Mapper is implemented by sources whose code mapping follows the loaded profile.
type Mapper interface {
	SetMapping(m Mapping)
}

// Mapping binds evdev codes to axis and button slots.
type Mapping struct {
	Axes    []evdev.EvCode
	Buttons []evdev.EvCode
}

func MappingFor(p profile.Profile) Mapping {
	var m Mapping
	for _, a := range p.Axes {
		m.Axes = append(m.Axes, a.Code)
	}
	for _, b := range p.Buttons {
		m.Buttons = append(m.Buttons, b.Code)
	}
	return m
}

func (m Mapping) button(code evdev.EvCode) (int, bool) {
	for i, c := range m.Buttons {
		if c == code {
			return i, true
		}
	}
	return 0, false
}
