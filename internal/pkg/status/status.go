// Package status renders the engine state on optional indicators (character LCD, OpenRGB LEDs).
package status

import (
	"fmt"
	"strings"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/lucasb-eyer/go-colorful"
)

var log = logger.GetLogger()

type Layout struct {
	Width, Height uint16
}

// Status is a snapshot published by the engine whenever any of its fields change.
type Status struct {
	ActiveStick int // -1 when no stick is active
	Sticks      []string
	Modes       []string
	ModeIndex   []int
	ModeCount   []int
	Layout      Layout
}

func (s Status) Equal(o Status) bool {
	if s.ActiveStick != o.ActiveStick || s.Layout != o.Layout {
		return false
	}
	if len(s.Modes) != len(o.Modes) || len(s.ModeIndex) != len(o.ModeIndex) || len(s.Sticks) != len(o.Sticks) ||
		len(s.ModeCount) != len(o.ModeCount) {
		return false
	}
	for i := range s.Modes {
		if s.Modes[i] != o.Modes[i] {
			return false
		}
	}
	for i := range s.ModeIndex {
		if s.ModeIndex[i] != o.ModeIndex[i] {
			return false
		}
	}
	for i := range s.ModeCount {
		if s.ModeCount[i] != o.ModeCount[i] {
			return false
		}
	}
	for i := range s.Sticks {
		if s.Sticks[i] != o.Sticks[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that doesn't share slices with s.
func (s Status) Clone() Status {
	c := s
	c.Sticks = append([]string(nil), s.Sticks...)
	c.Modes = append([]string(nil), s.Modes...)
	c.ModeIndex = append([]int(nil), s.ModeIndex...)
	c.ModeCount = append([]int(nil), s.ModeCount...)
	return c
}

func (s Status) String() string {
	var parts []string
	for i := range s.Modes {
		parts = append(parts, strings.TrimSpace(Line(s, i, 64)))
	}
	return strings.Join(parts, " | ")
}

// Line formats stick i for a display of the given width, padded with spaces so it overwrites previous content.
//
//	*pan   pan-stutter
func Line(s Status, i, width int) string {
	marker := " "
	if s.ActiveStick == i {
		marker = "*"
	}

	name := fmt.Sprintf("stick%d", i)
	if i < len(s.Sticks) && s.Sticks[i] != "" {
		name = s.Sticks[i]
	}

	mode := ""
	if i < len(s.Modes) {
		mode = s.Modes[i]
	}

	line := fmt.Sprintf("%s%-6s%s", marker, name, mode)
	if len(line) > width {
		return line[:width]
	}
	return line + strings.Repeat(" ", width-len(line))
}

// LayoutLine is shown below the stick lines on displays tall enough.
func LayoutLine(l Layout, width int) string {
	var line string
	if l.Width != 0 || l.Height != 0 {
		line = fmt.Sprintf("host %dx%d", l.Width, l.Height)
	}
	if len(line) > width {
		return line[:width]
	}
	return line + strings.Repeat(" ", width-len(line))
}

// Color picks a hue per mode index, spread over the color wheel. Idle sticks are shown dimmed.
func Color(index, count int, active bool) colorful.Color {
	if count < 1 {
		count = 1
	}
	h := 360/float64(count)*float64(index%count) + 30
	if h >= 360 {
		h -= 360
	}

	v := 0.25
	if active {
		v = 1
	}
	return colorful.Hsv(h, 1, v)
}

// FocusColor is the color for the whole status: the active stick's mode if any, else the first stick dimmed.
func FocusColor(s Status) colorful.Color {
	stick := s.ActiveStick
	active := true
	if stick < 0 || stick >= len(s.ModeIndex) {
		stick = 0
		active = false
	}
	if len(s.ModeIndex) == 0 {
		return colorful.Color{}
	}

	count := 1
	if stick < len(s.ModeCount) {
		count = s.ModeCount[stick]
	}
	return Color(s.ModeIndex[stick], count, active)
}
