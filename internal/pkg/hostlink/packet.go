// Package hostlink carries notifications from a host-side helper: screen layout, mode requests and edge hits.
package hostlink

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// FrameSize matches a raw HID report, every frame is padded to it.
const FrameSize = 64

type PacketType byte

const (
	Hello PacketType = iota + 1
	Layout
	SwitchModes
	BorderBump
)

func (t PacketType) String() string {
	switch t {
	case Hello:
		return "HELLO"
	case Layout:
		return "LAYOUT"
	case SwitchModes:
		return "SWITCH_MODES"
	case BorderBump:
		return "BORDER_BUMP"
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(t))
}

// Edge flags carried by BORDER_BUMP.
const (
	EdgeLeft uint8 = 1 << iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

var (
	ErrShortFrame  = errors.New("short frame")
	ErrUnknownType = errors.New("unknown packet type")
)

type Packet struct {
	Type PacketType

	Width, Height uint16 // LAYOUT
	Stick, Mode   uint8  // SWITCH_MODES
	Edges         uint8  // BORDER_BUMP
}

func (p Packet) String() string {
	switch p.Type {
	case Layout:
		return fmt.Sprintf("%s %dx%d", p.Type, p.Width, p.Height)
	case SwitchModes:
		return fmt.Sprintf("%s stick %d mode %d", p.Type, p.Stick, p.Mode)
	case BorderBump:
		return fmt.Sprintf("%s edges 0x%02x", p.Type, p.Edges)
	}
	return p.Type.String()
}

// Decode parses a single frame. Bytes past the payload are ignored.
func Decode(frame []byte) (Packet, error) {
	if len(frame) < 1 {
		return Packet{}, ErrShortFrame
	}

	p := Packet{Type: PacketType(frame[0])}
	need := 1
	switch p.Type {
	case Hello:
	case Layout:
		need = 5
	case SwitchModes:
		need = 3
	case BorderBump:
		need = 2
	default:
		return Packet{}, fmt.Errorf("%w: %d", ErrUnknownType, frame[0])
	}
	if len(frame) < need {
		return Packet{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortFrame, p.Type, need, len(frame))
	}

	switch p.Type {
	case Layout:
		p.Width = binary.LittleEndian.Uint16(frame[1:3])
		p.Height = binary.LittleEndian.Uint16(frame[3:5])
	case SwitchModes:
		p.Stick = frame[1]
		p.Mode = frame[2]
	case BorderBump:
		p.Edges = frame[1]
	}
	return p, nil
}

// Encode builds a full-size frame.
func Encode(p Packet) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = byte(p.Type)
	switch p.Type {
	case Layout:
		binary.LittleEndian.PutUint16(frame[1:3], p.Width)
		binary.LittleEndian.PutUint16(frame[3:5], p.Height)
	case SwitchModes:
		frame[1] = p.Stick
		frame[2] = p.Mode
	case BorderBump:
		frame[1] = p.Edges
	}
	return frame
}
