package hid

import (
	"fmt"
	"testing"

	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

func TestMoveChunks(t *testing.T) {
	for _, tc := range []struct {
		dx, dy   int
		expected []Op
	}{
		{dx: 0, dy: 0, expected: nil},
		{dx: 5, dy: -3, expected: []Op{{Kind: OpMove, DX: 5, DY: -3}}},
		{dx: 300, dy: 0, expected: []Op{
			{Kind: OpMove, DX: 127}, {Kind: OpMove, DX: 127}, {Kind: OpMove, DX: 46},
		}},
		{dx: -130, dy: 260, expected: []Op{
			{Kind: OpMove, DX: -127, DY: 127}, {Kind: OpMove, DX: -3, DY: 127}, {Kind: OpMove, DY: 6},
		}},
	} {
		t.Run(fmt.Sprintf("%d,%d", tc.dx, tc.dy), func(t *testing.T) {
			r := NewRecorder(false)
			c := NewController(r)
			c.Move(tc.dx, tc.dy)

			assert.Equal(t, tc.expected, r.Kinds(OpMove))
			x, y := r.Position()
			assert.Equal(t, tc.dx, x)
			assert.Equal(t, tc.dy, y)
			assert.Equal(t, len(tc.expected), c.Ops())
		})
	}
}

func TestButtonsReferenceCounted(t *testing.T) {
	r := NewRecorder(false)
	c := NewController(r)

	stick := profile.Buttons{Middle: true}
	macro := profile.Buttons{Middle: true, Left: true}

	c.Press(stick)
	c.Press(macro)
	assert.Equal(t, profile.Buttons{Left: true, Middle: true}, c.Buttons())

	c.Release(stick)
	assert.Equal(t, profile.Buttons{Left: true, Middle: true}, c.Buttons())

	c.Release(macro)
	assert.Equal(t, profile.Buttons{}, c.Buttons())

	// releasing again must not underflow
	c.Release(macro)
	c.Press(stick)
	assert.Equal(t, profile.Buttons{Middle: true}, c.Buttons())

	assert.Equal(t, []Op{
		{Kind: OpButtons, Middle: true},
		{Kind: OpButtons, Left: true, Middle: true},
		{Kind: OpButtons},
		{Kind: OpButtons, Middle: true},
	}, r.Kinds(OpButtons))
}

func TestKeysReferenceCounted(t *testing.T) {
	r := NewRecorder(false)
	c := NewController(r)
	shift := evdev.EvCode(evdev.KEY_LEFTSHIFT)

	c.KeyDown(shift)
	c.KeyDown(shift)
	c.KeyUp(shift)
	assert.True(t, c.KeyHeld(shift))
	c.KeyUp(shift)
	assert.False(t, c.KeyHeld(shift))
	c.KeyUp(shift)
	c.KeyDown(0)

	assert.Equal(t, []Op{
		{Kind: OpKeyPress, Key: shift},
		{Kind: OpKeyRelease, Key: shift},
	}, r.Ops())
}

func TestReleaseAll(t *testing.T) {
	r := NewRecorder(false)
	c := NewController(r)
	ctrl := evdev.EvCode(evdev.KEY_LEFTCTRL)
	shift := evdev.EvCode(evdev.KEY_LEFTSHIFT)

	c.KeyDown(ctrl)
	c.KeyDown(shift)
	c.KeyDown(shift)
	c.Press(profile.Buttons{Right: true})
	r.Reset()

	c.ReleaseAll()
	assert.Equal(t, []Op{
		{Kind: OpKeyRelease, Key: shift},
		{Kind: OpKeyRelease, Key: ctrl},
		{Kind: OpButtons},
	}, r.Ops())
	assert.False(t, c.KeyHeld(shift))

	r.Reset()
	c.ReleaseAll()
	assert.Equal(t, 0, len(r.Ops()))
}

func TestScrollClamped(t *testing.T) {
	r := NewRecorder(false)
	c := NewController(r)

	c.Scroll(0, 0)
	c.Scroll(1, 0)
	c.Scroll(-500, 2)

	assert.Equal(t, []Op{
		{Kind: OpScroll, Vertical: 1},
		{Kind: OpScroll, Vertical: -127, Horizontal: 2},
	}, r.Ops())
}

func TestRecorderJoystickCopies(t *testing.T) {
	r := NewRecorder(false)
	axes := []uint16{1, 2, 3, 4}
	r.Joystick(axes)
	axes[0] = 100

	assert.Equal(t, []uint16{1, 2, 3, 4}, r.Ops()[0].Axes)
}

func TestRecorderLimit(t *testing.T) {
	r := NewRecorder(false).Limit(2)
	c := NewController(r)
	c.Move(1, 0)
	c.Move(2, 0)
	c.Move(3, 0)

	assert.Equal(t, []Op{{Kind: OpMove, DX: 2}, {Kind: OpMove, DX: 3}}, r.Ops())
}
