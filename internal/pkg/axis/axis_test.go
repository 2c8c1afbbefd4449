package axis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		cal      Calibration
		invert   bool
		raw      int
		expected float64
	}{
		{cal: Calibration{0, 512, 1024}, raw: 512, expected: 0},
		{cal: Calibration{0, 512, 1024}, raw: 0, expected: -1},
		{cal: Calibration{0, 512, 1024}, raw: 1024, expected: 1},
		{cal: Calibration{0, 512, 1024}, raw: 768, expected: 0.5},
		{cal: Calibration{0, 512, 1024}, raw: 256, expected: -0.5},
		{cal: Calibration{0, 512, 1024}, invert: true, raw: 768, expected: -0.5},
		{cal: Calibration{100, 300, 1100}, raw: 700, expected: 0.5},
		{cal: Calibration{100, 300, 1100}, raw: 200, expected: -0.5},
		{cal: Calibration{0, 512, 1024}, raw: 5000, expected: 1},
		{cal: Calibration{0, 512, 1024}, raw: -20, expected: -1},
		{cal: Calibration{512, 512, 1024}, raw: 100, expected: 0},
		{cal: Calibration{0, 1024, 1024}, raw: 2000, expected: 0},
	} {
		t.Run(fmt.Sprintf("%v-%d", tc.cal, tc.raw), func(t *testing.T) {
			a := New(tc.cal, tc.invert, false)
			assert.InDelta(t, tc.expected, a.Normalize(tc.raw), 1e-9)
			assert.Equal(t, tc.cal, a.Bounds())
		})
	}
}

func TestNormalizeRangeAndMonotonic(t *testing.T) {
	a := New(Calibration{100, 400, 1000}, false, false)

	prev := -2.0
	for raw := -200; raw <= 1300; raw += 7 {
		v := a.Normalize(raw)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestAutoCalibrateWidens(t *testing.T) {
	a := New(Calibration{400, 512, 600}, false, true)

	samples := []int{512, 300, 700, 450, 100, 1000, 550, 512}
	low, high := a.Bounds().Low, a.Bounds().High
	for _, raw := range samples {
		v := a.Normalize(raw)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)

		b := a.Bounds()
		assert.LessOrEqual(t, b.Low, low)
		assert.GreaterOrEqual(t, b.High, high)
		low, high = b.Low, b.High
	}

	assert.Equal(t, Calibration{100, 512, 1000}, a.Bounds())
	assert.Equal(t, -1.0, a.Normalize(100))
	assert.Equal(t, 1.0, a.Normalize(1000))
}

func TestCalibrate(t *testing.T) {
	a := New(Calibration{0, 512, 1024}, false, false)

	a.Calibrate(530)
	assert.Equal(t, Calibration{0, 530, 1024}, a.Bounds())
	assert.Equal(t, 0.0, a.Normalize(530))

	a.Calibrate(1100)
	assert.Equal(t, Calibration{0, 1100, 1100}, a.Bounds())
	assert.Equal(t, 0.0, a.Normalize(1100))

	a.Calibrate(-4)
	assert.Equal(t, Calibration{-4, -4, 1100}, a.Bounds())
}

func TestNewSanitizes(t *testing.T) {
	a := New(Calibration{1024, 2000, 0}, false, false)
	assert.Equal(t, Calibration{0, 1024, 1024}, a.Bounds())
}

func TestToJoystick(t *testing.T) {
	for _, tc := range []struct {
		v        float64
		expected uint16
	}{
		{v: -1, expected: 0},
		{v: 0, expected: 511},
		{v: 1, expected: 1023},
		{v: 0.5, expected: 767},
		{v: 3, expected: 1023},
		{v: -3, expected: 0},
	} {
		t.Run(fmt.Sprintf("%.1f", tc.v), func(t *testing.T) {
			assert.Equal(t, tc.expected, ToJoystick(tc.v, JoystickMax))
		})
	}
}
