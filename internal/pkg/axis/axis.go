package axis

import "fmt"

// JoystickMax is the top of the unsigned joystick report range.
const JoystickMax = 1023

// Calibration holds the raw bounds of an axis. Low <= Center <= High at all times.
type Calibration struct {
	Low, Center, High int
}

func (c Calibration) String() string {
	return fmt.Sprintf("[%d %d %d]", c.Low, c.Center, c.High)
}

// Axis is a single analog channel.
// [Low, Center) and [Center, High] are normalized independently, so a stick resting off-center
// still reads 0 at rest and reaches -1 and 1 at its physical limits.
type Axis struct {
	cal           Calibration
	invert        bool
	autoCalibrate bool
}

func New(cal Calibration, invert, autoCalibrate bool) *Axis {
	a := &Axis{invert: invert, autoCalibrate: autoCalibrate}
	a.cal = sanitize(cal)
	return a
}

func sanitize(c Calibration) Calibration {
	if c.Low > c.High {
		c.Low, c.High = c.High, c.Low
	}
	if c.Center < c.Low {
		c.Center = c.Low
	}
	if c.Center > c.High {
		c.Center = c.High
	}
	return c
}

// Calibrate records a live reading as the rest position. Bounds are widened when the reading lies outside.
func (a *Axis) Calibrate(center int) {
	if center < a.cal.Low {
		a.cal.Low = center
	}
	if center > a.cal.High {
		a.cal.High = center
	}
	a.cal.Center = center
}

// Normalize consumes a raw sample and returns its position in [-1, 1].
// Samples outside the bounds either widen them (auto-calibration) or saturate.
func (a *Axis) Normalize(raw int) float64 {
	switch {
	case raw < a.cal.Low:
		if a.autoCalibrate {
			a.cal.Low = raw
		} else {
			raw = a.cal.Low
		}
	case raw > a.cal.High:
		if a.autoCalibrate {
			a.cal.High = raw
		} else {
			raw = a.cal.High
		}
	}

	var v float64
	if raw < a.cal.Center {
		v = -fraction(a.cal.Center-raw, a.cal.Center-a.cal.Low)
	} else {
		v = fraction(raw-a.cal.Center, a.cal.High-a.cal.Center)
	}

	if a.invert {
		v = -v
	}
	return v
}

func fraction(dist, span int) float64 {
	if span <= 0 {
		return 0
	}
	f := float64(dist) / float64(span)
	if f > 1 {
		return 1
	}
	return f
}

func (a *Axis) Bounds() Calibration {
	return a.cal
}

// ToJoystick scales a normalized value onto [0, max].
func ToJoystick(v float64, max int) uint16 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return uint16((v + 1) / 2 * float64(max))
}
