// Package curve builds the quantized speed tables used to turn stick deflection into motion.
package curve

import (
	"fmt"
	"math"
)

const (
	// MinSize is the smallest table worth having, sticks are not precise enough to benefit from more.
	MinSize = 10
	// MaxSize keeps a mistyped size from allocating a huge table.
	MaxSize = 1024
	// MaxEntry bounds the per-tick motion a single entry may ask for.
	MaxEntry = 10000

	// LinearCoef gives a more-or-less linear response.
	LinearCoef = 0.4

	e = 2.71828
)

// Curve is a read-only lookup table indexed by stick deflection magnitude.
type Curve struct {
	entries []int
}

// Entry returns a single table value of the form scale * x^(e*expCoef).
func Entry(expCoef, x, scale float64) float64 {
	return scale * math.Pow(x, e*expCoef)
}

// New builds a curve of the form maxSpeed * x^(e*expCoef), a basic "expo" function
// like the ones found on RC transmitters.
func New(maxSpeed, expCoef float64, size int) Curve {
	if size < MinSize {
		size = MinSize
	}
	entries := make([]int, size)
	for i := range entries {
		entries[i] = int(Entry(expCoef, float64(i)/float64(size-1), maxSpeed))
	}
	return Curve{entries: entries}
}

func Linear(maxSpeed float64) Curve {
	return New(maxSpeed, LinearCoef, MinSize)
}

// Constant returns a curve that yields v for any deflection.
func Constant(v int, size int) Curve {
	if size < MinSize {
		size = MinSize
	}
	entries := make([]int, size)
	for i := range entries {
		entries[i] = v
	}
	return Curve{entries: entries}
}

// Check reports whether the table is usable: entries within [0, MaxEntry], non-decreasing.
func (c Curve) Check() error {
	if len(c.entries) == 0 {
		return fmt.Errorf("empty table")
	}
	if len(c.entries) > MaxSize {
		return fmt.Errorf("table size %d exceeds %d", len(c.entries), MaxSize)
	}
	for i, v := range c.entries {
		if v < 0 || v > MaxEntry {
			return fmt.Errorf("entry %d outside of 0-%d range: %d", i, MaxEntry, v)
		}
		if i > 0 && v < c.entries[i-1] {
			return fmt.Errorf("entry %d decreases: %d < %d", i, v, c.entries[i-1])
		}
	}
	return nil
}

func (c Curve) Len() int {
	return len(c.entries)
}

func (c Curve) Entries() []int {
	out := make([]int, len(c.entries))
	copy(out, c.entries)
	return out
}

// Sample maps a normalized position in [-1, 1] onto the table and reapplies its sign.
func (c Curve) Sample(pos float64) int {
	if len(c.entries) == 0 || pos == 0 || math.IsNaN(pos) {
		return 0
	}

	mag := math.Abs(pos)
	if mag > 1 {
		mag = 1
	}
	v := c.entries[int(math.Round(mag*float64(len(c.entries)-1)))]
	if pos < 0 {
		return -v
	}
	return v
}

func (c Curve) String() string {
	return fmt.Sprintf("curve%v", c.entries)
}
