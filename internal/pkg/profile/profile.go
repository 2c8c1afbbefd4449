package profile

import (
	"fmt"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/axis"
	"github.com/gethiox/orbitrat/internal/pkg/curve"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/holoplot/go-evdev"
)

var log = logger.GetLogger()

const (
	Rewind  Movement = "rewind"  // move, then unwind the cursor when the stick is released
	Stutter Movement = "stutter" // move, unwind after stutter_step, resume until released
	Simple  Movement = "simple"  // move, never unwind
	Chase   Movement = "chase"   // move, then tap chase_key, continuously
	Scroll  Movement = "scroll"  // wheel clicks instead of cursor motion

	AdvanceMode DispatchKind = "advance_mode"
	RunMacro    DispatchKind = "macro"
	None        DispatchKind = "none"

	// MaxSticks is the number of 2-axis sticks the engine can arbitrate.
	MaxSticks = 2
	// MaxUnwindStep is the largest relative move a single HID report can carry.
	MaxUnwindStep = 127
)

var SupportedMovements = map[Movement]bool{
	Rewind:  true,
	Stutter: true,
	Simple:  true,
	Chase:   true,
	Scroll:  true,
}

var SupportedDispatchKinds = map[DispatchKind]bool{
	AdvanceMode: true,
	RunMacro:    true,
	None:        true,
}

type Movement string
type DispatchKind string

// Unwinds reports whether the cursor returns to its origin when the motion ends.
func (m Movement) Unwinds() bool {
	return m == Rewind || m == Stutter
}

type Buttons struct {
	Left, Middle, Right bool
}

func (b Buttons) Any() bool {
	return b.Left || b.Middle || b.Right
}

func (b Buttons) String() string {
	var s string
	for _, pair := range []struct {
		set  bool
		name string
	}{{b.Left, "L"}, {b.Middle, "M"}, {b.Right, "R"}} {
		if pair.set {
			s += pair.name
		}
	}
	if s == "" {
		return "-"
	}
	return s
}

type StickMode struct {
	Name      string
	Movement  Movement
	CurveName string
	Curve     curve.Curve
	Buttons   Buttons

	Key       evdev.EvCode // held for the whole motion, 0 when unset
	ChaseKey  evdev.EvCode
	ChaseMods []evdev.EvCode

	MotionThreshold int

	FlipX, FlipY bool
	LockX, LockY bool
}

func (m StickMode) HasKey() bool {
	return m.Key != 0
}

func (m StickMode) String() string {
	return fmt.Sprintf("%s (%s, %s)", m.Name, m.Movement, m.CurveName)
}

type Stick struct {
	Name  string
	X, Y  int // indices into Profile.Axes
	Modes []StickMode
}

type AxisConfig struct {
	Code        evdev.EvCode
	Calibration axis.Calibration
	Invert      bool
}

type Dispatch struct {
	Kind  DispatchKind
	Stick int
	Macro string
}

type ButtonConfig struct {
	Code     evdev.EvCode
	Dispatch Dispatch
}

// Macro is held for as long as its button is.
type Macro struct {
	Key     evdev.EvCode
	Buttons Buttons
}

type Motion struct {
	Deadzone       float64
	StutterStep    int
	ChaseThreshold int
	ScrollQuantum  int
	UnwindStep     int
	SettleTime     time.Duration

	AutoCalibrate      bool
	CalibrateOnStartup bool
	SendJoystick       bool
	ReportEvery        int // ticks between diagnostic reports, 0 disables
}

type Profile struct {
	Name    string
	Motion  Motion
	Axes    []AxisConfig
	Sticks  []Stick
	Buttons []ButtonConfig
	Macros  map[string]Macro
	Curves  map[string]curve.Curve
}

func DefaultMotion() Motion {
	return Motion{
		Deadzone:           0.08,
		StutterStep:        1000,
		ChaseThreshold:     25,
		ScrollQuantum:      10000,
		UnwindStep:         100,
		SettleTime:         10 * time.Millisecond,
		AutoCalibrate:      true,
		CalibrateOnStartup: true,
		SendJoystick:       false,
		ReportEvery:        0,
	}
}

// Default is the built-in profile: a pan stick and an orbit stick tuned for Fusion 360 style navigation.
func Default() Profile {
	pan := curve.Linear(25)
	orbit := curve.Linear(10)
	scroll := curve.New(1000, 0.6, curve.MinSize)

	return Profile{
		Name:   "default",
		Motion: DefaultMotion(),
		Axes: []AxisConfig{
			{Code: evdev.ABS_X, Calibration: axis.Calibration{Low: 3, Center: 520, High: 1021}},
			{Code: evdev.ABS_Y, Calibration: axis.Calibration{Low: 6, Center: 498, High: 1019}},
			{Code: evdev.ABS_RX, Calibration: axis.Calibration{Low: 3, Center: 530, High: 1021}},
			{Code: evdev.ABS_RY, Calibration: axis.Calibration{Low: 2, Center: 513, High: 1022}},
		},
		Sticks: []Stick{
			{
				Name: "pan", X: 0, Y: 1,
				Modes: []StickMode{
					{
						Name: "pan", Movement: Rewind, CurveName: "pan", Curve: pan,
						Buttons: Buttons{Middle: true}, MotionThreshold: 1, FlipX: true, FlipY: true,
					},
					{
						Name: "zoom", Movement: Scroll, CurveName: "scroll", Curve: scroll,
						MotionThreshold: 1, FlipY: true,
					},
					{
						Name: "pan-stutter", Movement: Stutter, CurveName: "pan", Curve: pan,
						Buttons: Buttons{Middle: true}, MotionThreshold: 1, FlipX: true, FlipY: true,
					},
				},
			},
			{
				Name: "orbit", X: 2, Y: 3,
				Modes: []StickMode{
					{
						Name: "orbit", Movement: Rewind, CurveName: "orbit", Curve: orbit,
						Buttons: Buttons{Middle: true}, Key: evdev.KEY_LEFTSHIFT,
						MotionThreshold: 1, FlipX: true, FlipY: true,
					},
					{
						Name: "orbit-x", Movement: Rewind, CurveName: "orbit", Curve: orbit,
						Buttons: Buttons{Middle: true}, Key: evdev.KEY_LEFTSHIFT,
						MotionThreshold: 1, FlipX: true, LockY: true,
					},
					{
						Name: "step-view", Movement: Chase, CurveName: "orbit", Curve: orbit,
						Buttons: Buttons{Middle: true}, Key: evdev.KEY_LEFTSHIFT,
						ChaseKey: evdev.KEY_F6, MotionThreshold: 1, FlipX: true, FlipY: true,
					},
				},
			},
		},
		Buttons: []ButtonConfig{
			{Code: evdev.BTN_THUMBL, Dispatch: Dispatch{Kind: AdvanceMode, Stick: 0}},
			{Code: evdev.BTN_THUMBR, Dispatch: Dispatch{Kind: AdvanceMode, Stick: 1}},
			{Code: evdev.BTN_SOUTH, Dispatch: Dispatch{Kind: RunMacro, Macro: "fit"}},
		},
		Macros: map[string]Macro{
			"fit": {Key: evdev.KEY_F6},
		},
		Curves: map[string]curve.Curve{
			"pan":    pan,
			"orbit":  orbit,
			"scroll": scroll,
		},
	}
}

// Validate checks everything the engine relies on and that a parsed file may get wrong.
func Validate(p Profile) error {
	m := p.Motion
	switch {
	case m.Deadzone < 0 || m.Deadzone >= 1:
		return fmt.Errorf("[motion] deadzone outside of 0-1 range: %v", m.Deadzone)
	case m.StutterStep < 1:
		return fmt.Errorf("[motion] stutter_step must be positive: %d", m.StutterStep)
	case m.ChaseThreshold < 1:
		return fmt.Errorf("[motion] chase_threshold must be positive: %d", m.ChaseThreshold)
	case m.ScrollQuantum < 1:
		return fmt.Errorf("[motion] scroll_quantum must be positive: %d", m.ScrollQuantum)
	case m.UnwindStep < 1 || m.UnwindStep > MaxUnwindStep:
		return fmt.Errorf("[motion] unwind_step outside of 1-%d range: %d", MaxUnwindStep, m.UnwindStep)
	case m.SettleTime < 0:
		return fmt.Errorf("[motion] negative settle_time: %s", m.SettleTime)
	case m.ReportEvery < 0:
		return fmt.Errorf("[motion] negative report_every: %d", m.ReportEvery)
	}

	for name, c := range p.Curves {
		err := c.Check()
		if err != nil {
			return fmt.Errorf("[curves] %s: %w", name, err)
		}
	}

	if len(p.Sticks) == 0 || len(p.Sticks) > MaxSticks {
		return fmt.Errorf("[sticks] expected 1-%d sticks, got %d", MaxSticks, len(p.Sticks))
	}

	for i, s := range p.Sticks {
		for _, idx := range []int{s.X, s.Y} {
			if idx < 0 || idx >= len(p.Axes) {
				return fmt.Errorf("[sticks] %s: axis index %d out of range (%d axes)", s.Name, idx, len(p.Axes))
			}
		}
		if s.X == s.Y {
			return fmt.Errorf("[sticks] %s: both directions use axis %d", s.Name, s.X)
		}
		if len(s.Modes) == 0 {
			return fmt.Errorf("[sticks] %s (stick %d): empty mode list", s.Name, i)
		}
		for _, mode := range s.Modes {
			if !SupportedMovements[mode.Movement] {
				return fmt.Errorf("[modes] %s: unsupported movement: %s", mode.Name, mode.Movement)
			}
			if mode.Curve.Len() == 0 {
				return fmt.Errorf("[modes] %s: curve not defined", mode.Name)
			}
			err := mode.Curve.Check()
			if err != nil {
				return fmt.Errorf("[modes] %s: curve %s: %w", mode.Name, mode.CurveName, err)
			}
			if mode.MotionThreshold < 1 {
				return fmt.Errorf("[modes] %s: motion_threshold must be at least 1: %d", mode.Name, mode.MotionThreshold)
			}
			if mode.Movement == Chase && mode.ChaseKey == 0 {
				return fmt.Errorf("[modes] %s: chase movement without chase_key", mode.Name)
			}
		}
	}

	for _, b := range p.Buttons {
		d := b.Dispatch
		if !SupportedDispatchKinds[d.Kind] {
			return fmt.Errorf("[buttons] 0x%x: unsupported action: %s", b.Code, d.Kind)
		}
		switch d.Kind {
		case AdvanceMode:
			if d.Stick < 0 || d.Stick >= len(p.Sticks) {
				return fmt.Errorf("[buttons] 0x%x: stick %d out of range", b.Code, d.Stick)
			}
		case RunMacro:
			if _, ok := p.Macros[d.Macro]; !ok {
				return fmt.Errorf("[buttons] 0x%x: macro \"%s\" not defined", b.Code, d.Macro)
			}
		}
	}

	return nil
}
