package profile

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/axis"
	"github.com/gethiox/orbitrat/internal/pkg/curve"
	"github.com/holoplot/go-evdev"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type fileMotion struct {
	Deadzone           float64 `toml:"deadzone" yaml:"deadzone"`
	StutterStep        int     `toml:"stutter_step" yaml:"stutter_step"`
	ChaseThreshold     int     `toml:"chase_threshold" yaml:"chase_threshold"`
	ScrollQuantum      int     `toml:"scroll_quantum" yaml:"scroll_quantum"`
	UnwindStep         int     `toml:"unwind_step" yaml:"unwind_step"`
	SettleTime         string  `toml:"settle_time" yaml:"settle_time"`
	AutoCalibrate      bool    `toml:"auto_calibrate" yaml:"auto_calibrate"`
	CalibrateOnStartup bool    `toml:"calibrate_on_startup" yaml:"calibrate_on_startup"`
	SendJoystick       bool    `toml:"send_joystick" yaml:"send_joystick"`
	ReportEvery        int     `toml:"report_every" yaml:"report_every"`
}

type fileCurve struct {
	MaxSpeed float64  `toml:"max_speed" yaml:"max_speed"`
	ExpCoef  *float64 `toml:"exp_coef,omitempty" yaml:"exp_coef,omitempty"`
	Size     int      `toml:"size" yaml:"size"`
	Constant *int     `toml:"constant,omitempty" yaml:"constant,omitempty"`
}

type fileAxis struct {
	Code   string `toml:"code" yaml:"code"`
	Low    int    `toml:"low" yaml:"low"`
	Center int    `toml:"center" yaml:"center"`
	High   int    `toml:"high" yaml:"high"`
	Invert bool   `toml:"invert" yaml:"invert"`
}

type fileMode struct {
	Name            string   `toml:"name" yaml:"name"`
	Movement        string   `toml:"movement" yaml:"movement"`
	Curve           string   `toml:"curve" yaml:"curve"`
	Buttons         []string `toml:"buttons" yaml:"buttons"`
	Key             string   `toml:"key" yaml:"key"`
	ChaseKey        string   `toml:"chase_key" yaml:"chase_key"`
	ChaseMods       []string `toml:"chase_mods" yaml:"chase_mods"`
	MotionThreshold *int     `toml:"motion_threshold,omitempty" yaml:"motion_threshold,omitempty"`
	FlipX           bool     `toml:"flip_x" yaml:"flip_x"`
	FlipY           bool     `toml:"flip_y" yaml:"flip_y"`
	LockX           bool     `toml:"lock_x" yaml:"lock_x"`
	LockY           bool     `toml:"lock_y" yaml:"lock_y"`
}

type fileStick struct {
	Name  string     `toml:"name" yaml:"name"`
	Axes  []int      `toml:"axes" yaml:"axes"`
	Modes []fileMode `toml:"modes" yaml:"modes"`
}

type fileButton struct {
	Code   string `toml:"code" yaml:"code"`
	Action string `toml:"action" yaml:"action"`
	Stick  int    `toml:"stick" yaml:"stick"`
	Macro  string `toml:"macro" yaml:"macro"`
}

type fileMacro struct {
	Key     string   `toml:"key" yaml:"key"`
	Buttons []string `toml:"buttons" yaml:"buttons"`
}

type fileProfile struct {
	Name    string               `toml:"name" yaml:"name"`
	Motion  fileMotion           `toml:"motion" yaml:"motion"`
	Curves  map[string]fileCurve `toml:"curves" yaml:"curves"`
	Axes    []fileAxis           `toml:"axes" yaml:"axes"`
	Sticks  []fileStick          `toml:"sticks" yaml:"sticks"`
	Buttons []fileButton         `toml:"buttons" yaml:"buttons"`
	Macros  map[string]fileMacro `toml:"macros" yaml:"macros"`
}

// newFileProfile returns a document pre-filled with default motion constants,
// decoders leave fields missing from the file untouched.
func newFileProfile() fileProfile {
	m := DefaultMotion()
	return fileProfile{
		Motion: fileMotion{
			Deadzone:           m.Deadzone,
			StutterStep:        m.StutterStep,
			ChaseThreshold:     m.ChaseThreshold,
			ScrollQuantum:      m.ScrollQuantum,
			UnwindStep:         m.UnwindStep,
			SettleTime:         m.SettleTime.String(),
			AutoCalibrate:      m.AutoCalibrate,
			CalibrateOnStartup: m.CalibrateOnStartup,
			SendJoystick:       m.SendJoystick,
			ReportEvery:        m.ReportEvery,
		},
	}
}

// ParseTOML decodes and validates a TOML profile, unknown keys are rejected.
func ParseTOML(data []byte) (Profile, error) {
	fp := newFileProfile()

	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	err := d.Decode(&fp)
	if err != nil {
		return Profile{}, fmt.Errorf("parsing toml failed: %w", err)
	}
	return fp.convert()
}

// ParseYAML decodes and validates a YAML profile, unknown keys are rejected.
func ParseYAML(data []byte) (Profile, error) {
	fp := newFileProfile()

	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)

	err := d.Decode(&fp)
	if err != nil {
		return Profile{}, fmt.Errorf("parsing yaml failed: %w", err)
	}
	return fp.convert()
}

// CodeFromString resolves an evdev code name through lookupTable, "x"-prefixed hex values are accepted as-is.
func CodeFromString(key string, lookupTable map[string]evdev.EvCode) (evdev.EvCode, error) {
	if strings.HasPrefix(key, "x") {
		keyTrimmed := strings.TrimPrefix(key, "x")
		evcode, err := strconv.ParseUint(keyTrimmed, 16, 16)
		if err != nil {
			return evdev.EvCode(0), fmt.Errorf("conversion of hex value \"%s\" failed: %w", keyTrimmed, err)
		}
		return evdev.EvCode(evcode), nil
	}

	evcode, ok := lookupTable[key]
	if !ok {
		return evdev.EvCode(0), fmt.Errorf("EvCode name \"%s\" not found / not supported", key)
	}
	return evcode, nil
}

// optionalKey resolves a key name, an empty name means no key.
func optionalKey(key string) (evdev.EvCode, error) {
	if key == "" {
		return 0, nil
	}
	return CodeFromString(key, evdev.KEYFromString)
}

func parseButtons(names []string) (Buttons, error) {
	var b Buttons
	for _, name := range names {
		switch strings.ToLower(name) {
		case "left":
			b.Left = true
		case "middle":
			b.Middle = true
		case "right":
			b.Right = true
		default:
			return Buttons{}, fmt.Errorf("unknown mouse button: %s", name)
		}
	}
	return b, nil
}

func (fp fileProfile) convert() (Profile, error) {
	settle, err := time.ParseDuration(fp.Motion.SettleTime)
	if err != nil {
		return Profile{}, fmt.Errorf("[motion] settle_time: %w", err)
	}

	p := Profile{
		Name: fp.Name,
		Motion: Motion{
			Deadzone:           fp.Motion.Deadzone,
			StutterStep:        fp.Motion.StutterStep,
			ChaseThreshold:     fp.Motion.ChaseThreshold,
			ScrollQuantum:      fp.Motion.ScrollQuantum,
			UnwindStep:         fp.Motion.UnwindStep,
			SettleTime:         settle,
			AutoCalibrate:      fp.Motion.AutoCalibrate,
			CalibrateOnStartup: fp.Motion.CalibrateOnStartup,
			SendJoystick:       fp.Motion.SendJoystick,
			ReportEvery:        fp.Motion.ReportEvery,
		},
		Macros: make(map[string]Macro),
		Curves: make(map[string]curve.Curve),
	}

	for name, c := range fp.Curves {
		if c.Size > curve.MaxSize {
			return Profile{}, fmt.Errorf("[curves] %s: size above %d: %d", name, curve.MaxSize, c.Size)
		}
		if c.Constant != nil {
			p.Curves[name] = curve.Constant(*c.Constant, c.Size)
			continue
		}
		if c.MaxSpeed <= 0 {
			return Profile{}, fmt.Errorf("[curves] %s: max_speed must be positive: %v", name, c.MaxSpeed)
		}
		expCoef := curve.LinearCoef
		if c.ExpCoef != nil {
			expCoef = *c.ExpCoef
		}
		if expCoef < 0 || math.IsNaN(expCoef) {
			return Profile{}, fmt.Errorf("[curves] %s: exp_coef must not be negative: %v", name, expCoef)
		}
		p.Curves[name] = curve.New(c.MaxSpeed, expCoef, c.Size)
	}

	for i, a := range fp.Axes {
		code, err := CodeFromString(a.Code, evdev.ABSFromString)
		if err != nil {
			return Profile{}, fmt.Errorf("[axes] %d: %w", i, err)
		}
		if a.Low > a.Center || a.Center > a.High {
			return Profile{}, fmt.Errorf("[axes] %s: expected low <= center <= high, got %d %d %d", a.Code, a.Low, a.Center, a.High)
		}
		p.Axes = append(p.Axes, AxisConfig{
			Code:        code,
			Calibration: axis.Calibration{Low: a.Low, Center: a.Center, High: a.High},
			Invert:      a.Invert,
		})
	}

	for _, s := range fp.Sticks {
		if len(s.Axes) != 2 {
			return Profile{}, fmt.Errorf("[sticks] %s: expected 2 axis indices, got %d", s.Name, len(s.Axes))
		}
		stick := Stick{Name: s.Name, X: s.Axes[0], Y: s.Axes[1]}

		for _, m := range s.Modes {
			mode, err := convertMode(m, p.Curves)
			if err != nil {
				return Profile{}, fmt.Errorf("[modes] %s/%s: %w", s.Name, m.Name, err)
			}
			stick.Modes = append(stick.Modes, mode)
		}
		p.Sticks = append(p.Sticks, stick)
	}

	for name, m := range fp.Macros {
		key, err := optionalKey(m.Key)
		if err != nil {
			return Profile{}, fmt.Errorf("[macros] %s: %w", name, err)
		}
		buttons, err := parseButtons(m.Buttons)
		if err != nil {
			return Profile{}, fmt.Errorf("[macros] %s: %w", name, err)
		}
		p.Macros[name] = Macro{Key: key, Buttons: buttons}
	}

	for _, b := range fp.Buttons {
		code, err := CodeFromString(b.Code, evdev.KEYFromString)
		if err != nil {
			return Profile{}, fmt.Errorf("[buttons] %w", err)
		}
		kind := DispatchKind(b.Action)
		if kind == "" {
			kind = None
		}
		p.Buttons = append(p.Buttons, ButtonConfig{
			Code:     code,
			Dispatch: Dispatch{Kind: kind, Stick: b.Stick, Macro: b.Macro},
		})
	}

	err = Validate(p)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

func convertMode(m fileMode, curves map[string]curve.Curve) (StickMode, error) {
	movement := Movement(m.Movement)
	if !SupportedMovements[movement] {
		return StickMode{}, fmt.Errorf("unsupported movement: %s", m.Movement)
	}

	c, ok := curves[m.Curve]
	if !ok {
		return StickMode{}, fmt.Errorf("curve \"%s\" not defined", m.Curve)
	}

	buttons, err := parseButtons(m.Buttons)
	if err != nil {
		return StickMode{}, err
	}
	key, err := optionalKey(m.Key)
	if err != nil {
		return StickMode{}, fmt.Errorf("key: %w", err)
	}
	chaseKey, err := optionalKey(m.ChaseKey)
	if err != nil {
		return StickMode{}, fmt.Errorf("chase_key: %w", err)
	}

	var mods []evdev.EvCode
	for _, name := range m.ChaseMods {
		mod, err := CodeFromString(name, evdev.KEYFromString)
		if err != nil {
			return StickMode{}, fmt.Errorf("chase_mods: %w", err)
		}
		mods = append(mods, mod)
	}

	threshold := 1
	if m.MotionThreshold != nil {
		threshold = *m.MotionThreshold
	}

	return StickMode{
		Name:            m.Name,
		Movement:        movement,
		CurveName:       m.Curve,
		Curve:           c,
		Buttons:         buttons,
		Key:             key,
		ChaseKey:        chaseKey,
		ChaseMods:       mods,
		MotionThreshold: threshold,
		FlipX:           m.FlipX,
		FlipY:           m.FlipY,
		LockX:           m.LockX,
		LockY:           m.LockY,
	}, nil
}
