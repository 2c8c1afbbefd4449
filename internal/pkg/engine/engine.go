// Package engine runs the control loop: input is normalized, one stick at a time drives the HID
// controller and buttons are dispatched according to the loaded profile.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/axis"
	"github.com/gethiox/orbitrat/internal/pkg/diag"
	"github.com/gethiox/orbitrat/internal/pkg/hid"
	"github.com/gethiox/orbitrat/internal/pkg/hostlink"
	"github.com/gethiox/orbitrat/internal/pkg/input"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/gethiox/orbitrat/internal/pkg/status"
	"github.com/gethiox/orbitrat/internal/pkg/stick"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// NoStick is the active stick index while every stick rests.
const NoStick = -1

type Options struct {
	Sleep  func(time.Duration) // time.Sleep when nil
	NoLogs bool

	Diag    *diag.Reporter        // optional
	Status  chan<- status.Status  // optional, published without blocking
	Packets <-chan hostlink.Packet // optional
	Reloads <-chan profile.Profile // optional, applied once every stick is idle
}

type Engine struct {
	profile profile.Profile
	hid     *hid.Controller
	opts    Options

	axes   []*axis.Axis
	sticks []*stick.Stick
	active int

	raw      []int
	norm     []float64
	joystick []uint16

	macros     map[int]profile.Macro // held, by button index
	pending    *profile.Profile
	layout     status.Layout
	calibrated bool

	last      status.Status
	published bool

	source input.Source
}

func New(p profile.Profile, controller *hid.Controller, opts Options) (*Engine, error) {
	err := profile.Validate(p)
	if err != nil {
		return nil, fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	e := &Engine{
		hid:    controller,
		opts:   opts,
		active: NoStick,
		macros: make(map[int]profile.Macro),
	}
	e.load(p)
	return e, nil
}

func (e *Engine) info(msg string, fields ...zap.Field) {
	if e.opts.NoLogs {
		return
	}
	log.Info(msg, fields...)
}

func (e *Engine) stickOptions(m profile.Motion) stick.Options {
	return stick.Options{Motion: m, Sleep: e.opts.Sleep, NoLogs: e.opts.NoLogs}
}

// load installs p. Calibration of an axis survives when its code is unchanged.
func (e *Engine) load(p profile.Profile) {
	axes := make([]*axis.Axis, len(p.Axes))
	for i, ac := range p.Axes {
		cal := ac.Calibration
		if i < len(e.axes) && i < len(e.profile.Axes) && e.profile.Axes[i].Code == ac.Code {
			cal = e.axes[i].Bounds()
		}
		axes[i] = axis.New(cal, ac.Invert, p.Motion.AutoCalibrate)
	}

	if len(e.sticks) == len(p.Sticks) {
		for i, cfg := range p.Sticks {
			e.sticks[i].Reconfigure(cfg, p.Motion)
		}
	} else {
		e.sticks = make([]*stick.Stick, len(p.Sticks))
		for i, cfg := range p.Sticks {
			e.sticks[i] = stick.New(i, cfg, e.hid, e.stickOptions(p.Motion))
		}
	}

	e.profile = p
	e.axes = axes
	e.raw = make([]int, len(axes))
	e.norm = make([]float64, len(axes))
	e.joystick = make([]uint16, min(len(axes), len(hid.JoystickAxes)))

	if e.opts.Diag != nil {
		e.opts.Diag.SetInterval(p.Motion.ReportEvery)
	}
	if m, ok := e.source.(input.Mapper); ok {
		m.SetMapping(input.MappingFor(p))
	}
}

func (e *Engine) Profile() profile.Profile {
	return e.profile
}

// Active returns the index of the moving stick or NoStick.
func (e *Engine) Active() int {
	return e.active
}

func (e *Engine) Stick(i int) *stick.Stick {
	return e.sticks[i]
}

func (e *Engine) Axis(i int) *axis.Axis {
	return e.axes[i]
}

// Reload queues p, it replaces the current profile as soon as no stick is moving.
func (e *Engine) Reload(p profile.Profile) {
	e.pending = &p
	e.applyPending()
}

func (e *Engine) applyPending() {
	if e.pending == nil || e.active != NoStick {
		return
	}
	p := *e.pending
	e.pending = nil

	e.releaseMacros()
	e.load(p)
	e.info("profile applied", zap.String("profile", p.Name), logger.Info)
}

func (e *Engine) releaseMacros() {
	for i, m := range e.macros {
		e.hid.KeyUp(m.Key)
		e.hid.Release(m.Buttons)
		delete(e.macros, i)
	}
}

func (e *Engine) drain() {
	for {
		select {
		case p, ok := <-e.opts.Packets:
			if !ok {
				e.opts.Packets = nil
				continue
			}
			e.HandlePacket(p)
			continue
		case p, ok := <-e.opts.Reloads:
			if !ok {
				e.opts.Reloads = nil
				continue
			}
			e.pending = &p
			continue
		default:
		}
		break
	}
	e.applyPending()
}

// HandlePacket applies a packet received from the host.
func (e *Engine) HandlePacket(p hostlink.Packet) {
	switch p.Type {
	case hostlink.Hello:
		e.info("host connected", logger.Action)
	case hostlink.Layout:
		e.layout = status.Layout{Width: p.Width, Height: p.Height}
		e.info("host layout", zap.Uint16("width", p.Width), zap.Uint16("height", p.Height), logger.Action)
	case hostlink.SwitchModes:
		i := int(p.Stick)
		if i >= len(e.sticks) {
			e.info("mode switch for unknown stick", zap.Int("stick", i), logger.Warning)
			return
		}
		if !e.sticks[i].SetMode(int(p.Mode)) {
			e.info("mode switch ignored, stick is moving", zap.Int("stick", i), logger.Action)
		}
	case hostlink.BorderBump:
		if e.active == NoStick {
			return
		}
		e.sticks[e.active].Bump()
	}
}

func (e *Engine) dispatch(edge input.Edge) {
	if e.opts.Diag != nil {
		e.opts.Diag.Button(edge.Button, edge.Pressed)
	}
	if edge.Button < 0 || edge.Button >= len(e.profile.Buttons) {
		return
	}
	d := e.profile.Buttons[edge.Button].Dispatch

	switch d.Kind {
	case profile.AdvanceMode:
		if !edge.Pressed {
			return
		}
		if !e.sticks[d.Stick].AdvanceMode() {
			e.info("mode change ignored, stick is moving", zap.Int("stick", d.Stick), logger.Action)
		}
	case profile.RunMacro:
		if edge.Pressed {
			if _, held := e.macros[edge.Button]; held {
				return
			}
			m := e.profile.Macros[d.Macro]
			e.macros[edge.Button] = m
			e.hid.KeyDown(m.Key)
			if m.Buttons.Any() {
				e.hid.Press(m.Buttons)
			}
			e.info("macro", zap.String("macro", d.Macro), logger.Action)
			return
		}
		m, held := e.macros[edge.Button]
		if !held {
			return
		}
		delete(e.macros, edge.Button)
		if m.Buttons.Any() {
			e.hid.Release(m.Buttons)
		}
		e.hid.KeyUp(m.Key)
	}
}

func (e *Engine) arbitrate() {
	dz := e.profile.Motion.Deadzone

	if e.active != NoStick {
		s := e.sticks[e.active]
		x, y := s.Axes()
		if stick.InDeadzone(e.norm[x], e.norm[y], dz) {
			s.Deactivate()
			e.active = NoStick
			return
		}
		s.Step(e.norm[x], e.norm[y])
		return
	}

	for i, s := range e.sticks {
		x, y := s.Axes()
		if stick.InDeadzone(e.norm[x], e.norm[y], dz) {
			continue
		}
		e.active = i
		s.Activate(e.norm[x], e.norm[y])
		return
	}
}

// Status returns the current snapshot.
func (e *Engine) Status() status.Status {
	s := status.Status{
		ActiveStick: e.active,
		Layout:      e.layout,
	}
	for _, st := range e.sticks {
		s.Sticks = append(s.Sticks, st.Name())
		s.Modes = append(s.Modes, st.Mode().Name)
		s.ModeIndex = append(s.ModeIndex, st.ModeIndex())
		s.ModeCount = append(s.ModeCount, st.ModeCount())
	}
	return s
}

func (e *Engine) publish() {
	if e.opts.Status == nil {
		return
	}
	s := e.Status()
	if e.published && s.Equal(e.last) {
		return
	}
	select {
	case e.opts.Status <- s:
		e.last = s.Clone()
		e.published = true
	default:
	}
}

// Tick runs one iteration of the control loop.
func (e *Engine) Tick(source input.Source) {
	e.drain()

	edges := source.Read(e.raw)

	if !e.calibrated {
		e.calibrated = true
		if e.profile.Motion.CalibrateOnStartup {
			for i, a := range e.axes {
				a.Calibrate(e.raw[i])
			}
			e.info("axes calibrated", zap.Ints("centers", e.raw), logger.Info)
		}
	}

	for _, edge := range edges {
		e.dispatch(edge)
	}

	for i, a := range e.axes {
		e.norm[i] = a.Normalize(e.raw[i])
	}

	if e.profile.Motion.SendJoystick {
		for i := range e.joystick {
			e.joystick[i] = axis.ToJoystick(e.norm[i], axis.JoystickMax)
		}
		e.hid.Joystick(e.joystick)
	}

	e.arbitrate()

	if e.opts.Diag != nil {
		e.opts.Diag.Tick(e.raw, e.norm)
	}

	e.publish()
}

// Run ticks every interval until ctx is done.
func (e *Engine) Run(ctx context.Context, source input.Source, interval time.Duration) error {
	e.source = source
	if m, ok := source.(input.Mapper); ok {
		m.SetMapping(input.MappingFor(e.profile))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.info("engine started", zap.String("profile", e.profile.Name), zap.Duration("interval", interval), logger.Info)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Tick(source)
		}
	}
}

// Close finishes any motion in progress and releases everything still held.
func (e *Engine) Close() {
	if e.active != NoStick {
		e.sticks[e.active].Deactivate()
		e.active = NoStick
	}
	e.releaseMacros()
	e.hid.ReleaseAll()
	e.publish()
	e.info("engine stopped", logger.Info)
}
