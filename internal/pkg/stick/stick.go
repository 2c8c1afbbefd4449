// Package stick turns normalized deflection of one 2-axis stick into cursor, wheel and key activity.
package stick

import (
	"fmt"
	"math"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/hid"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

type Options struct {
	Motion profile.Motion
	Sleep  func(time.Duration) // time.Sleep when nil
	NoLogs bool
}

type Stick struct {
	Index int
	cfg   profile.Stick
	mode  int
	state State

	hid  *hid.Controller
	opts Options

	move   [2]float64 // sub-pixel remainder
	unwind [2]int     // net motion sent since activation
	scroll [2]int

	firstStep        bool
	buttonsActivated bool
}

func New(index int, cfg profile.Stick, controller *hid.Controller, opts Options) *Stick {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Stick{
		Index: index,
		cfg:   cfg,
		hid:   controller,
		opts:  opts,
	}
}

// InDeadzone reports whether both axes rest within dz.
func InDeadzone(x, y, dz float64) bool {
	return math.Abs(x) < dz && math.Abs(y) < dz
}

func (s *Stick) Name() string {
	return s.cfg.Name
}

// Axes returns indices of the horizontal and vertical axis.
func (s *Stick) Axes() (x, y int) {
	return s.cfg.X, s.cfg.Y
}

func (s *Stick) State() State {
	return s.state
}

func (s *Stick) Active() bool {
	return s.state == Active
}

func (s *Stick) Mode() profile.StickMode {
	return s.cfg.Modes[s.mode]
}

func (s *Stick) ModeIndex() int {
	return s.mode
}

func (s *Stick) ModeCount() int {
	return len(s.cfg.Modes)
}

func (s *Stick) Unwind() (x, y int) {
	return s.unwind[0], s.unwind[1]
}

func (s *Stick) ButtonsActivated() bool {
	return s.buttonsActivated
}

func (s *Stick) info(msg string, fields ...zap.Field) {
	if s.opts.NoLogs {
		return
	}
	fields = append(fields, zap.Int("stick", s.Index), zap.String("mode", s.Mode().Name))
	log.Info(msg, fields...)
}

// AdvanceMode cycles to the next mode. Ignored while the stick is moving.
func (s *Stick) AdvanceMode() bool {
	return s.SetMode(s.mode + 1)
}

// SetMode selects a mode, the index wraps around the mode list. Ignored while the stick is moving.
func (s *Stick) SetMode(idx int) bool {
	if s.state == Active {
		return false
	}
	n := len(s.cfg.Modes)
	s.mode = ((idx % n) + n) % n
	s.info("mode changed", logger.Action)
	return true
}

// Reconfigure swaps the stick configuration, the mode index is kept when still in range.
func (s *Stick) Reconfigure(cfg profile.Stick, motion profile.Motion) bool {
	if s.state == Active {
		return false
	}
	s.cfg = cfg
	s.opts.Motion = motion
	if s.mode >= len(cfg.Modes) {
		s.mode = 0
	}
	return true
}

func (s *Stick) clearMotion() {
	s.move = [2]float64{}
	s.unwind = [2]int{}
	s.scroll = [2]int{}
	s.firstStep = true
}

func (s *Stick) settle() {
	if s.opts.Motion.SettleTime > 0 {
		s.opts.Sleep(s.opts.Motion.SettleTime)
	}
}

// precede presses the mode key, then mouse buttons. It reports whether anything was pressed.
func (s *Stick) precede() bool {
	if s.buttonsActivated {
		return false
	}
	s.buttonsActivated = true

	mode := s.Mode()
	var pressed bool
	if mode.HasKey() {
		s.hid.KeyDown(mode.Key)
		pressed = true
	}
	if mode.Buttons.Any() {
		s.hid.Press(mode.Buttons)
		pressed = true
	}
	return pressed
}

// end releases what precede pressed, buttons first. It reports whether anything was released.
func (s *Stick) end() bool {
	if !s.buttonsActivated {
		return false
	}
	s.buttonsActivated = false

	mode := s.Mode()
	var released bool
	if mode.Buttons.Any() {
		s.hid.Release(mode.Buttons)
		released = true
	}
	if mode.HasKey() {
		s.hid.KeyUp(mode.Key)
		released = true
	}
	return released
}

// Activate starts a motion and immediately applies the first sample.
func (s *Stick) Activate(x, y float64) {
	if s.state == Active {
		return
	}
	s.clearMotion()
	s.state = Active
	s.info("motion started", zap.Float64("x", x), zap.Float64("y", y), logger.Motion)

	if s.precede() {
		s.settle()
	}
	s.Step(x, y)
}

// Deactivate ends a motion, returning the cursor to its origin when the mode unwinds.
func (s *Stick) Deactivate() {
	if s.state != Active {
		return
	}
	if s.end() {
		s.settle()
	}

	steps := 0
	if s.Mode().Movement.Unwinds() {
		steps = s.doUnwind()
	}
	s.info("motion finished", zap.Int("unwind_steps", steps), logger.Motion)

	s.buttonsActivated = false
	s.clearMotion()
	s.state = Idle
}

func shape(v float64, flip, lock bool) float64 {
	if lock {
		return 0
	}
	if flip {
		return -v
	}
	return v
}

// Step applies one tick worth of deflection.
func (s *Stick) Step(x, y float64) {
	if s.state != Active {
		return
	}
	mode := s.Mode()
	d := [2]float64{
		float64(mode.Curve.Sample(shape(x, mode.FlipX, mode.LockX))),
		float64(mode.Curve.Sample(shape(y, mode.FlipY, mode.LockY))),
	}

	switch mode.Movement {
	case profile.Scroll:
		s.stepScroll(d)
	case profile.Stutter:
		s.stepMove(d, mode.MotionThreshold)
		if s.beyond(s.opts.Motion.StutterStep) {
			s.info("stutter", zap.Int("unwind_x", s.unwind[0]), zap.Int("unwind_y", s.unwind[1]), logger.Motion)
			s.stutterBack()
		}
	case profile.Chase:
		s.stepMove(d, mode.MotionThreshold)
		if s.beyond(s.opts.Motion.ChaseThreshold) {
			s.chase()
			s.stutterBack()
		}
	default:
		s.stepMove(d, mode.MotionThreshold)
	}
	s.firstStep = false
}

func (s *Stick) beyond(limit int) bool {
	return abs(s.unwind[0]) >= limit || abs(s.unwind[1]) >= limit
}

func (s *Stick) stepMove(d [2]float64, threshold int) {
	s.move[0] += d[0]
	s.move[1] += d[1]

	t := float64(threshold)
	if math.Abs(s.move[0]) < t && math.Abs(s.move[1]) < t {
		return
	}

	dx, dy := int(math.Trunc(s.move[0])), int(math.Trunc(s.move[1]))
	s.move[0] -= float64(dx)
	s.move[1] -= float64(dy)
	s.unwind[0] += dx
	s.unwind[1] += dy
	s.hid.Move(dx, dy)
}

func (s *Stick) stepScroll(d [2]float64) {
	q := s.opts.Motion.ScrollQuantum

	if s.firstStep {
		// the first tick always produces a click so short flicks are not lost
		for i := range d {
			switch {
			case d[i] > 0:
				s.scroll[i] += q
			case d[i] < 0:
				s.scroll[i] -= q
			}
		}
	}

	var clicks [2]int
	for i := range d {
		s.scroll[i] += int(d[i])
		switch {
		case s.scroll[i] > q:
			s.scroll[i] -= q
			clicks[i] = 1
		case s.scroll[i] < -q:
			s.scroll[i] += q
			clicks[i] = -1
		}
	}
	s.hid.Scroll(clicks[1], clicks[0])
}

// stutterBack lets go, returns the cursor to the motion origin and grabs again.
func (s *Stick) stutterBack() {
	if s.end() {
		s.settle()
	}
	s.doUnwind()
	if s.precede() {
		s.settle()
	}
}

func (s *Stick) chase() {
	mode := s.Mode()
	s.info("chase", zap.Int("unwind_x", s.unwind[0]), zap.Int("unwind_y", s.unwind[1]), logger.Motion)

	for _, mod := range mode.ChaseMods {
		s.hid.KeyDown(mod)
	}
	s.hid.KeyDown(mode.ChaseKey)
	s.hid.KeyUp(mode.ChaseKey)
	for i := len(mode.ChaseMods) - 1; i >= 0; i-- {
		s.hid.KeyUp(mode.ChaseMods[i])
	}
}

// Bump handles the host reporting the cursor hit a screen edge: motion restarts from the origin.
// Only modes that keep an origin react to it.
func (s *Stick) Bump() bool {
	if s.state != Active {
		return false
	}
	switch s.Mode().Movement {
	case profile.Rewind, profile.Stutter, profile.Chase:
	default:
		return false
	}
	s.info("border bump", logger.Motion)
	s.stutterBack()
	return true
}

func unwindStep(accum, step int) int {
	switch {
	case accum > 0:
		return -min(accum, step)
	case accum < 0:
		return min(-accum, step)
	}
	return 0
}

// doUnwind moves the cursor back by the accumulated motion, returning the number of reports it took.
func (s *Stick) doUnwind() int {
	step := s.opts.Motion.UnwindStep
	if step < 1 || step > hid.MaxMove {
		step = hid.MaxMove
	}

	steps := 0
	for s.unwind[0] != 0 || s.unwind[1] != 0 {
		dx, dy := unwindStep(s.unwind[0], step), unwindStep(s.unwind[1], step)
		s.hid.Move(dx, dy)
		s.unwind[0] += dx
		s.unwind[1] += dy
		steps++
	}
	return steps
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Stick) String() string {
	return fmt.Sprintf("stick %d (%s) %s, mode %d/%d %s", s.Index, s.cfg.Name, s.state, s.mode+1, len(s.cfg.Modes), s.Mode().Name)
}
