package hid

import (
	"fmt"
	"sync"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/holoplot/go-evdev"
)

type OpKind string

const (
	OpMove       OpKind = "move"
	OpButtons    OpKind = "buttons"
	OpScroll     OpKind = "scroll"
	OpKeyPress   OpKind = "key_press"
	OpKeyRelease OpKind = "key_release"
	OpJoystick   OpKind = "joystick"
)

type Op struct {
	Kind OpKind

	DX, DY               int8
	Left, Middle, Right  bool
	Vertical, Horizontal int8
	Key                  evdev.EvCode
	Axes                 []uint16
}

func (o Op) String() string {
	switch o.Kind {
	case OpMove:
		return fmt.Sprintf("move %d %d", o.DX, o.DY)
	case OpButtons:
		return fmt.Sprintf("buttons %t %t %t", o.Left, o.Middle, o.Right)
	case OpScroll:
		return fmt.Sprintf("scroll %d %d", o.Vertical, o.Horizontal)
	case OpKeyPress, OpKeyRelease:
		return fmt.Sprintf("%s %s", o.Kind, evdev.CodeName(evdev.EV_KEY, o.Key))
	case OpJoystick:
		return fmt.Sprintf("joystick %v", o.Axes)
	}
	return string(o.Kind)
}

// Recorder is a Sink that keeps everything in memory, optionally logging each report.
type Recorder struct {
	mu  sync.Mutex
	ops []Op

	verbose bool
	limit   int
}

func NewRecorder(verbose bool) *Recorder {
	return &Recorder{verbose: verbose}
}

// Limit keeps at most n of the latest ops, 0 keeps everything.
func (r *Recorder) Limit(n int) *Recorder {
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
	return r
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	if r.limit > 0 && len(r.ops) > r.limit {
		r.ops = append(r.ops[:0], r.ops[len(r.ops)-r.limit:]...)
	}
	r.mu.Unlock()

	if r.verbose && op.Kind != OpJoystick {
		log.Info(op.String(), logger.Motion)
	}
}

func (r *Recorder) Move(dx, dy int8) {
	r.add(Op{Kind: OpMove, DX: dx, DY: dy})
}

func (r *Recorder) SetButtons(left, middle, right bool) {
	r.add(Op{Kind: OpButtons, Left: left, Middle: middle, Right: right})
}

func (r *Recorder) Scroll(vertical, horizontal int8) {
	r.add(Op{Kind: OpScroll, Vertical: vertical, Horizontal: horizontal})
}

func (r *Recorder) KeyPress(key evdev.EvCode) {
	r.add(Op{Kind: OpKeyPress, Key: key})
}

func (r *Recorder) KeyRelease(key evdev.EvCode) {
	r.add(Op{Kind: OpKeyRelease, Key: key})
}

func (r *Recorder) Joystick(axes []uint16) {
	cp := make([]uint16, len(axes))
	copy(cp, axes)
	r.add(Op{Kind: OpJoystick, Axes: cp})
}

func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Kinds returns recorded ops of the given kinds, in order.
func (r *Recorder) Kinds(kinds ...OpKind) []Op {
	var out []Op
	for _, op := range r.Ops() {
		for _, k := range kinds {
			if op.Kind == k {
				out = append(out, op)
				break
			}
		}
	}
	return out
}

// Position sums every recorded move.
func (r *Recorder) Position() (x, y int) {
	for _, op := range r.Kinds(OpMove) {
		x += int(op.DX)
		y += int(op.DY)
	}
	return x, y
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}
