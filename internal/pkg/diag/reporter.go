// Package diag emits the line-based diagnostic stream used for calibration.
//
//	AXES a0 a1 a2 a3   raw samples
//	NORM n0 n1 n2 n3   normalized samples, in percent
//	BP i / BR i        button i pressed / released
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
)

var log = logger.GetLogger()

// Broadcaster receives every line written by a Reporter.
type Broadcaster interface {
	Broadcast(line []byte)
}

type Reporter struct {
	w     io.Writer
	hub   Broadcaster
	every int
	tick  int

	failed bool
}

// NewReporter writes axis reports every `every` ticks (0 disables them), button lines are always written.
// w and hub may be nil.
func NewReporter(w io.Writer, hub Broadcaster, every int) *Reporter {
	return &Reporter{w: w, hub: hub, every: every}
}

func AxesLine(raw []int) string {
	var b strings.Builder
	b.WriteString("AXES")
	for _, v := range raw {
		fmt.Fprintf(&b, " %d", v)
	}
	b.WriteByte('\n')
	return b.String()
}

func NormLine(norm []float64) string {
	var b strings.Builder
	b.WriteString("NORM")
	for _, v := range norm {
		fmt.Fprintf(&b, " %d", int(v*100))
	}
	b.WriteByte('\n')
	return b.String()
}

func ButtonLine(button int, pressed bool) string {
	if pressed {
		return fmt.Sprintf("BP %d\n", button)
	}
	return fmt.Sprintf("BR %d\n", button)
}

func (r *Reporter) emit(line string) {
	if r.w != nil {
		_, err := io.WriteString(r.w, line)
		if err != nil && !r.failed {
			r.failed = true
			log.Info(fmt.Sprintf("diagnostic write failed: %v", err), logger.Warning)
		} else if err == nil {
			r.failed = false
		}
	}
	if r.hub != nil {
		r.hub.Broadcast([]byte(line))
	}
}

// Tick is called once per engine tick and reports axes when due.
func (r *Reporter) Tick(raw []int, norm []float64) {
	if r.every <= 0 {
		return
	}
	r.tick++
	if r.tick < r.every {
		return
	}
	r.tick = 0
	r.emit(AxesLine(raw))
	r.emit(NormLine(norm))
}

func (r *Reporter) Button(button int, pressed bool) {
	r.emit(ButtonLine(button, pressed))
}

// SetInterval changes the report interval, used on profile reload.
func (r *Reporter) SetInterval(every int) {
	r.every = every
	r.tick = 0
}
