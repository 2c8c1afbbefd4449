package input

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

const maxPendingEdges = 64

// Evdev reads a single event device in the background, Read returns a snapshot of its state.
type Evdev struct {
	dev  *evdev.InputDevice
	path string
	name string
	grab bool

	mu      sync.Mutex
	mapping Mapping
	axes    map[evdev.EvCode]int
	edges   []Edge
	dropped int
}

// Open opens the device at path. Current axis values are read immediately so the first
// Read already has live samples.
func Open(path string, m Mapping, grab bool) (*Evdev, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s failed: %w", path, err)
	}

	name, _ := dev.Name()
	name = strings.Trim(name, "\x00")

	e := &Evdev{
		dev:     dev,
		path:    path,
		name:    name,
		grab:    grab,
		mapping: m,
		axes:    make(map[evdev.EvCode]int),
	}

	infos, err := dev.AbsInfos()
	if err != nil {
		log.Info(fmt.Sprintf("reading initial axis values failed: %v", err), zap.String("device", path), logger.Warning)
	}
	for code, info := range infos {
		e.axes[code] = int(info.Value)
	}

	return e, nil
}

func (e *Evdev) Name() string {
	return e.name
}

func (e *Evdev) SetMapping(m Mapping) {
	e.mu.Lock()
	e.mapping = m
	e.edges = e.edges[:0]
	e.mu.Unlock()
}

func (e *Evdev) Read(axes []int) []Edge {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range axes {
		if i < len(e.mapping.Axes) {
			axes[i] = e.axes[e.mapping.Axes[i]]
		}
	}

	if e.dropped > 0 {
		log.Info("button edges dropped", zap.Int("count", e.dropped), logger.Warning)
		e.dropped = 0
	}

	if len(e.edges) == 0 {
		return nil
	}
	edges := make([]Edge, len(e.edges))
	copy(edges, e.edges)
	e.edges = e.edges[:0]
	return edges
}

func (e *Evdev) handle(ev *evdev.InputEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case evdev.EV_ABS:
		e.axes[ev.Code] = int(ev.Value)
	case evdev.EV_KEY:
		if ev.Value == 2 { // repeat
			return
		}
		i, ok := e.mapping.button(ev.Code)
		if !ok {
			log.Info("unmapped button",
				zap.String("code", evdev.CodeName(ev.Type, ev.Code)), zap.Int32("value", ev.Value), logger.Debug,
			)
			return
		}
		if len(e.edges) >= maxPendingEdges {
			e.dropped++
			return
		}
		e.edges = append(e.edges, Edge{Button: i, Pressed: ev.Value == 1})
	}
}

// Run reads events until ctx is done or the device fails.
func (e *Evdev) Run(ctx context.Context) error {
	if e.grab {
		err := e.dev.Grab()
		if err != nil {
			return fmt.Errorf("grabbing %s failed: %w", e.path, err)
		}
		log.Info("Grabbing device for exclusive usage", zap.String("device", e.path), zap.String("name", e.name), logger.Debug)
	}

	go func() {
		<-ctx.Done()
		if e.grab {
			_ = e.dev.Ungrab()
		}
		_ = e.dev.Close()
	}()

	log.Info("Reading input events", zap.String("device", e.path), zap.String("name", e.name), logger.Debug)
	for {
		ev, err := e.dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Reading input events finished", zap.String("device", e.path), logger.Debug)
				return nil
			}
			return fmt.Errorf("reading %s failed: %w", e.path, err)
		}
		e.handle(ev)
	}
}
