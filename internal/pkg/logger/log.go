package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Messages carries every encoded log entry, one JSON document per message.
// Entries are dropped when nobody drains it, the control loop never waits on logging.
var Messages = make(chan []byte, 256)

const (
	ErrorLvl   = 0
	WarningLvl = 1
	InfoLvl    = 2
	ActionLvl  = 3 // mode changes, macros, host-link packets
	MotionLvl  = 4 // stick activation, unwind, stutter, chase
	AnalogLvl  = 5 // raw and normalized axis values

	DebugLvl = 378
)

var (
	Error   = zap.Int("level", ErrorLvl)
	Warning = zap.Int("level", WarningLvl)
	Info    = zap.Int("level", InfoLvl)
	Action  = zap.Int("level", ActionLvl)
	Motion  = zap.Int("level", MotionLvl)
	Analog  = zap.Int("level", AnalogLvl)

	Debug = zap.Int("level", DebugLvl)
)

type chanWriter struct {
	sync.Mutex
}

func (w *chanWriter) Write(p []byte) (n int, err error) {
	w.Lock()
	var newSlice = make([]byte, len(p))
	copy(newSlice, p)
	select {
	case Messages <- newSlice:
	default:
	}
	w.Unlock()
	return len(p), nil
}

func (w *chanWriter) Sync() error {
	return nil
}

var (
	once   sync.Once
	shared *zap.Logger
)

// GetLogger returns the process-wide logger, every package shares the same core.
func GetLogger() *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionEncoderConfig()
		cfg.SkipLineEnding = true
		cfg.EncodeTime = zapcore.EpochNanosTimeEncoder
		cfg.LevelKey = ""
		encoder := zapcore.NewJSONEncoder(cfg)
		noSync := zapcore.Lock(&chanWriter{})

		shared = zap.New(
			zapcore.NewCore(encoder, noSync, zap.DebugLevel),
			zap.AddCaller(),
		)
	})
	return shared
}
