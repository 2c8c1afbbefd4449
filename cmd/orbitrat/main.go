package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/diag"
	"github.com/gethiox/orbitrat/internal/pkg/engine"
	"github.com/gethiox/orbitrat/internal/pkg/hid"
	"github.com/gethiox/orbitrat/internal/pkg/hostlink"
	"github.com/gethiox/orbitrat/internal/pkg/input"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/gethiox/orbitrat/internal/pkg/status"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetLogger()

var (
	configPath  = pflag.String("config", configDir+"/orbitrat.config", "daemon configuration file")
	profilePath = pflag.String("profile", "", "stick profile (.toml, .yaml), overrides the one set in config")
	grab        = pflag.Bool("grab", false, "grab input device for exclusive usage")
	dryRun      = pflag.Bool("dry-run", false, "don't create a virtual device, log HID reports instead")
	nocolor     = pflag.Bool("nocolor", false, "disable color")
	silent      = pflag.Bool("silent", false, "no output logging")
	logLevel    = pflag.Int("loglevel", 1,
		"logging level, each level enables additional information class (0-4, default: 1)\n"+
			"0: general info (eg. device and profile status)\n"+
			"1: actions (mode changes, macros, host packets)\n"+
			"2: motion (stick activation, unwind, stutter, chase)\n"+
			"3: analog values\n"+
			"4: debug",
	)
)

func FanOut[T any](input <-chan T) (<-chan T, <-chan T) {
	size := cap(input)
	if size == 0 {
		size = 1
	}
	var output1 = make(chan T, size)
	var output2 = make(chan T, size)

	go func() {
		// a lagging consumer misses values instead of stalling the other one
		for v := range input {
			select {
			case output1 <- v:
			default:
			}
			select {
			case output2 <- v:
			default:
			}
		}
		close(output1)
		close(output2)
	}()
	return output1, output2
}

func drain[T any](c <-chan T) {
	go func() {
		for range c {
		}
	}()
}

// printLogs renders log entries on stdout until done is closed, then flushes what is left.
func printLogs(done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)

	au := aurora.NewAurora(!*nocolor)
	level := consoleLevel(*logLevel)

	show := func(data []byte) {
		if *silent {
			return
		}
		msg, err := unpack(data)
		if err != nil {
			fmt.Printf("%s\n", string(data))
			return
		}
		m := prepareString(msg, au, level)
		if m != "" {
			fmt.Printf("%s\n", m)
		}
	}

	for {
		select {
		case data := <-logger.Messages:
			show(data)
		case <-done:
			for {
				select {
				case data := <-logger.Messages:
					show(data)
				default:
					return
				}
			}
		}
	}
}

// optional runs fn, a failure is logged and doesn't stop the daemon.
func optional(name string, fn func() error) func() error {
	return func() error {
		err := fn()
		if err != nil {
			log.Info(fmt.Sprintf("%s stopped: %v", name, err), logger.Warning)
		}
		return nil
	}
}

func loadProfile(path string) (profile.Profile, error) {
	if path == "" {
		log.Info("no profile file set, using the built-in one", logger.Info)
		return profile.Default(), nil
	}
	p, err := profile.Load(path)
	if err != nil {
		return profile.Profile{}, err
	}
	log.Info("profile loaded", zap.String("profile", p.Name), zap.String("path", path), logger.Info)
	return p, nil
}

func openDiagOutput(serial string) (io.Writer, func(), error) {
	switch serial {
	case "":
		return nil, func() {}, nil
	case "-":
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(serial, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening diagnostic output failed: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func watchProfile(ctx context.Context, path string, reloads chan profile.Profile) error {
	changes, err := profile.Watch(ctx, path)
	if err != nil {
		return err
	}

	for range changes {
		p, err := profile.Load(path)
		if err != nil {
			log.Info(fmt.Sprintf("profile reload failed: %v", err), zap.String("path", path), logger.Warning)
			continue
		}
		// only the latest version matters
		select {
		case <-reloads:
		default:
		}
		reloads <- p
		log.Info("profile reloaded, waiting for sticks to rest", zap.String("profile", p.Name), logger.Info)
	}
	return nil
}

func run() error {
	err := createConfigDirectoryIfNeeded()
	if err != nil {
		log.Info(fmt.Sprintf("config generation failed: %v", err), logger.Warning)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("config: %+v", cfg), logger.Debug)

	path := cfg.Orbitrat.Profile
	if *profilePath != "" {
		path = *profilePath
	}
	p, err := loadProfile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// output
	var sink hid.Sink
	if *dryRun {
		sink = hid.NewRecorder(true).Limit(1024)
		log.Info("dry run, HID reports are only logged", logger.Info)
	} else {
		u, err := hid.NewUinput(cfg.Orbitrat.UinputName)
		if err != nil {
			return err
		}
		defer u.Close()
		sink = u
	}
	controller := hid.NewController(sink)

	// input
	device := cfg.Orbitrat.Device
	if device == "" {
		device, err = input.FindDevice(cfg.Orbitrat.DeviceName)
		if err != nil {
			return err
		}
	}
	src, err := input.Open(device, input.MappingFor(p), cfg.Orbitrat.Grab || *grab)
	if err != nil {
		return err
	}
	log.Info("input device opened", zap.String("device", device), zap.String("name", src.Name()), logger.Info)
	g.Go(func() error {
		return src.Run(ctx)
	})

	// diagnostics
	var reporter *diag.Reporter
	if cfg.Diag.Enabled {
		w, closeOutput, err := openDiagOutput(cfg.Diag.Serial)
		if err != nil {
			return err
		}
		defer closeOutput()

		var hub diag.Broadcaster
		if cfg.Diag.Websocket != "" {
			h := diag.NewHub()
			hub = h
			g.Go(optional("diagnostic server", func() error {
				return diag.Serve(ctx, cfg.Diag.Websocket, h)
			}))
		}
		reporter = diag.NewReporter(w, hub, p.Motion.ReportEvery)
	}

	// host link
	var packets <-chan hostlink.Packet
	if cfg.HostLink.Socket != "" {
		l, err := hostlink.Listen(cfg.HostLink.Socket, 16)
		if err != nil {
			log.Info(fmt.Sprintf("host link disabled: %v", err), logger.Warning)
		} else {
			packets = l.Packets()
			g.Go(optional("host link", func() error {
				return l.Serve(ctx)
			}))
		}
	}

	// indicators
	var statuses chan status.Status
	if cfg.Screen.Enabled || cfg.OpenRGB.Enabled {
		statuses = make(chan status.Status, 4)
		lcd, rgb := FanOut[status.Status](statuses)

		if cfg.Screen.Enabled {
			g.Go(optional("display", func() error {
				defer drain(lcd)
				return status.HandleLCD(ctx, cfg.Screen, lcd)
			}))
		} else {
			drain(lcd)
		}

		if cfg.OpenRGB.Enabled {
			g.Go(optional("OpenRGB", func() error {
				defer drain(rgb)
				return status.HandleOpenRGB(ctx, cfg.OpenRGB, rgb)
			}))
		} else {
			drain(rgb)
		}
	}

	// profile reload
	reloads := make(chan profile.Profile, 1)
	if path != "" {
		g.Go(optional("profile watcher", func() error {
			return watchProfile(ctx, path, reloads)
		}))
	}

	e, err := engine.New(p, controller, engine.Options{
		Diag:    reporter,
		Status:  statuses,
		Packets: packets,
		Reloads: reloads,
	})
	if err != nil {
		return err
	}

	g.Go(func() error {
		err := e.Run(ctx, src, cfg.Orbitrat.Interval)
		e.Close()
		if statuses != nil {
			close(statuses)
		}
		return err
	})

	return g.Wait()
}

func main() {
	pflag.Parse()

	done := make(chan struct{})
	finished := make(chan struct{})
	go printLogs(done, finished)

	err := run()
	if err != nil {
		log.Info(fmt.Sprintf("orbitrat failed: %v", err), logger.Error)
	}

	// give goroutines still winding down a moment to log
	time.Sleep(50 * time.Millisecond)
	close(done)
	<-finished

	if err != nil {
		os.Exit(1)
	}
}
