package main

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/d2r2/go-hd44780"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/gethiox/orbitrat/internal/pkg/status"
	"github.com/go-ini/ini"
)

type Orbitrat struct {
	TickRate   int
	Interval   time.Duration
	Device     string
	DeviceName string
	Grab       bool
	UinputName string
	Profile    string
}

type Diag struct {
	Enabled   bool
	Serial    string
	Websocket string
}

type HostLink struct {
	Socket string
}

type Config struct {
	Orbitrat Orbitrat
	Diag     Diag
	HostLink HostLink
	Screen   status.ScreenConfig
	OpenRGB  status.OpenRGBConfig
}

func DefaultConfig() Config {
	return Config{
		Orbitrat: Orbitrat{
			TickRate:   100,
			Interval:   time.Second / 100,
			DeviceName: "Arduino LLC Arduino Leonardo",
			UinputName: "orbitrat",
		},
		Diag: Diag{
			Serial: "-",
		},
		Screen: status.ScreenConfig{
			LcdType: hd44780.LCD_16x2,
			Bus:     1,
			Address: 0x27,
		},
		OpenRGB: status.OpenRGBConfig{
			Host: "localhost",
			Port: 6742,
		},
	}
}

// LoadConfig reads the daemon configuration, a missing file gives the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info(fmt.Sprintf("config \"%s\" not found, using defaults", path), logger.Info)
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("reading config failed: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config failed: %w", err)
	}

	c := DefaultConfig()

	// [orbitrat]
	o := cfg.Section("orbitrat")
	if o.HasKey("tick_rate") {
		i, err := o.Key("tick_rate").Int()
		if err != nil || i < 1 || i > 10000 {
			return Config{}, fmt.Errorf("[orbitrat] invalid tick_rate: %q", o.Key("tick_rate").String())
		}
		c.Orbitrat.TickRate = i
		c.Orbitrat.Interval = time.Second / time.Duration(i)
	}
	c.Orbitrat.Device = o.Key("device").MustString(c.Orbitrat.Device)
	if o.HasKey("device_name") {
		c.Orbitrat.DeviceName = o.Key("device_name").String()
	}
	c.Orbitrat.Grab, err = boolKey(o, "grab", c.Orbitrat.Grab)
	if err != nil {
		return Config{}, err
	}
	c.Orbitrat.UinputName = o.Key("uinput_name").MustString(c.Orbitrat.UinputName)
	c.Orbitrat.Profile = o.Key("profile").MustString(c.Orbitrat.Profile)

	// [diag]
	d := cfg.Section("diag")
	c.Diag.Enabled, err = boolKey(d, "enabled", c.Diag.Enabled)
	if err != nil {
		return Config{}, err
	}
	if d.HasKey("serial") {
		c.Diag.Serial = d.Key("serial").String()
	}
	c.Diag.Websocket = d.Key("websocket").String()

	// [hostlink]
	c.HostLink.Socket = cfg.Section("hostlink").Key("socket").String()

	// [screen]
	s := cfg.Section("screen")
	c.Screen.Enabled, err = boolKey(s, "enabled", c.Screen.Enabled)
	if err != nil {
		return Config{}, err
	}
	switch t := s.Key("type").MustString("16x2"); t {
	case "16x2":
		c.Screen.LcdType = hd44780.LCD_16x2
	case "20x4":
		c.Screen.LcdType = hd44780.LCD_20x4
	default:
		return Config{}, fmt.Errorf("[screen] unsupported type: %q", t)
	}
	if s.HasKey("bus") {
		i, err := s.Key("bus").Int()
		if err != nil {
			return Config{}, fmt.Errorf("[screen] invalid bus: %w", err)
		}
		c.Screen.Bus = i
	}
	if s.HasKey("address") {
		a, err := strconv.ParseUint(s.Key("address").String(), 0, 8)
		if err != nil {
			return Config{}, fmt.Errorf("[screen] invalid address: %w", err)
		}
		c.Screen.Address = uint8(a)
	}

	// [openrgb]
	r := cfg.Section("openrgb")
	c.OpenRGB.Enabled, err = boolKey(r, "enabled", c.OpenRGB.Enabled)
	if err != nil {
		return Config{}, err
	}
	c.OpenRGB.Host = r.Key("host").MustString(c.OpenRGB.Host)
	if r.HasKey("port") {
		i, err := r.Key("port").Int()
		if err != nil || i < 1 || i > 65535 {
			return Config{}, fmt.Errorf("[openrgb] invalid port: %q", r.Key("port").String())
		}
		c.OpenRGB.Port = i
	}
	if r.HasKey("controller") {
		i, err := r.Key("controller").Int()
		if err != nil || i < 0 {
			return Config{}, fmt.Errorf("[openrgb] invalid controller: %q", r.Key("controller").String())
		}
		c.OpenRGB.Controller = i
	}

	return c, nil
}

func boolKey(s *ini.Section, name string, def bool) (bool, error) {
	if !s.HasKey(name) {
		return def, nil
	}
	b, err := s.Key(name).Bool()
	if err != nil {
		return false, fmt.Errorf("[%s] invalid %s: %w", s.Name(), name, err)
	}
	return b, nil
}

//go:embed orbitrat-config/orbitrat.config
//go:embed orbitrat-config/profiles/*
var templateConfig embed.FS

const configDir = "orbitrat-config"

// createConfigDirectoryIfNeeded writes the bundled config tree into the working directory.
// Existing files are never overwritten.
func createConfigDirectoryIfNeeded() error {
	return fs.WalkDir(templateConfig, configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			err := os.MkdirAll(path, 0o777)
			if err != nil {
				return fmt.Errorf("cannot create \"%s\" directory: %w", path, err)
			}
			return nil
		}

		data, err := fs.ReadFile(templateConfig, path)
		if err != nil {
			return fmt.Errorf("cannot read \"%s\" template file: %w", path, err)
		}

		existing, err := os.ReadFile(path)
		if err == nil {
			if !bytes.Equal(existing, data) {
				log.Info(fmt.Sprintf("File \"%s\" differs from the bundled one, keeping it", path), logger.Debug)
			}
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot read \"%s\" file: %w", path, err)
		}

		err = os.WriteFile(path, data, 0o666)
		if err != nil {
			return fmt.Errorf("cannot write data into \"%s\" file: %w", path, err)
		}
		log.Info(fmt.Sprintf("Created \"%s\" file", path), logger.Debug)
		return nil
	})
}
