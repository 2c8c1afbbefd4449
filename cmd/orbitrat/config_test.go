package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/d2r2/go-hd44780"
	"github.com/gethiox/orbitrat/internal/pkg/profile"
	"github.com/stretchr/testify/assert"
)

func TestBundledConfig(t *testing.T) {
	c, err := LoadConfig("orbitrat-config/orbitrat.config")
	assert.Equal(t, nil, err)

	assert.Equal(t, 100, c.Orbitrat.TickRate)
	assert.Equal(t, 10*time.Millisecond, c.Orbitrat.Interval)
	assert.Equal(t, "", c.Orbitrat.Device)
	assert.Equal(t, "Arduino LLC Arduino Leonardo", c.Orbitrat.DeviceName)
	assert.Equal(t, false, c.Orbitrat.Grab)
	assert.Equal(t, "orbitrat", c.Orbitrat.UinputName)
	assert.Equal(t, "orbitrat-config/profiles/default.toml", c.Orbitrat.Profile)

	assert.Equal(t, Diag{Enabled: false, Serial: "-", Websocket: "127.0.0.1:8311"}, c.Diag)
	assert.Equal(t, "/tmp/orbitrat.sock", c.HostLink.Socket)

	assert.Equal(t, false, c.Screen.Enabled)
	assert.Equal(t, hd44780.LcdType(hd44780.LCD_16x2), c.Screen.LcdType)
	assert.Equal(t, 1, c.Screen.Bus)
	assert.Equal(t, uint8(0x27), c.Screen.Address)

	assert.Equal(t, "localhost", c.OpenRGB.Host)
	assert.Equal(t, 6742, c.OpenRGB.Port)
	assert.Equal(t, 0, c.OpenRGB.Controller)
}

func TestBundledProfilesLoad(t *testing.T) {
	for _, name := range []string{"default.toml", "simple.yaml"} {
		t.Run(name, func(t *testing.T) {
			_, err := profile.Load(filepath.Join("orbitrat-config", "profiles", name))
			assert.Equal(t, nil, err)
		})
	}
}

func TestMissingConfig(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "nope.config"))
	assert.Equal(t, nil, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestPartialConfig(t *testing.T) {
	c, err := ParseConfig([]byte("[orbitrat]\ntick_rate = 250\ngrab = true\n\n[screen]\ntype = 20x4\naddress = 39\n"))
	assert.Equal(t, nil, err)

	expected := DefaultConfig()
	expected.Orbitrat.TickRate = 250
	expected.Orbitrat.Interval = 4 * time.Millisecond
	expected.Orbitrat.Grab = true
	expected.Screen.LcdType = hd44780.LCD_20x4
	expected.Screen.Address = 39
	assert.Equal(t, expected, c)
}

func TestConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		config string
		err    string
	}{
		{name: "tick rate", config: "[orbitrat]\ntick_rate = fast\n", err: "[orbitrat] invalid tick_rate"},
		{name: "zero tick rate", config: "[orbitrat]\ntick_rate = 0\n", err: "[orbitrat] invalid tick_rate"},
		{name: "grab", config: "[orbitrat]\ngrab = maybe\n", err: "[orbitrat] invalid grab"},
		{name: "diag", config: "[diag]\nenabled = sometimes\n", err: "[diag] invalid enabled"},
		{name: "screen type", config: "[screen]\ntype = 40x2\n", err: "[screen] unsupported type"},
		{name: "screen address", config: "[screen]\naddress = 0x1ff\n", err: "[screen] invalid address"},
		{name: "screen bus", config: "[screen]\nbus = one\n", err: "[screen] invalid bus"},
		{name: "openrgb port", config: "[openrgb]\nport = 70000\n", err: "[openrgb] invalid port"},
		{name: "openrgb controller", config: "[openrgb]\ncontroller = -1\n", err: "[openrgb] invalid controller"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.config))
			assert.NotEqual(t, nil, err)
			if err != nil {
				assert.True(t, strings.HasPrefix(err.Error(), tc.err), "got %v", err)
			}
		})
	}
}

func TestCreateConfigDirectory(t *testing.T) {
	wd, err := os.Getwd()
	assert.Equal(t, nil, err)
	defer os.Chdir(wd)

	dir := t.TempDir()
	assert.Equal(t, nil, os.Chdir(dir))

	// user modifications survive
	assert.Equal(t, nil, os.MkdirAll(filepath.Join(configDir, "profiles"), 0o777))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(configDir, "orbitrat.config"), []byte("[orbitrat]\n"), 0o666))

	assert.Equal(t, nil, createConfigDirectoryIfNeeded())

	data, err := os.ReadFile(filepath.Join(configDir, "orbitrat.config"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "[orbitrat]\n", string(data))

	_, err = os.Stat(filepath.Join(configDir, "profiles", "default.toml"))
	assert.Equal(t, nil, err)
	_, err = os.Stat(filepath.Join(configDir, "profiles", "simple.yaml"))
	assert.Equal(t, nil, err)
}
