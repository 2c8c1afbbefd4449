package status

import (
	"context"
	"fmt"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/realbucksavage/openrgb-go"
	"go.uber.org/zap"
)

type OpenRGBConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Controller int
}

func toOpenRGB(c colorful.Color) openrgb.Color {
	c = c.Clamped()
	return openrgb.Color{
		Red:   byte(c.R * 255),
		Green: byte(c.G * 255),
		Blue:  byte(c.B * 255),
	}
}

func connect(ctx context.Context, cfg OpenRGBConfig) (*openrgb.Client, error) {
	var c *openrgb.Client
	var err error

	timeout := time.Now().Add(time.Second * 5)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond * 250):
		}

		c, err = openrgb.Connect(cfg.Host, cfg.Port)
		if err == nil {
			return c, nil
		}

		if time.Now().After(timeout) {
			return nil, fmt.Errorf("connecting to %s:%d failed: %w", cfg.Host, cfg.Port, err)
		}
	}
}

// HandleOpenRGB paints all LEDs of the configured controller with the focus color of every received status.
func HandleOpenRGB(ctx context.Context, cfg OpenRGBConfig, statuses <-chan Status) error {
	c, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	count, err := c.GetControllerCount()
	if err != nil {
		return fmt.Errorf("failed to get controller count: %w", err)
	}
	if cfg.Controller < 0 || cfg.Controller >= count {
		return fmt.Errorf("controller %d not available (%d found)", cfg.Controller, count)
	}

	dev, err := c.GetDeviceController(cfg.Controller)
	if err != nil {
		return fmt.Errorf("getting controller information failed: %w", err)
	}
	log.Info("OpenRGB controller found",
		zap.String("controller", dev.Name), zap.Int("index", cfg.Controller), zap.Int("leds", len(dev.Colors)), logger.Debug,
	)

	leds := make([]openrgb.Color, len(dev.Colors))
	paint := func(color openrgb.Color) {
		for i := range leds {
			leds[i] = color
		}
		err := c.UpdateLEDs(cfg.Controller, leds)
		if err != nil {
			log.Info(fmt.Sprintf("OpenRGB update failed: %v", err), logger.Warning)
		}
	}

	for {
		select {
		case <-ctx.Done():
			paint(openrgb.Color{})
			return nil
		case s, ok := <-statuses:
			if !ok {
				paint(openrgb.Color{})
				return nil
			}
			paint(toOpenRGB(FocusColor(s)))
		}
	}
}
