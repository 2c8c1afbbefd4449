package status

import (
	"context"
	"fmt"

	device "github.com/d2r2/go-hd44780"
	"github.com/d2r2/go-i2c"
	shittyLogger "github.com/d2r2/go-logger"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"go.uber.org/zap"
)

type ScreenConfig struct {
	Enabled bool
	LcdType device.LcdType
	Bus     int
	Address uint8
}

func (c ScreenConfig) Size() (width, lines int) {
	if c.LcdType == device.LCD_20x4 {
		return 20, 4
	}
	return 16, 2
}

func getDisplay(addr uint8, bus int, lcdType device.LcdType) (*device.Lcd, *i2c.I2C, error) {
	shittyLogger.ChangePackageLogLevel("i2c", shittyLogger.InfoLevel)
	shittyLogger.ChangePackageLogLevel("hd44780", shittyLogger.InfoLevel)

	lcdRaw, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, nil, err
	}

	lcd, err := device.NewLcd(lcdRaw, lcdType)
	if err != nil {
		return nil, lcdRaw, err
	}

	return lcd, lcdRaw, nil
}

// Render returns the screen content for s, one string per display line.
func Render(s Status, width, lines int) []string {
	var out []string
	for i := 0; i < len(s.Modes) && len(out) < lines; i++ {
		out = append(out, Line(s, i, width))
	}
	if len(out) < lines {
		out = append(out, LayoutLine(s.Layout, width))
	}
	for len(out) < lines {
		out = append(out, LayoutLine(Layout{}, width))
	}
	return out
}

// HandleLCD shows every received status until the channel is closed or ctx is done.
func HandleLCD(ctx context.Context, cfg ScreenConfig, statuses <-chan Status) error {
	lcd, bus, err := getDisplay(cfg.Address, cfg.Bus, cfg.LcdType)
	if err != nil {
		if bus != nil {
			bus.Close()
		}
		return fmt.Errorf("opening display failed: %w", err)
	}
	defer bus.Close()

	width, lines := cfg.Size()

	lcd.BacklightOn()
	lcd.Clear()
	log.Info("display opened", zap.Int("bus", cfg.Bus), zap.Uint8("address", cfg.Address), logger.Debug)

	for {
		select {
		case <-ctx.Done():
			lcd.Clear()
			lcd.BacklightOff()
			log.Info("display closed", logger.Debug)
			return nil
		case s, ok := <-statuses:
			if !ok {
				log.Info("display closed", logger.Debug)
				return nil
			}
			for i, line := range Render(s, width, lines) {
				lcd.SetPosition(i, 0)
				lcd.Write([]byte(line))
			}
		}
	}
}
