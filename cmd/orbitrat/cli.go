package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
)

type TimeNanosecond time.Time

func (j *TimeNanosecond) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*j = TimeNanosecond(time.Unix(0, v))
	return nil
}

func (j TimeNanosecond) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(j))
}

type Entry struct {
	Ts     TimeNanosecond `json:"ts"`
	Caller string         `json:"caller"`
	Msg    string         `json:"msg"`
	Level  int            `json:"level"`

	Stick   *int   `json:"stick"`
	Mode    string `json:"mode"`
	Profile string `json:"profile"`
	Device  string `json:"device"`
	Macro   string `json:"macro"`
}

func unpack(data []byte) (Entry, error) {
	var v Entry
	err := json.Unmarshal(data, &v)
	return v, err
}

func gray(v uint8) aurora.Color {
	if v > 23 {
		v = 23
	}
	return aurora.Color(232+v) << 16
}

func color(r, g, b uint8) aurora.Color {
	return aurora.Color(16+36*r+6*g+b) << 16
}

// returns random color for string, will return the same color for the same string
func colorForString(au aurora.Aurora, s string) aurora.Value {
	h := fnv.New32a()
	h.Write([]byte(s))
	sum := h.Sum32()

	r, g, b := uint8(sum)&0b00000111, uint8(sum>>8)&0b00000111, uint8(sum>>16)&0b00000111
	if r > 5 {
		r = 5
	}
	if g > 5 {
		g = 5
	}
	if b > 5 {
		b = 5
	}

	// avoid dark colors
	if r+g+b < 3 {
		r += 1
		g += 1
		b += 1
	}

	return au.Index(16+36*r+6*g+b, s)
}

// consoleLevel maps the --loglevel flag (0-4) onto logger levels.
func consoleLevel(flagLevel int) int {
	level := flagLevel + logger.InfoLvl
	if level > logger.AnalogLvl {
		return logger.DebugLvl
	}
	if level < logger.ErrorLvl {
		return logger.ErrorLvl
	}
	return level
}

func prepareString(msg Entry, au aurora.Aurora, logLevel int) string {
	if msg.Level > logLevel {
		return ""
	}

	var msgColor aurora.Color

	switch msg.Level {
	case logger.ErrorLvl:
		msgColor = color(5, 1, 1)
	case logger.WarningLvl:
		msgColor = color(5, 5, 1)
	case logger.InfoLvl:
		msgColor = gray(18)
	case logger.ActionLvl:
		msgColor = color(2, 4, 5)
	case logger.MotionLvl:
		msgColor = gray(15)
	case logger.AnalogLvl:
		msgColor = gray(11)
	default:
		msgColor = gray(9)
	}

	tf := time.Time(msg.Ts).Format("15:04:05.000")
	timestamp := fmt.Sprintf("[%s]", au.Reset(tf).Colorize(color(1, 1, 5)).String())

	var fields []string
	if msg.Profile != "" {
		fields = append(fields, fmt.Sprintf("[profile=%s]", colorForString(au, msg.Profile).String()))
	}
	if msg.Device != "" {
		fields = append(fields, fmt.Sprintf("[dev=%s]", colorForString(au, msg.Device).String()))
	}
	if msg.Stick != nil {
		fields = append(fields, fmt.Sprintf("[stick=%s]", colorForString(au, strconv.Itoa(*msg.Stick)).String()))
	}
	if msg.Mode != "" {
		fields = append(fields, fmt.Sprintf("[mode=%s]", colorForString(au, msg.Mode).String()))
	}
	if msg.Macro != "" {
		fields = append(fields, fmt.Sprintf("[macro=%s]", colorForString(au, msg.Macro).String()))
	}
	if logLevel >= logger.DebugLvl && msg.Caller != "" {
		file, line, _ := strings.Cut(msg.Caller, ":")
		fields = append(fields, fmt.Sprintf("(%s:%s)", colorForString(au, file).String(), line))
	}

	m := au.Reset(msg.Msg).Colorize(msgColor).String()
	if len(fields) == 0 {
		return fmt.Sprintf("%s %s", timestamp, m)
	}
	return fmt.Sprintf("%s %s %s", timestamp, m, strings.Join(fields, " "))
}
