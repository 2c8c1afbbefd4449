// orbitrat-host sends host-link packets to a running orbitrat daemon, meant for desktop scripts
// (window manager hooks, resolution changes, hotkeys).
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gethiox/orbitrat/internal/pkg/hostlink"
	"github.com/spf13/pflag"
)

var socket = pflag.String("socket", "/tmp/orbitrat.sock", "orbitrat host-link socket")

const usage = `usage: orbitrat-host [--socket path] <command>

commands:
  hello                          announce the host
  layout <width> <height>        report the screen size
  mode <stick> <mode>            switch a resting stick to the given mode index
  bump [left,right,top,bottom]   report the cursor hitting a screen edge
`

var errUsage = errors.New("invalid arguments")

var edgeNames = map[string]uint8{
	"left":   hostlink.EdgeLeft,
	"right":  hostlink.EdgeRight,
	"top":    hostlink.EdgeTop,
	"bottom": hostlink.EdgeBottom,
}

func parseUint(s string, bits int, name string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q", errUsage, name, s)
	}
	return v, nil
}

func parsePacket(args []string) (hostlink.Packet, error) {
	if len(args) == 0 {
		return hostlink.Packet{}, errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "hello":
		if len(args) != 0 {
			return hostlink.Packet{}, errUsage
		}
		return hostlink.Packet{Type: hostlink.Hello}, nil

	case "layout":
		if len(args) != 2 {
			return hostlink.Packet{}, errUsage
		}
		w, err := parseUint(args[0], 16, "width")
		if err != nil {
			return hostlink.Packet{}, err
		}
		h, err := parseUint(args[1], 16, "height")
		if err != nil {
			return hostlink.Packet{}, err
		}
		return hostlink.Packet{Type: hostlink.Layout, Width: uint16(w), Height: uint16(h)}, nil

	case "mode":
		if len(args) != 2 {
			return hostlink.Packet{}, errUsage
		}
		s, err := parseUint(args[0], 8, "stick")
		if err != nil {
			return hostlink.Packet{}, err
		}
		m, err := parseUint(args[1], 8, "mode")
		if err != nil {
			return hostlink.Packet{}, err
		}
		return hostlink.Packet{Type: hostlink.SwitchModes, Stick: uint8(s), Mode: uint8(m)}, nil

	case "bump":
		if len(args) > 1 {
			return hostlink.Packet{}, errUsage
		}
		p := hostlink.Packet{Type: hostlink.BorderBump}
		if len(args) == 1 {
			for _, name := range strings.Split(args[0], ",") {
				flag, ok := edgeNames[strings.ToLower(strings.TrimSpace(name))]
				if !ok {
					return hostlink.Packet{}, fmt.Errorf("%w: unknown edge %q", errUsage, name)
				}
				p.Edges |= flag
			}
		}
		return p, nil
	}

	return hostlink.Packet{}, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func main() {
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	p, err := parsePacket(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		pflag.Usage()
		os.Exit(2)
	}

	err = hostlink.Send(*socket, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sending %s failed: %s\n", p, err)
		os.Exit(1)
	}
}
