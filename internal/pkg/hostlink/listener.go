package hostlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Listener accepts host helpers on a unix socket. Each connection is a stream of FrameSize frames.
type Listener struct {
	path    string
	ln      net.Listener
	packets chan Packet
}

// Listen replaces any stale socket at path. Up to buffer packets are queued for the consumer,
// anything beyond that is dropped.
func Listen(path string, buffer int) (*Listener, error) {
	err := os.RemoveAll(path)
	if err != nil {
		return nil, fmt.Errorf("removing existing socket failed: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s failed: %w", path, err)
	}

	err = os.Chmod(path, 0o660)
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket failed: %w", err)
	}

	return &Listener{
		path:    path,
		ln:      ln,
		packets: make(chan Packet, buffer),
	}, nil
}

func (l *Listener) Packets() <-chan Packet {
	return l.packets
}

// Serve accepts connections until ctx is done.
func (l *Listener) Serve(ctx context.Context) error {
	defer os.Remove(l.path)

	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	log.Info("host link listening", zap.String("socket", l.path), logger.Info)
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Info(fmt.Sprintf("host link accept failed: %v", err), logger.Warning)
			continue
		}
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	log.Info("host link connected", logger.Debug)
	l.Consume(conn)
	log.Info("host link disconnected", logger.Debug)
}

// Consume reads frames from r until it fails, forwarding every frame that decodes.
func (l *Listener) Consume(r io.Reader) {
	frame := make([]byte, FrameSize)
	for {
		_, err := io.ReadFull(r, frame)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Info(fmt.Sprintf("host link read failed: %v", err), logger.Debug)
			}
			return
		}

		p, err := Decode(frame)
		if err != nil {
			log.Info(fmt.Sprintf("dropping frame: %v", err), logger.Debug)
			continue
		}

		select {
		case l.packets <- p:
		default:
			log.Info("host link queue full, dropping packet", zap.String("packet", p.String()), logger.Debug)
		}
	}
}

// Send writes a single packet to a listening socket, used by orbitrat-host.
func Send(path string, p Packet) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("connecting to %s failed: %w", path, err)
	}
	defer conn.Close()

	_, err = conn.Write(Encode(p))
	if err != nil {
		return fmt.Errorf("sending packet failed: %w", err)
	}
	return nil
}
