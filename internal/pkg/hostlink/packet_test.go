package hostlink

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name     string
		frame    []byte
		expected Packet
		err      error
	}{
		{name: "hello", frame: []byte{1}, expected: Packet{Type: Hello}},
		{name: "layout", frame: []byte{2, 0x80, 0x07, 0x38, 0x04}, expected: Packet{Type: Layout, Width: 1920, Height: 1080}},
		{name: "switch", frame: []byte{3, 1, 2, 0xff}, expected: Packet{Type: SwitchModes, Stick: 1, Mode: 2}},
		{name: "bump", frame: []byte{4, EdgeLeft | EdgeTop}, expected: Packet{Type: BorderBump, Edges: 5}},
		{name: "empty", frame: []byte{}, err: ErrShortFrame},
		{name: "short layout", frame: []byte{2, 0x80, 0x07}, err: ErrShortFrame},
		{name: "short switch", frame: []byte{3, 1}, err: ErrShortFrame},
		{name: "zero type", frame: make([]byte, FrameSize), err: ErrUnknownType},
		{name: "unknown type", frame: []byte{9, 0, 0}, err: ErrUnknownType},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(tc.frame)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), "got %v", err)
				return
			}
			assert.Equal(t, nil, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	frame := Encode(Packet{Type: Layout, Width: 2560, Height: 1440})
	assert.Equal(t, FrameSize, len(frame))
	assert.Equal(t, []byte{2, 0x00, 0x0a, 0xa0, 0x05}, frame[:5])

	p, err := Decode(frame)
	assert.Equal(t, nil, err)
	assert.Equal(t, Packet{Type: Layout, Width: 2560, Height: 1440}, p)
}

func TestConsumeDropsMalformedAndOverflow(t *testing.T) {
	l := &Listener{packets: make(chan Packet, 2)}

	var stream bytes.Buffer
	stream.Write(Encode(Packet{Type: Hello}))
	stream.Write(make([]byte, FrameSize)) // type 0
	stream.Write(Encode(Packet{Type: SwitchModes, Stick: 1, Mode: 3}))
	stream.Write(Encode(Packet{Type: BorderBump})) // queue full
	stream.Write([]byte{1, 2, 3})                  // truncated tail

	l.Consume(&stream)

	assert.Equal(t, 2, len(l.packets))
	assert.Equal(t, Packet{Type: Hello}, <-l.packets)
	assert.Equal(t, Packet{Type: SwitchModes, Stick: 1, Mode: 3}, <-l.packets)
}

func TestListenAndSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.sock")
	l, err := Listen(path, 4)
	assert.Equal(t, nil, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- l.Serve(ctx)
	}()

	assert.Equal(t, nil, Send(path, Packet{Type: Layout, Width: 800, Height: 600}))

	select {
	case p := <-l.Packets():
		assert.Equal(t, Packet{Type: Layout, Width: 800, Height: 600}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("packet not received")
	}

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, nil, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestClosedConnectionsLeaveNoGoroutines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.sock")
	l, err := Listen(path, 64)
	assert.Equal(t, nil, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Serve(ctx)

	// first connection warms up the listener, then the baseline is taken
	assert.Equal(t, nil, Send(path, Packet{Type: Hello}))
	<-l.Packets()
	time.Sleep(50 * time.Millisecond)
	base := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		assert.Equal(t, nil, Send(path, Packet{Type: SwitchModes, Stick: 0, Mode: uint8(i)}))
		select {
		case <-l.Packets():
		case <-time.After(2 * time.Second):
			t.Fatal("packet not received")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > base && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), base)
}
