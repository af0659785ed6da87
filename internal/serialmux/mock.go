package serialmux

import (
	"io"
	"sync"
)

// TestablePort is an in-memory SerialPorter for tests and fixture replay.
// Reads drain whatever AddReadData has queued; writes are captured for
// inspection. When the queue empties after CloseWrites, reads return io.EOF,
// which lets replay runs terminate like a real unplugged device.
type TestablePort struct {
	mu          sync.Mutex
	cond        *sync.Cond
	readBuffer  []byte
	writeBuffer []byte
	writesDone  bool
	closed      bool
}

// NewTestablePort creates an empty in-memory port.
func NewTestablePort() *TestablePort {
	p := &TestablePort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// NewReplayPort creates a port pre-loaded with fixture data whose reads end
// in io.EOF once the data is drained.
func NewReplayPort(data []byte) *TestablePort {
	p := NewTestablePort()
	p.readBuffer = append(p.readBuffer, data...)
	p.writesDone = true
	return p
}

// AddReadData queues bytes for subsequent Read calls.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuffer = append(p.readBuffer, data...)
	p.cond.Broadcast()
}

// CloseWrites marks the read stream complete: once the queue drains, Read
// returns io.EOF instead of blocking.
func (p *TestablePort) CloseWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writesDone = true
	p.cond.Broadcast()
}

func (p *TestablePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.readBuffer) == 0 {
		if p.closed || p.writesDone {
			return 0, io.EOF
		}
		p.cond.Wait()
	}
	n := copy(buf, p.readBuffer)
	p.readBuffer = p.readBuffer[n:]
	return n, nil
}

func (p *TestablePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.writeBuffer = append(p.writeBuffer, data...)
	return len(data), nil
}

// Written returns a copy of everything written to the port so far.
func (p *TestablePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.writeBuffer))
	copy(out, p.writeBuffer)
	return out
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}
