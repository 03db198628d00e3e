// Package gpiotest provides an in-memory pin writer for tests.
package gpiotest

import (
	"errors"
	"sync"
)

// ErrInjected is returned by SetLevel for pins marked with Fail.
var ErrInjected = errors.New("gpiotest: injected write failure")

// Write is one recorded SetLevel call.
type Write struct {
	Pin   int
	Level int
}

// Recorder records every SetLevel call and can fail chosen pins.
type Recorder struct {
	mu     sync.Mutex
	writes []Write
	fail   map[int]bool
	closed bool
}

// SetLevel records the write, or returns ErrInjected for a failing pin.
func (r *Recorder) SetLevel(pin, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[pin] {
		return ErrInjected
	}
	r.writes = append(r.writes, Write{Pin: pin, Level: level})
	return nil
}

// Close marks the recorder closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Fail makes subsequent writes to pin fail.
func (r *Recorder) Fail(pin int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail == nil {
		r.fail = make(map[int]bool)
	}
	r.fail[pin] = true
}

// Writes returns a copy of the recorded writes.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Write, len(r.writes))
	copy(out, r.writes)
	return out
}

// Reset forgets recorded writes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.writes = nil
	r.mu.Unlock()
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
