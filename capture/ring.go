// Package capture turns a device-driven sample stream into ordered,
// cadence-aligned chunks ready for encoding.
package capture

import "sync"

// Ring is a fixed-capacity circular sample buffer mirroring the hardware
// recording buffer: the device data callback writes and advances the write
// cursor, which wraps at capacity. A single Chunker reads behind it.
//
// If the reader stalls for longer than the buffer holds, old samples are
// overwritten and silently lost. That is a stated limitation of the capture
// model, not a detected error.
type Ring struct {
	mu  sync.Mutex
	buf []float32
	w   int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic("capture: ring capacity must be positive")
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Cap returns the fixed capacity in samples.
func (r *Ring) Cap() int { return len(r.buf) }

// Write copies samples at the write cursor, wrapping at capacity.
// Called from the audio device callback.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(samples) > 0 {
		n := copy(r.buf[r.w:], samples)
		r.w = (r.w + n) % len(r.buf)
		samples = samples[n:]
	}
}

// WriteCursor returns the current hardware write position.
func (r *Ring) WriteCursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w
}

// slice copies [from, to) out of the buffer. Bounds are the caller's problem.
func (r *Ring) slice(from, to int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float32, to-from)
	copy(out, r.buf[from:to])
	return out
}
