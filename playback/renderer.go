package playback

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"murmur/audio"
)

// Renderer binds a Buffer to a playback device. The device's data callback
// pulls exactly the requested frame count on every invocation, substituting
// silence when the buffer runs dry, and never blocks on network state.
type Renderer struct {
	dev audio.PlaybackDevice
	buf *Buffer

	scratch []float32
	playing atomic.Bool

	interrupts atomic.Uint64
	flushed    atomic.Uint64
}

func NewRenderer(dev audio.PlaybackDevice, buf *Buffer) *Renderer {
	return &Renderer{dev: dev, buf: buf}
}

// Start installs the render callback and starts the device.
func (r *Renderer) Start() error {
	r.dev.SetCallback(r.render)
	return r.dev.Start()
}

// Stop detaches the callback and stops the device. Buffered samples stay
// queued; callers flush explicitly if they want them gone.
func (r *Renderer) Stop() {
	r.dev.ClearCallback()
	r.dev.Stop()
	r.playing.Store(false)
}

// Playing reports whether the last rendered frame carried real audio.
func (r *Renderer) Playing() bool {
	return r.playing.Load()
}

// Interrupt implements barge-in: when audio is rendering it flushes the
// buffer and clears the playing flag, returning the number of samples
// discarded. When nothing is playing it is a no-op, so calling it twice has
// the same effect as calling it once.
func (r *Renderer) Interrupt() int {
	if !r.playing.Load() {
		return 0
	}
	dropped := r.buf.Flush()
	r.playing.Store(false)
	r.interrupts.Add(1)
	r.flushed.Add(uint64(dropped))
	return dropped
}

// Stats returns the number of barge-ins and the total samples they dropped.
func (r *Renderer) Stats() (interrupts, flushedSamples uint64) {
	return r.interrupts.Load(), r.flushed.Load()
}

// render runs on the device's real-time thread. No allocation once the
// scratch buffer has grown to the device's frame size, no locks beyond the
// buffer's O(1) queue operations.
func (r *Renderer) render(out []byte, frameCount uint32) {
	need := int(frameCount)
	if cap(r.scratch) < need {
		r.scratch = make([]float32, need)
	}
	frame := r.scratch[:need]

	n := r.buf.Read(frame)
	r.playing.Store(n > 0)

	limit := need
	if max := len(out) / 2; max < limit {
		limit = max
	}
	for i := 0; i < limit; i++ {
		s := frame[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
}
