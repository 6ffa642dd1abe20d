package playback

import (
	"encoding/binary"
	"testing"

	"murmur/audio"
)

func newTestRenderer(t *testing.T) (*Renderer, *audio.FakePlayback, *Buffer) {
	t.Helper()
	dev := &audio.FakePlayback{}
	buf := NewBuffer()
	r := NewRenderer(dev, buf)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r, dev, buf
}

func decodeFrame(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}
	return out
}

func TestRenderExactFrameCount(t *testing.T) {
	_, dev, buf := newTestRenderer(t)
	buf.Append(ramp(0, 1000))

	for i := 0; i < 5; i++ {
		frame := dev.Render(160)
		if len(frame) != 320 {
			t.Fatalf("frame %d: got %d bytes, want 320", i, len(frame))
		}
	}
	if buf.Len() != 200 {
		t.Errorf("Len after 5 frames of 160 = %d, want 200", buf.Len())
	}
}

func TestRenderSilenceWhenEmpty(t *testing.T) {
	r, dev, buf := newTestRenderer(t)

	frame := dev.Render(160)
	for i, v := range decodeFrame(frame) {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence", i, v)
		}
	}
	if r.Playing() {
		t.Error("Playing = true with empty buffer")
	}

	buf.Append(ramp(100, 160))
	dev.Render(160)
	if !r.Playing() {
		t.Error("Playing = false right after rendering real audio")
	}

	dev.Render(160)
	if r.Playing() {
		t.Error("Playing = true after buffer drained")
	}
}

func TestRenderTailZeroFilled(t *testing.T) {
	_, dev, buf := newTestRenderer(t)
	buf.Append(ramp(0, 100))

	frame := decodeFrame(dev.Render(160))
	for i := 100; i < 160; i++ {
		if frame[i] != 0 {
			t.Fatalf("sample %d = %v, want 0 past end of buffered audio", i, frame[i])
		}
	}
}

func TestInterruptWhilePlaying(t *testing.T) {
	r, dev, buf := newTestRenderer(t)
	buf.Append(ramp(0, 4000))
	dev.Render(160)

	dropped := r.Interrupt()
	if dropped != 3840 {
		t.Fatalf("Interrupt dropped %d, want 3840", dropped)
	}
	if r.Playing() {
		t.Error("Playing = true after interrupt")
	}
	if buf.Len() != 0 {
		t.Errorf("Len after interrupt = %d, want 0", buf.Len())
	}

	frame := decodeFrame(dev.Render(160))
	for i, v := range frame {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence after interrupt", i, v)
		}
	}
}

func TestInterruptIdempotent(t *testing.T) {
	r, dev, buf := newTestRenderer(t)
	buf.Append(ramp(0, 2000))
	dev.Render(160)

	first := r.Interrupt()
	second := r.Interrupt()
	if second != 0 {
		t.Errorf("second Interrupt dropped %d, want 0", second)
	}
	interrupts, flushed := r.Stats()
	if interrupts != 1 {
		t.Errorf("interrupts = %d, want 1", interrupts)
	}
	if flushed != uint64(first) {
		t.Errorf("flushed = %d, want %d", flushed, first)
	}
}

func TestInterruptWhileIdleNoop(t *testing.T) {
	r, _, buf := newTestRenderer(t)
	// Samples queued but nothing rendered yet: not playing, so no barge-in.
	buf.Append(ramp(0, 500))
	if dropped := r.Interrupt(); dropped != 0 {
		t.Errorf("Interrupt while idle dropped %d, want 0", dropped)
	}
	if buf.Len() != 500 {
		t.Errorf("Len = %d, want 500 (idle interrupt must not flush)", buf.Len())
	}
}
