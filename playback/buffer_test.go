package playback

import "testing"

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start+i) / 32768.0
	}
	return out
}

func TestReadEmptyIsSilence(t *testing.T) {
	b := NewBuffer()
	dst := []float32{1, 2, 3, 4}
	if n := b.Read(dst); n != 0 {
		t.Fatalf("Read on empty buffer = %d, want 0", n)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want 0 (silence)", i, v)
		}
	}
}

func TestReadAcrossChunks(t *testing.T) {
	b := NewBuffer()
	b.Append(ramp(0, 100))
	b.Append(ramp(100, 50))
	b.Append(ramp(150, 200))

	dst := make([]float32, 120)
	if n := b.Read(dst); n != 120 {
		t.Fatalf("Read = %d, want 120", n)
	}
	for i := 0; i < 120; i++ {
		want := float32(i) / 32768.0
		if dst[i] != want {
			t.Fatalf("sample %d = %v, want %v", i, dst[i], want)
		}
	}
	if b.Len() != 230 {
		t.Errorf("Len after partial read = %d, want 230", b.Len())
	}
}

func TestReadPartialZeroFills(t *testing.T) {
	b := NewBuffer()
	b.Append(ramp(0, 30))

	dst := make([]float32, 100)
	for i := range dst {
		dst[i] = 9
	}
	if n := b.Read(dst); n != 30 {
		t.Fatalf("Read = %d, want 30", n)
	}
	for i := 30; i < 100; i++ {
		if dst[i] != 0 {
			t.Fatalf("dst[%d] = %v, want 0 after real samples ran out", i, dst[i])
		}
	}
}

func TestLenInvariant(t *testing.T) {
	b := NewBuffer()
	b.Append(ramp(0, 500))
	b.Append(ramp(500, 300))
	b.Read(make([]float32, 200))
	b.Append(ramp(800, 100))
	b.Read(make([]float32, 450))

	appended, consumed := b.Stats()
	if got := int(appended - consumed); got != b.Len() {
		t.Errorf("appended-consumed = %d, Len = %d", got, b.Len())
	}
	if b.Len() != 250 {
		t.Errorf("Len = %d, want 250", b.Len())
	}
}

func TestFlushDropsEverything(t *testing.T) {
	b := NewBuffer()
	b.Append(ramp(0, 4000))
	if dropped := b.Flush(); dropped != 4000 {
		t.Fatalf("Flush = %d, want 4000", dropped)
	}
	if b.Len() != 0 {
		t.Fatalf("Len after flush = %d, want 0", b.Len())
	}
	appended, consumed := b.Stats()
	if appended != consumed {
		t.Errorf("stats after flush: appended %d != consumed %d", appended, consumed)
	}
}

func TestFlushThenAppendRetained(t *testing.T) {
	b := NewBuffer()
	b.Append(ramp(0, 4000))
	b.Flush()

	// Audio arriving after the flush belongs to the next utterance and
	// must survive.
	b.Append(ramp(0, 1600))
	b.Append(ramp(1600, 1600))
	if b.Len() != 3200 {
		t.Fatalf("Len after post-flush appends = %d, want 3200", b.Len())
	}

	dst := make([]float32, 3200)
	if n := b.Read(dst); n != 3200 {
		t.Fatalf("Read = %d, want 3200", n)
	}
	for i := range dst {
		want := float32(i) / 32768.0
		if dst[i] != want {
			t.Fatalf("sample %d = %v, want %v", i, dst[i], want)
		}
	}
}

func TestAppendEmptyNoop(t *testing.T) {
	b := NewBuffer()
	b.Append(nil)
	b.Append([]float32{})
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}
