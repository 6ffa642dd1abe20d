package capture

import "testing"

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start+i) / 32768.0
	}
	return out
}

func drain(c *Chunker) []float32 {
	var out []float32
	for _, ch := range c.Poll() {
		out = append(out, ch...)
	}
	return out
}

func TestPollEmpty(t *testing.T) {
	c := NewChunker(NewRing(1000))
	if got := c.Poll(); got != nil {
		t.Errorf("Poll on empty ring = %v, want nil", got)
	}
}

func TestPollSingleChunk(t *testing.T) {
	r := NewRing(1000)
	c := NewChunker(r)

	in := seq(0, 600)
	r.Write(in)

	got := drain(c)
	if len(got) != 600 {
		t.Fatalf("got %d samples, want 600", len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], in[i])
		}
	}

	// Nothing new: cursor caught up.
	if again := c.Poll(); again != nil {
		t.Errorf("second Poll = %v, want nil", again)
	}
}

func TestPollWraparound(t *testing.T) {
	r := NewRing(1000)
	c := NewChunker(r)

	first := seq(0, 600)
	r.Write(first)
	got := drain(c)

	// Second write wraps: 600 more samples into a 1000-capacity ring.
	second := seq(600, 600)
	r.Write(second)

	chunks := c.Poll()
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks across wrap, got %d", len(chunks))
	}
	if len(chunks[0]) != 400 || len(chunks[1]) != 200 {
		t.Fatalf("chunk sizes = %d, %d, want 400, 200", len(chunks[0]), len(chunks[1]))
	}
	for _, ch := range chunks {
		got = append(got, ch...)
	}

	want := append(append([]float32{}, first...), second...)
	if len(got) != len(want) {
		t.Fatalf("drained %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v (order broken across wrap)", i, got[i], want[i])
		}
	}
}

func TestPollExactWrapToZero(t *testing.T) {
	r := NewRing(500)
	c := NewChunker(r)

	r.Write(seq(0, 300))
	drain(c)
	r.Write(seq(300, 200)) // lands exactly at capacity, W wraps to 0

	chunks := c.Poll()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk when W wraps exactly to 0, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 {
		t.Fatalf("chunk size = %d, want 200", len(chunks[0]))
	}
}

func TestManyCyclesNoGaps(t *testing.T) {
	r := NewRing(777)
	c := NewChunker(r)

	var want, got []float32
	next := 0
	for cycle := 0; cycle < 50; cycle++ {
		n := 100 + cycle%7*30
		in := seq(next, n)
		next += n
		want = append(want, in...)
		r.Write(in)
		got = append(got, drain(c)...)
	}

	if len(got) != len(want) {
		t.Fatalf("drained %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	chunks, samples := c.Stats()
	if chunks == 0 || samples != uint64(len(want)) {
		t.Errorf("stats = %d chunks, %d samples, want %d samples", chunks, samples, len(want))
	}
}
