package capture

// Chunker tracks the last-consumed offset into a Ring and, once per capture
// cycle, emits the newly available sample range as one or two chunks.
type Chunker struct {
	ring   *Ring
	cursor int

	chunks  uint64
	samples uint64
}

func NewChunker(ring *Ring) *Chunker {
	return &Chunker{ring: ring}
}

// Poll computes the range written since the previous call and returns it in
// strict chronological order. A wrap of the write cursor yields two chunks,
// [cursor, C) then [0, W), so ordering survives the wrap boundary. Returns
// nil when nothing new is available.
//
// Poll must only be called from one goroutine; the cursor is not shared.
func (c *Chunker) Poll() [][]float32 {
	w := c.ring.WriteCursor()
	if w == c.cursor {
		return nil
	}

	var chunks [][]float32
	if w < c.cursor {
		chunks = append(chunks, c.ring.slice(c.cursor, c.ring.Cap()))
		if w > 0 {
			chunks = append(chunks, c.ring.slice(0, w))
		}
	} else {
		chunks = append(chunks, c.ring.slice(c.cursor, w))
	}
	c.cursor = w

	for _, ch := range chunks {
		c.chunks++
		c.samples += uint64(len(ch))
	}
	return chunks
}

// Stats returns the number of chunks and samples emitted so far.
func (c *Chunker) Stats() (chunks, samples uint64) {
	return c.chunks, c.samples
}
