package session

import (
	"sync"
	"sync/atomic"

	"murmur/log"
	"murmur/pcm"
)

const senderQueueDepth = 64

// Sender encodes outgoing audio chunks and ships them to the transport from
// its own goroutine, so the capture cadence never blocks on the network.
// When the queue backs up, new chunks are dropped and counted rather than
// stalling capture.
type Sender struct {
	tr Transport
	ch chan []byte

	closeOnce sync.Once
	done      chan struct{}

	seq       atomic.Uint64
	sent      atomic.Uint64
	sentBytes atomic.Uint64
	dropped   atomic.Uint64
	commits   atomic.Uint64
}

func NewSender(tr Transport) *Sender {
	s := &Sender{
		tr:   tr,
		ch:   make(chan []byte, senderQueueDepth),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Send encodes one chunk of normalized samples as PCM16, wraps it in an
// append event and queues it. The chunk slice is not retained.
func (s *Sender) Send(samples []float32) {
	if len(samples) == 0 {
		return
	}
	frame := pcm.Encode(samples)
	seq := s.seq.Add(1)
	msg, err := appendEvent(frame)
	if err != nil {
		log.Errorf("encode append event %d: %v", seq, err)
		return
	}
	s.enqueue(msg)
}

// Commit queues an input_audio_buffer.commit event, ending the current user
// turn. It goes through the same queue as audio so ordering holds.
func (s *Sender) Commit() {
	msg, err := commitEvent()
	if err != nil {
		log.Errorf("encode commit event: %v", err)
		return
	}
	s.commits.Add(1)
	s.enqueue(msg)
}

func (s *Sender) enqueue(msg []byte) {
	select {
	case <-s.done:
	case s.ch <- msg:
	default:
		n := s.dropped.Add(1)
		if n == 1 || n%50 == 0 {
			log.Warnf("send queue full, dropped %d chunks", n)
		}
	}
}

func (s *Sender) run() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.ch:
			if err := s.tr.Send(msg); err != nil {
				if err != ErrNotOpen {
					log.Errorf("send: %v", err)
				}
				continue
			}
			s.sent.Add(1)
			s.sentBytes.Add(uint64(len(msg)))
		}
	}
}

// Close stops the send goroutine. Queued chunks are discarded.
func (s *Sender) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Stats returns messages sent, bytes sent and chunks dropped to backpressure.
func (s *Sender) Stats() (sent, sentBytes, dropped uint64) {
	return s.sent.Load(), s.sentBytes.Load(), s.dropped.Load()
}
