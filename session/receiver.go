package session

import (
	"sync/atomic"

	"murmur/log"
	"murmur/pcm"
	"murmur/playback"
)

// Receiver decodes inbound transport messages and feeds audio into the
// playback buffer. One malformed message never takes the session down; it
// is counted and skipped.
type Receiver struct {
	buf          *playback.Buffer
	onTranscript func(text string)

	messages   atomic.Uint64
	audioBytes atomic.Uint64
	ignored    atomic.Uint64
	bad        atomic.Uint64
}

func NewReceiver(buf *playback.Buffer, onTranscript func(text string)) *Receiver {
	return &Receiver{buf: buf, onTranscript: onTranscript}
}

// HandleMessage is the transport's OnMessage callback.
func (r *Receiver) HandleMessage(data []byte) {
	r.messages.Add(1)

	in, err := ClassifyInbound(data)
	if err != nil {
		n := r.bad.Add(1)
		if n == 1 || n%50 == 0 {
			log.Warnf("bad inbound payload (%d so far): %v", n, err)
		}
		return
	}

	switch in.Kind {
	case KindAudioDelta, KindRawAudio:
		samples, decErr := pcm.Decode(in.Audio)
		if decErr != nil {
			r.bad.Add(1)
			log.Warnf("inbound audio: %v", decErr)
		}
		if len(samples) > 0 {
			r.buf.Append(samples)
			r.audioBytes.Add(uint64(len(in.Audio)))
		}
	case KindTranscriptDone:
		if in.Transcript != "" {
			log.TranscriptText(in.Transcript)
			if r.onTranscript != nil {
				r.onTranscript(in.Transcript)
			}
		}
	case KindIgnored:
		r.ignored.Add(1)
	}
}

// Stats returns total messages, audio payload bytes, ignored events and
// malformed payloads.
func (r *Receiver) Stats() (messages, audioBytes, ignored, bad uint64) {
	return r.messages.Load(), r.audioBytes.Load(), r.ignored.Load(), r.bad.Load()
}
