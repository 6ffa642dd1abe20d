package session

import (
	"encoding/base64"
	"testing"

	"murmur/pcm"
	"murmur/playback"
)

func deltaMsg(samples []float32) []byte {
	b64 := base64.StdEncoding.EncodeToString(pcm.Encode(samples))
	return []byte(`{"type":"response.audio.delta","delta":"` + b64 + `"}`)
}

func TestReceiverAppendsAudio(t *testing.T) {
	buf := playback.NewBuffer()
	r := NewReceiver(buf, nil)

	r.HandleMessage(deltaMsg(make([]float32, 160)))
	r.HandleMessage(deltaMsg(make([]float32, 240)))

	if buf.Len() != 400 {
		t.Errorf("buffer length = %d, want 400", buf.Len())
	}
}

func TestReceiverRawBinaryAudio(t *testing.T) {
	buf := playback.NewBuffer()
	r := NewReceiver(buf, nil)

	// Leading 0xff makes this invalid UTF-8, so it must be taken as PCM16.
	raw := []byte{0xff, 0x7f, 0x00, 0x80, 0x00, 0x00}
	r.HandleMessage(raw)

	if buf.Len() != 3 {
		t.Errorf("buffer length = %d, want 3", buf.Len())
	}
}

func TestReceiverTranscript(t *testing.T) {
	buf := playback.NewBuffer()
	var got string
	r := NewReceiver(buf, func(text string) { got = text })

	r.HandleMessage([]byte(`{"type":"response.content_part.done","part":{"transcript":"good morning"}}`))

	if got != "good morning" {
		t.Errorf("transcript = %q, want %q", got, "good morning")
	}
	if buf.Len() != 0 {
		t.Errorf("transcript message added %d samples to playback", buf.Len())
	}
}

func TestReceiverSurvivesMalformed(t *testing.T) {
	buf := playback.NewBuffer()
	r := NewReceiver(buf, nil)

	r.HandleMessage([]byte(`{"type":"response.audio.delta","delta":"%%%"}`))
	r.HandleMessage([]byte(`{"type":"server.heartbeat"}`))
	r.HandleMessage(deltaMsg(make([]float32, 100)))

	if buf.Len() != 100 {
		t.Errorf("buffer length = %d, want 100 (good audio after bad messages)", buf.Len())
	}
	messages, _, ignored, bad := r.Stats()
	if messages != 3 {
		t.Errorf("messages = %d, want 3", messages)
	}
	if ignored != 1 {
		t.Errorf("ignored = %d, want 1", ignored)
	}
	if bad != 1 {
		t.Errorf("bad = %d, want 1", bad)
	}
}

func TestReceiverOddLengthAudioKeepsWholeSamples(t *testing.T) {
	buf := playback.NewBuffer()
	r := NewReceiver(buf, nil)

	b64 := base64.StdEncoding.EncodeToString([]byte{0x00, 0x10, 0x00, 0x20, 0x7f})
	r.HandleMessage([]byte(`{"type":"response.audio.delta","delta":"` + b64 + `"}`))

	if buf.Len() != 2 {
		t.Errorf("buffer length = %d, want 2 (trailing byte dropped)", buf.Len())
	}
	_, _, _, bad := r.Stats()
	if bad != 1 {
		t.Errorf("bad = %d, want 1", bad)
	}
}
