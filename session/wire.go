// Package session owns one realtime conversation: negotiation, the
// websocket transport, the outbound audio sender and the inbound decoder.
package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MessageKind classifies an inbound transport message.
type MessageKind int

const (
	// KindAudioDelta is a JSON event carrying base64 PCM16 audio.
	KindAudioDelta MessageKind = iota
	// KindTranscriptDone is a JSON event carrying finished transcript text.
	KindTranscriptDone
	// KindIgnored is any other JSON event. The pipeline takes no action.
	KindIgnored
	// KindRawAudio is a non-JSON frame, interpreted as raw PCM16.
	KindRawAudio
)

// Inbound is one decoded transport message.
type Inbound struct {
	Kind       MessageKind
	Type       string // JSON "type" field, empty for raw frames
	Audio      []byte // PCM16 bytes for audio kinds
	Transcript string
}

type inboundEnvelope struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	Part       struct {
		Transcript string `json:"transcript"`
		Text       string `json:"text"`
	} `json:"part"`
}

// ClassifyInbound discriminates a transport message. Valid JSON is routed by
// its "type" field; anything that is not UTF-8 JSON is treated as a raw
// PCM16 frame. An error means a recognized event carried a bad payload.
func ClassifyInbound(data []byte) (Inbound, error) {
	if !utf8.Valid(data) {
		return Inbound{Kind: KindRawAudio, Audio: data}, nil
	}
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{Kind: KindRawAudio, Audio: data}, nil
	}

	switch env.Type {
	case "response.audio.delta":
		audio, err := base64.StdEncoding.DecodeString(env.Delta)
		if err != nil {
			return Inbound{Kind: KindIgnored, Type: env.Type}, fmt.Errorf("audio delta: %w", err)
		}
		return Inbound{Kind: KindAudioDelta, Type: env.Type, Audio: audio}, nil
	case "response.content_part.done":
		text := env.Part.Transcript
		if text == "" {
			text = env.Part.Text
		}
		if text == "" {
			text = env.Transcript
		}
		return Inbound{Kind: KindTranscriptDone, Type: env.Type, Transcript: text}, nil
	default:
		return Inbound{Kind: KindIgnored, Type: env.Type}, nil
	}
}

type outboundEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Audio   string `json:"audio,omitempty"`
}

// appendEvent wraps PCM16 bytes in an input_audio_buffer.append event.
func appendEvent(pcm []byte) ([]byte, error) {
	return json.Marshal(outboundEvent{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.append",
		Audio:   base64.StdEncoding.EncodeToString(pcm),
	})
}

// commitEvent marks the end of a user turn for manual turn-taking.
func commitEvent() ([]byte, error) {
	return json.Marshal(outboundEvent{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.commit",
	})
}
