// Package pcm converts between normalized float samples and little-endian
// 16-bit signed PCM, the only audio format the realtime wire speaks.
package pcm

import (
	"encoding/binary"
	"errors"
	"math"
)

// BytesPerSample is the width of one PCM16 sample on the wire.
const BytesPerSample = 2

// ErrOddLength reports a malformed PCM16 payload. The trailing byte is
// dropped and the remaining samples are still returned.
var ErrOddLength = errors.New("pcm: odd-length payload")

// Encode clamps each sample to [-1, 1], scales by 32767 and emits
// little-endian int16 pairs. Empty input yields empty output.
func Encode(samples []float32) []byte {
	if len(samples) == 0 {
		return nil
	}
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(v))
	}
	return out
}

// Decode is the inverse of Encode, dividing by 32768 to match the remote
// service's scaling. An odd-length input returns ErrOddLength alongside the
// samples decoded from the even prefix.
func Decode(data []byte) ([]float32, error) {
	var err error
	if len(data)%BytesPerSample != 0 {
		data = data[:len(data)-1]
		err = ErrOddLength
	}
	if len(data) == 0 {
		return nil, err
	}
	samples := make([]float32, len(data)/BytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, err
}
