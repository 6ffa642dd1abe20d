package main

import "sync"

const (
	speechFrameSamples = 320 // 20ms at 16kHz
	speechThresholdAbs = 500.0 / 32768.0
	speechDebounce     = 3 // consecutive loud frames to confirm voice
)

// speechDetector spots the user talking over the assistant by peak
// amplitude. A frame counts as loud when any sample clears the threshold;
// speech is confirmed after speechDebounce loud frames in a row, which keeps
// single pops and clicks from triggering a barge-in.
type speechDetector struct {
	mu           sync.Mutex
	buf          []float32
	run          int
	active       bool
	totalFrames  int
	speechFrames int
}

func newSpeechDetector() *speechDetector {
	return &speechDetector{}
}

// Feed consumes captured samples and reports a rising edge: true exactly
// once per utterance, when speech is first confirmed.
func (d *speechDetector) Feed(samples []float32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	confirmed := false
	d.buf = append(d.buf, samples...)
	for len(d.buf) >= speechFrameSamples {
		frame := d.buf[:speechFrameSamples]
		d.buf = d.buf[speechFrameSamples:]

		d.totalFrames++
		if frameLoud(frame) {
			d.speechFrames++
			d.run++
			if !d.active && d.run >= speechDebounce {
				d.active = true
				confirmed = true
			}
		} else {
			d.run = 0
			d.active = false
		}
	}
	return confirmed
}

func frameLoud(frame []float32) bool {
	for _, s := range frame {
		if s > speechThresholdAbs || s < -speechThresholdAbs {
			return true
		}
	}
	return false
}

func (d *speechDetector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *speechDetector) Stats() (total, speech int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalFrames, d.speechFrames
}

func (d *speechDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = d.buf[:0]
	d.run = 0
	d.active = false
}
