package audio

import "sync"

// FakeContext serves canned PCM16 bytes instead of touching real hardware.
// Capture and render are driven explicitly by the test, so runs are
// deterministic regardless of scheduling.
type FakeContext struct {
	pcm []byte
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm}, nil
}

func (f *FakeContext) NewPlayback(_ PlaybackConfig) (PlaybackDevice, error) {
	return &FakePlayback{}, nil
}

// FakeCapture replays its PCM through the data callback when the test calls
// Feed. Nothing runs in the background.
type FakeCapture struct {
	pcm []byte
	pos int

	mu      sync.Mutex
	cb      DataCallback
	started bool
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Feed delivers up to frames of the preloaded PCM to the callback and
// returns how many frames were actually delivered. Zero means the recording
// is exhausted or the device is stopped.
func (f *FakeCapture) Feed(frames int) int {
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if !started || cb == nil {
		return 0
	}

	end := f.pos + frames*2
	if end > len(f.pcm) {
		end = len(f.pcm)
	}
	if end <= f.pos {
		return 0
	}
	chunk := make([]byte, end-f.pos)
	copy(chunk, f.pcm[f.pos:end])
	f.pos = end

	n := len(chunk) / 2
	cb(chunk, uint32(n))
	return n
}

// Push delivers arbitrary PCM16 bytes to the callback, bypassing the
// preloaded recording.
func (f *FakeCapture) Push(data []byte) {
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if !started || cb == nil {
		return
	}
	cb(data, uint32(len(data)/2))
}

// FakePlayback invokes the render callback only when the test calls Render,
// standing in for the device's real-time pull.
type FakePlayback struct {
	mu      sync.Mutex
	cb      RenderCallback
	started bool

	Rendered int // total frames pulled
}

func (f *FakePlayback) Start() error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *FakePlayback) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakePlayback) Close() {}

func (f *FakePlayback) SetCallback(cb RenderCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakePlayback) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// Render pulls one frame of frameCount frames and returns the PCM16 bytes
// the callback produced. With no callback installed it returns silence.
func (f *FakePlayback) Render(frameCount int) []byte {
	out := make([]byte, frameCount*2)
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if started && cb != nil {
		cb(out, uint32(frameCount))
		f.mu.Lock()
		f.Rendered += frameCount
		f.mu.Unlock()
	}
	return out
}
