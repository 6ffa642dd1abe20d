// Package doctor runs interactive system diagnostics: microphone capture,
// speaker playback and service reachability.
package doctor

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"murmur/audio"
	"murmur/session"
)

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg session.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("murmur doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	allPass := true

	if !checkMicrophone() {
		allPass = false
	}
	if allPass && !checkSpeaker() {
		allPass = false
	}
	if allPass && !checkNegotiation(cfg) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkMicrophone() bool {
	fmt.Println()
	fmt.Println("[1/3] Microphone")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	pcmBuf, err := recordAudio(ctx, device, stop)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcmBuf) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	peak := peakLevel(pcmBuf)
	fmt.Printf("  Recorded %.1f KB, peak level %.0f%%\n", float64(len(pcmBuf))/1024, peak*100)
	if peak < 0.01 {
		fmt.Println("  FAIL: microphone appears silent (check mute and input volume)")
		return false
	}
	fmt.Println("  PASS: microphone captures audio")
	return true
}

func peakLevel(pcm []byte) float64 {
	peak := 0.0
	for i := 0; i+1 < len(pcm); i += 2 {
		v := math.Abs(float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768.0)
		if v > peak {
			peak = v
		}
	}
	return peak
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	config := audio.CaptureConfig{SampleRate: 16000, Channels: 1}

	captureDevice, err := ctx.NewCapture(device, config)
	if err != nil {
		return nil, err
	}

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		bufMu.Lock()
		if stopped {
			bufMu.Unlock()
			return
		}
		pcmBuf = append(pcmBuf, data...)
		bufMu.Unlock()
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.Close()
		return nil, err
	}

	fmt.Print("  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)

	captureDevice.Stop()
	fmt.Println(" done")
	captureDevice.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()

	return raw, nil
}

func checkSpeaker() bool {
	fmt.Println()
	fmt.Println("[2/3] Speaker")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	const sampleRate = 16000
	dev, err := ctx.NewPlayback(audio.PlaybackConfig{SampleRate: sampleRate, Channels: 1})
	if err != nil {
		fmt.Printf("  FAIL: cannot open playback device: %v\n", err)
		return false
	}
	defer dev.Close()

	// One second of 440 Hz.
	tone := make([]float32, sampleRate)
	for i := range tone {
		tone[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}

	var pos int
	var posMu sync.Mutex
	dev.SetCallback(func(out []byte, frameCount uint32) {
		posMu.Lock()
		defer posMu.Unlock()
		for i := 0; i < int(frameCount) && i*2+1 < len(out); i++ {
			var s float32
			if pos < len(tone) {
				s = tone[pos]
				pos++
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
		}
	})

	fmt.Println("  Playing a 1 second tone...")
	if err := dev.Start(); err != nil {
		fmt.Printf("  FAIL: cannot start playback: %v\n", err)
		return false
	}
	time.Sleep(1200 * time.Millisecond)
	dev.Stop()

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Did you hear the tone? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: speaker verified by user")
		return true
	}
	fmt.Println("  FAIL: tone not confirmed")
	return false
}

func checkNegotiation(cfg session.Config) bool {
	fmt.Println()
	fmt.Println("[3/3] Service reachability")

	if cfg.APIKey == "" {
		fmt.Println("  FAIL: MURMUR_API_KEY is not set")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	start := time.Now()
	creds, err := session.Negotiate(ctx, cfg)
	if err != nil {
		fmt.Printf("  FAIL: negotiation error: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: negotiated session in %s (socket %s)\n",
		time.Since(start).Round(time.Millisecond), creds.SocketURL)
	return true
}
