package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"murmur/audio"
	"murmur/capture"
	"murmur/doctor"
	"murmur/log"
	"murmur/pcm"
	"murmur/playback"
	"murmur/session"
)

var version = "dev"

var beepDisabled bool

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultModel      = "gpt-realtime-mini"
	defaultSampleRate = 16000
	defaultCadence    = 250 * time.Millisecond
)

func main() {
	run()
}

func run() {
	baseURLFlag := flag.String("url", defaultBaseURL, "Service base URL")
	modelFlag := flag.String("model", defaultModel, "Realtime model identifier")
	instructionsFlag := flag.String("instructions", "", "System instructions for the session")
	rateFlag := flag.Int("rate", defaultSampleRate, "Sample rate in Hz (mono)")
	cadenceFlag := flag.Duration("cadence", defaultCadence, "How often captured audio is chunked and sent")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	noBeepFlag := flag.Bool("no-beep", false, "Disable connect/disconnect sounds")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}
	beepDisabled = *noBeepFlag

	godotenv.Load()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	apiKey := os.Getenv("MURMUR_API_KEY")

	if *doctorFlag {
		os.Exit(doctor.Run(session.Config{
			BaseURL:      *baseURLFlag,
			Model:        *modelFlag,
			Instructions: *instructionsFlag,
			APIKey:       apiKey,
			SampleRate:   *rateFlag,
		}))
	}

	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: MURMUR_API_KEY is not set (environment or .env)")
		os.Exit(1)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := actx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Printf("Warning: device %q not found, using system default\n", *deviceFlag)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := conversation(rootCtx, actx, selectedDevice, session.Config{
		BaseURL:      *baseURLFlag,
		Model:        *modelFlag,
		Instructions: *instructionsFlag,
		APIKey:       apiKey,
		SampleRate:   *rateFlag,
	}, *cadenceFlag); err != nil {
		log.Errorf("conversation: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// conversation runs one session end to end: open the mic and the speaker,
// connect, stream both ways until the user quits or the connection drops.
func conversation(ctx context.Context, actx audio.Context, dev *audio.DeviceInfo, cfg session.Config, cadence time.Duration) error {
	// One second of ring headroom; chunks are drained every cadence tick so
	// the write cursor never laps the reader in normal operation.
	ring := capture.NewRing(cfg.SampleRate)
	chunker := capture.NewChunker(ring)

	mic, err := actx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   1,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}
	defer mic.Close()
	mic.SetCallback(func(data []byte, _ uint32) {
		samples, err := pcm.Decode(data)
		if err != nil {
			log.Warnf("capture: %v", err)
		}
		ring.Write(samples)
	})

	speaker, err := actx.NewPlayback(audio.PlaybackConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   1,
	})
	if err != nil {
		return fmt.Errorf("opening playback device: %w", err)
	}
	defer speaker.Close()

	buf := playback.NewBuffer()
	renderer := playback.NewRenderer(speaker, buf)

	sess := session.New(cfg, session.NewWSTransport(), buf, func(text string) {
		fmt.Printf("\r\x1b[K<< %s\n", text)
	})

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = sess.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := renderer.Start(); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	defer renderer.Stop()
	if err := mic.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	defer mic.Stop()

	playConnectSound()
	defer playDisconnectSound()

	fmt.Printf("Connected (%s, %d Hz). Talk; Enter ends your turn; q quits.\n", cfg.Model, cfg.SampleRate)

	turns := 0
	// Enter commits the current turn, q or EOF ends the session.
	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
	}()

	detector := newSpeechDetector()
	sender := sess.Sender()
	start := time.Now()

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-input:
			if !ok || line == "q" || line == "quit" {
				break loop
			}
			sender.Commit()
			detector.Reset()
			turns++
		case <-ticker.C:
			if sess.State() != session.StateOpen {
				fmt.Fprintln(os.Stderr, "Connection closed.")
				break loop
			}
			for _, chunk := range chunker.Poll() {
				if detector.Feed(chunk) && renderer.Playing() {
					dropped := renderer.Interrupt()
					log.BargeIn(dropped)
				}
				sender.Send(chunk)
			}
		}
	}

	logMetrics(sess, renderer, buf, time.Since(start))
	log.SessionEnd(turns)
	return nil
}

func logMetrics(sess *session.Session, renderer *playback.Renderer, buf *playback.Buffer, elapsed time.Duration) {
	sent, sentBytes, dropped := sess.Sender().Stats()
	messages, audioBytes, _, _ := sess.Receiver().Stats()
	interrupts, flushed := renderer.Stats()
	_, consumed := buf.Stats()

	log.PipelineMetrics(log.PipelineMetricsData{
		ConnectMs:       float64(sess.ConnectedFor().Milliseconds()),
		DurationS:       elapsed.Seconds(),
		SentChunks:      sent,
		SentKB:          float64(sentBytes) / 1024,
		DroppedChunks:   dropped,
		RecvMessages:    messages,
		RecvAudioKB:     float64(audioBytes) / 1024,
		RenderedSamples: consumed,
		BargeIns:        interrupts,
		FlushedSamples:  flushed,
	})
}
