package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/config"
	"murmur/doctor"
	"murmur/encoder"
	"murmur/hotkey"
	"murmur/inject"
	"murmur/log"
	"murmur/session"
	"murmur/shutdown"
	"murmur/spotter"
	"murmur/transcriber"
	"murmur/trigger"
)

var version = "dev"

var shutdownOnce sync.Once

func gracefulShutdown(cancel context.CancelFunc) {
	shutdownOnce.Do(func() {
		log.SessionEnd(0)
		cancel()
		if tuiProgram != nil {
			tuiProgram.Quit()
		}
	})
}

func run() {
	configFlag := flag.String("config", "", "config file path (default: OS config dir)")
	serverFlag := flag.String("server", "", "transcription server URL (overrides config)")
	formatFlag := flag.String("format", "", "upload format: wav or flac (overrides config)")
	deviceFlag := flag.String("device", "", "use named microphone device")
	setupFlag := flag.Bool("setup", false, "select microphone device (otherwise uses system default)")
	wakeFlag := flag.String("wakeword", "", "wake word (overrides config)")
	pasteFlag := flag.Bool("autopaste", true, "auto-paste to focused window after transcription")
	tuiFlag := flag.Bool("tui", true, "run with terminal UI")
	doctorFlag := flag.Bool("doctor", false, "run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "print version and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.Server.URL = *serverFlag
	}
	if *formatFlag != "" {
		cfg.Server.Format = *formatFlag
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}
	if *wakeFlag != "" {
		cfg.Trigger.WakeWord = *wakeFlag
	}
	if !*pasteFlag {
		cfg.Paste = false
	}

	switch cfg.Server.Format {
	case "wav", "flac":
	default:
		fmt.Printf("Error: unknown format %q (use wav or flac)\n", cfg.Server.Format)
		os.Exit(1)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(*cfg))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.SessionStart(cfg.Server.URL, cfg.Server.Format)

	client := transcriber.New(cfg.Server.URL, cfg.Server.Format, cfg.Server.Timeout)
	healthCtx, healthCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := client.Health(healthCtx); err != nil {
		log.Warnf("server health: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: transcription server unreachable: %v\n", err)
		fmt.Fprintln(os.Stderr, "Sessions will fail until the server at", cfg.Server.URL, "is up.")
	}
	healthCancel()

	if !cfg.Sounds {
		beep.Disable()
	}
	go beep.Init()

	if cfg.Paste {
		if err := inject.Init(); err != nil {
			log.Warnf("paste init: %v", err)
			fmt.Printf("Warning: paste init failed: %v\n", err)
			fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}
	injector := inject.New(cfg.Paste)

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	var selectedDevice *audio.DeviceInfo
	if cfg.Audio.Device != "" {
		if devices, err := audioCtx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == cfg.Audio.Device {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			log.Warnf("device not found: %s", cfg.Audio.Device)
			fmt.Printf("Warning: device %q not found, using system default\n", cfg.Audio.Device)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(audioCtx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	captureDevice, err := audioCtx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	// The bus resolves trigger polarity by asking the manager; the
	// manager is created afterwards, so go through a closure.
	var manager *session.Manager
	bus := trigger.NewBus(func() bool {
		return manager != nil && manager.Listening()
	})
	defer bus.Close()

	spot, err := spotter.New(spotter.Config{
		Window:     cfg.Trigger.SpotWindow,
		ProbeEvery: cfg.Trigger.SpotEvery,
		Debounce:   cfg.Trigger.Debounce,
	}, spotter.NewTranscribeDetector(client, cfg.Trigger.WakeWord), bus)
	if err != nil {
		log.Errorf("spotter init error: %v", err)
		fmt.Printf("Error initializing wake word detection: %v\n", err)
		os.Exit(1)
	}

	manager = session.New(session.Config{
		MaxSession: cfg.Audio.MaxSession,
		WakeWord:   cfg.Trigger.WakeWord,
	}, client, injector, beep.Cues{}, spot)

	hk, err := hotkey.New(cfg.Trigger.Hotkey)
	if err != nil {
		log.Errorf("hotkey config error: %v", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	go func() {
		for range hk.Toggle() {
			log.Info("hotkey_toggle")
			bus.Toggle(trigger.SourceHotkey)
		}
	}()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown(cancel)
	}()

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown(cancel)
		}()

		manager.OnState = func(s session.State) { tuiSend(StateMsg{State: s}) }
		manager.OnLevel = func(level float64) { tuiSend(AudioLevelMsg{Level: level}) }
		manager.OnTranscript = func(text string, noSpeech bool) {
			tuiSend(TranscriptMsg{Text: text, NoSpeech: noSpeech})
		}
		manager.OnError = func(err error) { tuiSend(ErrorMsg{Text: err.Error()}) }

		tuiSend(ModeLineMsg{Text: modeLineText(cfg)})
		tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
		tuiSend(HelpLineMsg{Text: helpLineText(cfg)})
	}

	source := audio.NewSource(captureDevice, encoder.SampleRate, 0)
	if err := source.Start(); err != nil {
		log.Errorf("capture start error: %v", err)
		fmt.Printf("Error starting capture: %v\n", err)
		os.Exit(1)
	}
	defer source.Stop()

	if err := manager.Run(runCtx, source.Frames(), bus.Triggers()); err != nil && runCtx.Err() == nil {
		log.Errorf("control loop: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Close()
		os.Exit(1)
	}
	log.Close()
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func modeLineText(cfg *config.Config) string {
	return fmt.Sprintf("[%s | %s]", cfg.Server.Format, cfg.Server.URL)
}

func helpLineText(cfg *config.Config) string {
	return fmt.Sprintf("%s or say %q to toggle", cfg.Trigger.Hotkey, cfg.Trigger.WakeWord)
}
