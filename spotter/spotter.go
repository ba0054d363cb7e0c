// Package spotter watches the live microphone stream for the configured
// wake word. It holds a short rolling window of audio, gates on voice
// activity, and probes the window against the transcription backend on a
// fixed cadence. The spotter does not know whether a detection means
// start or stop; polarity is decided downstream.
package spotter

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
	"murmur/trigger"
)

// minProbeAudio is the least buffered audio worth sending to the backend.
const minProbeAudio = time.Second

const probeTimeout = 10 * time.Second

// Detector decides whether the wake word occurs in a chunk of PCM.
type Detector interface {
	Detect(ctx context.Context, pcm []byte) (bool, error)
}

// Intents receives polarity-free detections. *trigger.Bus satisfies it.
type Intents interface {
	Toggle(src trigger.Source)
}

type Config struct {
	Window     time.Duration // rolling window span
	ProbeEvery time.Duration // detection cadence
	Debounce   time.Duration // suppress duplicate fires within this span
}

type Spotter struct {
	cfg Config
	det Detector
	bus Intents

	win *window
	vad *vadProcessor

	lastProbe time.Time
	inflight  atomic.Bool

	fireMu   sync.Mutex
	lastFire time.Time
}

func New(cfg Config, det Detector, bus Intents) (*Spotter, error) {
	vp, err := newVADProcessor()
	if err != nil {
		return nil, err
	}
	return newSpotter(cfg, det, bus, vp), nil
}

func newSpotter(cfg Config, det Detector, bus Intents, vp *vadProcessor) *Spotter {
	return &Spotter{
		cfg: cfg,
		det: det,
		bus: bus,
		win: newWindow(cfg.Window),
		vad: vp,
	}
}

// Feed consumes one captured frame. It must be called from a single
// goroutine; the probe itself runs asynchronously and never blocks the
// caller.
func (s *Spotter) Feed(f audio.Frame) {
	s.win.Append(f)
	if s.vad != nil {
		s.vad.Process(f.PCM)
	}

	now := time.Now()
	if now.Sub(s.lastProbe) < s.cfg.ProbeEvery {
		return
	}
	if s.win.Duration() < minProbeAudio {
		return
	}
	s.lastProbe = now

	if s.vad != nil && !s.vad.HasSpeechSinceMark() {
		// Silence costs no backend calls.
		return
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return
	}

	pcm := s.win.Snapshot()
	s.win.Clear()
	go s.probe(pcm)
}

func (s *Spotter) probe(pcm []byte) {
	defer s.inflight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	matched, err := s.det.Detect(ctx, pcm)
	if err != nil {
		log.Warnf("wake word probe: %v", err)
		return
	}
	if matched {
		s.fire()
	}
}

func (s *Spotter) fire() {
	s.fireMu.Lock()
	if time.Since(s.lastFire) < s.cfg.Debounce {
		s.fireMu.Unlock()
		return
	}
	s.lastFire = time.Now()
	s.fireMu.Unlock()

	log.Info("wake_word_detected")
	s.bus.Toggle(trigger.SourceWakeWord)
}

// TranscribeDetector matches the wake word against the transcription of
// the probe window.
type TranscribeDetector struct {
	tr       transcriber
	wakeWord string
}

type transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

func NewTranscribeDetector(tr transcriber, wakeWord string) *TranscribeDetector {
	return &TranscribeDetector{tr: tr, wakeWord: strings.ToLower(wakeWord)}
}

func (d *TranscribeDetector) Detect(ctx context.Context, pcm []byte) (bool, error) {
	text, err := d.tr.Transcribe(ctx, pcm)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(text), d.wakeWord), nil
}
