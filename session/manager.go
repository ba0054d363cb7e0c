// Package session owns the interaction state machine. A single control
// loop consumes captured frames, triggers, and transcription results, so
// state only ever changes from one goroutine. Exactly one session buffer
// and one transcription request exist at a time.
package session

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
	"murmur/trigger"
)

type State int32

const (
	StateIdle State = iota
	StateListening
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	}
	return "unknown"
}

// Transcriber turns raw PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// Injector delivers finished text to the focused window.
type Injector interface {
	Inject(text string) error
}

// Feedback plays audible cues at state edges.
type Feedback interface {
	ListeningStarted()
	Done()
	Error()
}

// FrameSink receives every captured frame regardless of state. The
// wake-word spotter hangs off this.
type FrameSink interface {
	Feed(f audio.Frame)
}

type Config struct {
	MaxSession time.Duration // hard cap on one session's audio
	MinAudio   time.Duration // below this, skip the backend entirely
	WakeWord   string        // stripped from transcripts; empty disables
}

const NoSpeechText = "(no speech detected)"

type result struct {
	text    string
	err     error
	audio   time.Duration
	frames  uint64
	dropped uint64
	elapsed time.Duration
}

type Manager struct {
	cfg  Config
	tr   Transcriber
	inj  Injector
	fb   Feedback
	sink FrameSink

	// Optional display hooks, set before Run. Called from the control
	// loop goroutine.
	OnState      func(s State)
	OnTranscript func(text string, noSpeech bool)
	OnLevel      func(level float64)
	OnError      func(err error)

	state   atomic.Int32
	buf     *Buffer
	timeout *time.Timer
	results chan result
}

func New(cfg Config, tr Transcriber, inj Injector, fb Feedback, sink FrameSink) *Manager {
	if cfg.MaxSession <= 0 {
		cfg.MaxSession = 60 * time.Second
	}
	if cfg.MinAudio <= 0 {
		cfg.MinAudio = 300 * time.Millisecond
	}
	return &Manager{
		cfg:     cfg,
		tr:      tr,
		inj:     inj,
		fb:      fb,
		sink:    sink,
		results: make(chan result, 1),
	}
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

// Listening reports whether a session is currently capturing. The trigger
// bus uses this to decide trigger polarity.
func (m *Manager) Listening() bool {
	return m.State() == StateListening
}

// Run drives the state machine until ctx is cancelled or the frame source
// closes. It must only be called once.
func (m *Manager) Run(ctx context.Context, frames <-chan audio.Frame, triggers <-chan trigger.Trigger) error {
	for {
		var timeoutC <-chan time.Time
		if m.timeout != nil {
			timeoutC = m.timeout.C
		}
		select {
		case <-ctx.Done():
			m.stopTimeout()
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				m.stopTimeout()
				return errors.New("audio source closed")
			}
			m.handleFrame(ctx, f)
		case t, ok := <-triggers:
			if !ok {
				m.stopTimeout()
				return nil
			}
			m.handleTrigger(ctx, t)
		case r := <-m.results:
			m.handleResult(r)
		case <-timeoutC:
			m.timeout = nil
			m.finish(ctx, "max_session")
		}
	}
}

func (m *Manager) handleFrame(ctx context.Context, f audio.Frame) {
	if m.sink != nil {
		m.sink.Feed(f)
	}
	if m.OnLevel != nil {
		m.OnLevel(rmsLevel(f.PCM))
	}
	if m.State() != StateListening {
		return
	}
	m.buf.Append(f)
	if m.buf.Duration() >= m.cfg.MaxSession {
		m.finish(ctx, "max_session")
	}
}

func (m *Manager) handleTrigger(ctx context.Context, t trigger.Trigger) {
	switch m.State() {
	case StateIdle:
		if t.Kind != trigger.KindStart {
			log.Info("trigger_dropped_idle: " + string(t.Source))
			return
		}
		m.begin(string(t.Source))
	case StateListening:
		if t.Kind != trigger.KindStop {
			log.Info("trigger_dropped_listening: " + string(t.Source))
			return
		}
		m.finish(ctx, string(t.Source))
	case StateTranscribing:
		log.Info("trigger_dropped_busy: " + string(t.Source))
	}
}

func (m *Manager) begin(cause string) {
	m.buf = NewBuffer()
	m.timeout = time.NewTimer(m.cfg.MaxSession)
	m.setState(StateListening, cause)
	m.fb.ListeningStarted()
}

// finish freezes the session buffer and hands it to the transcriber.
// Sessions too short to carry speech skip the backend.
func (m *Manager) finish(ctx context.Context, cause string) {
	m.stopTimeout()
	buf := m.buf
	m.buf = nil

	if buf.Duration() < m.cfg.MinAudio {
		log.Info("no_speech_short_session")
		m.setState(StateIdle, "no_speech")
		m.fb.Error()
		m.emitTranscript(NoSpeechText, true)
		return
	}

	m.setState(StateTranscribing, cause)
	go m.transcribe(ctx, buf)
}

func (m *Manager) transcribe(ctx context.Context, buf *Buffer) {
	start := time.Now()
	text, err := m.tr.Transcribe(ctx, buf.Bytes())
	m.results <- result{
		text:    text,
		err:     err,
		audio:   buf.Duration(),
		frames:  buf.Frames(),
		dropped: buf.Dropped(),
		elapsed: time.Since(start),
	}
}

func (m *Manager) handleResult(r result) {
	log.SessionMetrics(r.audio.Seconds(), r.frames, r.dropped, float64(r.elapsed.Milliseconds()), r.err == nil)

	if r.err != nil {
		log.Errorf("transcription: %v", r.err)
		m.setState(StateIdle, "transcribe_error")
		m.fb.Error()
		if m.OnError != nil {
			m.OnError(r.err)
		}
		return
	}

	text := StripWakeWord(r.text, m.cfg.WakeWord)
	if text == "" {
		log.Info("no_speech")
		m.setState(StateIdle, "no_speech")
		m.fb.Error()
		m.emitTranscript(NoSpeechText, true)
		return
	}

	log.TranscriptionText(text)
	if err := m.inj.Inject(text); err != nil {
		log.Errorf("inject: %v", err)
		m.setState(StateIdle, "inject_error")
		m.fb.Error()
		if m.OnError != nil {
			m.OnError(err)
		}
		m.emitTranscript(text, false)
		return
	}

	m.setState(StateIdle, "done")
	m.fb.Done()
	m.emitTranscript(text, false)
}

func (m *Manager) setState(s State, cause string) {
	from := m.State()
	m.state.Store(int32(s))
	log.Transition(from.String(), s.String(), cause)
	if m.OnState != nil {
		m.OnState(s)
	}
}

func (m *Manager) emitTranscript(text string, noSpeech bool) {
	if m.OnTranscript != nil {
		m.OnTranscript(text, noSpeech)
	}
}

func (m *Manager) stopTimeout() {
	if m.timeout != nil {
		m.timeout.Stop()
		m.timeout = nil
	}
}

// StripWakeWord removes the wake word (and a leading "hey") from a
// transcript, so addressing the assistant does not end up in the injected
// text.
func StripWakeWord(text, wake string) string {
	if wake != "" {
		re := regexp.MustCompile(`(?i)\b(hey[\s,]+)?` + regexp.QuoteMeta(wake) + `\b[.,!?]*`)
		text = re.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}

func rmsLevel(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(pcm)/2))
}
