package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameDuration is the fixed length of every Frame the Source emits.
const FrameDuration = 50 * time.Millisecond

// Frame is one fixed-duration chunk of captured PCM (s16le mono) with a
// monotonic sequence number. Frames are immutable once produced; a gap in
// Seq means capture outpaced the consumer and frames were dropped.
type Frame struct {
	Seq  uint64
	PCM  []byte
	Time time.Time
}

// Source turns the raw capture callback into a stream of sequenced Frames.
// The callback runs on the audio thread and must never block: when the
// consumer lags, frames are counted as dropped instead of stalling capture.
type Source struct {
	capture    CaptureDevice
	frames     chan Frame
	frameBytes int

	mu  sync.Mutex
	rem []byte
	seq uint64

	dropped atomic.Uint64
}

// NewSource wraps a capture device. buffer is the channel depth in frames;
// at 50 ms per frame the default 64 absorbs over three seconds of lag.
func NewSource(capture CaptureDevice, sampleRate int, buffer int) *Source {
	if buffer <= 0 {
		buffer = 64
	}
	samples := sampleRate * int(FrameDuration) / int(time.Second)
	return &Source{
		capture:    capture,
		frames:     make(chan Frame, buffer),
		frameBytes: samples * 2,
	}
}

func (s *Source) Start() error {
	s.capture.SetCallback(s.onData)
	if err := s.capture.Start(); err != nil {
		s.capture.ClearCallback()
		return err
	}
	return nil
}

func (s *Source) Stop() {
	s.capture.Stop()
	s.capture.ClearCallback()
}

func (s *Source) Frames() <-chan Frame {
	return s.frames
}

// Dropped reports the total number of frames discarded because the
// consumer was not keeping up.
func (s *Source) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Source) onData(data []byte, _ uint32) {
	now := time.Now()

	s.mu.Lock()
	s.rem = append(s.rem, data...)
	var out []Frame
	for len(s.rem) >= s.frameBytes {
		pcm := make([]byte, s.frameBytes)
		copy(pcm, s.rem[:s.frameBytes])
		s.rem = s.rem[s.frameBytes:]
		out = append(out, Frame{Seq: s.seq, PCM: pcm, Time: now})
		s.seq++
	}
	s.mu.Unlock()

	for _, f := range out {
		select {
		case s.frames <- f:
		default:
			s.dropped.Add(1)
		}
	}
}
