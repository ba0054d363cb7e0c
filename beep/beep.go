// Package beep plays the short audible cues that mark session edges:
// a rising blip when listening starts, a falling bloop when text lands,
// and a low double-beep on failure.
package beep

import (
	"math"
	"sync"
)

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Listening cue: rising two-tone blip
	listenLowFreq  = 660
	listenHighFreq = 880
	listenVolume   = 0.5
	listenDecay    = 40

	// Done cue: falling two-tone bloop
	doneVolume = 0.5
	doneDecay  = 40

	// Error cue: low double-beep
	errorFreq   = 330
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	listeningSamples []int16
	doneSamples      []int16
	errorSamples     []int16
	soundOnce        sync.Once
)

func initSamples() {
	listeningSamples = concat(
		tick(listenLowFreq, 0.08, listenVolume, listenDecay),
		tick(listenHighFreq, 0.10, listenVolume, listenDecay),
	)
	doneSamples = concat(
		tick(listenHighFreq, 0.08, doneVolume, doneDecay),
		tick(listenLowFreq, 0.10, doneVolume, doneDecay),
	)
	errorSamples = concat(
		tick(errorFreq, 0.08, errorVolume, errorDecay),
		silence(0.05),
		tick(errorFreq, 0.08, errorVolume, errorDecay),
	)
}

func tick(freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func silence(duration float64) []int16 {
	return make([]int16, int(sampleRate*duration))
}

func concat(parts ...[]int16) []int16 {
	var size int
	for _, p := range parts {
		size += len(p)
	}
	out := make([]int16, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Init pre-generates the cue samples so the first play has no lag.
func Init() {
	soundOnce.Do(initSamples)
}

func PlayListening() {
	if disabled {
		return
	}
	soundOnce.Do(initSamples)
	go playSamples(listeningSamples)
}

func PlayDone() {
	if disabled {
		return
	}
	soundOnce.Do(initSamples)
	go playSamples(doneSamples)
}

func PlayError() {
	if disabled {
		return
	}
	soundOnce.Do(initSamples)
	go playSamples(errorSamples)
}

// Cues adapts the package-level players to the feedback interface the
// session manager expects.
type Cues struct{}

func (Cues) ListeningStarted() { PlayListening() }
func (Cues) Done()             { PlayDone() }
func (Cues) Error()            { PlayError() }
