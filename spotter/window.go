package spotter

import (
	"time"

	"murmur/audio"
)

// window is the duration-bounded FIFO of recent frames the spotter probes.
type window struct {
	maxFrames int
	frames    []audio.Frame
}

func newWindow(span time.Duration) *window {
	maxFrames := int(span / audio.FrameDuration)
	if maxFrames < 1 {
		maxFrames = 1
	}
	return &window{maxFrames: maxFrames}
}

func (w *window) Append(f audio.Frame) {
	w.frames = append(w.frames, f)
	if len(w.frames) > w.maxFrames {
		w.frames = w.frames[len(w.frames)-w.maxFrames:]
	}
}

func (w *window) Duration() time.Duration {
	return time.Duration(len(w.frames)) * audio.FrameDuration
}

// Snapshot concatenates the buffered PCM in capture order.
func (w *window) Snapshot() []byte {
	var size int
	for _, f := range w.frames {
		size += len(f.PCM)
	}
	out := make([]byte, 0, size)
	for _, f := range w.frames {
		out = append(out, f.PCM...)
	}
	return out
}

func (w *window) Clear() {
	w.frames = w.frames[:0]
}
