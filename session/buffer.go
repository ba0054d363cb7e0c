package session

import (
	"time"

	"murmur/audio"
	"murmur/encoder"
)

// Buffer accumulates the frames of one capture session in order. Sequence
// gaps from dropped frames are counted but do not abort the session.
type Buffer struct {
	pcm     []byte
	frames  uint64
	dropped uint64
	lastSeq uint64
	seen    bool
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Append(f audio.Frame) {
	if b.seen && f.Seq > b.lastSeq+1 {
		b.dropped += f.Seq - b.lastSeq - 1
	}
	b.lastSeq = f.Seq
	b.seen = true
	b.frames++
	b.pcm = append(b.pcm, f.PCM...)
}

func (b *Buffer) Bytes() []byte {
	return b.pcm
}

func (b *Buffer) Frames() uint64 {
	return b.frames
}

func (b *Buffer) Dropped() uint64 {
	return b.dropped
}

func (b *Buffer) Duration() time.Duration {
	bytesPerSecond := encoder.SampleRate * encoder.Channels * encoder.BitsPerSample / 8
	return time.Duration(len(b.pcm)) * time.Second / time.Duration(bytesPerSecond)
}
