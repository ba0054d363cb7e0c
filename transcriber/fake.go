package transcriber

import (
	"context"
	"sync"
)

type FakeTranscriber struct {
	text string
	err  error

	mu    sync.Mutex
	calls int
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Transcribe(_ context.Context, pcm []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *FakeTranscriber) Health(context.Context) error {
	return f.err
}

func (f *FakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
