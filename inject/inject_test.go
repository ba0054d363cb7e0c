package inject

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClipboard struct {
	mu      sync.Mutex
	content string
	copyErr error
	copies  []string
}

func (f *fakeClipboard) copyFn(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.content = text
	f.copies = append(f.copies, text)
	return nil
}

func (f *fakeClipboard) readFn() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, nil
}

func (f *fakeClipboard) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content
}

func newTestInjector(clip *fakeClipboard, pasteFn func() error) *Injector {
	if pasteFn == nil {
		pasteFn = func() error { return nil }
	}
	return &Injector{
		AutoPaste: true,
		copyFn:    clip.copyFn,
		readFn:    clip.readFn,
		pasteFn:   pasteFn,
		delay:     10 * time.Millisecond,
	}
}

func TestInjectCopiesAndPastes(t *testing.T) {
	clip := &fakeClipboard{}
	pasted := 0
	inj := newTestInjector(clip, func() error { pasted++; return nil })

	if err := inj.Inject("hello world"); err != nil {
		t.Fatal(err)
	}
	if clip.current() != "hello world" {
		t.Errorf("clipboard = %q, want %q", clip.current(), "hello world")
	}
	if pasted != 1 {
		t.Errorf("pastes = %d, want 1", pasted)
	}
}

func TestInjectRestoresClipboard(t *testing.T) {
	clip := &fakeClipboard{content: "previous"}
	inj := newTestInjector(clip, nil)

	if err := inj.Inject("new text"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if clip.current() == "previous" {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Errorf("clipboard = %q, want restored %q", clip.current(), "previous")
}

func TestInjectNoRestoreWhenEmpty(t *testing.T) {
	clip := &fakeClipboard{}
	inj := newTestInjector(clip, nil)

	if err := inj.Inject("text"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if clip.current() != "text" {
		t.Errorf("clipboard = %q, want %q kept", clip.current(), "text")
	}
}

func TestInjectCopyOnlyMode(t *testing.T) {
	clip := &fakeClipboard{content: "previous"}
	pasted := 0
	inj := newTestInjector(clip, func() error { pasted++; return nil })
	inj.AutoPaste = false

	if err := inj.Inject("text"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if pasted != 0 {
		t.Error("copy-only mode must not paste")
	}
	// No paste happened, so the text must stay available.
	if clip.current() != "text" {
		t.Errorf("clipboard = %q, want %q", clip.current(), "text")
	}
}

func TestInjectCopyError(t *testing.T) {
	clip := &fakeClipboard{copyErr: errors.New("no display")}
	inj := newTestInjector(clip, nil)

	if err := inj.Inject("text"); err == nil {
		t.Error("expected copy error")
	}
}

func TestInjectPasteError(t *testing.T) {
	clip := &fakeClipboard{}
	inj := newTestInjector(clip, func() error { return errors.New("no uinput") })

	if err := inj.Inject("text"); err == nil {
		t.Error("expected paste error")
	}
}
