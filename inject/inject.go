// Package inject delivers finished text to the focused window. Text goes
// through the system clipboard followed by a synthetic paste keystroke;
// the previous clipboard content is restored shortly after.
package inject

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// restoreDelay leaves the pasted text on the clipboard long enough for
// the target application to consume it.
const restoreDelay = 600 * time.Millisecond

type Injector struct {
	// AutoPaste sends the paste keystroke after copying. When false the
	// text is only left on the clipboard.
	AutoPaste bool

	copyFn  func(string) error
	readFn  func() (string, error)
	pasteFn func() error
	delay   time.Duration
}

func New(autoPaste bool) *Injector {
	return &Injector{
		AutoPaste: autoPaste,
		copyFn:    Copy,
		readFn:    Read,
		pasteFn:   Paste,
		delay:     restoreDelay,
	}
}

func (i *Injector) Inject(text string) error {
	prev, _ := i.readFn()

	if err := i.copyFn(text); err != nil {
		return fmt.Errorf("clipboard copy: %w", err)
	}
	if !i.AutoPaste {
		return nil
	}
	if err := i.pasteFn(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}

	if prev != "" {
		go func() {
			time.Sleep(i.delay)
			i.copyFn(prev)
		}()
	}
	return nil
}
