package trigger

import (
	"sync"
	"time"
)

type Source string

const (
	SourceWakeWord Source = "wake_word"
	SourceHotkey   Source = "hotkey"
)

type Kind string

const (
	KindStart Kind = "start"
	KindStop  Kind = "stop"
)

// Trigger is one discrete Start/Stop intent from a trigger source.
type Trigger struct {
	Source Source
	Kind   Kind
	At     time.Time
}

// Bus merges wake-word and hotkey intents into one ordered stream.
// At most one trigger per kind is held while the consumer is busy: a later
// trigger of the same kind overwrites the unconsumed one, while a Start
// followed by a Stop are both preserved in order.
type Bus struct {
	listening func() bool

	mu      sync.Mutex
	pending []Trigger

	wake chan struct{}
	out  chan Trigger
	done chan struct{}
	once sync.Once
}

// NewBus creates a bus. listening reports whether the orchestrator is
// currently in a recording session; the bus uses it to give polarity to
// toggle signals.
func NewBus(listening func() bool) *Bus {
	b := &Bus{
		listening: listening,
		wake:      make(chan struct{}, 1),
		out:       make(chan Trigger),
		done:      make(chan struct{}),
	}
	go b.pump()
	return b
}

// Toggle maps a polarity-free signal from src to Start or Stop based on
// current orchestrator state.
func (b *Bus) Toggle(src Source) {
	kind := KindStart
	if b.listening() {
		kind = KindStop
	}
	b.Publish(Trigger{Source: src, Kind: kind, At: time.Now()})
}

// Publish enqueues a trigger, coalescing with a pending trigger of the
// same kind.
func (b *Bus) Publish(t Trigger) {
	b.mu.Lock()
	replaced := false
	for i := range b.pending {
		if b.pending[i].Kind == t.Kind {
			b.pending[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		b.pending = append(b.pending, t)
	}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Triggers is the merged stream consumed by the session manager.
func (b *Bus) Triggers() <-chan Trigger {
	return b.out
}

func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
}

// repeekInterval bounds how long a pending trigger can go stale while the
// consumer is busy: the pump re-reads the head so a same-kind overwrite
// takes effect before delivery.
const repeekInterval = 5 * time.Millisecond

func (b *Bus) pump() {
	timer := time.NewTimer(repeekInterval)
	defer timer.Stop()
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.mu.Unlock()
			select {
			case <-b.wake:
				continue
			case <-b.done:
				return
			}
		}
		t := b.pending[0]
		b.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(repeekInterval)

		select {
		case b.out <- t:
			b.mu.Lock()
			// Pop only if the head was not overwritten while we were
			// waiting on delivery; an overwrite goes out next round.
			if len(b.pending) > 0 && b.pending[0] == t {
				b.pending = b.pending[1:]
			}
			b.mu.Unlock()
		case <-timer.C:
			// Re-peek the head in case it was overwritten.
		case <-b.done:
			return
		}
	}
}
