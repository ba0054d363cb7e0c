package spotter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"murmur/audio"
	"murmur/trigger"
)

type detectorFunc func(ctx context.Context, pcm []byte) (bool, error)

func (f detectorFunc) Detect(ctx context.Context, pcm []byte) (bool, error) {
	return f(ctx, pcm)
}

type toggleRecorder struct {
	mu      sync.Mutex
	toggles []trigger.Source
}

func (r *toggleRecorder) Toggle(src trigger.Source) {
	r.mu.Lock()
	r.toggles = append(r.toggles, src)
	r.mu.Unlock()
}

func (r *toggleRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toggles)
}

func testFrame(seq uint64) audio.Frame {
	samples := 16000 * int(audio.FrameDuration) / int(time.Second)
	return audio.Frame{Seq: seq, PCM: make([]byte, samples*2), Time: time.Now()}
}

// feedSeconds pushes the given span of frames through the spotter with a
// small real-time gap so probe cadence elapses.
func feedSeconds(s *Spotter, span time.Duration) {
	n := int(span / audio.FrameDuration)
	for i := 0; i < n; i++ {
		s.Feed(testFrame(uint64(i)))
		time.Sleep(time.Millisecond)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func testConfig() Config {
	return Config{
		Window:     2 * time.Second,
		ProbeEvery: 10 * time.Millisecond,
		Debounce:   time.Second,
	}
}

func TestSpotterFiresOnDetection(t *testing.T) {
	rec := &toggleRecorder{}
	det := detectorFunc(func(_ context.Context, pcm []byte) (bool, error) {
		return true, nil
	})
	s := newSpotter(testConfig(), det, rec, nil)

	feedSeconds(s, 1500*time.Millisecond)
	waitFor(t, func() bool { return rec.count() >= 1 })
}

func TestSpotterDebounceCollapsesDuplicates(t *testing.T) {
	rec := &toggleRecorder{}
	det := detectorFunc(func(_ context.Context, pcm []byte) (bool, error) {
		return true, nil
	})
	s := newSpotter(testConfig(), det, rec, nil)

	// Several probe windows fill within one debounce span; every probe
	// matches, but only one toggle may fire.
	feedSeconds(s, 3*time.Second)
	waitFor(t, func() bool { return rec.count() >= 1 })
	time.Sleep(100 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Errorf("toggles = %d, want 1 within debounce window", got)
	}
}

func TestSpotterNoFireWithoutMatch(t *testing.T) {
	rec := &toggleRecorder{}
	det := detectorFunc(func(_ context.Context, pcm []byte) (bool, error) {
		return false, nil
	})
	s := newSpotter(testConfig(), det, rec, nil)

	feedSeconds(s, 1500*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("toggles = %d, want 0", got)
	}
}

func TestSpotterDetectorErrorIsNonFatal(t *testing.T) {
	rec := &toggleRecorder{}
	calls := 0
	var mu sync.Mutex
	det := detectorFunc(func(_ context.Context, pcm []byte) (bool, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return false, errors.New("backend down")
	})
	s := newSpotter(testConfig(), det, rec, nil)

	feedSeconds(s, 3*time.Second)
	waitFor(t, func() bool { mu.Lock(); defer mu.Unlock(); return calls >= 2 })
	if rec.count() != 0 {
		t.Error("errors must not fire toggles")
	}
}

func TestSpotterNeedsMinimumAudio(t *testing.T) {
	rec := &toggleRecorder{}
	probed := false
	var mu sync.Mutex
	det := detectorFunc(func(_ context.Context, pcm []byte) (bool, error) {
		mu.Lock()
		probed = true
		mu.Unlock()
		return true, nil
	})
	s := newSpotter(testConfig(), det, rec, nil)

	// Half a second of audio is below the probe floor.
	feedSeconds(s, 500*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if probed {
		t.Error("probe fired below the minimum window")
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	w := newWindow(200 * time.Millisecond) // 4 frames at 50ms
	for i := 0; i < 6; i++ {
		f := testFrame(uint64(i))
		f.PCM[0] = byte(i)
		w.Append(f)
	}
	if got := w.Duration(); got != 200*time.Millisecond {
		t.Errorf("Duration = %v, want 200ms", got)
	}
	snap := w.Snapshot()
	if snap[0] != 2 {
		t.Errorf("oldest surviving frame = %d, want 2", snap[0])
	}
	w.Clear()
	if w.Duration() != 0 {
		t.Error("Clear left frames behind")
	}
}

func TestTranscribeDetector(t *testing.T) {
	tr := transcribeFunc(func(_ context.Context, pcm []byte) (string, error) {
		return "okay Nemo let's go", nil
	})
	d := NewTranscribeDetector(tr, "NEMO")
	ok, err := d.Detect(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected case-insensitive match")
	}

	tr2 := transcribeFunc(func(_ context.Context, pcm []byte) (string, error) {
		return "nothing here", nil
	})
	d2 := NewTranscribeDetector(tr2, "nemo")
	ok, err = d2.Detect(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unexpected match")
	}
}

type transcribeFunc func(ctx context.Context, pcm []byte) (string, error)

func (f transcribeFunc) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	return f(ctx, pcm)
}
