package audio

import "sync"

// FakeContext and FakeCapture let tests drive the capture path by hand.

type FakeContext struct {
	DeviceList []DeviceInfo
	Capture    *FakeCapture
}

func NewFakeContext() *FakeContext {
	return &FakeContext{Capture: NewFakeCapture()}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.DeviceList, nil }

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return f.Capture, nil
}

func (f *FakeContext) Close() {}

type FakeCapture struct {
	mu      sync.Mutex
	cb      DataCallback
	started bool
	StartErr error
}

func NewFakeCapture() *FakeCapture {
	return &FakeCapture{}
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Push delivers raw PCM to the registered callback, as the audio thread would.
func (f *FakeCapture) Push(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/2))
	}
}
