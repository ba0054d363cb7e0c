package beep

import "testing"

func TestTickLengthAndEnvelope(t *testing.T) {
	samples := tick(660, 0.1, 0.5, 40)
	if got, want := len(samples), int(sampleRate*0.1); got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}
	// The exponential envelope must decay: peak amplitude early, near
	// silence at the end.
	var earlyPeak, latePeak int16
	for _, s := range samples[:len(samples)/10] {
		if s > earlyPeak {
			earlyPeak = s
		}
	}
	for _, s := range samples[len(samples)-len(samples)/10:] {
		if s > latePeak {
			latePeak = s
		}
	}
	if earlyPeak <= latePeak {
		t.Errorf("envelope not decaying: early %d, late %d", earlyPeak, latePeak)
	}
}

func TestSilenceIsZero(t *testing.T) {
	for _, s := range silence(0.05) {
		if s != 0 {
			t.Fatal("silence has non-zero samples")
		}
	}
}

func TestConcat(t *testing.T) {
	got := concat([]int16{1, 2}, []int16{3}, nil, []int16{4})
	want := []int16{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("concat = %v, want %v", got, want)
		}
	}
}

func TestCueSamplesDiffer(t *testing.T) {
	Init()
	if len(listeningSamples) == 0 || len(doneSamples) == 0 || len(errorSamples) == 0 {
		t.Fatal("cue samples not generated")
	}
	if len(errorSamples) == len(listeningSamples) {
		t.Error("error cue should differ from listening cue")
	}
}
