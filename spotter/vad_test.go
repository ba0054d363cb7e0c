package spotter

import (
	"encoding/binary"
	"math"
	"testing"
)

func genTone(freq float64, durationMs int) []byte {
	n := 16000 * durationMs / 1000
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}

func genSilence(durationMs int) []byte {
	return make([]byte, 16000*durationMs/1000*2)
}

func TestVADSilence(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genSilence(200))
	if vp.HasSpeechSinceMark() {
		t.Error("expected no speech on silence")
	}
}

func TestVADOddChunkSizes(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	// 200ms of silence in 100-byte chunks (not aligned to 640-byte frames)
	silence := genSilence(200)
	for i := 0; i < len(silence); i += 100 {
		end := min(i+100, len(silence))
		vp.Process(silence[i:end])
	}
	if vp.HasSpeechSinceMark() {
		t.Error("expected no speech on silence with odd chunks")
	}
}

func TestVADMarkAdvances(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genTone(440, 200))
	vp.HasSpeechSinceMark() // consume whatever the tone classified as
	if vp.HasSpeechSinceMark() {
		t.Error("expected no new frames after mark")
	}
}

func TestVADReset(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genTone(440, 200))
	vp.Reset()
	if vp.HasSpeechSinceMark() {
		t.Error("expected no speech after reset")
	}
}
