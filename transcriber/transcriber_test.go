package transcriber

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func pcmSilence(ms int) []byte {
	return make([]byte, 16000*ms/1000*2)
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotField, gotFilename string
	var gotMagic []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		defer file.Close()
		gotField = "file"
		gotFilename = header.Filename
		gotMagic = make([]byte, 4)
		io.ReadFull(file, gotMagic)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": "hello world"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "wav", 0)
	text, err := c.Transcribe(context.Background(), pcmSilence(500))
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if gotPath != "/transcribe" {
		t.Errorf("path = %q, want /transcribe", gotPath)
	}
	if gotField != "file" || gotFilename != "audio.wav" {
		t.Errorf("form file = %s/%s, want file/audio.wav", gotField, gotFilename)
	}
	if string(gotMagic) != "RIFF" {
		t.Errorf("upload magic = %q, want RIFF", gotMagic)
	}
}

func TestTranscribeFlacUpload(t *testing.T) {
	var gotFilename string
	var gotMagic []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		gotMagic = make([]byte, 4)
		io.ReadFull(file, gotMagic)
		io.WriteString(w, `{"text": ""}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "flac", 0)
	if _, err := c.Transcribe(context.Background(), pcmSilence(500)); err != nil {
		t.Fatal(err)
	}
	if gotFilename != "audio.flac" {
		t.Errorf("filename = %q, want audio.flac", gotFilename)
	}
	if string(gotMagic) != "fLaC" {
		t.Errorf("upload magic = %q, want fLaC", gotMagic)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "wav", 0)
	_, err := c.Transcribe(context.Background(), pcmSilence(500))
	if err == nil {
		t.Fatal("expected error on 503")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error = %v, want status and body", err)
	}
}

func TestTranscribeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := New(srv.URL, "wav", 0)
	_, err := c.Transcribe(context.Background(), pcmSilence(500))
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("error = %v, want parse error", err)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, `{"text": "late"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "wav", 20*time.Millisecond)
	_, err := c.Transcribe(context.Background(), pcmSilence(500))
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestTranscribeContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := New(srv.URL, "wav", 0)
	if _, err := c.Transcribe(ctx, pcmSilence(500)); err == nil {
		t.Fatal("expected context error")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "wav", 0) // trailing slash must not break routing
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health = %v, want nil", err)
	}
}

func TestHealthDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "starting", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "wav", 0)
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error on 503")
	}
}

func TestNewUnknownFormat(t *testing.T) {
	c := New("http://localhost:1", "ogg", 0)
	if _, err := c.Transcribe(context.Background(), pcmSilence(100)); err == nil {
		t.Error("expected error for unknown format")
	}
}
