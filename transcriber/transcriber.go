// Package transcriber talks to the local speech-to-text server. The
// server exposes a multipart POST /transcribe endpoint and a GET /health
// probe; audio is shipped encoded, never as raw PCM.
package transcriber

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"murmur/encoder"
)

const defaultTimeout = 30 * time.Second

// errBodyLimit bounds how much of an error response ends up in logs.
const errBodyLimit = 2048

type Client struct {
	baseURL string
	format  string
	http    *http.Client
}

func New(serverURL, format string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		format:  format,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Format() string { return c.format }

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe encodes pcm (16kHz mono s16le) and posts it to the server.
func (c *Client) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	encoded, err := encodePCM(c.format, pcm)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.format, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio."+c.format)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(encoded); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return "", fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tResp transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tResp); err != nil {
		return "", fmt.Errorf("response parse error: %w", err)
	}
	return tResp.Text, nil
}

// Health probes the server. A failure here is a warning at startup, not a
// reason to refuse to run.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

func encodePCM(format string, pcm []byte) ([]byte, error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, err
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := min(i+encoder.BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
