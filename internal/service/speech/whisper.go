package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	speechmodel "github.com/zhouzirui/msl-practice/backend/internal/model/speech"
)

const (
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
)

// WhisperConfig configures the faster-whisper HTTP sidecar client.
type WhisperConfig struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

// WhisperRecognizer posts audio to a whisper sidecar's /transcribe endpoint.
type WhisperRecognizer struct {
	cfg    WhisperConfig
	client *http.Client
}

var _ Recognizer = (*WhisperRecognizer)(nil)

// NewWhisperRecognizer fills defaults. URL is required.
func NewWhisperRecognizer(cfg WhisperConfig) (*WhisperRecognizer, error) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" {
		return nil, errors.New("whisper url is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	return &WhisperRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (w *WhisperRecognizer) Name() string { return speechmodel.ProviderWhisper }

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

func (w *WhisperRecognizer) Recognize(ctx context.Context, audio []byte, format string) (*speechmodel.Transcript, error) {
	if len(audio) == 0 {
		return nil, errors.New("no audio data to send")
	}
	if format == "" {
		format = "wav"
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("audio", "audio."+format)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = form.WriteField("model", w.cfg.Model)
	if w.cfg.Language != "" {
		_ = form.WriteField("language", w.cfg.Language)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	var duration int64
	if n := len(out.Segments); n > 0 {
		duration = int64(out.Segments[n-1].End * 1000)
	}

	return &speechmodel.Transcript{
		Text:      strings.TrimSpace(out.Text),
		Duration:  duration,
		Language:  out.Language,
		Provider:  speechmodel.ProviderWhisper,
		RequestID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Healthy reports whether the sidecar answers GET /health with 200.
func (w *WhisperRecognizer) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
