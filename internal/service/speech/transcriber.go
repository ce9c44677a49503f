// Package speech turns stored recordings into text through a pluggable
// speech-to-text backend.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/msl-practice/backend/internal/blob"
	"github.com/zhouzirui/msl-practice/backend/internal/config"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	speechmodel "github.com/zhouzirui/msl-practice/backend/internal/model/speech"
)

// ErrEmptyTranscript is returned when the recognizer hears nothing.
var ErrEmptyTranscript = errors.New("transcription is empty")

// maxAudioBytes bounds how much of a recording is read into memory.
const maxAudioBytes = 64 << 20

// Recognizer converts raw audio bytes into text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, audio []byte, format string) (*speechmodel.Transcript, error)
}

// NewRecognizer builds the recognizer selected by cfg.Provider.
func NewRecognizer(cfg config.SpeechConfig) (Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", speechmodel.ProviderVolcengine:
		rec, err := NewVolcengineRecognizer(VolcengineConfig{
			AppID:          cfg.AppID,
			AccessToken:    cfg.AccessToken,
			ConcurrentMode: cfg.ConcurrentMode,
			Language:       cfg.ASRLanguage,
			Timeout:        cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return rec, nil
	case speechmodel.ProviderWhisper:
		rec, err := NewWhisperRecognizer(WhisperConfig{
			URL:      cfg.WhisperURL,
			Model:    cfg.WhisperModel,
			Language: whisperLanguage(cfg.ASRLanguage),
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("unsupported speech provider %q", cfg.Provider)
	}
}

// whisperLanguage reduces a locale such as en-US to the ISO code whisper expects.
func whisperLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(lang)
}

// Transcriber reads a recording from blob storage and recognizes it.
type Transcriber struct {
	blobs      blob.Store
	recognizer Recognizer
	log        zerolog.Logger
}

// NewTranscriber wires a blob store to a recognizer.
func NewTranscriber(blobs blob.Store, recognizer Recognizer) *Transcriber {
	return &Transcriber{
		blobs:      blobs,
		recognizer: recognizer,
		log:        logger.Component("transcriber"),
	}
}

// Transcribe downloads key and returns its text. The audio format is taken
// from the key's extension.
func (t *Transcriber) Transcribe(ctx context.Context, key string) (string, error) {
	if t.recognizer == nil {
		return "", errors.New("speech recognition not configured")
	}

	rc, err := t.blobs.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer rc.Close()

	audio, err := io.ReadAll(io.LimitReader(rc, maxAudioBytes+1))
	if err != nil {
		return "", fmt.Errorf("read recording: %w", err)
	}
	if len(audio) > maxAudioBytes {
		return "", fmt.Errorf("recording exceeds %d bytes", maxAudioBytes)
	}

	transcript, err := t.recognizer.Recognize(ctx, audio, speechmodel.FormatFromKey(key))
	if err != nil {
		return "", fmt.Errorf("%s recognition: %w", t.recognizer.Name(), err)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return "", ErrEmptyTranscript
	}

	t.log.Info().
		Str("key", key).
		Str("provider", transcript.Provider).
		Int("bytes", len(audio)).
		Int("chars", len(transcript.Text)).
		Msg("recording transcribed")
	return transcript.Text, nil
}
