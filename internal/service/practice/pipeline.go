package practice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/blob"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
	"github.com/zhouzirui/msl-practice/backend/internal/validation"
)

const (
	DefaultUploadTTL   = 10 * time.Minute
	DefaultDownloadTTL = time.Hour

	defaultContentType = "video/webm"
	recordingPrefix    = "recordings/"
)

// contentTypeExt maps accepted upload content types to object key extensions.
var contentTypeExt = map[string]string{
	"video/webm":  "webm",
	"audio/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mpeg":  "mp3",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/mp4":   "mp4",
	"video/mp4":   "mp4",
	"audio/x-m4a": "m4a",
	"audio/m4a":   "m4a",
}

// Transcriber turns a stored recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, key string) (string, error)
}

// Analyzer scores a transcribed answer.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, questionText string, p *persona.Persona) (practice.AnalysisResult, error)
}

// UploadGrant is returned by RequestUploadURL.
type UploadGrant struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// ProcessRequest is the input of ProcessRecording.
type ProcessRequest struct {
	StorageKey    string  `json:"s3Key" validate:"required"`
	Duration      float64 `json:"duration" validate:"gte=0"`
	QuestionIndex *int    `json:"questionIndex" validate:"required,gte=0"`
}

// ProcessResult is returned by ProcessRecording.
type ProcessResult struct {
	Transcription  string                  `json:"transcription"`
	Analysis       practice.AnalysisResult `json:"analysis"`
	RecordingIndex int                     `json:"recordingIndex"`
}

// RecordingView is one recording with a freshly minted download URL.
type RecordingView struct {
	DownloadURL   string                  `json:"downloadUrl"`
	Transcription string                  `json:"transcription"`
	Analysis      practice.AnalysisResult `json:"analysis"`
	Duration      float64                 `json:"duration"`
	QuestionIndex int                     `json:"questionIndex"`
	UploadedAt    time.Time               `json:"uploadedAt"`
	ExpiresIn     int                     `json:"expiresIn"`
}

// RecordingSummary is the list form of a recording.
type RecordingSummary struct {
	Index            int       `json:"index"`
	QuestionIndex    int       `json:"questionIndex"`
	Duration         float64   `json:"duration"`
	UploadedAt       time.Time `json:"uploadedAt"`
	ProcessedAt      time.Time `json:"processedAt"`
	HasTranscription bool      `json:"hasTranscription"`
	HasAnalysis      bool      `json:"hasAnalysis"`
	OverallScore     float64   `json:"overallScore"`
}

// PipelineConfig sets URL lifetimes. Zero values fall back to the defaults.
type PipelineConfig struct {
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// Pipeline moves a recording from upload grant through transcription and
// analysis into the session.
type Pipeline struct {
	sessions    practice.Store
	personas    persona.Store
	blobs       blob.Store
	transcriber Transcriber
	analyzer    Analyzer
	uploadTTL   time.Duration
	downloadTTL time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewPipeline wires the recording pipeline.
func NewPipeline(sessions practice.Store, personas persona.Store, blobs blob.Store, transcriber Transcriber, analyzer Analyzer, cfg PipelineConfig, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = DefaultUploadTTL
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = DefaultDownloadTTL
	}
	return &Pipeline{
		sessions:    sessions,
		personas:    personas,
		blobs:       blobs,
		transcriber: transcriber,
		analyzer:    analyzer,
		uploadTTL:   cfg.UploadTTL,
		downloadTTL: cfg.DownloadTTL,
		now:         o.now,
		log:         logger.Component("recording"),
	}
}

// RequestUploadURL reserves a storage key under the session and returns a
// time-limited upload URL for it.
func (p *Pipeline) RequestUploadURL(ctx context.Context, sessionID, userID, fileType string) (UploadGrant, error) {
	contentType := strings.ToLower(strings.TrimSpace(fileType))
	if contentType == "" {
		contentType = defaultContentType
	}
	ext, ok := contentTypeExt[contentType]
	if !ok {
		return UploadGrant{}, apperr.Validation("fileType", fmt.Sprintf("unsupported file type %q", fileType))
	}

	if _, err := loadOwnedSession(ctx, p.sessions, sessionID, userID); err != nil {
		return UploadGrant{}, err
	}

	key := fmt.Sprintf("%s%s/%d.%s", recordingPrefix, sessionID, p.now().UnixMilli(), ext)
	url, err := p.blobs.UploadURL(ctx, key, contentType, p.uploadTTL)
	if err != nil {
		return UploadGrant{}, apperr.Service("generate upload url", err)
	}
	return UploadGrant{UploadURL: url, Key: key, ExpiresIn: int(p.uploadTTL.Seconds())}, nil
}

// ProcessRecording transcribes and analyzes an uploaded recording and appends
// it to the session. Nothing is appended when either stage fails.
func (p *Pipeline) ProcessRecording(ctx context.Context, sessionID, userID string, req ProcessRequest) (ProcessResult, error) {
	if err := validation.Struct(req); err != nil {
		return ProcessResult{}, err
	}

	sess, err := loadOwnedSession(ctx, p.sessions, sessionID, userID)
	if err != nil {
		return ProcessResult{}, err
	}
	if !strings.HasPrefix(req.StorageKey, recordingPrefix+sessionID+"/") {
		return ProcessResult{}, apperr.Validation("s3Key", "s3Key does not belong to this session")
	}
	qIndex := *req.QuestionIndex
	if qIndex >= len(sess.Questions) {
		return ProcessResult{}, apperr.Validation("questionIndex", "questionIndex is out of range")
	}

	per, err := loadPersona(ctx, p.personas, sess.PersonaID)
	if err != nil {
		return ProcessResult{}, err
	}

	log := p.log.With().Str("session_id", sessionID).Str("key", req.StorageKey).Logger()

	transcript, err := p.transcriber.Transcribe(ctx, req.StorageKey)
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		return ProcessResult{}, apperr.Processing(err)
	}

	analysis, err := p.analyzer.Analyze(ctx, transcript, sess.Questions[qIndex].Text, per)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return ProcessResult{}, apperr.Processing(err)
	}

	processedAt := p.now().UTC()
	rec := practice.Recording{
		StorageKey:    req.StorageKey,
		Duration:      req.Duration,
		QuestionIndex: qIndex,
		Transcription: transcript,
		Analysis:      analysis,
		UploadedAt:    uploadedAt(req.StorageKey, processedAt),
		ProcessedAt:   processedAt,
	}
	index, err := p.sessions.AppendRecording(ctx, sessionID, rec)
	if err != nil {
		return ProcessResult{}, mapSessionErr("save recording", err)
	}

	log.Info().
		Int("recording_index", index).
		Float64("overall", analysis.Scores.Overall).
		Msg("recording processed")
	return ProcessResult{Transcription: transcript, Analysis: analysis, RecordingIndex: index}, nil
}

// GetRecording returns one recording with a new download URL.
func (p *Pipeline) GetRecording(ctx context.Context, sessionID, userID string, index int) (RecordingView, error) {
	sess, err := loadOwnedSession(ctx, p.sessions, sessionID, userID)
	if err != nil {
		return RecordingView{}, err
	}
	if index < 0 || index >= len(sess.Recordings) {
		return RecordingView{}, apperr.NotFound("Recording")
	}
	rec := sess.Recordings[index]

	url, err := p.blobs.DownloadURL(ctx, rec.StorageKey, p.downloadTTL)
	if err != nil {
		return RecordingView{}, apperr.Service("generate download url", err)
	}
	return RecordingView{
		DownloadURL:   url,
		Transcription: rec.Transcription,
		Analysis:      rec.Analysis,
		Duration:      rec.Duration,
		QuestionIndex: rec.QuestionIndex,
		UploadedAt:    rec.UploadedAt,
		ExpiresIn:     int(p.downloadTTL.Seconds()),
	}, nil
}

// ListRecordings summarises the session's recordings in append order.
func (p *Pipeline) ListRecordings(ctx context.Context, sessionID, userID string) ([]RecordingSummary, error) {
	sess, err := loadOwnedSession(ctx, p.sessions, sessionID, userID)
	if err != nil {
		return nil, err
	}

	out := make([]RecordingSummary, 0, len(sess.Recordings))
	for i, rec := range sess.Recordings {
		out = append(out, RecordingSummary{
			Index:            i,
			QuestionIndex:    rec.QuestionIndex,
			Duration:         rec.Duration,
			UploadedAt:       rec.UploadedAt,
			ProcessedAt:      rec.ProcessedAt,
			HasTranscription: rec.Transcription != "",
			HasAnalysis:      rec.Analysis.Summary != "",
			OverallScore:     rec.Analysis.Scores.Overall,
		})
	}
	return out, nil
}

// uploadedAt reads the millisecond timestamp embedded in a recording key.
func uploadedAt(key string, fallback time.Time) time.Time {
	name := key[strings.LastIndex(key, "/")+1:]
	stamp, _, _ := strings.Cut(name, ".")
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}
