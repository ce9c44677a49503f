package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	speechmodel "github.com/zhouzirui/msl-practice/backend/internal/model/speech"
)

const (
	defaultVolcengineURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	resourceDuration   = "volc.bigasr.sauc.duration"   // 小时版
	resourceConcurrent = "volc.bigasr.sauc.concurrent" // 并发版

	// 16kHz 16bit 单声道约 200ms
	defaultChunkSize     = 6400
	defaultChunkInterval = 200 * time.Millisecond

	// 服务端成功码
	codeSuccess = 20000000
)

// VolcengineConfig 火山引擎流式识别配置
type VolcengineConfig struct {
	AppID          string
	AccessToken    string
	ConcurrentMode bool
	Language       string
	URL            string        // 默认为 bigmodel_nostream 端点
	ChunkSize      int           // 每包音频字节数
	ChunkInterval  time.Duration // 包间隔，负数表示不等待
	Timeout        time.Duration
}

// VolcengineRecognizer 通过 WebSocket 二进制协议调用火山引擎大模型识别。
type VolcengineRecognizer struct {
	cfg    VolcengineConfig
	dialer *websocket.Dialer
	log    zerolog.Logger
}

var _ Recognizer = (*VolcengineRecognizer)(nil)

// NewVolcengineRecognizer 校验凭证并填充默认值。
func NewVolcengineRecognizer(cfg VolcengineConfig) (*VolcengineRecognizer, error) {
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	if cfg.AppID == "" || cfg.AccessToken == "" {
		return nil, errors.New("volcengine asr requires app id and access token")
	}
	if cfg.URL == "" {
		cfg.URL = defaultVolcengineURL
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkInterval == 0 {
		cfg.ChunkInterval = defaultChunkInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &VolcengineRecognizer{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		log:    logger.Component("asr.volcengine"),
	}, nil
}

func (r *VolcengineRecognizer) Name() string { return speechmodel.ProviderVolcengine }

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

type asrResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// audioParams 将文件扩展名映射为服务端的 format/codec。
func audioParams(format string) (string, string) {
	switch format {
	case "ogg", "webm", "opus":
		return "ogg", "opus"
	case "mp3", "mpeg":
		return "mp3", ""
	case "pcm":
		return "pcm", "raw"
	default:
		return "wav", "raw"
	}
}

func (r *VolcengineRecognizer) buildRequest(requestID, format string) asrRequest {
	var req asrRequest
	req.User.UID = requestID
	req.Audio.Format, req.Audio.Codec = audioParams(format)
	req.Audio.Language = r.cfg.Language
	req.Audio.Rate = 16000
	req.Audio.Bits = 16
	req.Audio.Channel = 1
	req.Request.ModelName = "bigmodel"
	req.Request.EnableITN = true
	req.Request.EnablePunc = true
	req.Request.ShowUtterances = true
	req.Request.ResultType = "full"
	req.Request.EndWindowSize = 800
	return req
}

// Recognize 发送完整音频并等待服务端最后一包结果。
func (r *VolcengineRecognizer) Recognize(ctx context.Context, audio []byte, format string) (*speechmodel.Transcript, error) {
	if len(audio) == 0 {
		return nil, errors.New("no audio data to send")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	requestID := uuid.NewString()
	resourceID := resourceDuration
	if r.cfg.ConcurrentMode {
		resourceID = resourceConcurrent
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", r.cfg.AppID)
	header.Set("X-Api-Access-Key", r.cfg.AccessToken)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", requestID)

	conn, resp, err := r.dialer.DialContext(ctx, r.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR websocket: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			r.log.Debug().Str("logid", logID).Str("request_id", requestID).Msg("asr connected")
		}
	}

	// 上下文取消时关闭连接以解除阻塞的读写
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	payload, err := json.Marshal(r.buildRequest(requestID, format))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	first, err := newFullClientRequest(payload)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, first.Encode()); err != nil {
		return nil, fmt.Errorf("failed to send ASR request: %w", err)
	}

	type result struct {
		transcript *speechmodel.Transcript
		err        error
	}
	recvCh := make(chan result, 1)
	go func() {
		t, err := r.receive(conn, requestID)
		recvCh <- result{t, err}
	}()

	sendErrCh := make(chan error, 1)
	go func() {
		sendErrCh <- r.sendAudio(ctx, conn, audio)
	}()

	for {
		select {
		case err := <-sendErrCh:
			if err != nil {
				return nil, fmt.Errorf("failed to send audio data: %w", err)
			}
			sendErrCh = nil
		case res := <-recvCh:
			if res.err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return res.transcript, res.err
		}
	}
}

func (r *VolcengineRecognizer) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	// 首包占用序号 1，音频从 2 开始
	sequence := int32(2)
	for offset := 0; offset < len(audio); offset += r.cfg.ChunkSize {
		end := min(offset+r.cfg.ChunkSize, len(audio))
		last := end == len(audio)

		frame, err := newAudioRequest(audio[offset:end], sequence, last)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		sequence++

		if last || r.cfg.ChunkInterval < 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.ChunkInterval):
		}
	}
	return nil
}

func (r *VolcengineRecognizer) receive(conn *websocket.Conn, requestID string) (*speechmodel.Transcript, error) {
	var (
		text     string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ASR frame: %w", err)
		}

		switch frame.Type {
		case ErrorMessage:
			payload, _ := decompress(frame.Payload, frame.Compression)
			return nil, fmt.Errorf("ASR error %d: %s", frame.ErrorCode, string(payload))

		case FullServerResponse:
			payload, err := decompress(frame.Payload, frame.Compression)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress ASR payload: %w", err)
			}

			var resp asrResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				r.log.Warn().Err(err).Str("request_id", requestID).Msg("skip undecodable asr payload")
				continue
			}
			if resp.Code != 0 && resp.Code != codeSuccess {
				return nil, fmt.Errorf("ASR API error %d: %s", resp.Code, resp.Message)
			}

			candidate := resp.Result.Text
			if candidate == "" {
				candidate = joinUtterances(resp.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if resp.AudioInfo.Duration > 0 {
				duration = resp.AudioInfo.Duration
			}

			if frame.IsLast() {
				return &speechmodel.Transcript{
					Text:      strings.TrimSpace(text),
					Duration:  duration,
					Language:  r.cfg.Language,
					Provider:  speechmodel.ProviderVolcengine,
					RequestID: requestID,
					CreatedAt: time.Now().UTC(),
				}, nil
			}
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
