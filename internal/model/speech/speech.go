package speech

import (
	"path"
	"strings"
	"time"
)

// Provider names accepted by SPEECH_PROVIDER.
const (
	ProviderVolcengine = "volcengine"
	ProviderWhisper    = "whisper"
)

// Transcript 语音识别结果
type Transcript struct {
	Text      string    `json:"text"`
	Duration  int64     `json:"duration"` // milliseconds, 0 when unknown
	Language  string    `json:"language,omitempty"`
	Provider  string    `json:"provider"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FormatFromKey returns the lower-case extension of a storage key or file
// name without the dot, e.g. "webm".
func FormatFromKey(key string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
}
