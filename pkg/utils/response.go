package utils

import (
	"encoding/json"
	"maps"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
)

// RespondJSON 发送 JSON 响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// RespondSuccess 发送 {success: true, ...fields} 响应
func RespondSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	maps.Copy(body, fields)
	body["success"] = true
	RespondJSON(w, status, body)
}

// RespondError 发送 {success: false, error} 响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]any{"success": false, "error": message})
}

// RespondAppError 按错误类型映射状态码；未知错误一律 500
func RespondAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if appErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", string(appErr.Kind)).Msg("request failed")
	}
	RespondError(w, apperr.StatusOf(appErr), appErr.Message)
}

// DecodeJSON 解析请求体；空体或格式错误返回校验错误
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("body", "invalid request body")
	}
	return nil
}
