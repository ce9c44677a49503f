package recording

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/middleware"
	practiceService "github.com/zhouzirui/msl-practice/backend/internal/service/practice"
	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

// Handler 录音上传与处理的 HTTP 处理器
type Handler struct {
	pipeline *practiceService.Pipeline
}

// New 创建录音处理器
func New(pipeline *practiceService.Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// RegisterRoutes 注册录音相关路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/recording/upload-url", h.handleUploadURL)
	r.Post("/sessions/{sessionID}/recording/process", h.handleProcess)
	r.Get("/sessions/{sessionID}/recording/{index}", h.handleGet)
	r.Get("/sessions/{sessionID}/recordings", h.handleList)
}

// handleUploadURL 签发上传地址；请求体可省略
func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FileType string `json:"fileType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondAppError(w, apperr.Validation("body", "invalid request body"))
		return
	}

	grant, err := h.pipeline.RequestUploadURL(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()), payload.FileType)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"uploadUrl": grant.UploadURL,
		"key":       grant.Key,
		"expiresIn": grant.ExpiresIn,
	})
}

// handleProcess 转写并分析已上传的录音
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req practiceService.ProcessRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	res, err := h.pipeline.ProcessRecording(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()), req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"message":        "Recording processed successfully",
		"transcription":  res.Transcription,
		"analysis":       res.Analysis,
		"recordingIndex": res.RecordingIndex,
	})
}

// handleGet 返回录音详情和新的下载地址
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondAppError(w, apperr.NotFound("Recording"))
		return
	}

	view, err := h.pipeline.GetRecording(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()), index)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"downloadUrl":   view.DownloadURL,
		"transcription": view.Transcription,
		"analysis":      view.Analysis,
		"duration":      view.Duration,
		"questionIndex": view.QuestionIndex,
		"uploadedAt":    view.UploadedAt,
		"expiresIn":     view.ExpiresIn,
	})
}

// handleList 列出会话内的录音摘要
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.pipeline.ListRecordings(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"count":      len(list),
		"recordings": list,
	})
}
