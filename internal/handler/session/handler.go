package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/msl-practice/backend/internal/middleware"
	practiceService "github.com/zhouzirui/msl-practice/backend/internal/service/practice"
	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

// Handler 练习会话的 HTTP 处理器
type Handler struct {
	manager *practiceService.Manager
}

// New 创建会话处理器
func New(manager *practiceService.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes 注册会话相关路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/start", h.handleStart)
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Post("/sessions/{sessionID}/answer", h.handleAnswer)
	r.Post("/sessions/{sessionID}/complete", h.handleComplete)
}

// handleStart 创建会话并生成题目
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req practiceService.StartRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	sess, err := h.manager.Start(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusCreated, map[string]any{
		"message": "Session started",
		"session": map[string]any{
			"sessionId":      sess.ID,
			"personaId":      sess.PersonaID,
			"personaName":    sess.PersonaName,
			"questions":      sess.Questions,
			"totalQuestions": len(sess.Questions),
		},
	})
}

// handleAnswer 提交一道题的回答
func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req practiceService.AnswerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	next, err := h.manager.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()), req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"message":           "Answer submitted",
		"nextQuestionIndex": next,
	})
}

// handleComplete 结束会话并返回统计
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	stats, err := h.manager.Complete(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"message": "Session completed",
		"stats":   stats,
	})
}

// handleList 列出当前用户的会话，最新的在前
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.manager.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleGet 获取单个会话
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Get(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{"session": sess})
}
