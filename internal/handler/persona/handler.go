package persona

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas persona.Store
}

// New 创建persona处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{id}", h.handleGetPersona)
}

// handleListPersonas 列出所有persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := h.personas.List(r.Context())
	if err != nil {
		utils.RespondAppError(w, apperr.Service("list personas", err))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"count":    len(personas),
		"personas": personas,
	})
}

// handleGetPersona 获取单个persona
func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := h.personas.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, persona.ErrNotFound) {
		utils.RespondAppError(w, apperr.NotFound("Persona"))
		return
	}
	if err != nil {
		utils.RespondAppError(w, apperr.Service("load persona", err))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{"persona": p})
}
