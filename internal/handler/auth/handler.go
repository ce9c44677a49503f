package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/msl-practice/backend/internal/middleware"
	authService "github.com/zhouzirui/msl-practice/backend/internal/service/auth"
	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

// Handler 注册、登录与当前用户接口
type Handler struct {
	auth *authService.Service
}

// New 创建鉴权处理器
func New(auth *authService.Service) *Handler {
	return &Handler{auth: auth}
}

// RegisterPublicRoutes 注册无需令牌的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

// RegisterRoutes 注册需要令牌的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authService.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authService.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"token": res.Token,
		"user":  res.User,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Me(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{"user": u})
}
