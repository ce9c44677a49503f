package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

// Handler 健康检查
type Handler struct {
	now func() time.Time
}

// New 创建健康检查处理器
func New() *Handler {
	return &Handler{now: time.Now}
}

// RegisterRoutes 注册 /health
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
