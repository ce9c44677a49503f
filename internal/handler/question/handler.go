package question

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	questionService "github.com/zhouzirui/msl-practice/backend/internal/service/question"
	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

// Handler 题库浏览的 HTTP 处理器
type Handler struct {
	bank *questionService.Bank
}

// New 创建题库处理器
func New(bank *questionService.Bank) *Handler {
	return &Handler{bank: bank}
}

// RegisterRoutes 注册题库路由；/random 与 /categories 必须先于 /{id}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/questions", h.handleList)
	r.Get("/questions/categories", h.handleCategories)
	r.Get("/questions/random", h.handleRandom)
	r.Get("/questions/{id}", h.handleGet)
}

// handleList 支持 category、difficulty、persona 过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	questions := h.bank.List(questionService.Filter{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Persona:    q.Get("persona"),
	})
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"count":     len(questions),
		"questions": questions,
	})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.bank.Categories()
	utils.RespondSuccess(w, http.StatusOK, map[string]any{
		"count":      len(categories),
		"categories": categories,
	})
}

func (h *Handler) handleRandom(w http.ResponseWriter, r *http.Request) {
	utils.RespondSuccess(w, http.StatusOK, map[string]any{"question": h.bank.Random()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondAppError(w, apperr.NotFound("Question"))
		return
	}
	entry, ok := h.bank.Get(id)
	if !ok {
		utils.RespondAppError(w, apperr.NotFound("Question"))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]any{"question": entry})
}
