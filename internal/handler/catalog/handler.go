package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/strombreaker/widget/internal/model/activity"
	"github.com/zhouzirui/strombreaker/widget/pkg/utils"
)

// Handler 活动目录的HTTP处理器
type Handler struct {
	activities activity.Store
}

// New 创建活动目录处理器
func New(activities activity.Store) *Handler {
	return &Handler{activities: activities}
}

// RegisterRoutes 注册活动目录路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/catalog", h.handleList)
	r.Get("/widget/catalog/{kind}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.activities.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	card, ok := h.activities.FindByKind(chi.URLParam(r, "kind"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "activity not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, card)
}
