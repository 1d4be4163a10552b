package widget

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
	widgetService "github.com/zhouzirui/strombreaker/widget/internal/service/widget"
	"github.com/zhouzirui/strombreaker/widget/pkg/utils"
)

// Handler 挂件会话的HTTP处理器
type Handler struct {
	widgets *widgetService.Service
}

// New 创建挂件处理器
func New(widgets *widgetService.Service) *Handler {
	return &Handler{widgets: widgets}
}

// RegisterRoutes 注册挂件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/widget/session", h.handleCreateSession)
	r.Delete("/widget/session/{sessionID}", h.handleCloseSession)

	r.Get("/widget/{sessionID}/transcript", h.handleTranscript)
	r.Post("/widget/{sessionID}/messages", h.handleSendMessage)
	r.Post("/widget/{sessionID}/quick-reply", h.handleQuickReply)
	r.Post("/widget/{sessionID}/mood/select", h.handleSelectMood)
	r.Post("/widget/{sessionID}/mood", h.handleSaveMood)
	r.Post("/widget/{sessionID}/activities/{kind}", h.handleStartActivity)
	r.Post("/widget/{sessionID}/meditation/toggle", h.handleToggleMeditation)
	r.Post("/widget/{sessionID}/meditation/stop", h.handleStopMeditation)
	r.Get("/widget/{sessionID}/dashboard", h.handleDashboard)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.widgets.CreateSession(context.WithoutCancel(r.Context()))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.widgets.CloseSession(chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.widgets.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleSendMessage 发送消息，回复失败时返回的记录中包含兜底消息
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctl.SendMessage(context.WithoutCancel(r.Context()), payload.Message)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": ctl.Transcript()})
}

func (h *Handler) handleQuickReply(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Activity string `json:"activity"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctl.SendQuickReply(context.WithoutCancel(r.Context()), payload.Activity)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": ctl.Transcript()})
}

func (h *Handler) handleSelectMood(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Score int `json:"score"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := ctl.SelectMood(payload.Score); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]int{"selection": ctl.MoodSelection()})
}

func (h *Handler) handleSaveMood(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := ctl.SaveMood(context.WithoutCancel(r.Context()), payload.Notes); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) handleStartActivity(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	kind := chi.URLParam(r, "kind")
	if err := ctl.StartActivity(context.WithoutCancel(r.Context()), kind); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "activity": kind})
}

func (h *Handler) handleToggleMeditation(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctl.ToggleMeditation()
	utils.RespondJSON(w, http.StatusOK, ctl.MeditationStatus())
}

func (h *Handler) handleStopMeditation(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctl.StopMeditation(context.WithoutCancel(r.Context()))
	utils.RespondJSON(w, http.StatusOK, ctl.MeditationStatus())
}

// handleDashboard 刷新面板；刷新失败时返回上一次的数据
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	loadErr := ctl.LoadDashboard(context.WithoutCancel(r.Context()))
	view, ok := ctl.Dashboard()
	if !ok {
		if loadErr == nil {
			loadErr = errors.New("dashboard unavailable")
		}
		respondServiceError(w, loadErr)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*chatService.Controller, bool) {
	ctl, err := h.widgets.Controller(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return ctl, true
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	var validation *chatService.ValidationError
	switch {
	case errors.Is(err, widgetService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case wellness.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	utils.RespondError(w, StatusFor(err), err.Error())
}
