package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/events"
	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	widgetService "github.com/zhouzirui/strombreaker/widget/internal/service/widget"
	"github.com/zhouzirui/strombreaker/widget/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Subscriber streams the display events of a session.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan chatService.Event, error)
}

var _ Subscriber = (*events.Bus)(nil)

// Handler 通过 Server-Sent Events 推送挂件显示事件
type Handler struct {
	widgets   *widgetService.Service
	events    Subscriber
	heartbeat time.Duration
}

// New creates a new stream handler
func New(widgets *widgetService.Service, events Subscriber) *Handler {
	return &Handler{widgets: widgets, events: events, heartbeat: heartbeatInterval}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/{sessionID}/events", h.handleEvents)
}

// Snapshot is the first event of a stream: the state a page needs to render
// before incremental events arrive.
type Snapshot struct {
	SessionID  string                     `json:"sessionId"`
	Messages   []chat.Message             `json:"messages"`
	Dashboard  *chatService.DashboardView `json:"dashboard,omitempty"`
	Meditation chatService.TimerView      `json:"meditation"`
	Selection  int                        `json:"selection"`
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctl, err := h.widgets.Controller(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	stream, err := h.events.Subscribe(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("component", "sse").Str("session_id", sessionID).Msg("subscribe failed")
		utils.RespondError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	snapshot := Snapshot{
		SessionID:  sessionID,
		Messages:   ctl.Transcript(),
		Meditation: ctl.MeditationStatus(),
		Selection:  ctl.MoodSelection(),
	}
	if view, ok := ctl.Dashboard(); ok {
		snapshot.Dashboard = &view
	}
	if err := utils.SendSSEEvent(w, flusher, "snapshot", snapshot); err != nil {
		return
	}

	log.Debug().Str("component", "sse").Str("session_id", sessionID).Msg("stream opened")
	defer log.Debug().Str("component", "sse").Str("session_id", sessionID).Msg("stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
