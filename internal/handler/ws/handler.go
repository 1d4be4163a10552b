package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/handler/stream"
	handlerWidget "github.com/zhouzirui/strombreaker/widget/internal/handler/widget"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	widgetService "github.com/zhouzirui/strombreaker/widget/internal/service/widget"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket 挂件桥：接收界面命令，推送显示事件
type Handler struct {
	widgets  *widgetService.Service
	events   stream.Subscriber
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(widgets *widgetService.Service, events stream.Subscriber) *Handler {
	return &Handler{
		widgets: widgets,
		events:  events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// commandData is the union of inbound payloads.
type commandData struct {
	Message  string `json:"message"`
	Activity string `json:"activity"`
	Score    int    `json:"score"`
	Notes    string `json:"notes"`
	Kind     string `json:"kind"`
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) write(msg outgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(msg)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *conn) sendEvent(ev chatService.Event) {
	if err := c.write(outgoingMessage{Type: "event", SessionID: c.sessionID, Data: ev, Timestamp: time.Now().Unix()}); err != nil {
		log.Debug().Err(err).Str("component", "ws").Str("session_id", c.sessionID).Msg("write event failed")
	}
}

func (c *conn) sendError(message string) {
	if err := c.write(outgoingMessage{Type: "error", SessionID: c.sessionID, Data: map[string]string{"message": message}, Timestamp: time.Now().Unix()}); err != nil {
		log.Debug().Err(err).Str("component", "ws").Str("session_id", c.sessionID).Msg("write error failed")
	}
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctl, err := h.widgets.Controller(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "ws").Msg("upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws, sessionID: sessionID}

	feed, err := h.events.Subscribe(ctx, sessionID)
	if err != nil {
		c.sendError("subscribe failed")
		return
	}

	log.Info().Str("component", "ws").Str("session_id", sessionID).Msg("connection opened")
	defer log.Info().Str("component", "ws").Str("session_id", sessionID).Msg("connection closed")

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	snapshot := map[string]any{
		"messages":   ctl.Transcript(),
		"meditation": ctl.MeditationStatus(),
		"selection":  ctl.MoodSelection(),
	}
	if view, ok := ctl.Dashboard(); ok {
		snapshot["dashboard"] = view
	}
	if err := c.write(outgoingMessage{Type: "snapshot", SessionID: sessionID, Data: snapshot, Timestamp: time.Now().Unix()}); err != nil {
		return
	}

	go h.forward(ctx, c, feed)
	go h.pingLoop(ctx, c)

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("component", "ws").Str("session_id", sessionID).Msg("read error")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}

		// commands run concurrently; replies are not cancelled by a disconnect
		go h.handleCommand(context.WithoutCancel(ctx), c, ctl, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, c *conn, ctl *chatService.Controller, msg inboundMessage) {
	var data commandData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid " + msg.Type + " payload")
			return
		}
	}

	var err error
	switch msg.Type {
	case "message":
		ctl.SendMessage(ctx, data.Message)
	case "quick_reply":
		ctl.SendQuickReply(ctx, data.Activity)
	case "mood_select":
		err = ctl.SelectMood(data.Score)
	case "mood_save":
		err = ctl.SaveMood(ctx, data.Notes)
	case "activity":
		err = ctl.StartActivity(ctx, data.Kind)
	case "meditation_toggle":
		ctl.ToggleMeditation()
	case "meditation_stop":
		ctl.StopMeditation(ctx)
	case "dashboard":
		err = ctl.LoadDashboard(ctx)
	default:
		c.sendError("unknown message type: " + msg.Type)
		return
	}

	if err != nil {
		log.Debug().Err(err).Str("component", "ws").Str("session_id", c.sessionID).Str("type", msg.Type).Int("status", handlerWidget.StatusFor(err)).Msg("command failed")
		c.sendError(err.Error())
	}
}

func (h *Handler) forward(ctx context.Context, c *conn, events <-chan chatService.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.sendEvent(ev)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
