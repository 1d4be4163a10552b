package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/strombreaker/widget/internal/events"
	"github.com/zhouzirui/strombreaker/widget/internal/identity"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	widgetService "github.com/zhouzirui/strombreaker/widget/internal/service/widget"
)

type echoAPI struct{}

func (echoAPI) SendChatTurn(_ context.Context, req wellness.ChatRequest) (*wellness.ChatResponse, error) {
	return &wellness.ChatResponse{Response: "echo " + req.Message}, nil
}
func (echoAPI) FetchDashboard(context.Context, string) (*wellness.Dashboard, error) {
	return &wellness.Dashboard{}, nil
}
func (echoAPI) SubmitMood(context.Context, wellness.MoodEntry) error     { return nil }
func (echoAPI) LogActivity(context.Context, wellness.ActivityLog) error { return nil }
func (echoAPI) FetchMeditationScript(context.Context, int) (*wellness.MeditationScript, error) {
	return &wellness.MeditationScript{}, nil
}
func (echoAPI) FetchJournalingPrompts(context.Context) ([]string, error) { return nil, nil }

type envelope struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *widgetService.Service, string) {
	t.Helper()
	bus, err := events.NewBus(events.Config{})
	if err != nil {
		t.Fatalf("NewBus err: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })

	svc := widgetService.NewService(echoAPI{}, identity.NewMemoryStore("user_ws"),
		widgetService.WithListenerFactory(func(string) chatService.Listener { return bus.Sink() }))
	t.Cleanup(svc.CloseAll)

	r := chi.NewRouter()
	New(svc, bus).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/widget/" + session.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, svc, session.ID
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(envelope) bool) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(env) {
			return env
		}
	}
}

func TestWebSocketMessageRoundTrip(t *testing.T) {
	conn, _, _ := dial(t)

	snapshot := readUntil(t, conn, func(e envelope) bool { return e.Type == "snapshot" })
	if _, ok := snapshot.Data["messages"]; !ok {
		t.Fatalf("snapshot missing messages: %+v", snapshot)
	}

	if err := conn.WriteJSON(map[string]any{"type": "message", "data": map[string]string{"message": "hello"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := readUntil(t, conn, func(e envelope) bool {
		if e.Type != "event" || e.Data["type"] != "message" {
			return false
		}
		msg, _ := e.Data["message"].(map[string]interface{})
		return msg["sender"] == "assistant"
	})
	msg := reply.Data["message"].(map[string]interface{})
	if msg["text"] != "echo hello" {
		t.Fatalf("unexpected reply %+v", msg)
	}
}

func TestWebSocketReportsValidationErrors(t *testing.T) {
	conn, _, _ := dial(t)
	readUntil(t, conn, func(e envelope) bool { return e.Type == "snapshot" })

	if err := conn.WriteJSON(map[string]any{"type": "mood_save", "data": map[string]string{"notes": "x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := readUntil(t, conn, func(e envelope) bool { return e.Type == "error" })
	if !strings.Contains(env.Data["message"].(string), "no mood selected") {
		t.Fatalf("unexpected error %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	env = readUntil(t, conn, func(e envelope) bool { return e.Type == "error" })
	if !strings.Contains(env.Data["message"].(string), "unknown message type") {
		t.Fatalf("unexpected error %+v", env)
	}
}

func TestWebSocketSessionMismatch(t *testing.T) {
	conn, _, _ := dial(t)
	readUntil(t, conn, func(e envelope) bool { return e.Type == "snapshot" })

	if err := conn.WriteJSON(map[string]any{"type": "message", "sessionId": "other"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := readUntil(t, conn, func(e envelope) bool { return e.Type == "error" })
	if env.Data["message"] != "session mismatch" {
		t.Fatalf("unexpected error %+v", env)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	svc := widgetService.NewService(echoAPI{}, identity.NewMemoryStore("user_ws"))
	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/widget/missing/ws", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
