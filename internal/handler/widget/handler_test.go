package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/strombreaker/widget/internal/identity"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	wellnessapi "github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
	widgetService "github.com/zhouzirui/strombreaker/widget/internal/service/widget"
)

type fakeWellness struct {
	mu      sync.Mutex
	chatErr error
	moodErr error
	moods   []wellness.MoodEntry
}

func (f *fakeWellness) SendChatTurn(_ context.Context, req wellness.ChatRequest) (*wellness.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &wellness.ChatResponse{Response: "reply: " + req.Message}, nil
}

func (f *fakeWellness) FetchDashboard(_ context.Context, userID string) (*wellness.Dashboard, error) {
	return &wellness.Dashboard{UserID: userID, StreakCount: 2}, nil
}

func (f *fakeWellness) SubmitMood(_ context.Context, entry wellness.MoodEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moodErr != nil {
		return f.moodErr
	}
	f.moods = append(f.moods, entry)
	return nil
}

func (f *fakeWellness) LogActivity(context.Context, wellness.ActivityLog) error { return nil }

func (f *fakeWellness) FetchMeditationScript(context.Context, int) (*wellness.MeditationScript, error) {
	return &wellness.MeditationScript{Script: "breathe"}, nil
}

func (f *fakeWellness) FetchJournalingPrompts(context.Context) ([]string, error) {
	return []string{"one"}, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *widgetService.Service, *fakeWellness) {
	t.Helper()
	api := &fakeWellness{}
	svc := widgetService.NewService(api, identity.NewMemoryStore("user_handler"))
	t.Cleanup(svc.CloseAll)

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, svc, api
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/widget/session", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var session struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.UserID != "user_handler" {
		t.Fatalf("unexpected user id %q", session.UserID)
	}
	return session.ID
}

func TestSendMessageReturnsTranscript(t *testing.T) {
	r, _, _ := setupRouter(t)
	id := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/widget/"+id+"/messages", map[string]string{"message": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Messages []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 2 || body.Messages[1].Text != "reply: hello" {
		t.Fatalf("unexpected transcript: %+v", body.Messages)
	}
}

func TestSendMessageFailureStillSucceeds(t *testing.T) {
	r, _, api := setupRouter(t)
	api.chatErr = &wellnessapi.NetworkError{Op: "chat", Err: errors.New("down")}
	id := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/widget/"+id+"/messages", map[string]string{"message": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("trouble connecting")) {
		t.Fatalf("expected fallback reply, got %s", resp.Body.String())
	}
}

func TestUnknownSession(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := do(t, r, http.MethodPost, "/widget/missing/messages", map[string]string{"message": "hello"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestMoodValidation(t *testing.T) {
	r, _, api := setupRouter(t)
	id := createSession(t, r)

	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/mood", map[string]string{"notes": "x"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without selection, got %d", resp.Code)
	}
	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/mood/select", map[string]int{"score": 7}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range score, got %d", resp.Code)
	}
	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/mood/select", map[string]int{"score": 2}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	api.mu.Lock()
	api.moodErr = &wellnessapi.NetworkError{Op: "mood", StatusCode: 500, Err: errors.New("boom")}
	api.mu.Unlock()
	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/mood", map[string]string{"notes": "x"}); resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on backend failure, got %d", resp.Code)
	}

	api.mu.Lock()
	api.moodErr = nil
	api.mu.Unlock()
	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/mood", map[string]string{"notes": "x"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(api.moods) != 1 || api.moods[0].MoodLabel != "down" {
		t.Fatalf("unexpected mood submissions: %+v", api.moods)
	}
}

func TestStartActivity(t *testing.T) {
	r, svc, _ := setupRouter(t)
	id := createSession(t, r)

	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/activities/yoga", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown activity, got %d", resp.Code)
	}
	if resp := do(t, r, http.MethodPost, "/widget/"+id+"/activities/gratitude", nil); resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	messages, _ := svc.LoadTranscript(context.Background(), id)
	if len(messages) == 0 {
		t.Fatal("expected the gratitude intro in the transcript")
	}
}

func TestMeditationToggleAndStop(t *testing.T) {
	r, _, _ := setupRouter(t)
	id := createSession(t, r)

	resp := do(t, r, http.MethodPost, "/widget/"+id+"/meditation/toggle", nil)
	var status chatService.TimerView
	_ = json.Unmarshal(resp.Body.Bytes(), &status)
	if status.State != chatService.TimerRunning {
		t.Fatalf("expected running timer, got %+v", status)
	}

	resp = do(t, r, http.MethodPost, "/widget/"+id+"/meditation/stop", nil)
	_ = json.Unmarshal(resp.Body.Bytes(), &status)
	if status.State != chatService.TimerIdle || status.Display != "5:00" {
		t.Fatalf("expected reset timer, got %+v", status)
	}
}

func TestDashboardAndClose(t *testing.T) {
	r, _, _ := setupRouter(t)
	id := createSession(t, r)

	resp := do(t, r, http.MethodGet, "/widget/"+id+"/dashboard", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var view chatService.DashboardView
	_ = json.Unmarshal(resp.Body.Bytes(), &view)
	if view.StreakCount != 2 {
		t.Fatalf("unexpected dashboard: %+v", view)
	}

	if resp := do(t, r, http.MethodDelete, "/widget/session/"+id, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := do(t, r, http.MethodGet, "/widget/"+id+"/transcript", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{widgetService.ErrSessionNotFound, http.StatusNotFound},
		{chatService.ErrNoMoodSelected, http.StatusBadRequest},
		{&wellnessapi.NetworkError{Op: "x", Err: errors.New("y")}, http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
