package widget_test

import (
	"context"
	"sync"
	"testing"

	"github.com/zhouzirui/strombreaker/widget/internal/identity"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/service/widget"
)

type stubAPI struct {
	mu          sync.Mutex
	dashFetches []string
}

func (s *stubAPI) SendChatTurn(_ context.Context, req wellness.ChatRequest) (*wellness.ChatResponse, error) {
	return &wellness.ChatResponse{Response: "ok"}, nil
}

func (s *stubAPI) FetchDashboard(_ context.Context, userID string) (*wellness.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashFetches = append(s.dashFetches, userID)
	return &wellness.Dashboard{UserID: userID, StreakCount: 1}, nil
}

func (s *stubAPI) SubmitMood(context.Context, wellness.MoodEntry) error     { return nil }
func (s *stubAPI) LogActivity(context.Context, wellness.ActivityLog) error { return nil }

func (s *stubAPI) FetchMeditationScript(context.Context, int) (*wellness.MeditationScript, error) {
	return &wellness.MeditationScript{}, nil
}

func (s *stubAPI) FetchJournalingPrompts(context.Context) ([]string, error) {
	return nil, nil
}

func TestServiceCreateSessionLoadsDashboard(t *testing.T) {
	api := &stubAPI{}
	var mu sync.Mutex
	seen := map[string][]chatService.EventType{}
	svc := widget.NewService(api, identity.NewMemoryStore("user_fixed"), widget.WithListenerFactory(func(sessionID string) chatService.Listener {
		return chatService.ListenerFunc(func(ev chatService.Event) {
			mu.Lock()
			defer mu.Unlock()
			seen[sessionID] = append(seen[sessionID], ev.Type)
		})
	}))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.UserID != "user_fixed" {
		t.Fatalf("unexpected user ID: got %s", session.UserID)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}

	if len(api.dashFetches) != 1 || api.dashFetches[0] != "user_fixed" {
		t.Fatalf("expected one dashboard fetch for user_fixed, got %v", api.dashFetches)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen[session.ID]) != 1 || seen[session.ID][0] != chatService.EventDashboard {
		t.Fatalf("expected dashboard event for session, got %v", seen[session.ID])
	}
}

func TestServiceSessionsShareIdentity(t *testing.T) {
	svc := widget.NewService(&stubAPI{}, identity.NewMemoryStore(""))
	ctx := context.Background()

	first, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	second, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("expected distinct session IDs")
	}
	if first.UserID != second.UserID {
		t.Fatalf("expected shared user ID, got %s and %s", first.UserID, second.UserID)
	}
}

func TestServiceTranscript(t *testing.T) {
	svc := widget.NewService(&stubAPI{}, identity.NewMemoryStore("user_fixed"))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	ctl, err := svc.Controller(session.ID)
	if err != nil {
		t.Fatalf("Controller err: %v", err)
	}
	ctl.SendMessage(ctx, "hello")

	messages, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(messages) != 2 || messages[1].Text != "ok" {
		t.Fatalf("unexpected transcript: %+v", messages)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := widget.NewService(&stubAPI{}, identity.NewMemoryStore(""))

	if _, err := svc.GetSession(context.Background(), "missing"); err != widget.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceCloseSession(t *testing.T) {
	svc := widget.NewService(&stubAPI{}, identity.NewMemoryStore(""))

	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	ctl, _ := svc.Controller(session.ID)

	if err := svc.CloseSession(session.ID); err != nil {
		t.Fatalf("CloseSession err: %v", err)
	}
	if !ctl.Closed() {
		t.Fatal("expected controller to be closed")
	}
	if err := svc.CloseSession(session.ID); err != widget.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound on second close, got %v", err)
	}

	if _, err := svc.CreateSession(context.Background()); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	svc.CloseAll()
	if svc.Len() != 0 {
		t.Fatalf("expected no open sessions, got %d", svc.Len())
	}
}
