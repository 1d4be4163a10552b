package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/identity"
	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/schedule"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
)

var ErrSessionNotFound = errors.New("session not found")

// ListenerFactory builds the display listener of a new session.
type ListenerFactory func(sessionID string) chatService.Listener

// Service keeps one chat controller per open widget session.
type Service struct {
	api       wellness.API
	identity  identity.Store
	clock     schedule.Clock
	listeners ListenerFactory
	timeout   time.Duration

	mu       sync.RWMutex
	sessions map[string]*chatService.Controller
}

// Option customises a Service.
type Option func(*Service)

// WithClock sets the clock handed to every controller.
func WithClock(clock schedule.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithListenerFactory attaches a display listener to every new session.
func WithListenerFactory(f ListenerFactory) Option {
	return func(s *Service) { s.listeners = f }
}

// WithRequestTimeout bounds each backend call made by a controller.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService bootstraps the in-memory session registry.
func NewService(api wellness.API, store identity.Store, opts ...Option) *Service {
	s := &Service{
		api:      api,
		identity: store,
		sessions: make(map[string]*chatService.Controller),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession resolves the user identity, opens a controller and loads the
// initial dashboard. A dashboard failure does not fail the session.
func (s *Service) CreateSession(ctx context.Context) (chat.Session, error) {
	userID, err := identity.GetOrCreate(ctx, s.identity)
	if err != nil {
		return chat.Session{}, err
	}

	sessionID := uuid.NewString()
	opts := []chatService.Option{
		chatService.WithSessionID(sessionID),
		chatService.WithRequestTimeout(s.timeout),
	}
	if s.clock != nil {
		opts = append(opts, chatService.WithClock(s.clock))
	}
	if s.listeners != nil {
		opts = append(opts, chatService.WithListener(s.listeners(sessionID)))
	}

	ctl, err := chatService.NewController(userID, s.api, opts...)
	if err != nil {
		return chat.Session{}, err
	}

	s.mu.Lock()
	s.sessions[sessionID] = ctl
	s.mu.Unlock()

	log.Info().Str("component", "widget").Str("session_id", sessionID).Str("user_id", userID).Msg("session opened")

	_ = ctl.LoadDashboard(ctx)
	return ctl.Session(), nil
}

// Controller returns the controller of an open session.
func (s *Service) Controller(sessionID string) (*chatService.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctl, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctl, nil
}

// GetSession retrieves session metadata by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	ctl, err := s.Controller(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return ctl.Session(), nil
}

// LoadTranscript returns the conversation log of the session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	ctl, err := s.Controller(sessionID)
	if err != nil {
		return nil, err
	}
	return ctl.Transcript(), nil
}

// CloseSession tears the session down and forgets it.
func (s *Service) CloseSession(sessionID string) error {
	s.mu.Lock()
	ctl, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	ctl.Close()
	log.Info().Str("component", "widget").Str("session_id", sessionID).Msg("session closed")
	return nil
}

// CloseAll closes every open session.
func (s *Service) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*chatService.Controller)
	s.mu.Unlock()

	for _, ctl := range sessions {
		ctl.Close()
	}
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
