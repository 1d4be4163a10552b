// Package chat implements the widget's chat session controller: the
// conversation log, the mood picker, guided exercises and the meditation
// countdown of one widget session.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/analysis/mood"
	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
	"github.com/zhouzirui/strombreaker/widget/internal/schedule"
	wellnessapi "github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
)

// FallbackReply is appended when a chat turn fails for any reason.
const FallbackReply = "I'm sorry, I'm having trouble connecting right now. Please try again."

// QuickReplyPrefix prefixes the message sent by a suggestion button.
const QuickReplyPrefix = "I want to try: "

// Controller owns one widget session. It is safe for concurrent use; every
// backend call blocks only its caller.
type Controller struct {
	session    chat.Session
	api        wellnessapi.API
	clock      schedule.Clock
	scheduler  *schedule.Scheduler
	listeners  []Listener
	timeout    time.Duration
	exercises  map[string]Exercise
	meditation *MeditationTimer
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	messages  []chat.Message
	selection mood.Level
	dashboard *DashboardView
	playback  *schedule.Playback
	closed    bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock sets the clock driving guided exercises and the meditation timer.
func WithClock(clock schedule.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithListener adds a display event listener.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// WithRequestTimeout bounds each backend call. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(id) != "" {
			c.session.ID = id
		}
	}
}

// NewController creates a controller bound to userID for its whole lifetime.
func NewController(userID string, api wellnessapi.API, opts ...Option) (*Controller, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("chat: user id is required")
	}
	if api == nil {
		return nil, errors.New("chat: wellness api is required")
	}

	c := &Controller{
		session: chat.Session{
			ID:     uuid.NewString(),
			UserID: userID,
		},
		api:      api,
		clock:    schedule.RealClock(),
		messages: make([]chat.Message, 0, 16),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.session.CreatedAt = c.clock.Now().UTC()
	c.scheduler = schedule.NewScheduler(c.clock)
	c.exercises = defaultExercises()
	c.meditation = NewMeditationTimer(c.clock, MeditationDurationSeconds, c.onTimerChange, c.onMeditationComplete)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.logger = log.With().
		Str("component", "chat").
		Str("session_id", c.session.ID).
		Str("user_id", userID).
		Logger()

	return c, nil
}

// Session returns the session metadata.
func (c *Controller) Session() chat.Session {
	return c.session
}

// Transcript returns a copy of the conversation log in display order.
func (c *Controller) Transcript() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]chat.Message, len(c.messages))
	copy(copied, c.messages)
	return copied
}

// Dashboard returns the last successfully loaded dashboard.
func (c *Controller) Dashboard() (DashboardView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dashboard == nil {
		return DashboardView{}, false
	}
	return c.dashboard.clone(), true
}

// SendMessage appends the user's text and asks the backend for a reply.
// Blank input is ignored. Failures never reach the caller: the fallback
// reply is appended instead.
func (c *Controller) SendMessage(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if !c.appendMessage(chat.SenderUser, text) {
		return
	}
	c.emitTyping(true)

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SendChatTurn(callCtx, wellness.ChatRequest{
		UserID:  c.session.UserID,
		Message: text,
	})
	if c.isClosed() {
		return
	}
	c.emitTyping(false)

	if err != nil {
		c.logger.Warn().Err(err).Msg("chat turn failed")
		c.appendMessage(chat.SenderAssistant, FallbackReply)
		return
	}

	c.appendMessage(chat.SenderAssistant, resp.Response)

	if resp.MoodScore != nil {
		reading := mood.Read(*resp.MoodScore, resp.MoodLabel)
		c.emit(Event{Type: EventMood, Mood: &reading})
	}

	if len(resp.SuggestedActivities) > 0 {
		suggestions := make([]Suggestion, 0, len(resp.SuggestedActivities))
		for _, activity := range resp.SuggestedActivities {
			s := Suggestion{Activity: activity, QuickReply: QuickReplyPrefix + activity}
			if kind, ok := mood.MatchExercise(activity); ok {
				s.Exercise = kind
			}
			suggestions = append(suggestions, s)
		}
		c.emit(Event{Type: EventSuggestions, Suggestions: suggestions})
	}
}

// SendQuickReply sends the message a suggestion button carries.
func (c *Controller) SendQuickReply(ctx context.Context, activity string) {
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return
	}
	c.SendMessage(ctx, QuickReplyPrefix+activity)
}

// LoadDashboard fetches the dashboard. On failure the previous view is kept;
// the error is logged and returned.
func (c *Controller) LoadDashboard(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	d, err := c.api.FetchDashboard(callCtx, c.session.UserID)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dashboard load failed")
		return err
	}

	view := newDashboardView(d)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.dashboard = &view
	c.mu.Unlock()

	out := view.clone()
	c.emit(Event{Type: EventDashboard, Dashboard: &out})
	return nil
}

// Close tears the session down. Guided playback and the meditation timer
// stop, in-flight calls are cancelled and their late results dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	playback := c.playback
	c.playback = nil
	c.mu.Unlock()

	playback.Cancel()
	c.meditation.Stop()
	c.cancel()
	c.logger.Debug().Msg("session closed")
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	return c.isClosed()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// appendMessage adds a message and emits it. It reports false once closed.
func (c *Controller) appendMessage(sender chat.Sender, text string) bool {
	msg := chat.Message{
		ID:        uuid.NewString(),
		SessionID: c.session.ID,
		Sender:    sender,
		Text:      text,
		CreatedAt: c.clock.Now().UTC(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.emit(Event{Type: EventMessage, Message: &msg})
	return true
}

func (c *Controller) emitTyping(active bool) {
	c.emit(Event{Type: EventTyping, Typing: &active})
}

func (c *Controller) emit(ev Event) {
	if c.isClosed() {
		return
	}
	ev.SessionID = c.session.ID
	if ev.At.IsZero() {
		ev.At = c.clock.Now().UTC()
	}
	for _, l := range c.listeners {
		l.OnEvent(ev)
	}
}

// callContext derives the context of one backend call. It is cancelled by
// the caller's ctx, the request timeout or Close.
func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = c.ctx
	}

	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
