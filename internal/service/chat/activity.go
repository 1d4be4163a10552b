package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
	"github.com/zhouzirui/strombreaker/widget/internal/schedule"
	wellnessapi "github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
)

// Activity kinds offered by the widget.
const (
	ActivityMeditation = "meditation"
	ActivityBreathing  = "breathing"
	ActivityJournaling = "journaling"
	ActivityGratitude  = "gratitude"
)

// Exercise is a guided exercise played as a timed message script.
type Exercise interface {
	Kind() string
	// NominalDuration is the duration in seconds logged when the exercise starts.
	NominalDuration() int
	Script(ctx context.Context, api wellnessapi.API) (schedule.Script, error)
}

// fallbackExercise is implemented by exercises that still show something when
// their script cannot be built. A fallback run is not logged.
type fallbackExercise interface {
	FallbackScript() schedule.Script
}

func defaultExercises() map[string]Exercise {
	list := []Exercise{breathingExercise{}, journalingExercise{}, gratitudeExercise{}}
	out := make(map[string]Exercise, len(list))
	for _, ex := range list {
		out[ex.Kind()] = ex
	}
	return out
}

// NominalDuration reports the seconds logged for kind.
func NominalDuration(kind string) (int, bool) {
	if kind == ActivityMeditation {
		return MeditationDurationSeconds, true
	}
	ex, ok := defaultExercises()[kind]
	if !ok {
		return 0, false
	}
	return ex.NominalDuration(), true
}

// StartActivity starts a guided activity. Starting a scripted exercise
// cancels the one still playing.
func (c *Controller) StartActivity(ctx context.Context, kind string) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == ActivityMeditation {
		c.StartMeditation(ctx)
		return nil
	}

	ex, ok := c.exercises[kind]
	if !ok {
		return &ValidationError{Field: "activity", Reason: fmt.Sprintf("unknown activity %q", kind)}
	}
	if c.isClosed() {
		return nil
	}

	callCtx, cancel := c.callContext(ctx)
	script, err := ex.Script(callCtx, c.api)
	cancel()

	if err != nil {
		c.logger.Warn().Err(err).Str("activity", kind).Msg("exercise script unavailable")
		fb, ok := ex.(fallbackExercise)
		if !ok {
			return err
		}
		c.play(fb.FallbackScript())
		return nil
	}

	c.play(script)
	c.logActivity(ctx, kind, ex.NominalDuration())
	return nil
}

func (c *Controller) play(script schedule.Script) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	previous := c.playback
	c.playback = nil
	c.mu.Unlock()
	previous.Cancel()

	playback := c.scheduler.Play(script, func(cue schedule.Cue) {
		c.appendMessage(chat.SenderAssistant, cue.Text)
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		playback.Cancel()
		return
	}
	previous = c.playback
	c.playback = playback
	c.mu.Unlock()
	previous.Cancel()
}

// logActivity records a completed activity and refreshes the dashboard.
// Failures are logged only.
func (c *Controller) logActivity(ctx context.Context, kind string, seconds int) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	err := c.api.LogActivity(callCtx, wellness.ActivityLog{
		UserID:           c.session.UserID,
		ActivityType:     kind,
		Duration:         seconds,
		CompletionStatus: wellness.CompletionCompleted,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("activity", kind).Msg("activity log failed")
		return
	}
	if c.isClosed() {
		return
	}
	_ = c.LoadDashboard(ctx)
}

type breathingExercise struct{}

func (breathingExercise) Kind() string         { return ActivityBreathing }
func (breathingExercise) NominalDuration() int { return 21 }

// 4-7-8 breathing: inhale 4, hold 7, exhale 8.
func (breathingExercise) Script(context.Context, wellnessapi.API) (schedule.Script, error) {
	return schedule.Script{
		{Offset: 0, Text: "Let's do a breathing exercise together. I'll guide you through 4-7-8 breathing."},
		{Offset: 1 * time.Second, Text: "Breathe in slowly for 4 counts... 1... 2... 3... 4..."},
		{Offset: 6 * time.Second, Text: "Hold your breath for 7 counts... 1... 2... 3... 4... 5... 6... 7..."},
		{Offset: 13 * time.Second, Text: "Exhale slowly for 8 counts... 1... 2... 3... 4... 5... 6... 7... 8..."},
		{Offset: 21 * time.Second, Text: "Great job! How do you feel after that breathing exercise?"},
	}, nil
}

type gratitudeExercise struct{}

func (gratitudeExercise) Kind() string         { return ActivityGratitude }
func (gratitudeExercise) NominalDuration() int { return 8 }

func (gratitudeExercise) Script(context.Context, wellnessapi.API) (schedule.Script, error) {
	return schedule.Script{
		{Offset: 0, Text: "Let's practice gratitude together. Think of three things you're grateful for today."},
		{Offset: 3 * time.Second, Text: "Take a moment to reflect on each one. How do they make you feel?"},
		{Offset: 8 * time.Second, Text: "Gratitude practice can help shift your perspective and improve your mood. How was this exercise for you?"},
	}, nil
}

type journalingExercise struct{}

func (journalingExercise) Kind() string         { return ActivityJournaling }
func (journalingExercise) NominalDuration() int { return 15 }

func (journalingExercise) Script(ctx context.Context, api wellnessapi.API) (schedule.Script, error) {
	prompts, err := api.FetchJournalingPrompts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch journaling prompts")
	}

	script := schedule.Script{{Offset: 0, Text: "Here are some journaling prompts to get you started:"}}
	for i, prompt := range prompts {
		script = append(script, schedule.Cue{
			Offset: time.Duration(i+1) * time.Second,
			Text:   fmt.Sprintf("%d. %s", i+1, prompt),
		})
	}
	return script, nil
}

func (journalingExercise) FallbackScript() schedule.Script {
	return schedule.Script{
		{Offset: 0, Text: "Here are some journaling prompts: What are three things you're grateful for today?"},
	}
}

// StartMeditation fetches the five minute script, shows it and starts the
// countdown. A missing script does not prevent the countdown.
func (c *Controller) StartMeditation(ctx context.Context) {
	if c.isClosed() {
		return
	}

	callCtx, cancel := c.callContext(ctx)
	script, err := c.api.FetchMeditationScript(callCtx, MeditationDurationSeconds/60)
	cancel()

	text := ""
	if err != nil {
		c.logger.Warn().Err(err).Msg("meditation script unavailable")
	} else {
		text = script.Script
	}
	c.emit(Event{Type: EventMeditationScript, Meditation: &text})
	c.meditation.Start()
}

// ToggleMeditation pauses or resumes the countdown, starting it when idle.
func (c *Controller) ToggleMeditation() {
	if c.isClosed() {
		return
	}
	c.meditation.Toggle()
}

// StopMeditation closes the meditation overlay: the countdown resets and
// the session is logged with its full duration.
func (c *Controller) StopMeditation(ctx context.Context) {
	if c.isClosed() {
		return
	}
	c.meditation.Stop()
	c.logActivity(ctx, ActivityMeditation, MeditationDurationSeconds)
}

// MeditationStatus returns the countdown snapshot.
func (c *Controller) MeditationStatus() TimerView {
	return c.meditation.Status()
}

func (c *Controller) onTimerChange(view TimerView) {
	c.emit(Event{Type: EventMeditationTimer, Timer: &view})
}

func (c *Controller) onMeditationComplete() {
	c.appendMessage(chat.SenderAssistant, MeditationCompleteText)
	c.logActivity(c.ctx, ActivityMeditation, MeditationDurationSeconds)
}
