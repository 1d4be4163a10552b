package chat

import (
	"context"
	"fmt"

	"github.com/zhouzirui/strombreaker/widget/internal/analysis/mood"
	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
)

const moodSaveFailedText = "Error saving mood. Please try again."

// SelectMood records the picker selection, 1 (struggling) to 5 (excellent).
func (c *Controller) SelectMood(score int) error {
	level := mood.Level(score)
	if !level.Valid() {
		return &ValidationError{Field: "mood", Reason: fmt.Sprintf("score %d out of range 1..5", score)}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.selection = level
	c.mu.Unlock()

	c.emit(Event{Type: EventMoodSelected, Selection: &score})
	return nil
}

// MoodSelection returns the selected level, or 0 when nothing is selected.
func (c *Controller) MoodSelection() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.selection)
}

// SaveMood submits the selected mood with notes. On success the selection is
// cleared, a confirmation is appended and the dashboard refreshed. Backend
// failures are returned and leave the selection in place.
func (c *Controller) SaveMood(ctx context.Context, notes string) error {
	c.mu.Lock()
	level := c.selection
	c.mu.Unlock()

	if level == 0 {
		return ErrNoMoodSelected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	err := c.api.SubmitMood(callCtx, wellness.MoodEntry{
		UserID:    c.session.UserID,
		MoodScore: float64(level),
		MoodLabel: level.Label(),
		Notes:     notes,
	})
	if err != nil {
		c.logger.Warn().Err(err).Int("mood", int(level)).Msg("mood save failed")
		c.emit(Event{Type: EventError, Error: moodSaveFailedText})
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	// a newer pick made while the submit was in flight stays selected
	cleared := c.selection == level
	if cleared {
		c.selection = 0
	}
	c.mu.Unlock()

	if cleared {
		none := 0
		c.emit(Event{Type: EventMoodSelected, Selection: &none})
	}
	c.appendMessage(chat.SenderAssistant, "Mood saved: "+level.Label())
	_ = c.LoadDashboard(ctx)
	return nil
}
