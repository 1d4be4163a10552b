package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/strombreaker/widget/internal/schedule"
)

// MeditationDurationSeconds is the length of a guided meditation session.
const MeditationDurationSeconds = 300

// MeditationCompleteText is appended when the countdown reaches zero.
const MeditationCompleteText = "Great job! You completed your meditation session. How do you feel?"

// TimerState is the meditation countdown state.
type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
)

// TimerView is a snapshot of the countdown.
type TimerView struct {
	State     TimerState `json:"state"`
	Remaining int        `json:"remaining"`
	Total     int        `json:"total"`
	Display   string     `json:"display"`
}

// MeditationTimer counts down once per second.
//
//	Idle -> Running <-> Paused
//	Running -> Idle   (reaching zero, or Stop)
//
// Reaching zero resets the countdown and calls onComplete exactly once.
// Callbacks run outside the timer lock.
type MeditationTimer struct {
	clock      schedule.Clock
	total      int
	onChange   func(TimerView)
	onComplete func()

	mu        sync.Mutex
	state     TimerState
	remaining int
	pending   schedule.Timer
	gen       uint64
}

// NewMeditationTimer returns an idle timer of total seconds.
func NewMeditationTimer(clock schedule.Clock, total int, onChange func(TimerView), onComplete func()) *MeditationTimer {
	if clock == nil {
		clock = schedule.RealClock()
	}
	if total <= 0 {
		total = MeditationDurationSeconds
	}
	if onChange == nil {
		onChange = func(TimerView) {}
	}
	if onComplete == nil {
		onComplete = func() {}
	}
	return &MeditationTimer{
		clock:      clock,
		total:      total,
		onChange:   onChange,
		onComplete: onComplete,
		state:      TimerIdle,
		remaining:  total,
	}
}

// Start begins ticking from Idle. In any other state it does nothing.
func (t *MeditationTimer) Start() {
	t.mu.Lock()
	if t.state != TimerIdle {
		t.mu.Unlock()
		return
	}
	t.state = TimerRunning
	t.scheduleLocked()
	view := t.viewLocked()
	t.mu.Unlock()

	t.onChange(view)
}

// Toggle pauses a running timer and resumes a paused one. An idle timer starts.
func (t *MeditationTimer) Toggle() {
	t.mu.Lock()
	switch t.state {
	case TimerIdle:
		t.mu.Unlock()
		t.Start()
		return
	case TimerRunning:
		t.state = TimerPaused
		t.stopLocked()
	case TimerPaused:
		t.state = TimerRunning
		t.scheduleLocked()
	}
	view := t.viewLocked()
	t.mu.Unlock()

	t.onChange(view)
}

// Stop cancels ticking and resets the countdown.
func (t *MeditationTimer) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.state = TimerIdle
	t.remaining = t.total
	view := t.viewLocked()
	t.mu.Unlock()

	t.onChange(view)
}

// Status returns the current countdown snapshot.
func (t *MeditationTimer) Status() TimerView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

func (t *MeditationTimer) tick(gen uint64) {
	t.mu.Lock()
	// stale callback from a paused or stopped run
	if gen != t.gen || t.state != TimerRunning {
		t.mu.Unlock()
		return
	}

	t.remaining--
	completed := t.remaining <= 0
	if completed {
		t.pending = nil
		t.state = TimerIdle
		t.remaining = t.total
	} else {
		t.scheduleLocked()
	}
	view := t.viewLocked()
	t.mu.Unlock()

	t.onChange(view)
	if completed {
		t.onComplete()
	}
}

func (t *MeditationTimer) scheduleLocked() {
	t.gen++
	gen := t.gen
	t.pending = t.clock.AfterFunc(time.Second, func() { t.tick(gen) })
}

func (t *MeditationTimer) stopLocked() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *MeditationTimer) viewLocked() TimerView {
	return TimerView{
		State:     t.state,
		Remaining: t.remaining,
		Total:     t.total,
		Display:   FormatCountdown(t.remaining),
	}
}

// FormatCountdown renders seconds as m:ss.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
