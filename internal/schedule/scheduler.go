package schedule

import (
	"sync"
	"time"
)

// Cue is one scripted message, played Offset after the script starts.
type Cue struct {
	Offset time.Duration
	Text   string
}

// Script is an ordered list of cues.
type Script []Cue

// Span returns the offset of the last cue.
func (s Script) Span() time.Duration {
	var span time.Duration
	for _, cue := range s {
		if cue.Offset > span {
			span = cue.Offset
		}
	}
	return span
}

// Scheduler plays scripts against a Clock.
type Scheduler struct {
	clock Clock
}

// NewScheduler returns a Scheduler using clock, or the real clock when nil.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock}
}

// Clock returns the clock the scheduler plays against.
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// Playback is a running script. Cancel stops every cue that has not fired yet.
type Playback struct {
	mu        sync.Mutex
	timers    []Timer
	remaining int
	cancelled bool
	done      chan struct{}
	closeOnce sync.Once
}

// Play emits cues with a non-positive offset synchronously, in order, and
// schedules the rest. emit is never called while the playback lock is held.
func (s *Scheduler) Play(script Script, emit func(Cue)) *Playback {
	p := &Playback{done: make(chan struct{})}

	for _, cue := range script {
		if cue.Offset <= 0 {
			emit(cue)
		}
	}

	p.mu.Lock()
	for _, cue := range script {
		if cue.Offset <= 0 {
			continue
		}
		cue := cue
		p.remaining++
		p.timers = append(p.timers, s.clock.AfterFunc(cue.Offset, func() {
			p.fire(cue, emit)
		}))
	}
	empty := p.remaining == 0
	p.mu.Unlock()

	if empty {
		p.finish()
	}
	return p
}

func (p *Playback) fire(cue Cue, emit func(Cue)) {
	p.mu.Lock()
	if p.cancelled {
		p.mu.Unlock()
		return
	}
	p.remaining--
	last := p.remaining == 0
	p.mu.Unlock()

	emit(cue)
	if last {
		p.finish()
	}
}

// Cancel stops the cues that have not fired. It is safe to call more than once.
func (p *Playback) Cancel() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.cancelled {
		p.mu.Unlock()
		return
	}
	p.cancelled = true
	timers := p.timers
	p.timers = nil
	p.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	p.finish()
}

// Cancelled reports whether Cancel was called.
func (p *Playback) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// Done is closed once every cue fired or the playback was cancelled.
func (p *Playback) Done() <-chan struct{} {
	return p.done
}

func (p *Playback) finish() {
	p.closeOnce.Do(func() { close(p.done) })
}
