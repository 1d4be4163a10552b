package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("62"))
)

// printer renders display events as console lines.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	styled   bool
	done     chan struct{}
	quitOnce sync.Once
}

func newPrinter(out io.Writer, styled bool) *printer {
	return &printer{out: out, styled: styled, done: make(chan struct{})}
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *printer) banner(userID, apiURL string) {
	p.println(p.render(titleStyle, "StromBreaker chat") + " " + p.render(metaStyle, fmt.Sprintf("user=%s backend=%s (/help for commands)", userID, apiURL)))
}

func (p *printer) notice(s string) {
	p.println(p.render(metaStyle, s))
}

func (p *printer) failure(err error) {
	p.println(p.render(errorStyle, "error: "+err.Error()))
}

func (p *printer) quit() {
	p.quitOnce.Do(func() { close(p.done) })
}

func (p *printer) OnEvent(ev chatService.Event) {
	if line := p.format(ev); line != "" {
		p.println(line)
	}
}

func (p *printer) format(ev chatService.Event) string {
	switch ev.Type {
	case chatService.EventMessage:
		if ev.Message == nil {
			return ""
		}
		if ev.Message.Sender == chat.SenderUser {
			return p.render(userStyle, "you: ") + ev.Message.Text
		}
		return p.render(assistantStyle, "bot: "+ev.Message.Text)
	case chatService.EventTyping:
		if ev.Typing != nil && *ev.Typing {
			return p.render(metaStyle, "bot is typing...")
		}
	case chatService.EventMood:
		if ev.Mood != nil {
			return p.render(metaStyle, fmt.Sprintf("mood: %s (%.2f)", ev.Mood.Label, ev.Mood.Score))
		}
	case chatService.EventMoodSelected:
		if ev.Selection != nil && *ev.Selection > 0 {
			return p.render(metaStyle, fmt.Sprintf("mood selected: %d", *ev.Selection))
		}
	case chatService.EventSuggestions:
		parts := make([]string, 0, len(ev.Suggestions))
		for _, s := range ev.Suggestions {
			parts = append(parts, "/reply "+s.Activity)
		}
		return p.render(metaStyle, "suggestions: "+strings.Join(parts, " | "))
	case chatService.EventDashboard:
		if ev.Dashboard != nil {
			return p.render(metaStyle, fmt.Sprintf("dashboard: streak %d, %d mood points, %d recent activities, %d badges",
				ev.Dashboard.StreakCount, len(ev.Dashboard.MoodTrend), len(ev.Dashboard.RecentActivities), len(ev.Dashboard.Badges)))
		}
	case chatService.EventMeditationScript:
		if ev.Meditation != nil && *ev.Meditation != "" {
			return p.render(titleStyle, "meditation") + "\n" + *ev.Meditation
		}
	case chatService.EventMeditationTimer:
		// every tick would flood the console; show state changes and whole minutes
		if ev.Timer != nil && (ev.Timer.State != chatService.TimerRunning || ev.Timer.Remaining%60 == 0) {
			return p.render(metaStyle, fmt.Sprintf("meditation %s %s", ev.Timer.State, ev.Timer.Display))
		}
	case chatService.EventError:
		return p.render(errorStyle, ev.Error)
	}
	return ""
}
