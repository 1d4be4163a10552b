package chat

import (
	"time"

	"github.com/zhouzirui/strombreaker/widget/internal/analysis/mood"
	"github.com/zhouzirui/strombreaker/widget/internal/model/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/model/wellness"
)

// EventType names a display event.
type EventType string

const (
	EventMessage          EventType = "message"
	EventTyping           EventType = "typing"
	EventMood             EventType = "mood"
	EventMoodSelected     EventType = "mood_selected"
	EventSuggestions      EventType = "suggestions"
	EventDashboard        EventType = "dashboard"
	EventMeditationScript EventType = "meditation_script"
	EventMeditationTimer  EventType = "meditation_timer"
	EventError            EventType = "error"
)

// Event is what the controller asks the rendering layer to show.
// Only the field matching Type is set.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`

	Message     *chat.Message  `json:"message,omitempty"`
	Typing      *bool          `json:"typing,omitempty"`
	Mood        *mood.Reading  `json:"mood,omitempty"`
	Selection   *int           `json:"selection,omitempty"`
	Suggestions []Suggestion   `json:"suggestions,omitempty"`
	Dashboard   *DashboardView `json:"dashboard,omitempty"`
	Meditation  *string        `json:"meditation,omitempty"`
	Timer       *TimerView     `json:"timer,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Listener receives display events. OnEvent is called from whichever goroutine
// produced the event and never while controller state is locked.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

// Suggestion is a quick-reply button offered after an assistant turn.
type Suggestion struct {
	Activity   string `json:"activity"`
	QuickReply string `json:"quickReply"`
	// Exercise is the local guided exercise the suggestion maps to, if any.
	Exercise string `json:"exercise,omitempty"`
}

// DashboardView is the truncated dashboard the widget renders.
type DashboardView struct {
	StreakCount      int                  `json:"streakCount"`
	MoodTrend        []wellness.MoodPoint `json:"moodTrend"`
	RecentActivities []ActivityView       `json:"recentActivities"`
	Badges           []wellness.Badge     `json:"badges"`
}

// ActivityView is a recent activity with its date formatted for display.
type ActivityView struct {
	ActivityType string `json:"activityType"`
	Duration     int    `json:"duration,omitempty"`
	Timestamp    string `json:"timestamp"`
	Date         string `json:"date"`
}

const (
	dashboardMoodPoints = 7
	dashboardActivities = 5
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func newDashboardView(d *wellness.Dashboard) DashboardView {
	view := DashboardView{
		StreakCount:      d.StreakCount,
		MoodTrend:        make([]wellness.MoodPoint, 0, dashboardMoodPoints),
		RecentActivities: make([]ActivityView, 0, dashboardActivities),
		Badges:           append([]wellness.Badge(nil), d.BadgesEarned...),
	}

	for i, point := range d.MoodTrend {
		if i == dashboardMoodPoints {
			break
		}
		view.MoodTrend = append(view.MoodTrend, point)
	}

	for i, activity := range d.RecentActivities {
		if i == dashboardActivities {
			break
		}
		view.RecentActivities = append(view.RecentActivities, ActivityView{
			ActivityType: activity.ActivityType,
			Duration:     activity.Duration,
			Timestamp:    activity.Timestamp,
			Date:         displayDate(activity.Timestamp),
		})
	}
	return view
}

// displayDate renders a backend timestamp as M/D/YYYY, or returns it unchanged
// when no known layout matches.
func displayDate(raw string) string {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Format("1/2/2006")
		}
	}
	return raw
}

func (v DashboardView) clone() DashboardView {
	return DashboardView{
		StreakCount:      v.StreakCount,
		MoodTrend:        append([]wellness.MoodPoint(nil), v.MoodTrend...),
		RecentActivities: append([]ActivityView(nil), v.RecentActivities...),
		Badges:           append([]wellness.Badge(nil), v.Badges...),
	}
}
