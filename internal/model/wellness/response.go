package wellness

// ChatResponse 对话响应. MoodScore is nil when the backend did not score the turn.
type ChatResponse struct {
	Response            string   `json:"response"`
	MoodScore           *float64 `json:"mood_score,omitempty"`
	MoodLabel           string   `json:"mood_label,omitempty"`
	SuggestedActivities []string `json:"suggested_activities,omitempty"`
}

// Dashboard 用户面板数据, newest entries first.
type Dashboard struct {
	UserID           string           `json:"user_id"`
	StreakCount      int              `json:"streak_count"`
	MoodTrend        []MoodPoint      `json:"mood_trend"`
	RecentActivities []ActivityRecord `json:"recent_activities"`
	BadgesEarned     []Badge          `json:"badges_earned"`
}

// MoodPoint is one entry of the mood trend.
type MoodPoint struct {
	MoodScore float64 `json:"mood_score"`
	MoodLabel string  `json:"mood_label,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// ActivityRecord is one logged activity as reported by the backend.
type ActivityRecord struct {
	ActivityType     string `json:"activity_type"`
	Duration         int    `json:"duration,omitempty"`
	CompletionStatus string `json:"completion_status,omitempty"`
	Timestamp        string `json:"timestamp"`
}

// Badge 奖励徽章
type Badge struct {
	BadgeName        string `json:"badge_name"`
	BadgeDescription string `json:"badge_description,omitempty"`
	EarnedAt         string `json:"earned_at,omitempty"`
}

// MeditationScript 冥想引导词
type MeditationScript struct {
	Duration int    `json:"duration"` // minutes
	Script   string `json:"script"`
	Type     string `json:"type,omitempty"`
}

// JournalingPrompts 日记提示
type JournalingPrompts struct {
	Prompts []string `json:"prompts"`
}
