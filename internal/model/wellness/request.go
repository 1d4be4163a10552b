package wellness

// ChatRequest 对话请求
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// MoodEntry 心情记录请求
type MoodEntry struct {
	UserID    string  `json:"user_id"`
	MoodScore float64 `json:"mood_score"`
	MoodLabel string  `json:"mood_label"`
	Notes     string  `json:"notes"`
}

// ActivityLog 练习完成记录
type ActivityLog struct {
	UserID           string `json:"user_id"`
	ActivityType     string `json:"activity_type"`
	Duration         int    `json:"duration"` // seconds
	CompletionStatus string `json:"completion_status"`
}

// CompletionCompleted is the only completion status the widget reports.
const CompletionCompleted = "completed"
