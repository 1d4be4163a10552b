package activity

// Card describes one guided activity the widget can start.
type Card struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
	// Duration 为记录到后端的名义时长（秒）
	Duration int  `json:"duration"`
	Timed    bool `json:"timed"`
}

// Seed returns the activities offered by the widget, in display order.
func Seed() []Card {
	return []Card{
		{
			Kind:        "meditation",
			Title:       "Guided Meditation",
			Description: "A five minute guided session with a countdown you can pause.",
			Icon:        "fa-spa",
			Duration:    300,
			Timed:       true,
		},
		{
			Kind:        "breathing",
			Title:       "Breathing Exercise",
			Description: "4-7-8 breathing: inhale for 4, hold for 7, exhale for 8.",
			Icon:        "fa-wind",
			Duration:    21,
		},
		{
			Kind:        "journaling",
			Title:       "Journaling",
			Description: "A few prompts to help you put your thoughts into words.",
			Icon:        "fa-pen",
			Duration:    15,
		},
		{
			Kind:        "gratitude",
			Title:       "Gratitude Practice",
			Description: "Think of three things you're grateful for today.",
			Icon:        "fa-heart",
			Duration:    8,
		},
	}
}
