package mood

import (
	"math"
	"strings"
)

// Level is the 1..5 scale offered by the mood picker.
type Level int

const (
	Struggling Level = iota + 1
	Down
	Okay
	Good
	Excellent
)

var levelLabels = map[Level]string{
	Struggling: "struggling",
	Down:       "down",
	Okay:       "okay",
	Good:       "good",
	Excellent:  "excellent",
}

// Valid reports whether l is on the picker scale.
func (l Level) Valid() bool {
	return l >= Struggling && l <= Excellent
}

// Label returns the fixed label for the level, or "" when out of range.
func (l Level) Label() string {
	return levelLabels[l]
}

// Reading is the mood shown next to the conversation after a scored chat turn.
type Reading struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
	Level Level   `json:"level"`
}

// Read converts a backend score in [-1, 1] into a Reading. The backend label wins
// when present; otherwise the label of the bucketed level is used.
func Read(score float64, label string) Reading {
	level := LevelFromScore(score)
	label = strings.TrimSpace(label)
	if label == "" {
		label = level.Label()
	}
	return Reading{Score: score, Label: label, Level: level}
}

// LevelFromScore buckets a score in [-1, 1] into five equal bands.
func LevelFromScore(score float64) Level {
	if math.IsNaN(score) {
		return Okay
	}
	clamped := math.Max(-1, math.Min(1, score))
	// (-1..1] -> 0..4, the top edge folds into the last band
	band := int(math.Floor((clamped + 1) / 0.4))
	if band > 4 {
		band = 4
	}
	return Level(band + 1)
}

// exercise kinds recognised in suggestion text, in tie-break order.
var exerciseOrder = []string{"breathing", "meditation", "gratitude", "journaling"}

var keywordBuckets = map[string][]string{
	"breathing":  {"breath", "inhale", "exhale", "4-7-8"},
	"meditation": {"meditat", "mindful", "relaxation", "body scan"},
	"gratitude":  {"gratitude", "grateful", "thankful", "appreciat"},
	"journaling": {"journal", "write", "writing", "reflection", "diary"},
}

// MatchExercise picks the local guided exercise that a suggestion text refers to.
func MatchExercise(text string) (string, bool) {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return "", false
	}

	best := ""
	bestScore := 0
	for _, kind := range exerciseOrder {
		score := 0
		for _, word := range keywordBuckets[kind] {
			if strings.Contains(normalized, word) {
				score += 3
			}
		}
		if score > bestScore {
			best = kind
			bestScore = score
		}
	}

	if bestScore == 0 {
		return "", false
	}
	return best, true
}
