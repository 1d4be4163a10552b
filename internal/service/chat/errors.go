package chat

import "fmt"

// ValidationError reports a UI command the controller refused without
// contacting the backend.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrNoMoodSelected is returned by SaveMood before any mood was picked.
var ErrNoMoodSelected = &ValidationError{Field: "mood", Reason: "no mood selected"}
