package chat

import "time"

// Session captures a widget conversation bound to a persisted user identity.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
