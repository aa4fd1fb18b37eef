package domain

import "time"

// Message is a direct message between two marketplace users.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	ClientRef   string    `json:"client_ref,omitempty"` // Echoed back so the sender can reconcile an optimistic send
	CreatedAt   time.Time `json:"created_at"`
}

// PresenceEvent announces that a user came online or went offline.
type PresenceEvent struct {
	UserID string    `json:"user_id"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}
