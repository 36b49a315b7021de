package models

import "time"

type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	ClientID  *string   `json:"client_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateJournalEntryRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content" binding:"required"`
	ClientID *string `json:"client_id"`
}
