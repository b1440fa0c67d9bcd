package entity

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "ai"
)

type Conversation struct {
	ID           int64     `json:"-"`
	SessionID    uuid.UUID `json:"session_id"`
	Summary      *string   `json:"summary,omitempty"`
	FirstMessage string    `json:"first_message_text"`
	CreatedAt    time.Time `json:"created_at"`
}

type Message struct {
	ID             int64     `json:"-"`
	ConversationID int64     `json:"-"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
