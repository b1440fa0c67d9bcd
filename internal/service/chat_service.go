package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docent-service/internal/entity"
	"docent-service/internal/repository/postgresql"
)

// FallbackAnswer is stored and returned when the docent model is unavailable.
const FallbackAnswer = "Sorry, the docent is unavailable right now. Please try again in a moment."

// Docent answers a visitor prompt (implementation: docent.Client).
type Docent interface {
	Generate(ctx context.Context, prompt string, images []string) (string, error)
}

// ConversationReader is the read side of the conversation log.
type ConversationReader interface {
	List(ctx context.Context, limit int) ([]entity.Conversation, error)
	Messages(ctx context.Context, sessionID uuid.UUID) ([]entity.Message, error)
}

type ChatService struct {
	docent        Docent
	conversations ConversationLog
	reader        ConversationReader
	log           zerolog.Logger
}

func NewChatService(docent Docent, conversations ConversationLog, reader ConversationReader, log zerolog.Logger) *ChatService {
	return &ChatService{
		docent:        docent,
		conversations: conversations,
		reader:        reader,
		log:           log.With().Str("component", "chat_service").Logger(),
	}
}

type ChatRequest struct {
	Message     string
	SessionID   uuid.UUID
	ImageBase64 string
}

type ChatResult struct {
	Response  string
	SessionID uuid.UUID
}

// Chat stores the visitor message, asks the docent and stores its answer.
// Model failures degrade to FallbackAnswer rather than an error.
func (s *ChatService) Chat(ctx context.Context, in ChatRequest) (ChatResult, error) {
	text := strings.TrimSpace(in.Message)
	image := strings.TrimSpace(in.ImageBase64)
	if text == "" && image == "" {
		return ChatResult{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if i := strings.Index(image, ";base64,"); i >= 0 {
		image = image[i+len(";base64,"):]
	}

	sessionID := in.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	if _, err := s.conversations.AppendMessage(ctx, sessionID, entity.SenderUser, text, nil); err != nil {
		return ChatResult{}, fmt.Errorf("append user message: %w", err)
	}

	var images []string
	if image != "" {
		images = []string{image}
	}
	answer, err := s.docent.Generate(ctx, text, images)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ChatResult{}, err
		}
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("docent call failed")
		answer = FallbackAnswer
	}

	if _, err := s.conversations.AppendMessage(ctx, sessionID, entity.SenderAssistant, answer, nil); err != nil {
		return ChatResult{}, fmt.Errorf("append docent message: %w", err)
	}
	return ChatResult{Response: answer, SessionID: sessionID}, nil
}

func (s *ChatService) Conversations(ctx context.Context, limit int) ([]entity.Conversation, error) {
	return s.reader.List(ctx, limit)
}

// Messages returns postgresql.ErrNotFound for unknown sessions.
func (s *ChatService) Messages(ctx context.Context, sessionID uuid.UUID) ([]entity.Message, error) {
	return s.reader.Messages(ctx, sessionID)
}

func isNotFound(err error) bool {
	return errors.Is(err, postgresql.ErrNotFound)
}
