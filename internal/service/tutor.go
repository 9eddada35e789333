package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/repository"
	"github.com/sakif/revision-tracker/internal/tutor"
)

// Chat limits.
const (
	MaxChatMessages      = 40
	MaxChatMessageLength = 4000
)

// ErrTutorUnavailable is returned when the server runs without a tutor API key.
var ErrTutorUnavailable = errors.New("tutor is not configured")

// TutorClient is the part of *tutor.Client the service uses.
type TutorClient interface {
	Chat(ctx context.Context, history []tutor.Message, q *tutor.QuestionContext) (string, error)
}

// ChatRequest is one tutor turn: the conversation so far, newest last, and
// optionally the question it is about.
type ChatRequest struct {
	Messages   []tutor.Message `json:"messages"`
	QuestionID string          `json:"questionId,omitempty"`
}

// ChatReply is the tutor's answer.
type ChatReply struct {
	Reply string `json:"reply"`
}

// TutorService answers questions about the user's problems.
type TutorService struct {
	client    TutorClient
	questions repository.QuestionRepository
	logger    *slog.Logger
}

// NewTutorService creates a TutorService. client may be nil, in which case
// every Chat returns ErrTutorUnavailable.
func NewTutorService(client TutorClient, questions repository.QuestionRepository, logger *slog.Logger) *TutorService {
	return &TutorService{client: client, questions: questions, logger: logger}
}

// Available reports whether a tutor backend is configured.
func (s *TutorService) Available() bool {
	return s.client != nil
}

// Chat validates the conversation, attaches the question context and asks
// the model. The last message must be from the user.
func (s *TutorService) Chat(ctx context.Context, userID string, req ChatRequest) (*ChatReply, error) {
	if !s.Available() {
		return nil, ErrTutorUnavailable
	}

	switch n := len(req.Messages); {
	case n == 0:
		return nil, apperror.ValidationFailed("messages", "at least one message is required")
	case n > MaxChatMessages:
		return nil, apperror.ValidationFailed("messages",
			fmt.Sprintf("a conversation can have at most %d messages", MaxChatMessages))
	}
	for _, m := range req.Messages {
		if m.Role != tutor.RoleUser && m.Role != tutor.RoleAssistant {
			return nil, apperror.ValidationFailed("messages", "role must be user or assistant")
		}
		if len(m.Text) > MaxChatMessageLength {
			return nil, apperror.ValidationFailed("messages",
				fmt.Sprintf("messages must be %d characters or less", MaxChatMessageLength))
		}
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != tutor.RoleUser || strings.TrimSpace(last.Text) == "" {
		return nil, apperror.ValidationFailed("messages", "the last message must be a non-empty user message")
	}

	var qctx *tutor.QuestionContext
	if id := strings.TrimSpace(req.QuestionID); id != "" {
		q, err := s.questions.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		qctx = &tutor.QuestionContext{
			Question:   q.Question,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
			Link:       q.Link,
		}
	}

	reply, err := s.client.Chat(ctx, req.Messages, qctx)
	if err != nil {
		s.logger.Error("tutor chat failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("asking tutor: %w", err)
	}

	s.logger.Debug("tutor replied",
		slog.String("userID", userID),
		slog.Int("turns", len(req.Messages)),
	)
	return &ChatReply{Reply: reply}, nil
}
