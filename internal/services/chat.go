package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docuchat/docuchat-backend/internal/data/repos"
	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
	"github.com/docuchat/docuchat-backend/internal/rag"
)

// ChatService is the top-level question flow: persist the user's turn, run
// the answering pipeline, persist the assistant's turn.
type ChatService interface {
	AskQuestion(ctx context.Context, userID, docID, question string) (string, error)
	GenerateEmbeddings(ctx context.Context, userID, docID string) error
	ListTurns(ctx context.Context, userID, docID string) ([]domain.ChatTurn, error)
}

// Answerer is satisfied by *rag.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, userID, docID, question string) (string, error)
}

type chatService struct {
	log      *logger.Logger
	chats    repos.ChatRepo
	index    rag.IndexManager
	pipeline Answerer
}

func NewChatService(log *logger.Logger, chats repos.ChatRepo, index rag.IndexManager, pipeline Answerer) (ChatService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if chats == nil || index == nil || pipeline == nil {
		return nil, fmt.Errorf("missing chat service deps")
	}
	return &chatService{
		log:      log.With("service", "ChatService"),
		chats:    chats,
		index:    index,
		pipeline: pipeline,
	}, nil
}

func (s *chatService) AskQuestion(ctx context.Context, userID, docID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", pkgerrors.ErrInvalidArgument)
	}

	// The human turn is persisted before the answer is known. If answering
	// fails the turn stays in the transcript without an assistant reply; no
	// compensating delete is attempted.
	if err := s.chats.AppendTurn(ctx, userID, docID, domain.ChatTurn{
		Role:      domain.RoleHuman,
		Message:   question,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	answer, err := s.pipeline.Answer(ctx, userID, docID, question)
	if err != nil {
		s.log.Error("Answer pipeline failed", "doc_id", docID, "error", err)
		return "", err
	}

	if err := s.chats.AppendTurn(ctx, userID, docID, domain.ChatTurn{
		Role:      domain.RoleAssistant,
		Message:   answer,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	return answer, nil
}

func (s *chatService) GenerateEmbeddings(ctx context.Context, userID, docID string) error {
	if strings.TrimSpace(docID) == "" {
		return fmt.Errorf("%w: missing doc_id", pkgerrors.ErrInvalidArgument)
	}
	_, err := s.index.EnsureEmbeddings(ctx, userID, docID)
	return err
}

func (s *chatService) ListTurns(ctx context.Context, userID, docID string) ([]domain.ChatTurn, error) {
	return s.chats.ListTurns(ctx, userID, docID)
}
