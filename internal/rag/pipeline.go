package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/docuchat/docuchat-backend/internal/clients/openai"
	"github.com/docuchat/docuchat-backend/internal/data/repos"
	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

const rewriteInstruction = "Given the above conversation, generate a search query to look up in order to get information relevant to the conversation"

const answerSystemPrompt = "Answer the user's questions based on the below context:\n\n%s"

// Pipeline answers a question about a document in two explicit stages:
// rewrite the question into a standalone search query using chat history,
// then synthesize an answer from retrieved context, history and the
// original question.
type Pipeline struct {
	log   *logger.Logger
	ai    openai.Client
	chats repos.ChatRepo
	index IndexManager
}

func NewPipeline(log *logger.Logger, ai openai.Client, chats repos.ChatRepo, index IndexManager) (*Pipeline, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil || chats == nil || index == nil {
		return nil, fmt.Errorf("missing pipeline deps")
	}
	return &Pipeline{
		log:   log.With("service", "AnswerPipeline"),
		ai:    ai,
		chats: chats,
		index: index,
	}, nil
}

func (p *Pipeline) Answer(ctx context.Context, userID, docID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", pkgerrors.ErrInvalidArgument)
	}

	retriever, err := p.index.EnsureEmbeddings(ctx, userID, docID)
	if err != nil {
		return "", err
	}

	history, err := p.chats.ListTurns(ctx, userID, docID)
	if err != nil {
		return "", err
	}

	searchQuery, err := p.rewriteQuery(ctx, history, question)
	if err != nil {
		return "", err
	}

	segments, err := retriever.Retrieve(ctx, searchQuery)
	if err != nil {
		return "", err
	}

	answer, err := p.synthesize(ctx, history, segments, question)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// rewriteQuery produces a standalone search query from the question plus
// prior turns. With no history the question already stands alone, so no
// model call is made.
func (p *Pipeline) rewriteQuery(ctx context.Context, history []domain.ChatTurn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := historyMessages(history)
	messages = append(messages,
		openai.Message{Role: "user", Content: question},
		openai.Message{Role: "user", Content: rewriteInstruction},
	)

	rewritten, err := p.ai.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: query rewrite: %v", pkgerrors.ErrCompletionFailed, err)
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question, nil
	}
	p.log.Debug("Query rewritten", "query", rewritten)
	return rewritten, nil
}

func (p *Pipeline) synthesize(ctx context.Context, history []domain.ChatTurn, segments []RetrievedSegment, question string) (string, error) {
	contextText := make([]string, 0, len(segments))
	for _, seg := range segments {
		contextText = append(contextText, seg.Text)
	}

	messages := []openai.Message{
		{Role: "system", Content: fmt.Sprintf(answerSystemPrompt, strings.Join(contextText, "\n\n"))},
	}
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, openai.Message{Role: "user", Content: question})

	answer, err := p.ai.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: answer synthesis: %v", pkgerrors.ErrCompletionFailed, err)
	}
	return strings.TrimSpace(answer), nil
}

func historyMessages(history []domain.ChatTurn) []openai.Message {
	out := make([]openai.Message, 0, len(history))
	for _, turn := range history {
		role := "assistant"
		if turn.Role == domain.RoleHuman {
			role = "user"
		}
		out = append(out, openai.Message{Role: role, Content: turn.Message})
	}
	return out
}
