package repos

import (
	"context"
	"fmt"
	"strings"
	"time"

	cloudfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// ChatRepo is the transcript store adapter. Transcripts live at
// users/{userID}/files/{docID}/chat and are append-only.
type ChatRepo interface {
	AppendTurn(ctx context.Context, userID, docID string, turn domain.ChatTurn) error
	// ListTurns returns the full transcript ordered oldest first.
	ListTurns(ctx context.Context, userID, docID string) ([]domain.ChatTurn, error)
}

type chatRepo struct {
	fs  *cloudfirestore.Client
	log *logger.Logger
}

func NewChatRepo(fs *cloudfirestore.Client, log *logger.Logger) ChatRepo {
	return &chatRepo{fs: fs, log: log.With("repo", "ChatRepo")}
}

func (r *chatRepo) transcript(userID, docID string) *cloudfirestore.CollectionRef {
	return r.fs.Collection("users").Doc(userID).Collection("files").Doc(docID).Collection("chat")
}

func (r *chatRepo) AppendTurn(ctx context.Context, userID, docID string, turn domain.ChatTurn) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(docID) == "" {
		return fmt.Errorf("%w: missing user_id or doc_id", pkgerrors.ErrInvalidArgument)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if _, _, err := r.transcript(userID, docID).Add(ctx, turn); err != nil {
		return fmt.Errorf("%w: append turn: %v", pkgerrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *chatRepo) ListTurns(ctx context.Context, userID, docID string) ([]domain.ChatTurn, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(docID) == "" {
		return nil, fmt.Errorf("%w: missing user_id or doc_id", pkgerrors.ErrInvalidArgument)
	}

	iter := r.transcript(userID, docID).OrderBy("createdAt", cloudfirestore.Asc).Documents(ctx)
	defer iter.Stop()

	out := make([]domain.ChatTurn, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list turns: %v", pkgerrors.ErrStoreUnavailable, err)
		}
		var turn domain.ChatTurn
		if err := doc.DataTo(&turn); err != nil {
			return nil, fmt.Errorf("%w: decode turn: %v", pkgerrors.ErrStoreUnavailable, err)
		}
		out = append(out, turn)
	}
	return out, nil
}
