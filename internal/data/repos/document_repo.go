package repos

import (
	"context"
	"fmt"
	"strings"

	cloudfirestore "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// DocumentRepo reads document metadata written by the upload flow.
type DocumentRepo interface {
	Get(ctx context.Context, userID, docID string) (*domain.DocumentRecord, error)
	// ResolveDownloadURL returns the document's download location, failing
	// with ErrDocumentNotFound when the record or the URL is absent.
	ResolveDownloadURL(ctx context.Context, userID, docID string) (string, error)
}

type documentRepo struct {
	fs  *cloudfirestore.Client
	log *logger.Logger
}

func NewDocumentRepo(fs *cloudfirestore.Client, log *logger.Logger) DocumentRepo {
	return &documentRepo{fs: fs, log: log.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Get(ctx context.Context, userID, docID string) (*domain.DocumentRecord, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(docID) == "" {
		return nil, fmt.Errorf("%w: missing user_id or doc_id", pkgerrors.ErrInvalidArgument)
	}

	snap, err := r.fs.Collection("users").Doc(userID).Collection("files").Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", pkgerrors.ErrDocumentNotFound, docID)
		}
		return nil, fmt.Errorf("%w: get document: %v", pkgerrors.ErrStoreUnavailable, err)
	}

	var rec domain.DocumentRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", pkgerrors.ErrStoreUnavailable, err)
	}
	return &rec, nil
}

func (r *documentRepo) ResolveDownloadURL(ctx context.Context, userID, docID string) (string, error) {
	rec, err := r.Get(ctx, userID, docID)
	if err != nil {
		return "", err
	}
	url := strings.TrimSpace(rec.DownloadURL)
	if url == "" {
		return "", fmt.Errorf("%w: no download url for %s", pkgerrors.ErrDocumentNotFound, docID)
	}
	return url, nil
}
