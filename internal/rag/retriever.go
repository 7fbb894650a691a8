package rag

import (
	"context"
	"fmt"

	"github.com/docuchat/docuchat-backend/internal/clients/openai"
	"github.com/docuchat/docuchat-backend/internal/clients/pinecone"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// RetrievedSegment is one piece of document text returned for a query.
type RetrievedSegment struct {
	Text  string
	Page  int
	Score float64
}

// Retriever is a retrieval handle bound to one document's namespace.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]RetrievedSegment, error)
}

type namespaceRetriever struct {
	log       *logger.Logger
	ai        openai.Client
	vec       pinecone.VectorStore
	namespace string
	topK      int
}

func (r *namespaceRetriever) Retrieve(ctx context.Context, query string) ([]RetrievedSegment, error) {
	vecs, err := r.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", pkgerrors.ErrEmbeddingFailed, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", pkgerrors.ErrEmbeddingFailed, len(vecs))
	}

	matches, err := r.vec.QueryMatches(ctx, r.namespace, vecs[0], r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query namespace %s: %v", pkgerrors.ErrEmbeddingFailed, r.namespace, err)
	}

	out := make([]RetrievedSegment, 0, len(matches))
	for _, m := range matches {
		seg := RetrievedSegment{Score: m.Score}
		if text, ok := m.Metadata[metadataTextKey].(string); ok {
			seg.Text = text
		}
		if page, ok := m.Metadata[metadataPageKey].(float64); ok {
			seg.Page = int(page)
		}
		if seg.Text == "" {
			continue
		}
		out = append(out, seg)
	}
	r.log.Debug("Context retrieved", "namespace", r.namespace, "matches", len(out))
	return out, nil
}
