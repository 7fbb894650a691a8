package rag

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docuchat/docuchat-backend/internal/clients/openai"
	"github.com/docuchat/docuchat-backend/internal/clients/pinecone"
	"github.com/docuchat/docuchat-backend/internal/clients/redis"
	"github.com/docuchat/docuchat-backend/internal/domain"
	"github.com/docuchat/docuchat-backend/internal/ingestion"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/envutil"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

const (
	metadataTextKey = "text"
	metadataPageKey = "page"
)

// IndexManager lazily builds one embedding namespace per document and hands
// out retrieval handles bound to it. A populated namespace is never
// recomputed; existence is the cache signal.
type IndexManager interface {
	EnsureEmbeddings(ctx context.Context, userID, docID string) (Retriever, error)
}

type indexManager struct {
	log  *logger.Logger
	ai   openai.Client
	vec  pinecone.VectorStore
	mat  ingestion.Materializer
	lock redis.DocLocker

	topK             int
	embedBatchSize   int
	embedConcurrency int
}

func NewIndexManager(
	log *logger.Logger,
	ai openai.Client,
	vec pinecone.VectorStore,
	mat ingestion.Materializer,
	lock redis.DocLocker,
) (IndexManager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil || vec == nil || mat == nil || lock == nil {
		return nil, fmt.Errorf("missing index manager deps")
	}
	return &indexManager{
		log:              log.With("service", "IndexManager"),
		ai:               ai,
		vec:              vec,
		mat:              mat,
		lock:             lock,
		topK:             envutil.Int("RETRIEVAL_TOP_K", 4),
		embedBatchSize:   envutil.Int("EMBED_BATCH_SIZE", 64),
		embedConcurrency: envutil.Int("EMBED_CONCURRENCY", 4),
	}, nil
}

func (m *indexManager) EnsureEmbeddings(ctx context.Context, userID, docID string) (Retriever, error) {
	exists, err := m.vec.NamespaceExists(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: namespace check: %v", pkgerrors.ErrEmbeddingFailed, err)
	}
	if exists {
		m.log.Debug("Namespace exists, reusing embeddings", "doc_id", docID)
		return m.retriever(docID), nil
	}

	// First-time ingestion. Serialize per document so two concurrent first
	// questions do not both materialize and embed.
	release, err := m.lock.Acquire(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire doc lock: %v", pkgerrors.ErrEmbeddingFailed, err)
	}
	defer release()

	// Another request may have populated the namespace while we waited.
	exists, err = m.vec.NamespaceExists(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: namespace re-check: %v", pkgerrors.ErrEmbeddingFailed, err)
	}
	if exists {
		m.log.Debug("Namespace populated while waiting for lock", "doc_id", docID)
		return m.retriever(docID), nil
	}

	segments, err := m.mat.Materialize(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: document %s has no extractable text", pkgerrors.ErrEmbeddingFailed, docID)
	}

	vectors, err := m.embedSegments(ctx, docID, segments)
	if err != nil {
		return nil, err
	}

	// Single logical batch: readers either see no namespace or all vectors.
	if err := m.vec.Upsert(ctx, docID, vectors); err != nil {
		return nil, fmt.Errorf("%w: upsert %d vectors into %s: %v", pkgerrors.ErrEmbeddingFailed, len(vectors), docID, err)
	}

	m.log.Info("Namespace populated", "doc_id", docID, "vectors", len(vectors))
	return m.retriever(docID), nil
}

// embedSegments embeds all segments in order-preserving batches with bounded
// concurrency.
func (m *indexManager) embedSegments(ctx context.Context, docID string, segments []domain.TextSegment) ([]pinecone.Vector, error) {
	vectors := make([]pinecone.Vector, len(segments))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.embedConcurrency)

	for start := 0; start < len(segments); start += m.embedBatchSize {
		end := start + m.embedBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]
		offset := start

		g.Go(func() error {
			inputs := make([]string, len(batch))
			for i, seg := range batch {
				inputs[i] = seg.Text
			}
			embedded, err := m.ai.Embed(gctx, inputs)
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", offset, err)
			}
			if len(embedded) != len(batch) {
				return fmt.Errorf("embed batch at %d: got %d vectors for %d inputs", offset, len(embedded), len(batch))
			}
			mu.Lock()
			for i, seg := range batch {
				vectors[offset+i] = pinecone.Vector{
					ID:     fmt.Sprintf("%s-%d", docID, seg.Sequence),
					Values: embedded[i],
					Metadata: map[string]any{
						metadataTextKey: seg.Text,
						metadataPageKey: seg.Page,
					},
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

func (m *indexManager) retriever(docID string) Retriever {
	return &namespaceRetriever{
		log:       m.log,
		ai:        m.ai,
		vec:       m.vec,
		namespace: docID,
		topK:      m.topK,
	}
}
