package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// VectorStore is the index-level view used by the embedding pipeline: one
// shared index, one namespace per document.
type VectorStore interface {
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns the top-k nearest vectors with metadata (higher
	// score is better).
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]QueryMatch, error)
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	nsPrefix  string
}

func NewVectorStore(log *logger.Logger, pc Client) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))
	nsPrefix := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE_PREFIX"))

	// If host missing, bootstrap via describe_index (fine for local/dev; avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		nsPrefix:  nsPrefix,
	}, nil
}

func (s *vectorStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	if s == nil || s.pc == nil {
		return false, fmt.Errorf("vector store unavailable")
	}
	ns := s.qualifyNamespace(namespace)
	if ns == "" {
		return false, fmt.Errorf("namespace required")
	}
	stats, err := s.pc.DescribeIndexStats(ctx, s.indexHost)
	if err != nil {
		return false, err
	}
	_, ok := stats.Namespaces[ns]
	return ok, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if s == nil || s.pc == nil {
		return fmt.Errorf("vector store unavailable")
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.qualifyNamespace(namespace),
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]QueryMatch, error) {
	if s == nil || s.pc == nil {
		return nil, fmt.Errorf("vector store unavailable")
	}
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.qualifyNamespace(namespace),
		Vector:          q,
		TopK:            topK,
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if s.nsPrefix == "" {
		return ns
	}
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}
