package pinecone

import (
	"context"
	"testing"

	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

type fakeControlClient struct {
	stats     *IndexStats
	statsErr  error
	upserts   []UpsertRequest
	queries   []QueryRequest
	matches   []QueryMatch
	statsHost string
}

func (f *fakeControlClient) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	d := &IndexDescription{Name: indexName, Host: "resolved.svc.pinecone.io"}
	return d, nil
}

func (f *fakeControlClient) DescribeIndexStats(ctx context.Context, host string) (*IndexStats, error) {
	f.statsHost = host
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeControlClient) UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error) {
	f.upserts = append(f.upserts, req)
	return &UpsertResponse{UpsertedCount: int64(len(req.Vectors))}, nil
}

func (f *fakeControlClient) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	f.queries = append(f.queries, req)
	return &QueryResponse{Matches: f.matches}, nil
}

func testVectorStore(t *testing.T, pc Client, prefix string) *vectorStore {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: "docs",
		indexHost: "docs-abc.svc.pinecone.io",
		nsPrefix:  prefix,
	}
}

func TestNamespaceExists(t *testing.T) {
	pc := &fakeControlClient{stats: &IndexStats{
		Namespaces: map[string]NamespaceSummary{"doc-1": {VectorCount: 9}},
	}}
	s := testVectorStore(t, pc, "")

	exists, err := s.NamespaceExists(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("populated namespace reported missing")
	}
	if pc.statsHost != "docs-abc.svc.pinecone.io" {
		t.Errorf("stats host = %q", pc.statsHost)
	}

	exists, err = s.NamespaceExists(context.Background(), "doc-2")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("absent namespace reported present")
	}
}

func TestNamespacePrefixQualification(t *testing.T) {
	pc := &fakeControlClient{stats: &IndexStats{
		Namespaces: map[string]NamespaceSummary{"staging:doc-1": {VectorCount: 3}},
	}}
	s := testVectorStore(t, pc, "staging")

	exists, err := s.NamespaceExists(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("prefixed namespace not matched")
	}

	if err := s.Upsert(context.Background(), "doc-1", []Vector{{ID: "doc-1-0", Values: []float32{1}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := pc.upserts[0].Namespace; got != "staging:doc-1" {
		t.Errorf("upsert namespace = %q", got)
	}
}

func TestQueryMatchesRequestsMetadata(t *testing.T) {
	pc := &fakeControlClient{matches: []QueryMatch{{ID: "doc-1-0", Score: 0.8}}}
	s := testVectorStore(t, pc, "")

	matches, err := s.QueryMatches(context.Background(), "doc-1", []float32{0.1, 0.2}, 4)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "doc-1-0" {
		t.Errorf("matches = %+v", matches)
	}

	req := pc.queries[0]
	if !req.IncludeMetadata {
		t.Error("metadata not requested")
	}
	if req.IncludeValues {
		t.Error("values requested unnecessarily")
	}
	if req.TopK != 4 || req.Namespace != "doc-1" {
		t.Errorf("request = %+v", req)
	}
}
