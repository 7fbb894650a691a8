package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/docuchat/docuchat-backend/internal/clients/openai"
	"github.com/docuchat/docuchat-backend/internal/clients/pinecone"
	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

type fakeAI struct {
	mu           sync.Mutex
	embedCalls   [][]string
	embedErr     error
	completeFn   func(messages []openai.Message) (string, error)
	completeLogs [][]openai.Message
}

func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls = append(f.embedCalls, inputs)
	f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(len(inputs[i])), 1}
	}
	return out, nil
}

func (f *fakeAI) Complete(ctx context.Context, messages []openai.Message) (string, error) {
	f.mu.Lock()
	f.completeLogs = append(f.completeLogs, messages)
	f.mu.Unlock()
	if f.completeFn != nil {
		return f.completeFn(messages)
	}
	return "ok", nil
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	return f.Complete(ctx, []openai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

func (f *fakeAI) embedCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.embedCalls)
}

type fakeVectorStore struct {
	mu         sync.Mutex
	namespaces map[string]bool
	existsErr  error
	upsertErr  error
	upserts    map[string][]pinecone.Vector
	matches    []pinecone.QueryMatch
	queryErr   error
	queries    []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		namespaces: map[string]bool{},
		upserts:    map[string][]pinecone.Vector{},
	}
}

func (f *fakeVectorStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.namespaces[namespace], nil
}

func (f *fakeVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts[namespace] = append(f.upserts[namespace], vectors...)
	f.namespaces[namespace] = true
	return nil
}

func (f *fakeVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]pinecone.QueryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, namespace)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

type fakeMaterializer struct {
	segments []domain.TextSegment
	err      error
	calls    int
}

func (f *fakeMaterializer) Materialize(ctx context.Context, userID, docID string) ([]domain.TextSegment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

type fakeLocker struct {
	acquired int
	released int
	err      error
	onHold   func()
}

func (f *fakeLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	if f.onHold != nil {
		f.onHold()
	}
	return func() { f.released++ }, nil
}

func testIndexManager(t *testing.T, ai *fakeAI, vec *fakeVectorStore, mat *fakeMaterializer, lock *fakeLocker) *indexManager {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &indexManager{
		log:              log.With("service", "IndexManager"),
		ai:               ai,
		vec:              vec,
		mat:              mat,
		lock:             lock,
		topK:             4,
		embedBatchSize:   2,
		embedConcurrency: 2,
	}
}

func sampleSegments(n int) []domain.TextSegment {
	segs := make([]domain.TextSegment, n)
	for i := range segs {
		segs[i] = domain.TextSegment{
			Text:     fmt.Sprintf("segment %d body", i),
			Page:     i / 2,
			Sequence: i,
		}
	}
	return segs
}

func TestEnsureEmbeddingsPopulatesNamespaceOnce(t *testing.T) {
	ai := &fakeAI{}
	vec := newFakeVectorStore()
	mat := &fakeMaterializer{segments: sampleSegments(5)}
	lock := &fakeLocker{}
	m := testIndexManager(t, ai, vec, mat, lock)

	if _, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}

	if mat.calls != 1 {
		t.Fatalf("materialize calls = %d, want 1", mat.calls)
	}
	if lock.acquired != 1 || lock.released != 1 {
		t.Fatalf("lock acquired=%d released=%d, want 1/1", lock.acquired, lock.released)
	}

	vectors := vec.upserts["doc-1"]
	if len(vectors) != 5 {
		t.Fatalf("upserted %d vectors, want 5", len(vectors))
	}
	for i, v := range vectors {
		wantID := fmt.Sprintf("doc-1-%d", i)
		if v.ID != wantID {
			t.Errorf("vector %d id = %q, want %q", i, v.ID, wantID)
		}
		if v.Metadata[metadataTextKey] != mat.segments[i].Text {
			t.Errorf("vector %d text metadata = %v", i, v.Metadata[metadataTextKey])
		}
		if v.Metadata[metadataPageKey] != mat.segments[i].Page {
			t.Errorf("vector %d page metadata = %v", i, v.Metadata[metadataPageKey])
		}
	}

	embedsBefore := ai.embedCallCount()

	// Second call sees the populated namespace and does no ingestion work.
	if _, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if mat.calls != 1 {
		t.Fatalf("materialize re-ran on populated namespace")
	}
	if ai.embedCallCount() != embedsBefore {
		t.Fatalf("embed re-ran on populated namespace")
	}
	if lock.acquired != 1 {
		t.Fatalf("lock re-acquired on populated namespace")
	}
}

func TestEnsureEmbeddingsRecheckUnderLock(t *testing.T) {
	ai := &fakeAI{}
	vec := newFakeVectorStore()
	mat := &fakeMaterializer{segments: sampleSegments(2)}
	lock := &fakeLocker{}
	// Another request fills the namespace while this one waits on the lock.
	lock.onHold = func() {
		vec.mu.Lock()
		vec.namespaces["doc-1"] = true
		vec.mu.Unlock()
	}
	m := testIndexManager(t, ai, vec, mat, lock)

	if _, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if mat.calls != 0 {
		t.Fatalf("materialize ran despite namespace populated under lock")
	}
	if lock.released != 1 {
		t.Fatalf("lock not released")
	}
}

func TestEnsureEmbeddingsMaterializeErrorPropagates(t *testing.T) {
	wrapped := fmt.Errorf("%w: doc-1", pkgerrors.ErrDocumentNotFound)
	ai := &fakeAI{}
	vec := newFakeVectorStore()
	lock := &fakeLocker{}
	m := testIndexManager(t, ai, vec, &fakeMaterializer{err: wrapped}, lock)

	_, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrDocumentNotFound) {
		t.Fatalf("want ErrDocumentNotFound, got %v", err)
	}
	if lock.released != 1 {
		t.Fatalf("lock not released on error")
	}
	if len(vec.upserts["doc-1"]) != 0 {
		t.Fatalf("vectors upserted despite materialize failure")
	}
}

func TestEnsureEmbeddingsEmptyDocumentFails(t *testing.T) {
	m := testIndexManager(t, &fakeAI{}, newFakeVectorStore(), &fakeMaterializer{}, &fakeLocker{})

	_, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrEmbeddingFailed) {
		t.Fatalf("want ErrEmbeddingFailed, got %v", err)
	}
}

func TestEnsureEmbeddingsEmbedFailureWrapped(t *testing.T) {
	ai := &fakeAI{embedErr: errors.New("rate limited")}
	vec := newFakeVectorStore()
	m := testIndexManager(t, ai, vec, &fakeMaterializer{segments: sampleSegments(3)}, &fakeLocker{})

	_, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrEmbeddingFailed) {
		t.Fatalf("want ErrEmbeddingFailed, got %v", err)
	}
	if len(vec.upserts["doc-1"]) != 0 {
		t.Fatalf("partial upsert after embed failure")
	}
}

func TestEnsureEmbeddingsLockFailureWrapped(t *testing.T) {
	lock := &fakeLocker{err: errors.New("redis down")}
	m := testIndexManager(t, &fakeAI{}, newFakeVectorStore(), &fakeMaterializer{segments: sampleSegments(1)}, lock)

	_, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrEmbeddingFailed) {
		t.Fatalf("want ErrEmbeddingFailed, got %v", err)
	}
}

func TestRetrieverReadsMetadata(t *testing.T) {
	ai := &fakeAI{}
	vec := newFakeVectorStore()
	vec.namespaces["doc-1"] = true
	vec.matches = []pinecone.QueryMatch{
		{ID: "doc-1-0", Score: 0.91, Metadata: map[string]any{metadataTextKey: "first chunk", metadataPageKey: float64(0)}},
		{ID: "doc-1-3", Score: 0.55, Metadata: map[string]any{metadataTextKey: "later chunk", metadataPageKey: float64(2)}},
		{ID: "doc-1-9", Score: 0.10, Metadata: map[string]any{metadataPageKey: float64(4)}},
	}
	m := testIndexManager(t, ai, vec, &fakeMaterializer{}, &fakeLocker{})

	r, err := m.EnsureEmbeddings(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	segs, err := r.Retrieve(context.Background(), "what is chapter two about")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2 (textless match dropped)", len(segs))
	}
	if segs[0].Text != "first chunk" || segs[0].Page != 0 {
		t.Errorf("first segment = %+v", segs[0])
	}
	if segs[1].Text != "later chunk" || segs[1].Page != 2 {
		t.Errorf("second segment = %+v", segs[1])
	}
	if len(vec.queries) != 1 || vec.queries[0] != "doc-1" {
		t.Errorf("queried namespaces = %v, want [doc-1]", vec.queries)
	}
	if ai.embedCallCount() != 1 || !strings.Contains(ai.embedCalls[0][0], "chapter two") {
		t.Errorf("query not embedded: %v", ai.embedCalls)
	}
}
