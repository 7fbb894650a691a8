package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

type fakeDocumentRepo struct {
	url string
	err error
}

func (f *fakeDocumentRepo) Get(ctx context.Context, userID, docID string) (*domain.DocumentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentRecord{DownloadURL: f.url}, nil
}

func (f *fakeDocumentRepo) ResolveDownloadURL(ctx context.Context, userID, docID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestMaterializer(t *testing.T, docs *fakeDocumentRepo) *materializer {
	t.Helper()
	return &materializer{
		log:      newTestLogger(t).With("service", "Materializer"),
		docs:     docs,
		http:     &http.Client{Timeout: 5 * time.Second},
		splitter: NewSplitter(1000, 200),
		maxBytes: 1024 * 1024,
	}
}

func TestMaterializeMissingDocument(t *testing.T) {
	docs := &fakeDocumentRepo{err: fmt.Errorf("%w: doc-1", pkgerrors.ErrDocumentNotFound)}
	m := newTestMaterializer(t, docs)

	_, err := m.Materialize(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrDocumentNotFound) {
		t.Fatalf("want ErrDocumentNotFound, got %v", err)
	}
}

func TestMaterializeFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	m := newTestMaterializer(t, &fakeDocumentRepo{url: srv.URL})
	_, err := m.Materialize(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrFetchFailed) {
		t.Fatalf("want ErrFetchFailed, got %v", err)
	}
}

func TestMaterializeRejectsNonPDFPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer srv.Close()

	m := newTestMaterializer(t, &fakeDocumentRepo{url: srv.URL})
	_, err := m.Materialize(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrFetchFailed) {
		t.Fatalf("want ErrFetchFailed, got %v", err)
	}
}

func TestMaterializeUnreachableHost(t *testing.T) {
	m := newTestMaterializer(t, &fakeDocumentRepo{url: "http://127.0.0.1:1/missing.pdf"})
	_, err := m.Materialize(context.Background(), "user-1", "doc-1")
	if !errors.Is(err, pkgerrors.ErrFetchFailed) {
		t.Fatalf("want ErrFetchFailed, got %v", err)
	}
}

func TestIsPDFSniff(t *testing.T) {
	if isPDF([]byte("<html></html>")) {
		t.Fatal("html sniffed as pdf")
	}
	if !isPDF([]byte("%PDF-1.7\n...")) {
		t.Fatal("pdf header not recognized")
	}
	if isPDF([]byte("%PD")) {
		t.Fatal("truncated header sniffed as pdf")
	}
}
