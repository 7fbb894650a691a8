package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docuchat/docuchat-backend/internal/data/repos"
	"github.com/docuchat/docuchat-backend/internal/domain"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/envutil"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// Materializer turns a stored document into ordered text segments: resolve
// the download URL, fetch the PDF, extract page text, split into bounded
// overlapping segments.
type Materializer interface {
	Materialize(ctx context.Context, userID, docID string) ([]domain.TextSegment, error)
}

type materializer struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	http     *http.Client
	splitter *Splitter
	maxBytes int64
}

func NewMaterializer(log *logger.Logger, docs repos.DocumentRepo) (Materializer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document repo required")
	}

	chunkSize := envutil.Int("SPLITTER_CHUNK_SIZE", 1000)
	overlap := envutil.Int("SPLITTER_CHUNK_OVERLAP", 200)

	return &materializer{
		log:      log.With("service", "Materializer"),
		docs:     docs,
		http:     &http.Client{Timeout: 60 * time.Second},
		splitter: NewSplitter(chunkSize, overlap),
		maxBytes: 100 * 1024 * 1024,
	}, nil
}

func (m *materializer) Materialize(ctx context.Context, userID, docID string) ([]domain.TextSegment, error) {
	url, err := m.docs.ResolveDownloadURL(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	data, err := m.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	m.log.Debug("Document fetched", "doc_id", docID, "bytes", len(data))

	pages, err := extractPages(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	segments := make([]domain.TextSegment, 0)
	seq := 0
	for pageIdx, pageText := range pages {
		for _, chunk := range m.splitter.Split(pageText) {
			segments = append(segments, domain.TextSegment{
				Text:     chunk,
				Page:     pageIdx,
				Sequence: seq,
			})
			seq++
		}
	}

	m.log.Info("Document materialized",
		"doc_id", docID,
		"pages", len(pages),
		"segments", len(segments),
	)
	return segments, nil
}

func (m *materializer) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d from %s", pkgerrors.ErrFetchFailed, resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", pkgerrors.ErrFetchFailed, err)
	}
	if int64(len(data)) > m.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", pkgerrors.ErrFetchFailed, m.maxBytes)
	}
	return data, nil
}
