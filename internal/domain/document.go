package domain

// DocumentRecord is the stored metadata for an uploaded file. The upload flow
// writes it; this backend only reads DownloadURL.
type DocumentRecord struct {
	Name        string `firestore:"name" json:"name"`
	DownloadURL string `firestore:"downloadUrl" json:"download_url"`
	Size        int64  `firestore:"size" json:"size"`
}

// TextSegment is a bounded span of extracted document text, the unit of
// embedding and retrieval. Sequence preserves document order; Page is the
// zero-based page the segment came from.
type TextSegment struct {
	Text     string
	Page     int
	Sequence int
}
