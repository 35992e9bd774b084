package entities

import "time"

// Document is a knowledge-base source document.
type Document struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentChunk is a bounded slice of a document, independently embedded and
// indexed for similarity search.
type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	OrgID      string    `json:"org_id"`
	Index      int       `json:"index"` // position within the document
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}
