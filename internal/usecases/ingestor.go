package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// ErrEmptyDocument rejects an ingestion request without content.
var ErrEmptyDocument = errors.New("document content is empty")

// ingestChunkSize bounds each chunk in bytes; cuts land on rune boundaries.
const ingestChunkSize = 1000

// DocumentIngestor is the knowledge-base write path: store the document,
// split its content into chunks, embed each chunk and replace the stored set.
type DocumentIngestor struct {
	embedder interfaces.Embedder
	docs     interfaces.DocumentStore
}

func NewDocumentIngestor(embedder interfaces.Embedder, docs interfaces.DocumentStore) *DocumentIngestor {
	return &DocumentIngestor{embedder: embedder, docs: docs}
}

// Ingest upserts a document and its embedded chunks, returning the chunk
// count. Re-ingesting the same document id replaces its chunks.
func (ing *DocumentIngestor) Ingest(ctx context.Context, doc *entities.Document, content string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, ErrEmptyDocument
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if err := ing.docs.UpsertDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("store document: %w", err)
	}

	parts := splitChunks(content, ingestChunkSize)
	chunks := make([]entities.DocumentChunk, 0, len(parts))
	for i, text := range parts {
		embedding, err := ing.embedder.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d of %s: %w", i, doc.ID, err)
		}
		chunks = append(chunks, entities.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			OrgID:      doc.OrgID,
			Index:      i,
			Text:       text,
			Embedding:  embedding,
		})
	}

	if err := ing.docs.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	log.WithFields(log.Fields{
		"doc_id": doc.ID,
		"org_id": doc.OrgID,
		"chunks": len(chunks),
	}).Info("document ingested")
	return len(chunks), nil
}

// splitChunks cuts content into pieces of at most max bytes without breaking
// runes.
func splitChunks(s string, max int) []string {
	var out []string
	for len(s) > max {
		head := truncateRunes(s, max)
		out = append(out, head)
		s = s[len(head):]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
