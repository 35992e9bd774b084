package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type DocumentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetByID(ctx context.Context, docID string) (*entities.Document, error) {
	var d entities.Document
	err := r.db.QueryRow(ctx,
		"SELECT id, org_id, title, COALESCE(source_url, ''), created_at FROM documents WHERE id = $1",
		docID).Scan(&d.ID, &d.OrgID, &d.Title, &d.SourceURL, &d.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *entities.Document) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO documents (id, org_id, title, source_url)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, source_url = EXCLUDED.source_url`,
		doc.ID, doc.OrgID, doc.Title, doc.SourceURL)
	return err
}

// InsertChunks replaces a document's chunks with the given set.
func (r *DocumentRepository) InsertChunks(ctx context.Context, chunks []entities.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", chunks[0].DocumentID); err != nil {
		return err
	}
	for _, c := range chunks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, org_id, chunk_index, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.DocumentID, c.OrgID, c.Index, c.Text, c.Embedding); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
