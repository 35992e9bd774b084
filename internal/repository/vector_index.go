package repository

import (
	"context"
	"math"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"gonum.org/v1/gonum/floats"

	"supportpilot/internal/interfaces"
)

// ChunkVectorIndex is the bundled vector-search implementation: a cosine
// top-K scan over an organization's embedded chunks in Postgres. The port it
// implements is the seam for swapping in a dedicated vector store later.
type ChunkVectorIndex struct {
	db *pgxpool.Pool
}

func NewChunkVectorIndex(db *pgxpool.Pool) *ChunkVectorIndex {
	return &ChunkVectorIndex{db: db}
}

func (ix *ChunkVectorIndex) Search(ctx context.Context, orgID string, embedding []float32, topK int) ([]interfaces.VectorHit, error) {
	if topK <= 0 || len(embedding) == 0 {
		return nil, nil
	}

	rows, err := ix.db.Query(ctx, `
		SELECT c.id, c.text, c.embedding, d.id, d.title
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.org_id = $1`,
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	query := toFloat64(embedding)
	queryNorm := floats.Norm(query, 2)
	if queryNorm == 0 {
		return nil, nil
	}

	var hits []interfaces.VectorHit
	for rows.Next() {
		var hit interfaces.VectorHit
		var text string
		var candidate []float32
		if err := rows.Scan(&hit.ChunkID, &text, &candidate, &hit.DocID, &hit.Title); err != nil {
			return nil, err
		}
		hit.Text = text
		hit.Score = cosineSimilarity(query, queryNorm, candidate)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// cosineSimilarity clamps into [0, 1]; anti-correlated chunks score 0
// because negative similarity carries no retrieval value here.
func cosineSimilarity(query []float64, queryNorm float64, candidate []float32) float64 {
	if len(candidate) != len(query) {
		return 0
	}
	v := toFloat64(candidate)
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return 0
	}
	score := floats.Dot(query, v) / (queryNorm * norm)
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
